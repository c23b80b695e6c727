package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Dosada05/tournament-portal/models"
	"github.com/Dosada05/tournament-portal/repositories"
	"github.com/Dosada05/tournament-portal/services"
	"github.com/go-chi/chi/v5"
)

type jsonResponse map[string]interface{}

const maxJSONBytes = 1_048_576 // 1MB

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxJSONBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxJSONBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

// errorResponse пишет ответ в формате бэкенда: {success:false, message}.
func errorResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, message string, extra jsonResponse) {
	env := jsonResponse{"success": false, "message": message}
	for k, v := range extra {
		env[k] = v
	}
	if err := writeJSON(w, status, env, nil); err != nil {
		logger.ErrorContext(r.Context(), "failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func successResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, data jsonResponse) {
	env := jsonResponse{"success": true}
	for k, v := range data {
		env[k] = v
	}
	if err := writeJSON(w, status, env, nil); err != nil {
		logger.ErrorContext(r.Context(), "failed to write response", slog.Any("error", err))
	}
}

// statusForError выбирает HTTP-статус для ошибки сервисного слоя.
func statusForError(err error) int {
	var apiErr *repositories.APIError
	switch {
	case errors.Is(err, services.ErrValidationFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrTournamentNotFound),
		errors.Is(err, repositories.ErrTournamentNotFound),
		errors.Is(err, services.ErrMatchNotFound),
		errors.Is(err, services.ErrUploadsDisabled):
		return http.StatusNotFound
	case errors.Is(err, services.ErrMutationInProgress):
		return http.StatusConflict
	case errors.Is(err, services.ErrUnsupportedImage):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &apiErr):
		// Бэкенд часто отвечает 200 с success:false - это отказ, а не сбой.
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return apiErr.StatusCode
		}
		if apiErr.StatusCode >= 500 {
			return http.StatusBadGateway
		}
		return http.StatusBadRequest
	case errors.Is(err, repositories.ErrBackendUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// mapServiceErrorToHTTP преобразует ошибки сервисного слоя в JSON-ответы.
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, fallback string) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}

	var extra jsonResponse
	var vErr *services.ValidationError
	if errors.As(err, &vErr) {
		extra = jsonResponse{"errors": vErr.Fields}
	}
	errorResponse(w, r, logger, status, services.UserMessage(err, fallback), extra)
}

// isAPI reports whether the request came through the JSON API routes.
func isAPI(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}

func isJSONBody(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func getIDFromURL(r *http.Request, param string) (models.ID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	if raw == "" {
		return "", fmt.Errorf("missing %s in URL", param)
	}
	return models.ID(raw), nil
}

func getIntFromURL(r *http.Request, param string) (int, error) {
	raw := chi.URLParam(r, param)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s in URL: %q", param, raw)
	}
	return n, nil
}

// formReader собирает ошибки разбора полей формы в одну ValidationError.
type formReader struct {
	values url.Values
	fields map[string]string
}

func newFormReader(values url.Values) *formReader {
	return &formReader{values: values, fields: map[string]string{}}
}

func (f *formReader) String(key string) string {
	return strings.TrimSpace(f.values.Get(key))
}

func (f *formReader) Int(key string) int {
	raw := f.String(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		f.fields[key] = "must be a number"
		return 0
	}
	return n
}

func (f *formReader) ID(key string) models.ID {
	return models.ID(f.String(key))
}

func (f *formReader) IDs(key string) []models.ID {
	var ids []models.ID
	for _, raw := range f.values[key] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				ids = append(ids, models.ID(part))
			}
		}
	}
	return ids
}

func (f *formReader) List(key string) []string {
	var items []string
	for _, part := range strings.Split(f.String(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

func (f *formReader) Err() error {
	if len(f.fields) == 0 {
		return nil
	}
	return &services.ValidationError{Fields: f.fields}
}

// decodeInput читает тело запроса как JSON или как форму.
func decodeInput(w http.ResponseWriter, r *http.Request, dst interface{}, fromForm func(*formReader)) error {
	if isJSONBody(r) {
		if err := readJSON(w, r, dst); err != nil {
			return &services.ValidationError{Fields: map[string]string{"body": err.Error()}}
		}
		return nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxJSONBytes))
	if err := r.ParseForm(); err != nil {
		return &services.ValidationError{Fields: map[string]string{"form": err.Error()}}
	}
	f := newFormReader(r.PostForm)
	fromForm(f)
	return f.Err()
}

// redirectWithFlash возвращает браузер на страницу с сообщением в query.
func redirectWithFlash(w http.ResponseWriter, r *http.Request, target, key, message string) {
	u, err := url.Parse(target)
	if err != nil {
		u = &url.URL{Path: "/tournaments"}
	}
	if message != "" {
		q := u.Query()
		q.Set(key, message)
		u.RawQuery = q.Encode()
	}
	http.Redirect(w, r, u.String(), http.StatusSeeOther)
}

// mutationResult описывает ответ на успешное изменение для обоих видов клиентов.
type mutationResult struct {
	redirect string
	status   int
	notice   string
	data     jsonResponse
}

// finishMutation отвечает на изменение: JSON-клиенту {success, message},
// браузеру - редирект с flash-сообщением. Текст ошибки берётся из ответа
// бэкенда, если он есть.
func finishMutation(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, fallback string, res mutationResult) {
	if err != nil {
		if isAPI(r) {
			mapServiceErrorToHTTP(w, r, logger, err, fallback)
			return
		}
		if statusForError(err) >= http.StatusInternalServerError {
			logger.ErrorContext(r.Context(), "mutation failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		}
		redirectWithFlash(w, r, res.redirect, "error", services.UserMessage(err, fallback))
		return
	}

	if isAPI(r) {
		status := res.status
		if status == 0 {
			status = http.StatusOK
		}
		data := jsonResponse{"message": res.notice}
		for k, v := range res.data {
			data[k] = v
		}
		successResponse(w, r, logger, status, data)
		return
	}
	redirectWithFlash(w, r, res.redirect, "notice", res.notice)
}
