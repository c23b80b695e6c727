package services

import (
	"errors"
	"sort"
	"strings"

	"github.com/Dosada05/tournament-portal/repositories"
)

// Общие ошибки сервисов, маппятся в HTTP-ответы в handlers.
var (
	ErrValidationFailed   = errors.New("validation failed")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrMutationInProgress = errors.New("a change to this item is already being saved")
	ErrUploadsDisabled    = errors.New("match image uploads are not configured")
	ErrUnsupportedImage   = errors.New("unsupported image content type")
)

// ValidationError - ошибка проверки формы до обращения к бэкенду.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

type validator map[string]string

func (v validator) check(ok bool, field, message string) {
	if !ok {
		if _, exists := v[field]; !exists {
			v[field] = message
		}
	}
}

func (v validator) err() error {
	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Fields: v}
}

// UserMessage возвращает текст ошибки для показа пользователю: сообщение
// бэкенда, если оно есть, иначе fallback.
func UserMessage(err error, fallback string) string {
	var apiErr *repositories.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "Revisa los campos: " + strings.TrimPrefix(vErr.Error(), "validation failed: ")
	}
	switch {
	case errors.Is(err, ErrMutationInProgress):
		return "Ya se está guardando un cambio, espera un momento."
	case errors.Is(err, ErrMatchNotFound):
		return "El partido ya no existe."
	case errors.Is(err, ErrTournamentNotFound):
		return "El torneo no existe."
	case errors.Is(err, ErrUploadsDisabled):
		return "La subida de imágenes no está configurada."
	case errors.Is(err, ErrUnsupportedImage):
		return "Formato de imagen no soportado."
	}
	return fallback
}
