package middleware

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"
)

// LimitMultipart ограничивает multipart-тело и разбирает его до CSRF:
// проверка токена читает поле формы, а значит и всё тело запроса.
// Слишком большое тело получает 413 ещё до обработчика.
func LimitMultipart(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if r.Method != http.MethodPost || mediaType != "multipart/form-data" {
				next.ServeHTTP(w, r)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			if err := r.ParseMultipartForm(maxBytes); err != nil {
				var maxBytesError *http.MaxBytesError
				if errors.As(err, &maxBytesError) {
					tooLarge(w, r)
					return
				}
				// Битое тело: обработчик сам ответит ошибкой валидации.
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tooLarge(w http.ResponseWriter, r *http.Request) {
	const message = "El archivo es demasiado grande."
	if strings.HasPrefix(r.URL.Path, "/api/") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"message": message,
		})
		return
	}
	http.Error(w, message, http.StatusRequestEntityTooLarge)
}
