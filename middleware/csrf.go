package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/csrf"
)

const (
	// CSRFFieldName - имя скрытого поля формы с токеном.
	CSRFFieldName = "csrf_token"
	// CSRFHeader - заголовок с токеном для JSON API.
	CSRFHeader = "X-CSRF-Token"
	// CSRFCookieName - cookie портала с подписанным токеном; бэкенду не передаётся.
	CSRFCookieName = "portal_csrf"
)

type CSRFOptions struct {
	AuthKey []byte
	// Secure включает Secure у cookie и строгую проверку Referer (HTTPS).
	Secure bool
	// TrustedOrigins - origins из CORS_ALLOWED_ORIGINS, которым разрешено
	// отправлять изменения с другого хоста.
	TrustedOrigins []string
}

// CSRF защищает изменяющие запросы (формы и JSON API): токен из cookie
// портала должен совпасть с полем csrf_token или заголовком X-CSRF-Token,
// а Origin должен быть своим или доверенным.
func CSRF(opts CSRFOptions, logger *slog.Logger) func(http.Handler) http.Handler {
	protect := csrf.Protect(opts.AuthKey,
		csrf.CookieName(CSRFCookieName),
		csrf.FieldName(CSRFFieldName),
		csrf.RequestHeader(CSRFHeader),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.Secure(opts.Secure),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.TrustedOrigins(originHosts(opts.TrustedOrigins)),
		csrf.ErrorHandler(csrfFailure(logger)),
	)

	return func(next http.Handler) http.Handler {
		h := protect(next)
		if opts.Secure {
			return h
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}

// CSRFToken returns the masked token for forms and API clients.
func CSRFToken(r *http.Request) string {
	return csrf.Token(r)
}

func csrfFailure(logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.WarnContext(r.Context(), "csrf check failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("origin", r.Header.Get("Origin")),
			slog.Any("reason", csrf.FailureReason(r)))

		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"message": "Solicitud rechazada: token CSRF inválido o ausente.",
			})
			return
		}
		http.Error(w, "Solicitud rechazada: recarga la página e inténtalo de nuevo.", http.StatusForbidden)
	})
}

// originHosts оставляет от origins только host[:port], как ждёт csrf.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			continue
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
		}
	}
	return hosts
}

// backendCookies отбрасывает cookie портала перед передачей бэкенду.
func backendCookies(cookies []*http.Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		if c.Name != CSRFCookieName {
			out = append(out, c)
		}
	}
	return out
}
