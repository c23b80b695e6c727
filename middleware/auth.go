package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Dosada05/tournament-portal/models"
	"github.com/Dosada05/tournament-portal/repositories"
)

// SessionResolver отдаёт пользователя текущей сессии бэкенда.
type SessionResolver interface {
	Current(ctx context.Context) (*models.SessionUser, error)
}

// Session пробрасывает cookie браузера во все запросы к бэкенду
// (credentials: 'include') и кладёт пользователя сессии в контекст.
// Ошибка проверки сессии не прерывает запрос: пользователь считается гостем.
func Session(sessions SessionResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookies := backendCookies(r.Cookies())
			ctx := repositories.WithCookies(r.Context(), cookies)

			if len(cookies) > 0 && sessions != nil {
				user, err := sessions.Current(ctx)
				if err != nil {
					logger.WarnContext(ctx, "session check failed", slog.Any("error", err))
				} else if user != nil {
					ctx = WithUser(ctx, user)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin отклоняет запрос, если пользователь сессии не администратор.
// Бэкенд проверяет права сам; здесь это только ранний отказ.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAdmin(r.Context()) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
