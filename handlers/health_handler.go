package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Dosada05/tournament-portal/middleware"
	"github.com/Dosada05/tournament-portal/models"
)

// WatchLister reports which tournaments are being polled.
type WatchLister interface {
	Watching() []models.ID
}

type HealthHandler struct {
	watches WatchLister
	started time.Time
	logger  *slog.Logger
}

func NewHealthHandler(watches WatchLister, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{watches: watches, started: time.Now(), logger: logger}
}

// Healthz обрабатывает GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	watching := []models.ID{}
	if h.watches != nil {
		watching = h.watches.Watching()
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{
		"status":   "ok",
		"uptime":   time.Since(h.started).Round(time.Second).String(),
		"watching": watching,
	}, nil); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write health response", slog.Any("error", err))
	}
}

// Session обрабатывает GET /api/session: пользователь текущей сессии или null
// и CSRF-токен для заголовка X-CSRF-Token.
func (h *HealthHandler) Session(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	successResponse(w, r, h.logger, http.StatusOK, jsonResponse{
		"user":      user,
		"isAdmin":   user.IsAdmin(),
		"csrfToken": middleware.CSRFToken(r),
	})
}
