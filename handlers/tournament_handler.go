package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Dosada05/tournament-portal/brackets"
	"github.com/Dosada05/tournament-portal/middleware"
	"github.com/Dosada05/tournament-portal/models"
	"github.com/Dosada05/tournament-portal/services"
	"github.com/Dosada05/tournament-portal/views"
	"github.com/a-h/templ"
)

// Watcher продлевает периодический опрос турнира, пока открыта вкладка сетки.
type Watcher interface {
	Watch(ctx context.Context, id models.ID)
}

type TournamentLister interface {
	List(ctx context.Context) ([]models.Tournament, error)
	Create(ctx context.Context, in services.CreateTournamentInput) (models.ID, error)
	Delete(ctx context.Context, id models.ID) error
}

type DetailLoader interface {
	Load(ctx context.Context, id models.ID) (services.Snapshot, error)
	RefreshTournamentData(ctx context.Context, id models.ID, trigger services.RefreshTrigger) error
}

type TournamentHandler struct {
	tournaments    TournamentLister
	detail         DetailLoader
	watcher        Watcher
	logger         *slog.Logger
	pollInterval   time.Duration
	uploadsEnabled bool
}

func NewTournamentHandler(tournaments TournamentLister, detail DetailLoader, watcher Watcher, logger *slog.Logger, pollInterval time.Duration, uploadsEnabled bool) *TournamentHandler {
	return &TournamentHandler{
		tournaments:    tournaments,
		detail:         detail,
		watcher:        watcher,
		logger:         logger,
		pollInterval:   pollInterval,
		uploadsEnabled: uploadsEnabled,
	}
}

// page собирает общие данные страницы: пользователя и flash из query.
func page(r *http.Request, title string) views.Page {
	p := views.Page{
		Title:     title,
		User:      middleware.GetUserFromContext(r.Context()),
		CSRFToken: middleware.CSRFToken(r),
	}
	q := r.URL.Query()
	if msg := q.Get("error"); msg != "" {
		p.Flash, p.Kind = msg, views.FlashError
	} else if msg := q.Get("notice"); msg != "" {
		p.Flash, p.Kind = msg, views.FlashSuccess
	}
	return p
}

func (h *TournamentHandler) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	templ.Handler(c, templ.WithStatus(status)).ServeHTTP(w, r)
}

func (h *TournamentHandler) renderError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "page failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	h.render(w, r, status, views.ErrorPage(page(r, "Error"), services.UserMessage(err, fallback)))
}

// ListPage обрабатывает GET /tournaments
func (h *TournamentHandler) ListPage(w http.ResponseWriter, r *http.Request) {
	tournaments, err := h.tournaments.List(r.Context())
	if err != nil {
		h.renderError(w, r, err, "No se pudieron cargar los torneos.")
		return
	}
	h.render(w, r, http.StatusOK, views.TournamentList(page(r, "Torneos"), tournaments))
}

// ListJSON обрабатывает GET /api/tournaments
func (h *TournamentHandler) ListJSON(w http.ResponseWriter, r *http.Request) {
	tournaments, err := h.tournaments.List(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err, "No se pudieron cargar los torneos.")
		return
	}
	successResponse(w, r, h.logger, http.StatusOK, jsonResponse{"tournaments": tournaments})
}

// Create обрабатывает POST /tournaments и POST /api/tournaments
func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateTournamentInput
	err := decodeInput(w, r, &input, func(f *formReader) {
		input = services.CreateTournamentInput{
			Name:            f.String("name"),
			Description:     f.String("description"),
			Type:            models.TournamentType(f.String("type")),
			TeamSize:        f.Int("teamSize"),
			MaxParticipants: f.Int("maxParticipants"),
			BracketType:     models.BracketType(f.String("bracketType")),
			Maps:            f.List("maps"),
			StartDate:       f.String("startDate"),
			EndDate:         f.String("endDate"),
		}
	})

	var id models.ID
	if err == nil {
		id, err = h.tournaments.Create(r.Context(), input)
	}

	res := mutationResult{redirect: "/tournaments", status: http.StatusCreated, notice: "Torneo creado."}
	if err == nil && !id.IsZero() {
		res.redirect = "/tournaments/" + id.String()
		res.data = jsonResponse{"tournamentId": id}
	}
	finishMutation(w, r, h.logger, err, "Error al crear el torneo.", res)
}

// Delete обрабатывает POST /tournaments/{tournamentID}/delete и DELETE /api/tournaments/{tournamentID}
func (h *TournamentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err == nil {
		err = h.tournaments.Delete(r.Context(), id)
	}
	finishMutation(w, r, h.logger, err, "Error al eliminar el torneo.", mutationResult{
		redirect: "/tournaments",
		notice:   "Torneo eliminado.",
	})
}

func (h *TournamentHandler) detailData(snap services.Snapshot, tab string) views.DetailData {
	return views.DetailData{
		State:          snap,
		Tab:            tab,
		View:           brackets.BuildView(snap.Tournament, snap.Matches, snap.RoundTitles, snap.Champion),
		Leaderboard:    brackets.SortLeaderboard(snap.Participants),
		UploadsEnabled: h.uploadsEnabled,
	}
}

// DetailPage обрабатывает GET /tournaments/{tournamentID}?tab=
func (h *TournamentHandler) DetailPage(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		h.renderError(w, r, services.ErrTournamentNotFound, "")
		return
	}

	snap, err := h.detail.Load(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err, "No se pudo cargar el torneo.")
		return
	}

	tab := views.ParseTab(r.URL.Query().Get("tab"))
	p := page(r, snap.Tournament.Name)
	if tab == views.TabBracket {
		if h.watcher != nil {
			h.watcher.Watch(r.Context(), id)
		}
		// Администратор работает с модальными формами: перезагрузка сбросила
		// бы открытую форму, поэтому автообновление только для гостей.
		if !p.IsAdmin() {
			p.RefreshSeconds = int(h.pollInterval / time.Second)
			p.RefreshURL = tournamentPage(id, views.TabBracket)
		}
	}
	data := h.detailData(snap, tab)
	data.CSRFToken = p.CSRFToken
	h.render(w, r, http.StatusOK, views.TournamentDetail(p, data))
}

// DetailJSON обрабатывает GET /api/tournaments/{tournamentID}
func (h *TournamentHandler) DetailJSON(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, services.ErrTournamentNotFound, "")
		return
	}
	snap, err := h.detail.Load(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err, "No se pudo cargar el torneo.")
		return
	}
	if h.watcher != nil {
		h.watcher.Watch(r.Context(), id)
	}
	data := h.detailData(snap, views.TabBracket)
	successResponse(w, r, h.logger, http.StatusOK, jsonResponse{
		"state":       snap,
		"bracket":     data.View,
		"leaderboard": data.Leaderboard,
	})
}

// Refresh обрабатывает кнопку "Actualizar": POST /tournaments/{tournamentID}/refresh
func (h *TournamentHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err == nil {
		err = h.detail.RefreshTournamentData(r.Context(), id, services.TriggerManual)
	}
	tab := views.ParseTab(r.URL.Query().Get("tab"))
	if errors.Is(err, context.Canceled) {
		return
	}
	finishMutation(w, r, h.logger, err, "No se pudieron actualizar los datos.", mutationResult{
		redirect: "/tournaments/" + id.String() + "?tab=" + tab,
		notice:   "Datos actualizados.",
	})
}
