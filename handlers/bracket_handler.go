package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Dosada05/tournament-portal/models"
	"github.com/Dosada05/tournament-portal/services"
	"github.com/Dosada05/tournament-portal/views"
)

// BracketEditor - изменения сетки, которые выполняют модальные формы.
type BracketEditor interface {
	CreateMatch(ctx context.Context, tournamentID models.ID, in services.CreateMatchInput) (*models.Match, error)
	UpdateMatch(ctx context.Context, tournamentID, matchID models.ID, in services.UpdateMatchInput) (*models.Match, error)
	DeleteMatch(ctx context.Context, tournamentID, matchID models.ID) error
	RenameRound(ctx context.Context, tournamentID models.ID, in services.RenameRoundInput) error
	RenameTeam(ctx context.Context, tournamentID, matchID models.ID, in services.RenameTeamInput) error
	SetChampion(ctx context.Context, tournamentID models.ID, in services.SetChampionInput) (*models.ManualChampion, error)
	ClearChampion(ctx context.Context, tournamentID models.ID) error
	GenerateBracket(ctx context.Context, tournamentID models.ID) error
	UploadMatchImage(ctx context.Context, tournamentID, matchID models.ID, in services.UploadMatchImageInput) (*models.MatchImage, error)
}

// MaxUploadBytes - предел тела при загрузке скриншота матча.
const MaxUploadBytes = 10 << 20

type BracketHandler struct {
	bracket        BracketEditor
	logger         *slog.Logger
	maxUploadBytes int64
}

func NewBracketHandler(bracket BracketEditor, logger *slog.Logger) *BracketHandler {
	return &BracketHandler{
		bracket:        bracket,
		logger:         logger,
		maxUploadBytes: MaxUploadBytes,
	}
}

func tournamentPage(id models.ID, tab string) string {
	return "/tournaments/" + id.String() + "?tab=" + tab
}

// ids читает id турнира и, если нужно, id матча из URL.
func ids(r *http.Request, withMatch bool) (models.ID, models.ID, error) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		return "", "", &services.ValidationError{Fields: map[string]string{"tournamentID": err.Error()}}
	}
	if !withMatch {
		return tournamentID, "", nil
	}
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		return "", "", &services.ValidationError{Fields: map[string]string{"matchID": err.Error()}}
	}
	return tournamentID, matchID, nil
}

// GenerateBracket обрабатывает POST /tournaments/{tournamentID}/generate
func (h *BracketHandler) GenerateBracket(w http.ResponseWriter, r *http.Request) {
	tournamentID, _, err := ids(r, false)
	if err == nil {
		err = h.bracket.GenerateBracket(r.Context(), tournamentID)
	}
	finishMutation(w, r, h.logger, err, "Error al generar el bracket.", mutationResult{
		redirect: tournamentPage(tournamentID, views.TabBracket),
		notice:   "Bracket generado.",
	})
}

// CreateMatch обрабатывает POST /tournaments/{tournamentID}/matches
func (h *BracketHandler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	tournamentID, _, err := ids(r, false)
	var input services.CreateMatchInput
	if err == nil {
		err = decodeInput(w, r, &input, func(f *formReader) {
			input = services.CreateMatchInput{
				Round:             f.Int("round"),
				MatchNumber:       f.Int("matchNumber"),
				Participant1ID:    f.ID("participant1Id"),
				Participant2ID:    f.ID("participant2Id"),
				Team1Participants: f.IDs("team1Participants"),
				Team2Participants: f.IDs("team2Participants"),
				ScheduledAt:       f.String("scheduledAt"),
			}
		})
	}

	var match *models.Match
	if err == nil {
		match, err = h.bracket.CreateMatch(r.Context(), tournamentID, input)
	}
	finishMutation(w, r, h.logger, err, "Error al crear el partido.", mutationResult{
		redirect: tournamentPage(tournamentID, views.TabBracket),
		status:   http.StatusCreated,
		notice:   "Partido creado.",
		data:     jsonResponse{"match": match},
	})
}

// UpdateMatch обрабатывает POST /tournaments/{tournamentID}/matches/{matchID}
func (h *BracketHandler) UpdateMatch(w http.ResponseWriter, r *http.Request) {
	tournamentID, matchID, err := ids(r, true)
	var input services.UpdateMatchInput
	if err == nil {
		err = decodeInput(w, r, &input, func(f *formReader) {
			input = services.UpdateMatchInput{
				Score1:      f.Int("score1"),
				Score2:      f.Int("score2"),
				Status:      models.MatchStatus(f.String("status")),
				MapPlayed:   f.String("mapPlayed"),
				ScheduledAt: f.String("scheduledAt"),
				Notes:       f.String("notes"),
			}
		})
	}

	var match *models.Match
	if err == nil {
		match, err = h.bracket.UpdateMatch(r.Context(), tournamentID, matchID, input)
	}
	finishMutation(w, r, h.logger, err, "Error al actualizar el partido.", mutationResult{
		redirect: tournamentPage(tournamentID, views.TabBracket),
		notice:   "Partido actualizado.",
		data:     jsonResponse{"match": match},
	})
}

// DeleteMatch обрабатывает POST /tournaments/{tournamentID}/matches/{matchID}/delete
func (h *BracketHandler) DeleteMatch(w http.ResponseWriter, r *http.Request) {
	tournamentID, matchID, err := ids(r, true)
	if err == nil {
		err = h.bracket.DeleteMatch(r.Context(), tournamentID, matchID)
	}
	finishMutation(w, r, h.logger, err, "Error al eliminar el partido.", mutationResult{
		redirect: tournamentPage(tournamentID, views.TabBracket),
		notice:   "Partido eliminado.",
	})
}

// RenameTeam обрабатывает POST /tournaments/{tournamentID}/matches/{matchID}/teams
func (h *BracketHandler) RenameTeam(w http.ResponseWriter, r *http.Request) {
	tournamentID, matchID, err := ids(r, true)
	var input services.RenameTeamInput
	if err == nil {
		err = decodeInput(w, r, &input, func(f *formReader) {
			input = services.RenameTeamInput{Side: f.Int("side"), Name: f.String("name")}
		})
	}
	if err == nil {
		err = h.bracket.RenameTeam(r.Context(), tournamentID, matchID, input)
	}
	finishMutation(w, r, h.logger, err, "Error al renombrar el equipo.", mutationResult{
		redirect: tournamentPage(tournamentID, views.TabBracket),
		notice:   "Equipo renombrado.",
	})
}

// RenameRound обрабатывает POST /tournaments/{tournamentID}/rounds/{round}
func (h *BracketHandler) RenameRound(w http.ResponseWriter, r *http.Request) {
	tournamentID, _, err := ids(r, false)
	var input services.RenameRoundInput
	if err == nil {
		var round int
		round, err = getIntFromURL(r, "round")
		if err != nil {
			err = &services.ValidationError{Fields: map[string]string{"round": err.Error()}}
		} else {
			err = decodeInput(w, r, &input, func(f *formReader) {
				input = services.RenameRoundInput{Title: f.String("title")}
			})
			input.Round = round
		}
	}
	if err == nil {
		err = h.bracket.RenameRound(r.Context(), tournamentID, input)
	}
	finishMutation(w, r, h.logger, err, "Error al renombrar la ronda.", mutationResult{
		redirect: tournamentPage(tournamentID, views.TabBracket),
		notice:   "Ronda renombrada.",
	})
}

// SetChampion обрабатывает POST /tournaments/{tournamentID}/champion
func (h *BracketHandler) SetChampion(w http.ResponseWriter, r *http.Request) {
	tournamentID, _, err := ids(r, false)
	var input services.SetChampionInput
	if err == nil {
		err = decodeInput(w, r, &input, func(f *formReader) {
			input = services.SetChampionInput{
				Type:             models.ChampionType(f.String("type")),
				ParticipantID:    f.ID("participantId"),
				TeamParticipants: f.IDs("teamParticipants"),
				Name:             f.String("name"),
			}
		})
	}

	var champion *models.ManualChampion
	if err == nil {
		champion, err = h.bracket.SetChampion(r.Context(), tournamentID, input)
	}
	finishMutation(w, r, h.logger, err, "Error al designar el campeón.", mutationResult{
		redirect: tournamentPage(tournamentID, views.TabBracket),
		notice:   "Campeón designado.",
		data:     jsonResponse{"champion": champion},
	})
}

// ClearChampion обрабатывает POST /tournaments/{tournamentID}/champion/clear
func (h *BracketHandler) ClearChampion(w http.ResponseWriter, r *http.Request) {
	tournamentID, _, err := ids(r, false)
	if err == nil {
		err = h.bracket.ClearChampion(r.Context(), tournamentID)
	}
	finishMutation(w, r, h.logger, err, "Error al quitar el campeón.", mutationResult{
		redirect: tournamentPage(tournamentID, views.TabBracket),
		notice:   "Campeón eliminado.",
	})
}

// UploadMatchImage обрабатывает POST /tournaments/{tournamentID}/matches/{matchID}/images (multipart).
func (h *BracketHandler) UploadMatchImage(w http.ResponseWriter, r *http.Request) {
	tournamentID, matchID, err := ids(r, true)

	var image *models.MatchImage
	if err == nil {
		image, err = h.uploadMatchImage(w, r, tournamentID, matchID)
	}
	finishMutation(w, r, h.logger, err, "Error al subir la imagen.", mutationResult{
		redirect: tournamentPage(tournamentID, views.TabMatches),
		status:   http.StatusCreated,
		notice:   "Imagen subida.",
		data:     jsonResponse{"image": image},
	})
}

func (h *BracketHandler) uploadMatchImage(w http.ResponseWriter, r *http.Request, tournamentID, matchID models.ID) (*models.MatchImage, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			return nil, &services.ValidationError{Fields: map[string]string{"image": "file is too large"}}
		}
		return nil, &services.ValidationError{Fields: map[string]string{"image": "multipart form expected"}}
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, &services.ValidationError{Fields: map[string]string{"image": "required"}}
	}
	defer file.Close()

	return h.bracket.UploadMatchImage(r.Context(), tournamentID, matchID, services.UploadMatchImageInput{
		ImageType:   models.ImageType(r.FormValue("imageType")),
		Description: r.FormValue("description"),
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
}
