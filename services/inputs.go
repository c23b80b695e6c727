package services

import (
	"io"
	"strings"

	"github.com/Dosada05/tournament-portal/models"
)

// --- Входные данные модальных форм. Проверяется только наличие значений. ---

type CreateTournamentInput struct {
	Name            string                `json:"name"`
	Description     string                `json:"description"`
	Type            models.TournamentType `json:"type"`
	TeamSize        int                   `json:"teamSize"`
	MaxParticipants int                   `json:"maxParticipants"`
	BracketType     models.BracketType    `json:"bracketType"`
	Maps            []string              `json:"maps"`
	StartDate       string                `json:"startDate"`
	EndDate         string                `json:"endDate"`
}

func (in *CreateTournamentInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.TeamSize == 0 {
		in.TeamSize = 1
	}
	if in.Type == "" {
		in.Type = models.TournamentIndividual
	}
	if in.BracketType == "" {
		in.BracketType = models.BracketSingleElimination
	}
	v := validator{}
	v.check(in.Name != "", "name", "required")
	v.check(in.TeamSize >= 1, "teamSize", "must be at least 1")
	v.check(in.MaxParticipants >= 0, "maxParticipants", "must not be negative")
	return v.err()
}

type CreateMatchInput struct {
	Round             int         `json:"round"`
	MatchNumber       int         `json:"matchNumber"`
	Participant1ID    models.ID   `json:"participant1Id"`
	Participant2ID    models.ID   `json:"participant2Id"`
	Team1Participants []models.ID `json:"team1Participants"`
	Team2Participants []models.ID `json:"team2Participants"`
	ScheduledAt       string      `json:"scheduledAt"`
}

func (in *CreateMatchInput) Validate(teamMode bool) error {
	v := validator{}
	v.check(in.Round >= 1, "round", "must be at least 1")
	v.check(in.MatchNumber >= 0, "matchNumber", "must not be negative")
	if teamMode {
		v.check(len(in.Team1Participants) > 0, "team1Participants", "required")
		v.check(len(in.Team2Participants) > 0, "team2Participants", "required")
	} else {
		v.check(!in.Participant1ID.IsZero(), "participant1Id", "required")
		v.check(!in.Participant2ID.IsZero(), "participant2Id", "required")
	}
	return v.err()
}

type UpdateMatchInput struct {
	Score1      int                `json:"score1"`
	Score2      int                `json:"score2"`
	Status      models.MatchStatus `json:"status"`
	MapPlayed   string             `json:"mapPlayed"`
	ScheduledAt string             `json:"scheduledAt"`
	Notes       string             `json:"notes"`
}

func (in *UpdateMatchInput) Validate() error {
	v := validator{}
	v.check(in.Status.Valid(), "status", "unknown status")
	v.check(in.Score1 >= 0, "score1", "must not be negative")
	v.check(in.Score2 >= 0, "score2", "must not be negative")
	return v.err()
}

type RenameTeamInput struct {
	Side int    `json:"side"`
	Name string `json:"name"`
}

func (in *RenameTeamInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	v := validator{}
	v.check(in.Side == 1 || in.Side == 2, "side", "must be 1 or 2")
	v.check(in.Name != "", "name", "required")
	return v.err()
}

type RenameRoundInput struct {
	Round int    `json:"round"`
	Title string `json:"title"`
}

func (in *RenameRoundInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	v := validator{}
	v.check(in.Round >= 1, "round", "must be at least 1")
	v.check(in.Title != "", "title", "required")
	return v.err()
}

type SetChampionInput struct {
	Type             models.ChampionType `json:"type"`
	ParticipantID    models.ID           `json:"participantId"`
	TeamParticipants []models.ID         `json:"teamParticipants"`
	Name             string              `json:"name"`
}

func (in *SetChampionInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	v := validator{}
	v.check(in.Type == models.ChampionIndividual || in.Type == models.ChampionTeam, "type", "must be individual or team")
	v.check(in.Name != "", "name", "required")
	if in.Type == models.ChampionTeam {
		v.check(len(in.TeamParticipants) > 0, "teamParticipants", "required")
	} else {
		v.check(!in.ParticipantID.IsZero(), "participantId", "required")
	}
	return v.err()
}

type UploadMatchImageInput struct {
	ImageType   models.ImageType
	Description string
	ContentType string
	Body        io.Reader
}

func (in *UploadMatchImageInput) Validate() error {
	if in.ImageType == "" {
		in.ImageType = models.ImageGeneral
	}
	v := validator{}
	v.check(in.ImageType.Valid(), "imageType", "must be ida, vuelta or general")
	v.check(in.ContentType != "", "image", "content type is required")
	v.check(in.Body != nil, "image", "required")
	return v.err()
}
