package repositories

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Dosada05/tournament-portal/models"
)

type MatchRepository interface {
	ListByTournament(ctx context.Context, tournamentID models.ID) ([]models.MatchRecord, error)
	Create(ctx context.Context, params CreateMatchParams) (*CreatedMatch, error)
	Update(ctx context.Context, params UpdateMatchParams) error
	UpdateTeams(ctx context.Context, params UpdateMatchTeamsParams) error
	Delete(ctx context.Context, matchID models.ID) error
	GenerateBracket(ctx context.Context, tournamentID models.ID) error
}

type CreateMatchParams struct {
	TournamentID      models.ID   `json:"tournamentId"`
	Round             int         `json:"round"`
	MatchNumber       int         `json:"matchNumber"`
	Participant1ID    *models.ID  `json:"participant1Id,omitempty"`
	Participant2ID    *models.ID  `json:"participant2Id,omitempty"`
	Team1Participants []models.ID `json:"team1Participants,omitempty"`
	Team2Participants []models.ID `json:"team2Participants,omitempty"`
	ScheduledAt       string      `json:"scheduledAt,omitempty"`
}

// UpdateMatchParams отправляется в update-match.php как есть: победителя
// вычисляет портал, бэкенд его просто сохраняет.
type UpdateMatchParams struct {
	MatchID     models.ID          `json:"matchId"`
	Score1      int                `json:"score1"`
	Score2      int                `json:"score2"`
	Status      models.MatchStatus `json:"status"`
	WinnerID    *models.ID         `json:"winnerId"`
	WinnerTeam  *int               `json:"winnerTeam"`
	MapPlayed   string             `json:"mapPlayed,omitempty"`
	ScheduledAt string             `json:"scheduledAt,omitempty"`
	Notes       string             `json:"notes,omitempty"`
}

type UpdateMatchTeamsParams struct {
	MatchID         models.ID `json:"matchId"`
	Team1CustomName *string   `json:"team1CustomName,omitempty"`
	Team2CustomName *string   `json:"team2CustomName,omitempty"`
}

// CreatedMatch - ответ create-match.php. Одни версии бэкенда возвращают
// матч целиком, другие только его id.
type CreatedMatch struct {
	ID     models.ID
	Record *models.MatchRecord
}

type restMatchRepository struct {
	client *Client
}

func NewRESTMatchRepository(client *Client) MatchRepository {
	return &restMatchRepository{client: client}
}

func (r *restMatchRepository) ListByTournament(ctx context.Context, tournamentID models.ID) ([]models.MatchRecord, error) {
	var payload struct {
		Matches []models.MatchRecord `json:"matches"`
	}
	query := url.Values{"tournamentId": {tournamentID.String()}}
	if err := r.client.Get(ctx, endpointMatches, query, &payload); err != nil {
		return nil, fmt.Errorf("failed to list matches for tournament %s: %w", tournamentID, err)
	}
	if payload.Matches == nil {
		return []models.MatchRecord{}, nil
	}
	return payload.Matches, nil
}

func (r *restMatchRepository) Create(ctx context.Context, params CreateMatchParams) (*CreatedMatch, error) {
	var payload struct {
		Match   *models.MatchRecord `json:"match"`
		MatchID models.ID           `json:"matchId"`
	}
	if err := r.client.Post(ctx, endpointMatchCreate, params, &payload); err != nil {
		return nil, fmt.Errorf("failed to create match in round %d for tournament %s: %w", params.Round, params.TournamentID, err)
	}
	created := &CreatedMatch{ID: payload.MatchID, Record: payload.Match}
	if created.ID == "" && payload.Match != nil {
		created.ID = payload.Match.ID
	}
	return created, nil
}

func (r *restMatchRepository) Update(ctx context.Context, params UpdateMatchParams) error {
	if err := r.client.Post(ctx, endpointMatchUpdate, params, nil); err != nil {
		return fmt.Errorf("failed to update match %s: %w", params.MatchID, err)
	}
	return nil
}

func (r *restMatchRepository) UpdateTeams(ctx context.Context, params UpdateMatchTeamsParams) error {
	if err := r.client.Post(ctx, endpointMatchUpdateTeams, params, nil); err != nil {
		return fmt.Errorf("failed to rename teams of match %s: %w", params.MatchID, err)
	}
	return nil
}

func (r *restMatchRepository) Delete(ctx context.Context, matchID models.ID) error {
	body := map[string]models.ID{"matchId": matchID}
	if err := r.client.Post(ctx, endpointMatchDelete, body, nil); err != nil {
		return fmt.Errorf("failed to delete match %s: %w", matchID, err)
	}
	return nil
}

func (r *restMatchRepository) GenerateBracket(ctx context.Context, tournamentID models.ID) error {
	body := map[string]models.ID{"tournamentId": tournamentID}
	if err := r.client.Post(ctx, endpointGenerateBracket, body, nil); err != nil {
		return fmt.Errorf("failed to generate bracket for tournament %s: %w", tournamentID, err)
	}
	return nil
}
