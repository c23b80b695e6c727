package repositories

import (
	"context"
	"fmt"

	"github.com/Dosada05/tournament-portal/models"
)

type TournamentRepository interface {
	List(ctx context.Context) ([]models.Tournament, error)
	GetByID(ctx context.Context, id models.ID) (*models.Tournament, error)
	Create(ctx context.Context, params CreateTournamentParams) (models.ID, error)
	Delete(ctx context.Context, id models.ID) error
}

type CreateTournamentParams struct {
	Name            string                `json:"name"`
	Description     string                `json:"description,omitempty"`
	Type            models.TournamentType `json:"type"`
	TeamSize        int                   `json:"teamSize"`
	MaxParticipants int                   `json:"maxParticipants"`
	BracketType     models.BracketType    `json:"bracketType"`
	Maps            []string              `json:"maps,omitempty"`
	StartDate       string                `json:"startDate,omitempty"`
	EndDate         string                `json:"endDate,omitempty"`
}

type restTournamentRepository struct {
	client *Client
}

func NewRESTTournamentRepository(client *Client) TournamentRepository {
	return &restTournamentRepository{client: client}
}

func (r *restTournamentRepository) List(ctx context.Context) ([]models.Tournament, error) {
	var payload struct {
		Tournaments []models.Tournament `json:"tournaments"`
	}
	if err := r.client.Get(ctx, endpointTournamentsAll, nil, &payload); err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	if payload.Tournaments == nil {
		return []models.Tournament{}, nil
	}
	return payload.Tournaments, nil
}

// GetByID ищет турнир в общем списке: отдельного эндпоинта у бэкенда нет.
func (r *restTournamentRepository) GetByID(ctx context.Context, id models.ID) (*models.Tournament, error) {
	tournaments, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tournaments {
		if tournaments[i].ID == id {
			return &tournaments[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrTournamentNotFound, id)
}

func (r *restTournamentRepository) Create(ctx context.Context, params CreateTournamentParams) (models.ID, error) {
	var payload struct {
		TournamentID models.ID `json:"tournamentId"`
		ID           models.ID `json:"id"`
	}
	if err := r.client.Post(ctx, endpointTournamentCreate, params, &payload); err != nil {
		return "", fmt.Errorf("failed to create tournament %q: %w", params.Name, err)
	}
	if payload.TournamentID != "" {
		return payload.TournamentID, nil
	}
	return payload.ID, nil
}

func (r *restTournamentRepository) Delete(ctx context.Context, id models.ID) error {
	body := map[string]models.ID{"tournamentId": id}
	if err := r.client.Post(ctx, endpointTournamentDelete, body, nil); err != nil {
		return fmt.Errorf("failed to delete tournament %s: %w", id, err)
	}
	return nil
}
