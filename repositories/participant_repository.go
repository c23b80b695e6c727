package repositories

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Dosada05/tournament-portal/models"
)

type ParticipantRepository interface {
	ListByTournament(ctx context.Context, tournamentID models.ID) ([]models.Participant, error)
}

type restParticipantRepository struct {
	client *Client
}

func NewRESTParticipantRepository(client *Client) ParticipantRepository {
	return &restParticipantRepository{client: client}
}

func (r *restParticipantRepository) ListByTournament(ctx context.Context, tournamentID models.ID) ([]models.Participant, error) {
	var payload struct {
		Participants []models.Participant `json:"participants"`
	}
	query := url.Values{"tournamentId": {tournamentID.String()}}
	if err := r.client.Get(ctx, endpointParticipants, query, &payload); err != nil {
		return nil, fmt.Errorf("failed to list participants for tournament %s: %w", tournamentID, err)
	}
	if payload.Participants == nil {
		return []models.Participant{}, nil
	}
	return payload.Participants, nil
}
