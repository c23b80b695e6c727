package repositories

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Dosada05/tournament-portal/models"
)

type RoundTitleRepository interface {
	ListByTournament(ctx context.Context, tournamentID models.ID) (models.RoundTitles, error)
	Update(ctx context.Context, tournamentID models.ID, round int, title string) error
}

type restRoundTitleRepository struct {
	client *Client
}

func NewRESTRoundTitleRepository(client *Client) RoundTitleRepository {
	return &restRoundTitleRepository{client: client}
}

func (r *restRoundTitleRepository) ListByTournament(ctx context.Context, tournamentID models.ID) (models.RoundTitles, error) {
	var payload struct {
		RoundTitles models.RoundTitles `json:"roundTitles"`
	}
	query := url.Values{"tournamentId": {tournamentID.String()}}
	if err := r.client.Get(ctx, endpointRoundTitles, query, &payload); err != nil {
		return nil, fmt.Errorf("failed to load round titles for tournament %s: %w", tournamentID, err)
	}
	if payload.RoundTitles == nil {
		return models.RoundTitles{}, nil
	}
	return payload.RoundTitles, nil
}

func (r *restRoundTitleRepository) Update(ctx context.Context, tournamentID models.ID, round int, title string) error {
	body := struct {
		TournamentID models.ID `json:"tournamentId"`
		Round        int       `json:"round"`
		Title        string    `json:"title"`
	}{tournamentID, round, title}
	if err := r.client.Post(ctx, endpointRoundTitleUpdate, body, nil); err != nil {
		return fmt.Errorf("failed to rename round %d of tournament %s: %w", round, tournamentID, err)
	}
	return nil
}
