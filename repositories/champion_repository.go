package repositories

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Dosada05/tournament-portal/models"
)

type ChampionRepository interface {
	Get(ctx context.Context, tournamentID models.ID) (*models.ManualChampion, error)
	Set(ctx context.Context, tournamentID models.ID, champion models.ManualChampion) error
	Clear(ctx context.Context, tournamentID models.ID) error
}

type restChampionRepository struct {
	client *Client
}

func NewRESTChampionRepository(client *Client) ChampionRepository {
	return &restChampionRepository{client: client}
}

// Get возвращает nil без ошибки, если чемпион не назначен.
func (r *restChampionRepository) Get(ctx context.Context, tournamentID models.ID) (*models.ManualChampion, error) {
	var payload struct {
		Champion *models.ManualChampion `json:"champion"`
	}
	query := url.Values{"tournamentId": {tournamentID.String()}}
	if err := r.client.Get(ctx, endpointChampion, query, &payload); err != nil {
		return nil, fmt.Errorf("failed to load champion of tournament %s: %w", tournamentID, err)
	}
	if payload.Champion == nil || payload.Champion.Name == "" {
		return nil, nil
	}
	return payload.Champion, nil
}

func (r *restChampionRepository) Set(ctx context.Context, tournamentID models.ID, champion models.ManualChampion) error {
	body := struct {
		TournamentID models.ID `json:"tournamentId"`
		models.ManualChampion
	}{tournamentID, champion}
	if err := r.client.Post(ctx, endpointChampionSet, body, nil); err != nil {
		return fmt.Errorf("failed to set champion of tournament %s: %w", tournamentID, err)
	}
	return nil
}

func (r *restChampionRepository) Clear(ctx context.Context, tournamentID models.ID) error {
	body := map[string]models.ID{"tournamentId": tournamentID}
	if err := r.client.Post(ctx, endpointChampionClear, body, nil); err != nil {
		return fmt.Errorf("failed to clear champion of tournament %s: %w", tournamentID, err)
	}
	return nil
}
