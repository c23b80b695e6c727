package repositories

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Dosada05/tournament-portal/models"
)

type MatchImageRepository interface {
	ListByMatch(ctx context.Context, matchID models.ID) ([]models.MatchImage, error)
	Add(ctx context.Context, params AddMatchImageParams) (*models.MatchImage, error)
}

type AddMatchImageParams struct {
	MatchID     models.ID        `json:"matchId"`
	ImageType   models.ImageType `json:"imageType"`
	ImageURL    string           `json:"imageUrl"`
	Description string           `json:"description,omitempty"`
}

type restMatchImageRepository struct {
	client *Client
}

func NewRESTMatchImageRepository(client *Client) MatchImageRepository {
	return &restMatchImageRepository{client: client}
}

func (r *restMatchImageRepository) ListByMatch(ctx context.Context, matchID models.ID) ([]models.MatchImage, error) {
	var payload struct {
		Images []models.MatchImage `json:"images"`
	}
	query := url.Values{"matchId": {matchID.String()}}
	if err := r.client.Get(ctx, endpointMatchImages, query, &payload); err != nil {
		return nil, fmt.Errorf("failed to list images for match %s: %w", matchID, err)
	}
	if payload.Images == nil {
		return []models.MatchImage{}, nil
	}
	return payload.Images, nil
}

func (r *restMatchImageRepository) Add(ctx context.Context, params AddMatchImageParams) (*models.MatchImage, error) {
	var payload struct {
		Image   *models.MatchImage `json:"image"`
		ImageID models.ID          `json:"imageId"`
	}
	if err := r.client.Post(ctx, endpointMatchImageAdd, params, &payload); err != nil {
		return nil, fmt.Errorf("failed to register image for match %s: %w", params.MatchID, err)
	}
	if payload.Image != nil {
		return payload.Image, nil
	}
	return &models.MatchImage{
		ID:          payload.ImageID,
		MatchID:     params.MatchID,
		ImageType:   params.ImageType,
		ImageURL:    params.ImageURL,
		Description: params.Description,
	}, nil
}
