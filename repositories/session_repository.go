package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-portal/models"
)

type SessionRepository interface {
	Current(ctx context.Context) (*models.SessionUser, error)
}

type restSessionRepository struct {
	client *Client
}

func NewRESTSessionRepository(client *Client) SessionRepository {
	return &restSessionRepository{client: client}
}

// Current возвращает (nil, nil) для анонимного посетителя.
func (r *restSessionRepository) Current(ctx context.Context) (*models.SessionUser, error) {
	var payload struct {
		User *models.SessionUser `json:"user"`
	}
	err := r.client.Get(ctx, endpointCheckSession, nil, &payload)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check session: %w", err)
	}
	return payload.User, nil
}
