package middleware

import (
	"context"

	"github.com/Dosada05/tournament-portal/models"
)

type contextKey string

const userContextKey contextKey = "user"

// GetUserFromContext returns the session user, or nil for guests.
func GetUserFromContext(ctx context.Context) *models.SessionUser {
	user, _ := ctx.Value(userContextKey).(*models.SessionUser)
	return user
}

func IsAdmin(ctx context.Context) bool {
	return GetUserFromContext(ctx).IsAdmin()
}

// WithUser stores a session user in ctx.
func WithUser(ctx context.Context, user *models.SessionUser) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
