package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/Dosada05/tournament-portal/models"
	"github.com/Dosada05/tournament-portal/repositories"
	"github.com/Dosada05/tournament-portal/services"
	"github.com/stretchr/testify/assert"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: &services.ValidationError{Fields: map[string]string{"name": "required"}}, want: http.StatusUnprocessableEntity},
		{name: "tournament not found", err: fmt.Errorf("load: %w", services.ErrTournamentNotFound), want: http.StatusNotFound},
		{name: "repository not found", err: repositories.ErrTournamentNotFound, want: http.StatusNotFound},
		{name: "match not found", err: services.ErrMatchNotFound, want: http.StatusNotFound},
		{name: "uploads disabled", err: services.ErrUploadsDisabled, want: http.StatusNotFound},
		{name: "in progress", err: services.ErrMutationInProgress, want: http.StatusConflict},
		{name: "unsupported image", err: services.ErrUnsupportedImage, want: http.StatusUnsupportedMediaType},
		{name: "backend rejection with 200", err: &repositories.APIError{StatusCode: 200, Message: "X"}, want: http.StatusBadRequest},
		{name: "backend 403", err: &repositories.APIError{StatusCode: 403}, want: http.StatusForbidden},
		{name: "backend 500 envelope", err: &repositories.APIError{StatusCode: 500}, want: http.StatusBadGateway},
		{name: "backend down", err: fmt.Errorf("%w: timeout", repositories.ErrBackendUnavailable), want: http.StatusBadGateway},
		{name: "unknown", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusForError(tt.err))
		})
	}
}

func TestFormReader(t *testing.T) {
	f := newFormReader(url.Values{
		"round":   {" 3 "},
		"score":   {"tres"},
		"team":    {"1, 2", "3", ""},
		"maps":    {"Dust2,, Nuke "},
		"missing": {},
	})

	assert.Equal(t, 3, f.Int("round"))
	assert.Equal(t, 0, f.Int("missing"))
	assert.Equal(t, 0, f.Int("score"))
	assert.Equal(t, []models.ID{"1", "2", "3"}, f.IDs("team"))
	assert.Equal(t, []string{"Dust2", "Nuke"}, f.List("maps"))
	assert.Nil(t, f.IDs("missing"))

	var vErr *services.ValidationError
	assert.True(t, errors.As(f.Err(), &vErr))
	assert.Equal(t, map[string]string{"score": "must be a number"}, vErr.Fields)
}
