package services

import (
	"context"
	"testing"

	"github.com/Dosada05/tournament-portal/models"
	"github.com/Dosada05/tournament-portal/repositories"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTournamentServiceCreate(t *testing.T) {
	r := newTestRepos(soloTournament())
	r.tournaments.createID = "42"
	svc := NewTournamentService(r.tournaments, nil, discardLogger())

	name := gofakeit.Company()
	id, err := svc.Create(context.Background(), CreateTournamentInput{
		Name:            name,
		TeamSize:        5,
		MaxParticipants: 16,
		Maps:            []string{"Dust2", "Mirage"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ID("42"), id)

	require.Len(t, r.tournaments.created, 1)
	sent := r.tournaments.created[0]
	assert.Equal(t, name, sent.Name)
	assert.Equal(t, 5, sent.TeamSize)
	assert.Equal(t, models.BracketSingleElimination, sent.BracketType)
	assert.Equal(t, []string{"Dust2", "Mirage"}, sent.Maps)
}

func TestTournamentServiceCreateValidation(t *testing.T) {
	r := newTestRepos(soloTournament())
	svc := NewTournamentService(r.tournaments, nil, discardLogger())

	_, err := svc.Create(context.Background(), CreateTournamentInput{})
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Empty(t, r.tournaments.created)
}

func TestTournamentServiceDeleteEvictsCache(t *testing.T) {
	r := newTestRepos(soloTournament())
	detail, _, _ := newTestDetail(r)
	svc := NewTournamentService(r.tournaments, detail, discardLogger())

	_, err := detail.Load(context.Background(), "1")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "1"))
	assert.Equal(t, []models.ID{"1"}, r.tournaments.deleted)
	_, ok := detail.Snapshot("1")
	assert.False(t, ok)
}

func TestTournamentServiceDeleteFailureKeepsCache(t *testing.T) {
	r := newTestRepos(soloTournament())
	r.tournaments.deleteErr = &repositories.APIError{Message: "No se puede eliminar"}
	detail, _, _ := newTestDetail(r)
	svc := NewTournamentService(r.tournaments, detail, discardLogger())

	_, err := detail.Load(context.Background(), "1")
	require.NoError(t, err)

	err = svc.Delete(context.Background(), "1")
	assert.Equal(t, "No se puede eliminar", UserMessage(err, ""))
	_, ok := detail.Snapshot("1")
	assert.True(t, ok)
}
