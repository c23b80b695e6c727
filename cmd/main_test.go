package main

import (
	"bytes"
	"testing"

	"github.com/Dosada05/tournament-portal/brackets"
	"github.com/Dosada05/tournament-portal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBracket(t *testing.T) {
	tour := models.Tournament{ID: "1", Name: "Copa Norte", BracketType: models.BracketSingleElimination}

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, printBracket(&buf, brackets.BuildView(tour, nil, nil, nil)))
		assert.Equal(t, "Copa Norte (Eliminación simple)\nBracket no generado\n", buf.String())
	})

	t.Run("with manual champion", func(t *testing.T) {
		matches := []models.Match{{
			ID: "1", Round: 1, MatchNumber: 1,
			Side1:  models.Side{Kind: models.SideSolo, Participant: &models.Participant{ID: "1", ParticipantName: "Ana"}},
			Side2:  models.Side{Kind: models.SideSolo},
			Score1: 2,
			Status: models.MatchInProgress,
		}}
		manual := &models.ManualChampion{Type: models.ChampionIndividual, Name: "Ana"}

		var buf bytes.Buffer
		require.NoError(t, printBracket(&buf, brackets.BuildView(tour, matches, models.RoundTitles{1: "Final"}, manual)))
		out := buf.String()
		assert.Contains(t, out, "\nFinal\n")
		assert.Contains(t, out, "  #1  Ana 2 - 0 Equipo 2  [En juego]\n")
		assert.Contains(t, out, "Campeón: Ana (designado)\n")
	})
}

func TestParseCookies(t *testing.T) {
	cookies := parseCookies([]string{"PHPSESSID=abc", "broken", "=x", "lang=es"})
	require.Len(t, cookies, 2)
	assert.Equal(t, "PHPSESSID", cookies[0].Name)
	assert.Equal(t, "abc", cookies[0].Value)
	assert.Equal(t, "lang", cookies[1].Name)
}
