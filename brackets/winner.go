package brackets

import "github.com/Dosada05/tournament-portal/models"

// Outcome - поля победителя, которые уходят в update-match.php.
type Outcome struct {
	WinnerID   *models.ID
	WinnerTeam *int
}

// DeriveWinner вычисляет победителя по счёту при сохранении матча.
//
// Только для статуса completed: сторона с большим счётом побеждает, в
// одиночном режиме заполняется winnerId, в командном - winnerTeam. Равный
// счёт - ничья, оба поля пустые. Для любого другого статуса оба поля
// очищаются независимо от счёта.
func DeriveWinner(m models.Match, status models.MatchStatus, score1, score2 int) Outcome {
	if status != models.MatchCompleted {
		return Outcome{}
	}

	side := 0
	switch {
	case score1 > score2:
		side = 1
	case score2 > score1:
		side = 2
	default:
		return Outcome{}
	}

	if m.Side1.Kind == models.SideTeam {
		team := side
		return Outcome{WinnerTeam: &team}
	}

	id := m.Side(side).ParticipantID()
	if id.IsZero() {
		return Outcome{}
	}
	return Outcome{WinnerID: &id}
}
