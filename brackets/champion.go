package brackets

import "github.com/Dosada05/tournament-portal/models"

type Champion struct {
	Name          string               `json:"name"`
	IsManual      bool                 `json:"isManual"`
	ParticipantID models.ID            `json:"participantId,omitempty"`
	Members       []models.Participant `json:"members,omitempty"`
	MatchID       models.ID            `json:"matchId,omitempty"`
}

// ComputeChampion определяет чемпиона турнира.
//
// Назначенный вручную чемпион всегда важнее результата финала. Автоматически
// чемпион вычисляется только для single_elimination: берётся завершённый матч
// последнего раунда и его победитель. Ничья или незавершённый финал - нет
// чемпиона.
func ComputeChampion(t models.Tournament, matches []models.Match, manual *models.ManualChampion) *Champion {
	if manual != nil {
		return &Champion{
			Name:          manual.Name,
			IsManual:      true,
			ParticipantID: models.OptionalID(manual.ParticipantID),
		}
	}

	if t.BracketType != models.BracketSingleElimination {
		return nil
	}

	final := finalMatch(matches)
	if final == nil {
		return nil
	}

	side := winningSide(*final)
	if side == 0 {
		return nil
	}

	s := final.Side(side)
	return &Champion{
		Name:          TeamDisplayName(*final, side),
		ParticipantID: s.ParticipantID(),
		Members:       s.Members,
		MatchID:       final.ID,
	}
}

// finalMatch returns the first completed match of the last round.
func finalMatch(matches []models.Match) *models.Match {
	last := MaxRound(matches)
	if last == 0 {
		return nil
	}
	var found *models.Match
	for i := range matches {
		m := &matches[i]
		if m.Round != last || !m.IsCompleted() {
			continue
		}
		if found == nil || m.MatchNumber < found.MatchNumber {
			found = m
		}
	}
	return found
}

// winningSide returns 1 or 2 for the recorded winner of m, 0 when none.
func winningSide(m models.Match) int {
	if m.Side1.Kind == models.SideTeam {
		if m.WinnerTeam == nil {
			return 0
		}
		switch *m.WinnerTeam {
		case 1, 2:
			return *m.WinnerTeam
		}
		return 0
	}

	if m.WinnerID == nil || m.WinnerID.IsZero() {
		return 0
	}
	switch *m.WinnerID {
	case m.Side1.ParticipantID():
		return 1
	case m.Side2.ParticipantID():
		return 2
	}
	return 0
}

// WinningSide is exported for the views that highlight the winner of a match.
func WinningSide(m models.Match) int {
	return winningSide(m)
}
