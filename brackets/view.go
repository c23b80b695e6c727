package brackets

import "github.com/Dosada05/tournament-portal/models"

// View - всё, что нужно для отрисовки вкладки сетки.
type View struct {
	Tournament models.Tournament `json:"tournament"`
	Rounds     []Round           `json:"rounds"`
	Champion   *Champion         `json:"champion"`
	Empty      bool              `json:"empty"`
}

func BuildView(t models.Tournament, matches []models.Match, titles models.RoundTitles, manual *models.ManualChampion) View {
	return View{
		Tournament: t,
		Rounds:     GroupRounds(matches, titles),
		Champion:   ComputeChampion(t, matches, manual),
		Empty:      len(matches) == 0,
	}
}
