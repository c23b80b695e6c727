package brackets

import (
	"sort"

	"github.com/Dosada05/tournament-portal/models"
)

// SortLeaderboard returns a copy ordered by points, then wins, both
// descending. Further ties keep the backend order.
func SortLeaderboard(participants []models.Participant) []models.Participant {
	sorted := make([]models.Participant, len(participants))
	copy(sorted, participants)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Points != sorted[j].Points {
			return sorted[i].Points > sorted[j].Points
		}
		return sorted[i].Wins > sorted[j].Wins
	})
	return sorted
}
