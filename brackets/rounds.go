package brackets

import (
	"sort"
	"strconv"

	"github.com/Dosada05/tournament-portal/models"
)

// Round - колонка сетки: номер раунда, заголовок и матчи по порядку.
type Round struct {
	Number  int            `json:"number"`
	Title   string         `json:"title"`
	Matches []models.Match `json:"matches"`
}

func DefaultRoundTitle(round int) string {
	return "Ronda " + strconv.Itoa(round)
}

// RoundTitle returns the custom heading of a round, or "Ronda N".
func RoundTitle(titles models.RoundTitles, round int) string {
	if title, ok := titles[round]; ok && title != "" {
		return title
	}
	return DefaultRoundTitle(round)
}

// GroupRounds группирует матчи по раунду. Раунды идут по возрастанию,
// внутри раунда матчи отсортированы по matchNumber.
func GroupRounds(matches []models.Match, titles models.RoundTitles) []Round {
	byRound := make(map[int][]models.Match)
	for _, m := range matches {
		byRound[m.Round] = append(byRound[m.Round], m)
	}

	numbers := make([]int, 0, len(byRound))
	for n := range byRound {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	rounds := make([]Round, 0, len(numbers))
	for _, n := range numbers {
		roundMatches := byRound[n]
		sort.SliceStable(roundMatches, func(i, j int) bool {
			return roundMatches[i].MatchNumber < roundMatches[j].MatchNumber
		})
		rounds = append(rounds, Round{
			Number:  n,
			Title:   RoundTitle(titles, n),
			Matches: roundMatches,
		})
	}
	return rounds
}

// MaxRound returns the highest round number present, or 0 for no matches.
func MaxRound(matches []models.Match) int {
	highest := 0
	for _, m := range matches {
		if m.Round > highest {
			highest = m.Round
		}
	}
	return highest
}

// NextMatchNumber предлагает номер для нового матча в раунде.
func NextMatchNumber(matches []models.Match, round int) int {
	next := 1
	for _, m := range matches {
		if m.Round == round && m.MatchNumber >= next {
			next = m.MatchNumber + 1
		}
	}
	return next
}
