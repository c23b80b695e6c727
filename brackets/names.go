package brackets

import (
	"strconv"

	"github.com/Dosada05/tournament-portal/models"
)

// ParticipantDisplayName: тег клана, затем название команды, затем имя.
func ParticipantDisplayName(p *models.Participant) string {
	if p == nil {
		return ""
	}
	switch {
	case p.ClanTag != "":
		return p.ClanTag
	case p.TeamName != "":
		return p.TeamName
	default:
		return p.ParticipantName
	}
}

func FallbackTeamName(side int) string {
	return "Equipo " + strconv.Itoa(side)
}

// TeamDisplayName resolves the label of side 1 or 2 of a match:
// custom name, then the first member's clan tag or team name (teams),
// then the participant's clan tag, team name or name (solo),
// then "Equipo N".
func TeamDisplayName(m models.Match, side int) string {
	s := m.Side(side)
	if s.CustomName != "" {
		return s.CustomName
	}

	if s.Kind == models.SideTeam {
		if len(s.Members) > 0 {
			first := s.Members[0]
			if first.ClanTag != "" {
				return first.ClanTag
			}
			if first.TeamName != "" {
				return first.TeamName
			}
		}
		return FallbackTeamName(side)
	}

	if name := ParticipantDisplayName(s.Participant); name != "" {
		return name
	}
	return FallbackTeamName(side)
}

// MemberNames lists the participant names of a team side.
func MemberNames(s models.Side) []string {
	names := make([]string, 0, len(s.Members))
	for _, m := range s.Members {
		names = append(names, m.ParticipantName)
	}
	return names
}
