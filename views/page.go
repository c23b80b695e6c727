package views

import (
	"strconv"
	"strings"

	"github.com/Dosada05/tournament-portal/brackets"
	"github.com/Dosada05/tournament-portal/models"
	"github.com/Dosada05/tournament-portal/services"
)

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.960 generate

type FlashKind string

const (
	FlashError   FlashKind = "error"
	FlashSuccess FlashKind = "success"
)

// Page - общие данные страницы: заголовок, пользователь, flash-сообщение.
type Page struct {
	Title string
	User  *models.SessionUser
	Flash string
	Kind  FlashKind
	// CSRFToken уходит скрытым полем в каждую POST-форму.
	CSRFToken string
	// RefreshSeconds > 0 добавляет meta refresh на RefreshURL: гость на
	// вкладке сетки перезагружает её с интервалом опроса.
	RefreshSeconds int
	RefreshURL     string
}

func (p Page) IsAdmin() bool {
	return p.User.IsAdmin()
}

func (p Page) flashKind() string {
	if p.Kind == "" {
		return string(FlashError)
	}
	return string(p.Kind)
}

func (p Page) refreshContent() string {
	content := strconv.Itoa(p.RefreshSeconds)
	if p.RefreshURL != "" {
		content += ";url=" + p.RefreshURL
	}
	return content
}

const (
	TabBracket      = "bracket"
	TabParticipants = "participants"
	TabMatches      = "matches"
	TabInfo         = "info"
)

type tab struct {
	key   string
	label string
}

var tabs = []tab{
	{TabBracket, "Bracket"},
	{TabParticipants, "Participantes"},
	{TabMatches, "Partidos"},
	{TabInfo, "Información"},
}

// ParseTab returns a known tab key, defaulting to the bracket.
func ParseTab(s string) string {
	for _, t := range tabs {
		if t.key == s {
			return s
		}
	}
	return TabBracket
}

type DetailData struct {
	State          services.Snapshot
	Tab            string
	View           brackets.View
	Leaderboard    []models.Participant
	UploadsEnabled bool
	CSRFToken      string
}

func (d DetailData) tournamentURL(suffix string) string {
	return "/tournaments/" + d.State.Tournament.ID.String() + suffix
}

func (d DetailData) matchURL(m models.Match, suffix string) string {
	return d.tournamentURL("/matches/" + m.ID.String() + suffix)
}

func (d DetailData) roundURL(round brackets.Round) string {
	return d.tournamentURL("/rounds/" + strconv.Itoa(round.Number))
}

func (d DetailData) images(m models.Match) []models.MatchImage {
	return d.State.Images[m.ID]
}

// createRound - ронда по умолчанию для ручного матча: последняя или первая.
func (d DetailData) createRound() int {
	if round := brackets.MaxRound(d.State.Matches); round > 0 {
		return round
	}
	return 1
}

func (d DetailData) championParticipant() models.ID {
	if c := d.State.Champion; c != nil {
		return models.OptionalID(c.ParticipantID)
	}
	return ""
}

func (d DetailData) championName() string {
	if c := d.State.Champion; c != nil {
		return c.Name
	}
	return ""
}

func formatLabel(t models.Tournament) string {
	if t.IsTeamMode() {
		return t.BracketType.Label() + " · " + strconv.Itoa(t.TeamSize) + "v" + strconv.Itoa(t.TeamSize)
	}
	return t.BracketType.Label()
}

func participantCount(t models.Tournament) string {
	if t.MaxParticipants > 0 {
		return strconv.Itoa(t.ParticipantCount) + "/" + strconv.Itoa(t.MaxParticipants) + " participantes"
	}
	return strconv.Itoa(t.ParticipantCount) + " participantes"
}

func teamMemberNames(p models.Participant) string {
	names := make([]string, 0, len(p.TeamMembers))
	for _, m := range p.TeamMembers {
		names = append(names, m.Username)
	}
	return strings.Join(names, ", ")
}

func championMemberNames(c *brackets.Champion) string {
	names := make([]string, 0, len(c.Members))
	for _, m := range c.Members {
		names = append(names, m.ParticipantName)
	}
	return strings.Join(names, ", ")
}

func sideMemberNames(m models.Match, side int) string {
	if s := m.Side(side); s.Kind == models.SideTeam {
		return strings.Join(brackets.MemberNames(s), ", ")
	}
	return ""
}

func sideScore(m models.Match, side int) string {
	if side == 2 {
		return strconv.Itoa(m.Score2)
	}
	return strconv.Itoa(m.Score1)
}

func matchTitle(m models.Match) string {
	return brackets.TeamDisplayName(m, 1) + " vs " + brackets.TeamDisplayName(m, 2)
}

func matchScore(m models.Match) string {
	return strconv.Itoa(m.Score1) + " - " + strconv.Itoa(m.Score2)
}

// infoRow - строка вкладки "Información"; пустые значения не выводятся.
type infoRow struct {
	label string
	value string
}

func infoRows(t models.Tournament) []infoRow {
	rows := []infoRow{
		{"Descripción", t.Description},
		{"Tipo", string(t.Type)},
		{"Formato", t.BracketType.Label()},
		{"Jugadores por equipo", strconv.Itoa(t.TeamSize)},
		{"Participantes", participantCount(t)},
		{"Inscripción", joinNonEmpty(" – ", t.RegistrationStartAt, t.RegistrationEndAt)},
		{"Inicio", t.StartDate},
		{"Fin", t.EndDate},
		{"Creado", t.CreatedAt},
	}
	kept := rows[:0]
	for _, r := range rows {
		if r.value != "" {
			kept = append(kept, r)
		}
	}
	return kept
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

var (
	tournamentTypes = []models.TournamentType{models.TournamentIndividual, models.TournamentClan, models.TournamentTeam}
	bracketTypes    = []models.BracketType{models.BracketSingleElimination, models.BracketDoubleElimination, models.BracketRoundRobin, models.BracketSwiss}
	matchStatuses   = []models.MatchStatus{models.MatchPending, models.MatchInProgress, models.MatchCompleted, models.MatchCancelled}
	imageTypes      = []models.ImageType{models.ImageGeneral, models.ImageIda, models.ImageVuelta}
	sides           = []int{1, 2}
)
