package models

type MatchStatus string

const (
	MatchPending    MatchStatus = "pending"
	MatchInProgress MatchStatus = "in_progress"
	MatchCompleted  MatchStatus = "completed"
	MatchCancelled  MatchStatus = "cancelled"
)

func (s MatchStatus) Valid() bool {
	switch s {
	case MatchPending, MatchInProgress, MatchCompleted, MatchCancelled:
		return true
	}
	return false
}

func (s MatchStatus) Label() string {
	switch s {
	case MatchPending:
		return "Pendiente"
	case MatchInProgress:
		return "En juego"
	case MatchCompleted:
		return "Finalizado"
	case MatchCancelled:
		return "Cancelado"
	default:
		return string(s)
	}
}

// MatchRecord - матч в том виде, в каком его отдаёт get-matches.php.
// Для командных турниров заполнены team1/2Participants, иначе participant1/2.
type MatchRecord struct {
	ID                ID            `json:"id"`
	TournamentID      ID            `json:"tournamentId"`
	Round             int           `json:"round"`
	MatchNumber       int           `json:"matchNumber"`
	Participant1      *Participant  `json:"participant1"`
	Participant2      *Participant  `json:"participant2"`
	Team1Participants []Participant `json:"team1Participants"`
	Team2Participants []Participant `json:"team2Participants"`
	WinnerID          *ID           `json:"winnerId"`
	WinnerTeam        *int          `json:"winnerTeam"`
	Score1            int           `json:"score1"`
	Score2            int           `json:"score2"`
	Status            MatchStatus   `json:"status"`
	MapPlayed         string        `json:"mapPlayed,omitempty"`
	ScheduledAt       string        `json:"scheduledAt,omitempty"`
	Notes             string        `json:"notes,omitempty"`
	Team1CustomName   string        `json:"team1CustomName,omitempty"`
	Team2CustomName   string        `json:"team2CustomName,omitempty"`
}

type SideKind string

const (
	SideSolo SideKind = "solo"
	SideTeam SideKind = "team"
)

// Side - одна сторона матча: либо один участник, либо состав команды.
// Вид стороны определяется один раз при разборе ответа бэкенда.
type Side struct {
	Kind        SideKind      `json:"kind"`
	Participant *Participant  `json:"participant,omitempty"`
	Members     []Participant `json:"members,omitempty"`
	CustomName  string        `json:"customName,omitempty"`
}

// ParticipantID returns the id of a solo side, or "" for teams and empty slots.
func (s Side) ParticipantID() ID {
	if s.Kind != SideSolo || s.Participant == nil {
		return ""
	}
	return s.Participant.ID
}

func (s Side) IsEmpty() bool {
	if s.Kind == SideTeam {
		return len(s.Members) == 0
	}
	return s.Participant == nil
}

func (s Side) MemberIDs() []ID {
	ids := make([]ID, 0, len(s.Members))
	for _, m := range s.Members {
		ids = append(ids, m.ID)
	}
	return ids
}

type Match struct {
	ID           ID          `json:"id"`
	TournamentID ID          `json:"tournamentId"`
	Round        int         `json:"round"`
	MatchNumber  int         `json:"matchNumber"`
	Side1        Side        `json:"side1"`
	Side2        Side        `json:"side2"`
	WinnerID     *ID         `json:"winnerId"`
	WinnerTeam   *int        `json:"winnerTeam"`
	Score1       int         `json:"score1"`
	Score2       int         `json:"score2"`
	Status       MatchStatus `json:"status"`
	MapPlayed    string      `json:"mapPlayed,omitempty"`
	ScheduledAt  string      `json:"scheduledAt,omitempty"`
	Notes        string      `json:"notes,omitempty"`
}

// Side returns side 1 or 2; any other number yields side 2.
func (m Match) Side(n int) Side {
	if n == 1 {
		return m.Side1
	}
	return m.Side2
}

func (m Match) IsCompleted() bool {
	return m.Status == MatchCompleted
}

// Resolve превращает запись бэкенда в матч с явными сторонами.
func (r MatchRecord) Resolve(teamMode bool) Match {
	m := Match{
		ID:           r.ID,
		TournamentID: r.TournamentID,
		Round:        r.Round,
		MatchNumber:  r.MatchNumber,
		WinnerID:     r.WinnerID,
		WinnerTeam:   r.WinnerTeam,
		Score1:       r.Score1,
		Score2:       r.Score2,
		Status:       r.Status,
		MapPlayed:    r.MapPlayed,
		ScheduledAt:  r.ScheduledAt,
		Notes:        r.Notes,
	}
	if teamMode {
		m.Side1 = Side{Kind: SideTeam, Members: r.Team1Participants, CustomName: r.Team1CustomName}
		m.Side2 = Side{Kind: SideTeam, Members: r.Team2Participants, CustomName: r.Team2CustomName}
	} else {
		m.Side1 = Side{Kind: SideSolo, Participant: r.Participant1, CustomName: r.Team1CustomName}
		m.Side2 = Side{Kind: SideSolo, Participant: r.Participant2, CustomName: r.Team2CustomName}
	}
	return m
}

// ResolveMatches applies Resolve to every record.
func ResolveMatches(records []MatchRecord, teamMode bool) []Match {
	matches := make([]Match, 0, len(records))
	for _, r := range records {
		matches = append(matches, r.Resolve(teamMode))
	}
	return matches
}
