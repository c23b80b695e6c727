package models

// TournamentType определяет, кто участвует в турнире.
type TournamentType string

const (
	TournamentIndividual TournamentType = "individual"
	TournamentClan       TournamentType = "clan"
	TournamentTeam       TournamentType = "team"
)

// TournamentStatus представляет статусы турнира так, как их отдаёт бэкенд.
type TournamentStatus string

const (
	StatusDraft        TournamentStatus = "draft"
	StatusRegistration TournamentStatus = "registration"
	StatusActive       TournamentStatus = "active"
	StatusCompleted    TournamentStatus = "completed"
	StatusCancelled    TournamentStatus = "cancelled"
)

// Label возвращает подпись статуса для интерфейса.
func (s TournamentStatus) Label() string {
	switch s {
	case StatusDraft:
		return "Borrador"
	case StatusRegistration:
		return "Inscripciones abiertas"
	case StatusActive:
		return "En curso"
	case StatusCompleted:
		return "Finalizado"
	case StatusCancelled:
		return "Cancelado"
	default:
		return string(s)
	}
}

// Icon returns the icon slug used by the list view.
func (s TournamentStatus) Icon() string {
	switch s {
	case StatusDraft:
		return "edit"
	case StatusRegistration:
		return "user-plus"
	case StatusActive:
		return "play"
	case StatusCompleted:
		return "trophy"
	case StatusCancelled:
		return "x-circle"
	default:
		return "help-circle"
	}
}

type BracketType string

const (
	BracketSingleElimination BracketType = "single_elimination"
	BracketDoubleElimination BracketType = "double_elimination"
	BracketRoundRobin        BracketType = "round_robin"
	BracketSwiss             BracketType = "swiss"
)

func (b BracketType) Label() string {
	switch b {
	case BracketSingleElimination:
		return "Eliminación simple"
	case BracketDoubleElimination:
		return "Eliminación doble"
	case BracketRoundRobin:
		return "Todos contra todos"
	case BracketSwiss:
		return "Sistema suizo"
	default:
		return string(b)
	}
}

// Tournament представляет турнир в том виде, в каком его отдаёт get-all.php.
// Даты остаются строками: бэкенд отдаёт их в формате MySQL DATETIME.
type Tournament struct {
	ID                  ID               `json:"id"`
	Name                string           `json:"name"`
	Description         string           `json:"description,omitempty"`
	Type                TournamentType   `json:"type"`
	TeamSize            int              `json:"teamSize"`
	MaxParticipants     int              `json:"maxParticipants"`
	ParticipantCount    int              `json:"participantCount"`
	Status              TournamentStatus `json:"status"`
	BracketType         BracketType      `json:"bracketType"`
	Maps                []string         `json:"maps"`
	RegistrationStartAt string           `json:"registrationStartAt,omitempty"`
	RegistrationEndAt   string           `json:"registrationEndAt,omitempty"`
	StartDate           string           `json:"startDate,omitempty"`
	EndDate             string           `json:"endDate,omitempty"`
	CreatedAt           string           `json:"createdAt,omitempty"`
}

// IsTeamMode reports whether matches of this tournament are played by teams
// of more than one participant.
func (t Tournament) IsTeamMode() bool {
	return t.TeamSize > 1
}
