package models

type ParticipantType string

const (
	ParticipantUser ParticipantType = "user"
	ParticipantClan ParticipantType = "clan"
	ParticipantTeam ParticipantType = "team"
)

type ParticipantStatus string

const (
	ParticipantRegistered ParticipantStatus = "registered"
	ParticipantActive     ParticipantStatus = "active"
	ParticipantEliminated ParticipantStatus = "eliminated"
	ParticipantWinner     ParticipantStatus = "winner"
)

type TeamMember struct {
	ID       ID     `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
}

type Participant struct {
	ID              ID                `json:"id"`
	ParticipantType ParticipantType   `json:"participantType"`
	ParticipantName string            `json:"participantName"`
	ClanTag         string            `json:"clanTag,omitempty"`
	TeamName        string            `json:"teamName,omitempty"`
	TeamMembers     []TeamMember      `json:"teamMembers,omitempty"`
	Points          int               `json:"points"`
	Wins            int               `json:"wins"`
	Losses          int               `json:"losses"`
	Status          ParticipantStatus `json:"status"`
}
