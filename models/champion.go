package models

type ChampionType string

const (
	ChampionIndividual ChampionType = "individual"
	ChampionTeam       ChampionType = "team"
)

// ManualChampion - чемпион, назначенный администратором вручную.
// Если запись есть, она всегда важнее вычисленного победителя финала.
type ManualChampion struct {
	Type             ChampionType `json:"type"`
	ParticipantID    *ID          `json:"participantId,omitempty"`
	TeamParticipants []ID         `json:"teamParticipants,omitempty"`
	Name             string       `json:"name"`
}

// RoundTitles maps a round number to its custom heading.
type RoundTitles map[int]string
