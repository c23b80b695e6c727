package repositories

// Пути относительно API_BASE_URL.
const (
	endpointTournamentsAll   = "tournaments/get-all.php"
	endpointTournamentCreate = "tournaments/create.php"
	endpointTournamentDelete = "tournaments/delete.php"

	endpointParticipants = "tournaments/get-participants.php"

	endpointMatches          = "tournaments/get-matches.php"
	endpointMatchCreate      = "tournaments/create-match.php"
	endpointMatchUpdate      = "tournaments/update-match.php"
	endpointMatchUpdateTeams = "tournaments/update-match-teams.php"
	endpointMatchDelete      = "tournaments/delete-match.php"
	endpointGenerateBracket  = "tournaments/generate-bracket.php"

	endpointMatchImages   = "tournaments/get-match-images.php"
	endpointMatchImageAdd = "tournaments/add-match-image.php"

	endpointRoundTitles      = "tournaments/get-round-titles.php"
	endpointRoundTitleUpdate = "tournaments/update-round-title.php"

	endpointChampion      = "tournaments/get-champion.php"
	endpointChampionSet   = "tournaments/set-champion.php"
	endpointChampionClear = "tournaments/clear-champion.php"

	endpointCheckSession = "auth/check-session.php"
)
