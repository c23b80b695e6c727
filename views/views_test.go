package views

import (
	"context"
	"strings"
	"testing"

	"github.com/Dosada05/tournament-portal/brackets"
	"github.com/Dosada05/tournament-portal/models"
	"github.com/Dosada05/tournament-portal/services"
	"github.com/PuerkitoBio/goquery"
	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, c templ.Component) *goquery.Document {
	t.Helper()
	var sb strings.Builder
	require.NoError(t, c.Render(context.Background(), &sb))
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sb.String()))
	require.NoError(t, err)
	return doc
}

func detailData(t models.Tournament, matches []models.Match, participants []models.Participant) DetailData {
	snap := services.Snapshot{DetailState: services.DetailState{
		Tournament:   t,
		Participants: participants,
		Matches:      matches,
	}}
	return DetailData{
		State:       snap,
		Tab:         TabBracket,
		View:        brackets.BuildView(t, matches, nil, nil),
		Leaderboard: brackets.SortLeaderboard(participants),
	}
}

func TestParseTab(t *testing.T) {
	assert.Equal(t, TabMatches, ParseTab("matches"))
	assert.Equal(t, TabBracket, ParseTab(""))
	assert.Equal(t, TabBracket, ParseTab("<script>"))
}

func TestUserTextIsEscaped(t *testing.T) {
	tour := models.Tournament{ID: "1", Name: `<script>alert("x")</script>`, BracketType: models.BracketSingleElimination}
	p := Page{Title: tour.Name, Flash: `<b>oops</b>`}

	var sb strings.Builder
	require.NoError(t, TournamentDetail(p, detailData(tour, nil, nil)).Render(context.Background(), &sb))
	out := sb.String()

	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "<b>oops</b>")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestTeamModeCreateMatchModal(t *testing.T) {
	tour := models.Tournament{ID: "1", Name: "Liga", TeamSize: 2, BracketType: models.BracketRoundRobin}
	participants := []models.Participant{{ID: "1", ParticipantName: "a"}, {ID: "2", ParticipantName: "b", ClanTag: "TAG"}}

	doc := render(t, CreateMatchModal(detailData(tour, nil, participants)))

	modal := doc.Find("#modal-create-match")
	require.Equal(t, 1, modal.Length())
	assert.Equal(t, "/tournaments/1/matches", modal.Find("form").AttrOr("action", ""))
	team1 := modal.Find(`select[name="team1Participants"]`)
	require.Equal(t, 1, team1.Length())
	_, multiple := team1.Attr("multiple")
	assert.True(t, multiple)
	assert.Equal(t, "TAG", team1.Find(`option[value="2"]`).Text())
	assert.Equal(t, 0, modal.Find(`select[name="participant1Id"]`).Length())
	assert.Equal(t, "1", modal.Find(`input[name="round"]`).AttrOr("value", ""))
}

func TestManualChampionBannerAdmin(t *testing.T) {
	tour := models.Tournament{ID: "1", Name: "Liga", BracketType: models.BracketRoundRobin}
	d := detailData(tour, nil, nil)
	d.View = brackets.BuildView(tour, nil, nil, &models.ManualChampion{Type: models.ChampionIndividual, Name: "Ana"})

	doc := render(t, Bracket(d, true))
	banner := doc.Find(".champion")
	require.Equal(t, 1, banner.Length())
	assert.Equal(t, "true", banner.AttrOr("data-manual", ""))
	assert.Equal(t, "/tournaments/1/champion/clear", banner.Find("form").AttrOr("action", ""))

	doc = render(t, Bracket(d, false))
	assert.Equal(t, 0, doc.Find(".champion form").Length())
}

func TestTournamentListEmpty(t *testing.T) {
	doc := render(t, TournamentList(Page{Title: "Torneos"}, nil))
	assert.Equal(t, "No hay torneos todavía.", doc.Find(".empty-state").Text())
	assert.Equal(t, 0, doc.Find("#modal-create-tournament").Length())
}

func TestLayoutRefreshTargetsCleanURL(t *testing.T) {
	doc := render(t, ErrorPage(Page{Title: "x", RefreshSeconds: 30, RefreshURL: "/tournaments/1?tab=bracket"}, "msg"))
	assert.Equal(t, "30;url=/tournaments/1?tab=bracket", doc.Find(`meta[http-equiv="refresh"]`).AttrOr("content", ""))

	doc = render(t, ErrorPage(Page{Title: "x"}, "msg"))
	assert.Empty(t, doc.Find(`meta[http-equiv="refresh"]`).Nodes)
}

func TestPostFormsCarryCSRFToken(t *testing.T) {
	tour := models.Tournament{ID: "1", Name: "Copa", BracketType: models.BracketSingleElimination}
	matches := []models.Match{{ID: "10", TournamentID: "1", Round: 1, MatchNumber: 1, Status: models.MatchCompleted, Score1: 2}}
	d := detailData(tour, matches, []models.Participant{{ID: "3", ParticipantName: "Ana"}})
	d.View = brackets.BuildView(tour, matches, nil, &models.ManualChampion{Type: models.ChampionIndividual, Name: "Ana"})
	d.UploadsEnabled = true
	d.CSRFToken = "tok-123"

	for name, c := range map[string]templ.Component{
		"bracket": TournamentDetail(Page{User: &models.SessionUser{Role: models.RoleAdmin}, CSRFToken: "tok-123"}, d),
		"matches": matchesTab(d, true),
		"list":    TournamentList(Page{User: &models.SessionUser{Role: models.RoleAdmin}, CSRFToken: "tok-123"}, []models.Tournament{tour}),
	} {
		t.Run(name, func(t *testing.T) {
			forms := render(t, c).Find(`form[method="post"]`)
			require.NotZero(t, forms.Length())
			forms.Each(func(_ int, f *goquery.Selection) {
				action := f.AttrOr("action", "")
				assert.Equal(t, "tok-123", f.Find(`input[type="hidden"][name="csrf_token"]`).AttrOr("value", ""), action)
			})
		})
	}
}

func TestActiveTabAndWinner(t *testing.T) {
	tour := models.Tournament{ID: "1", Name: "Copa", BracketType: models.BracketSingleElimination}
	ana := models.Participant{ID: "3", ParticipantName: "Ana"}
	bo := models.Participant{ID: "4", ParticipantName: "Bo"}
	winner := ana.ID
	matches := []models.Match{{
		ID: "10", TournamentID: "1", Round: 1, MatchNumber: 1,
		Side1:    models.Side{Kind: models.SideSolo, Participant: &ana},
		Side2:    models.Side{Kind: models.SideSolo, Participant: &bo},
		WinnerID: &winner, Status: models.MatchCompleted, Score1: 2, Score2: 1,
	}}
	d := detailData(tour, matches, []models.Participant{ana, bo})

	doc := render(t, TournamentDetail(Page{}, d))
	assert.Equal(t, "bracket", doc.Find("nav.tabs a.active").AttrOr("data-tab", ""))
	assert.Equal(t, 1, doc.Find("nav.tabs a.active").Length())

	card := doc.Find(`article.match[data-match-id="10"]`)
	assert.True(t, card.HasClass("match-completed"))
	assert.Equal(t, "1", card.Find(".side.winner").AttrOr("data-side", ""))
	assert.Equal(t, "1", card.AttrOr("data-match-number", ""))
}
