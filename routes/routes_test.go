package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/tournament-portal/handlers"
	"github.com/Dosada05/tournament-portal/middleware"
	"github.com/Dosada05/tournament-portal/models"
	"github.com/Dosada05/tournament-portal/repositories"
	"github.com/Dosada05/tournament-portal/services"
	"github.com/Dosada05/tournament-portal/views"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var admin = &models.SessionUser{ID: "1", Username: "root", Role: models.RoleAdmin}

type fakeSessions struct{ user *models.SessionUser }

func (f fakeSessions) Current(ctx context.Context) (*models.SessionUser, error) {
	return f.user, nil
}

type fakeTournaments struct {
	list    []models.Tournament
	created []services.CreateTournamentInput
	deleted []models.ID
	err     error
}

func (f *fakeTournaments) List(ctx context.Context) ([]models.Tournament, error) {
	return f.list, f.err
}

func (f *fakeTournaments) Create(ctx context.Context, in services.CreateTournamentInput) (models.ID, error) {
	f.created = append(f.created, in)
	return "9", f.err
}

func (f *fakeTournaments) Delete(ctx context.Context, id models.ID) error {
	f.deleted = append(f.deleted, id)
	return f.err
}

type fakeDetail struct {
	snap      services.Snapshot
	err       error
	refreshed []services.RefreshTrigger
}

func (f *fakeDetail) Load(ctx context.Context, id models.ID) (services.Snapshot, error) {
	if f.err != nil {
		return services.Snapshot{}, f.err
	}
	if id != f.snap.Tournament.ID {
		return services.Snapshot{}, services.ErrTournamentNotFound
	}
	return f.snap, nil
}

func (f *fakeDetail) RefreshTournamentData(ctx context.Context, id models.ID, trigger services.RefreshTrigger) error {
	f.refreshed = append(f.refreshed, trigger)
	return f.err
}

type fakeWatcher struct {
	mu      sync.Mutex
	watched []models.ID
}

func (f *fakeWatcher) Watch(ctx context.Context, id models.ID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watched = append(f.watched, id)
}

func (f *fakeWatcher) Watching() []models.ID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ID(nil), f.watched...)
}

// fakeBracket записывает вызовы; err возвращается из любой операции.
type fakeBracket struct {
	err      error
	calls    []string
	created  services.CreateMatchInput
	updated  services.UpdateMatchInput
	team     services.RenameTeamInput
	round    services.RenameRoundInput
	champion services.SetChampionInput
	upload   services.UploadMatchImageInput
	body     []byte
}

func (f *fakeBracket) record(name string) error {
	f.calls = append(f.calls, name)
	return f.err
}

func (f *fakeBracket) CreateMatch(ctx context.Context, tournamentID models.ID, in services.CreateMatchInput) (*models.Match, error) {
	f.created = in
	if err := f.record("create"); err != nil {
		return nil, err
	}
	return &models.Match{ID: "555", Round: in.Round}, nil
}

func (f *fakeBracket) UpdateMatch(ctx context.Context, tournamentID, matchID models.ID, in services.UpdateMatchInput) (*models.Match, error) {
	f.updated = in
	if err := f.record("update:" + matchID.String()); err != nil {
		return nil, err
	}
	return &models.Match{ID: matchID, Score1: in.Score1, Score2: in.Score2, Status: in.Status}, nil
}

func (f *fakeBracket) DeleteMatch(ctx context.Context, tournamentID, matchID models.ID) error {
	return f.record("delete:" + matchID.String())
}

func (f *fakeBracket) RenameRound(ctx context.Context, tournamentID models.ID, in services.RenameRoundInput) error {
	f.round = in
	return f.record("round")
}

func (f *fakeBracket) RenameTeam(ctx context.Context, tournamentID, matchID models.ID, in services.RenameTeamInput) error {
	f.team = in
	return f.record("team:" + matchID.String())
}

func (f *fakeBracket) SetChampion(ctx context.Context, tournamentID models.ID, in services.SetChampionInput) (*models.ManualChampion, error) {
	f.champion = in
	if err := f.record("champion"); err != nil {
		return nil, err
	}
	return &models.ManualChampion{Type: in.Type, Name: in.Name}, nil
}

func (f *fakeBracket) ClearChampion(ctx context.Context, tournamentID models.ID) error {
	return f.record("clear-champion")
}

func (f *fakeBracket) GenerateBracket(ctx context.Context, tournamentID models.ID) error {
	return f.record("generate")
}

func (f *fakeBracket) UploadMatchImage(ctx context.Context, tournamentID, matchID models.ID, in services.UploadMatchImageInput) (*models.MatchImage, error) {
	f.upload = in
	body, _ := io.ReadAll(in.Body)
	f.body = body
	if err := f.record("upload:" + matchID.String()); err != nil {
		return nil, err
	}
	return &models.MatchImage{ID: "1", MatchID: matchID, ImageType: in.ImageType, ImageURL: "https://cdn.example.com/x.png"}, nil
}

type testServer struct {
	router      *chi.Mux
	tournaments *fakeTournaments
	detail      *fakeDetail
	bracket     *fakeBracket
	watcher     *fakeWatcher

	csrfToken  string
	csrfCookie *http.Cookie
}

func emptySnapshot() services.Snapshot {
	return services.Snapshot{DetailState: services.DetailState{
		Tournament: models.Tournament{
			ID:          "1",
			Name:        "Copa Norte",
			TeamSize:    1,
			BracketType: models.BracketSingleElimination,
			Status:      models.StatusActive,
		},
		Participants: []models.Participant{
			{ID: "10", ParticipantName: "Ana", Points: 3},
			{ID: "20", ParticipantName: "Beto", Points: 6},
		},
		RoundTitles: models.RoundTitles{},
		Generation:  1,
	}}
}

func snapshotWithFinal() services.Snapshot {
	snap := emptySnapshot()
	winner := models.ID("20")
	snap.Matches = []models.Match{{
		ID:          "100",
		Round:       1,
		MatchNumber: 1,
		Side1:       models.Side{Kind: models.SideSolo, Participant: &models.Participant{ID: "10", ParticipantName: "Ana"}},
		Side2:       models.Side{Kind: models.SideSolo, Participant: &models.Participant{ID: "20", ParticipantName: "Beto"}},
		Score1:      1,
		Score2:      2,
		Status:      models.MatchCompleted,
		WinnerID:    &winner,
	}}
	snap.RoundTitles = models.RoundTitles{1: "Final"}
	snap.Images = map[models.ID][]models.MatchImage{
		"100": {{ID: "1", MatchID: "100", ImageType: models.ImageIda, ImageURL: "https://cdn.example.com/a.png"}},
	}
	return snap
}

func newTestServer(t *testing.T, user *models.SessionUser, snap services.Snapshot) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ts := &testServer{
		router:      chi.NewRouter(),
		tournaments: &fakeTournaments{list: []models.Tournament{snap.Tournament}},
		detail:      &fakeDetail{snap: snap},
		bracket:     &fakeBracket{},
		watcher:     &fakeWatcher{},
	}
	SetupRoutes(ts.router, Options{
		Sessions:    fakeSessions{user: user},
		Logger:      logger,
		MutationRPS: 1000,
		Static:      views.Static(),
	},
		handlers.NewTournamentHandler(ts.tournaments, ts.detail, ts.watcher, logger, 30*time.Second, true),
		handlers.NewBracketHandler(ts.bracket, logger),
		handlers.NewHealthHandler(ts.watcher, logger),
	)

	// Токен и cookie для изменяющих запросов, как их получает JS-клиент.
	rec := ts.send(httptest.NewRequest(http.MethodGet, "/api/session", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	ts.csrfToken, _ = decode(t, rec)["csrfToken"].(string)
	require.NotEmpty(t, ts.csrfToken)
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.CSRFCookieName {
			ts.csrfCookie = c
		}
	}
	require.NotNil(t, ts.csrfCookie)
	return ts
}

// send выполняет запрос с cookie сессии, но без CSRF-токена.
func (ts *testServer) send(req *http.Request) *httptest.ResponseRecorder {
	req.AddCookie(&http.Cookie{Name: "PHPSESSID", Value: "abc"})
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	req.AddCookie(ts.csrfCookie)
	if req.Method != http.MethodGet && req.Header.Get(middleware.CSRFHeader) == "" {
		req.Header.Set(middleware.CSRFHeader, ts.csrfToken)
	}
	return ts.send(req)
}

func (ts *testServer) get(path string) *httptest.ResponseRecorder {
	return ts.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (ts *testServer) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return ts.do(req)
}

func (ts *testServer) sendJSON(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return ts.do(req)
}

func document(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	return doc
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestEmptyBracketAdmin(t *testing.T) {
	ts := newTestServer(t, admin, emptySnapshot())

	rec := ts.get("/tournaments/1")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := document(t, rec)

	empty := doc.Find("#bracket-empty")
	require.Equal(t, 1, empty.Length())
	assert.Equal(t, "Bracket no generado", strings.TrimSpace(empty.Find("h2").Text()))

	var actions []string
	empty.Find("[data-action]").Each(func(_ int, s *goquery.Selection) {
		actions = append(actions, s.AttrOr("data-action", ""))
	})
	assert.Equal(t, []string{"generate-bracket", "create-match", "designate-champion"}, actions)

	assert.Equal(t, 0, doc.Find(".bracket").Length(), "no bracket grid without matches")
	assert.Equal(t, "/tournaments/1/generate", empty.Find("form").AttrOr("action", ""))

	assert.Equal(t, 1, doc.Find("#modal-create-match").Length())
	assert.Equal(t, 1, doc.Find("#modal-champion").Length())
	assert.Empty(t, doc.Find(`meta[http-equiv="refresh"]`).Nodes, "a reload would close an open admin form")
	assert.Equal(t, []models.ID{"1"}, ts.watcher.Watching())
}

func TestEmptyBracketGuest(t *testing.T) {
	ts := newTestServer(t, nil, emptySnapshot())

	doc := document(t, ts.get("/tournaments/1"))

	empty := doc.Find("#bracket-empty")
	require.Equal(t, 1, empty.Length())
	assert.Equal(t, 0, empty.Find("[data-action]").Length())
	assert.Equal(t, 0, doc.Find(".modal").Length())
	assert.Equal(t, 0, doc.Find(".badge").Length())
	assert.Equal(t, "30;url=/tournaments/1?tab=bracket", doc.Find(`meta[http-equiv="refresh"]`).AttrOr("content", ""))
	assert.Equal(t, []models.ID{"1"}, ts.watcher.Watching())
}

func TestGuestRefreshDropsFlash(t *testing.T) {
	ts := newTestServer(t, nil, emptySnapshot())

	doc := document(t, ts.get("/tournaments/1?tab=bracket&notice=Datos+actualizados."))
	assert.Equal(t, 1, doc.Find(".flash").Length())
	assert.Equal(t, "30;url=/tournaments/1?tab=bracket", doc.Find(`meta[http-equiv="refresh"]`).AttrOr("content", ""))
}

func TestBracketGrid(t *testing.T) {
	ts := newTestServer(t, admin, snapshotWithFinal())

	doc := document(t, ts.get("/tournaments/1?tab=bracket"))

	assert.Equal(t, 0, doc.Find("#bracket-empty").Length())
	rounds := doc.Find(".bracket section.round")
	require.Equal(t, 1, rounds.Length())
	assert.Equal(t, "1", rounds.AttrOr("data-round", ""))
	assert.Contains(t, rounds.Find("h3").Text(), "Final")

	match := doc.Find(`article.match[data-match-id="100"]`)
	require.Equal(t, 1, match.Length())
	winner := match.Find(".side.winner")
	require.Equal(t, 1, winner.Length())
	assert.Equal(t, "2", winner.AttrOr("data-side", ""))
	assert.Equal(t, "Beto", winner.Find(".name").Text())

	champion := doc.Find(".champion")
	require.Equal(t, 1, champion.Length())
	assert.Equal(t, "false", champion.AttrOr("data-manual", ""))
	assert.Equal(t, "Beto", champion.Find("strong").Text())

	assert.Equal(t, 1, doc.Find("#modal-match-100").Length())
	assert.Equal(t, 1, doc.Find("#modal-team-100-1").Length())
	assert.Equal(t, 1, doc.Find("#modal-round-1").Length())
}

func TestOtherTabs(t *testing.T) {
	ts := newTestServer(t, admin, snapshotWithFinal())

	doc := document(t, ts.get("/tournaments/1?tab=participants"))
	rows := doc.Find("table.leaderboard tbody tr")
	require.Equal(t, 2, rows.Length())
	assert.Equal(t, "20", rows.First().AttrOr("data-participant-id", ""), "sorted by points")
	assert.Empty(t, doc.Find(`meta[http-equiv="refresh"]`).Nodes)
	assert.Empty(t, ts.watcher.Watching(), "only the bracket tab is polled")

	doc = document(t, ts.get("/tournaments/1?tab=matches"))
	row := doc.Find(`table.matches tr[data-match-id="100"]`)
	require.Equal(t, 1, row.Length())
	assert.Equal(t, 1, row.Find("img.thumb").Length())
	assert.Equal(t, "/tournaments/1/matches/100/images", row.Find("form.upload").AttrOr("action", ""))

	doc = document(t, ts.get("/tournaments/1?tab=info"))
	assert.Equal(t, 1, doc.Find(".info-tab").Length())
}

func TestDetailNotFound(t *testing.T) {
	ts := newTestServer(t, nil, emptySnapshot())

	rec := ts.get("/tournaments/404")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, document(t, rec).Find(".error-page h1").Text(), "no existe")

	rec = ts.get("/api/tournaments/404")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, decode(t, rec)["success"])
}

func TestListPage(t *testing.T) {
	ts := newTestServer(t, admin, emptySnapshot())

	rec := ts.get("/tournaments?notice=Torneo+creado.")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := document(t, rec)

	assert.Equal(t, 1, doc.Find(`article.card.tournament[data-tournament-id="1"]`).Length())
	assert.Equal(t, 1, doc.Find(`[data-action="create-tournament"]`).Length())
	assert.Equal(t, 1, doc.Find(`[data-action="delete-tournament"]`).Length())
	assert.Equal(t, "Torneo creado.", doc.Find(".flash.flash-success").Text())
}

func TestJSONDeleteMatchBackendMessage(t *testing.T) {
	ts := newTestServer(t, admin, snapshotWithFinal())
	ts.bracket.err = &repositories.APIError{Endpoint: "tournaments/delete-match.php", StatusCode: http.StatusOK, Message: "X"}

	rec := ts.sendJSON(http.MethodDelete, "/api/tournaments/1/matches/100", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "X", body["message"])
	assert.Equal(t, []string{"delete:100"}, ts.bracket.calls)
}

func TestFormDeleteMatchRedirectsWithFlash(t *testing.T) {
	ts := newTestServer(t, admin, snapshotWithFinal())
	ts.bracket.err = &repositories.APIError{Message: "X"}

	rec := ts.postForm("/tournaments/1/matches/100/delete", url.Values{})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/tournaments/1", loc.Path)
	assert.Equal(t, "bracket", loc.Query().Get("tab"))
	assert.Equal(t, "X", loc.Query().Get("error"))
}

func TestFormMutationSuccessNotice(t *testing.T) {
	ts := newTestServer(t, admin, snapshotWithFinal())

	rec := ts.postForm("/tournaments/1/generate", url.Values{})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc, _ := url.Parse(rec.Header().Get("Location"))
	assert.Equal(t, "Bracket generado.", loc.Query().Get("notice"))
	assert.Equal(t, []string{"generate"}, ts.bracket.calls)
}

func TestMutationsRequireAdmin(t *testing.T) {
	player := &models.SessionUser{ID: "2", Username: "ana", Role: models.RolePlayer}
	ts := newTestServer(t, player, snapshotWithFinal())

	assert.Equal(t, http.StatusForbidden, ts.postForm("/tournaments/1/generate", url.Values{}).Code)
	assert.Equal(t, http.StatusForbidden, ts.sendJSON(http.MethodDelete, "/api/tournaments/1/matches/100", nil).Code)
	assert.Empty(t, ts.bracket.calls)

	// Чтение и ручное обновление доступны всем.
	assert.Equal(t, http.StatusOK, ts.get("/api/tournaments").Code)
	assert.Equal(t, http.StatusSeeOther, ts.postForm("/tournaments/1/refresh?tab=info", url.Values{}).Code)
	assert.Equal(t, []services.RefreshTrigger{services.TriggerManual}, ts.detail.refreshed)
}

func TestCreateMatchForm(t *testing.T) {
	ts := newTestServer(t, admin, snapshotWithFinal())

	form := url.Values{
		"round":             {"2"},
		"matchNumber":       {""},
		"team1Participants": {"10", "11"},
		"team2Participants": {"20,21"},
		"scheduledAt":       {"2024-06-01T18:00"},
	}
	rec := ts.postForm("/tournaments/1/matches", form)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	assert.Equal(t, 2, ts.bracket.created.Round)
	assert.Equal(t, 0, ts.bracket.created.MatchNumber)
	assert.Equal(t, []models.ID{"10", "11"}, ts.bracket.created.Team1Participants)
	assert.Equal(t, []models.ID{"20", "21"}, ts.bracket.created.Team2Participants)
}

func TestCreateMatchFormBadNumber(t *testing.T) {
	ts := newTestServer(t, admin, snapshotWithFinal())

	rec := ts.postForm("/tournaments/1/matches", url.Values{"round": {"uno"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc, _ := url.Parse(rec.Header().Get("Location"))
	assert.Contains(t, loc.Query().Get("error"), "round")
	assert.Empty(t, ts.bracket.calls)
}

func TestUpdateMatchJSON(t *testing.T) {
	ts := newTestServer(t, admin, snapshotWithFinal())

	rec := ts.sendJSON(http.MethodPut, "/api/tournaments/1/matches/100", map[string]interface{}{
		"score1": 3,
		"score2": 1,
		"status": "completed",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Partido actualizado.", body["message"])
	assert.Equal(t, models.MatchCompleted, ts.bracket.updated.Status)
	assert.Equal(t, 3, ts.bracket.updated.Score1)
}

func TestUpdateMatchJSONUnknownField(t *testing.T) {
	ts := newTestServer(t, admin, snapshotWithFinal())

	rec := ts.sendJSON(http.MethodPut, "/api/tournaments/1/matches/100", map[string]interface{}{"winner": 1})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode(t, rec)
	assert.Contains(t, body["errors"], "body")
	assert.Empty(t, ts.bracket.calls)
}

func TestMutationInProgressIsConflict(t *testing.T) {
	ts := newTestServer(t, admin, snapshotWithFinal())
	ts.bracket.err = services.ErrMutationInProgress

	rec := ts.sendJSON(http.MethodPut, "/api/tournaments/1/rounds/2", map[string]string{"title": "Final"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 2, ts.bracket.round.Round)
}

func TestRenameTeamAndChampionForms(t *testing.T) {
	ts := newTestServer(t, admin, snapshotWithFinal())

	rec := ts.postForm("/tournaments/1/matches/100/teams", url.Values{"side": {"2"}, "name": {"Halcones"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, services.RenameTeamInput{Side: 2, Name: "Halcones"}, ts.bracket.team)

	rec = ts.postForm("/tournaments/1/champion", url.Values{"type": {"individual"}, "participantId": {"20"}, "name": {"Beto"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, models.ID("20"), ts.bracket.champion.ParticipantID)

	rec = ts.sendJSON(http.MethodDelete, "/api/tournaments/1/champion", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"team:100", "champion", "clear-champion"}, ts.bracket.calls)
}

func TestUploadMatchImageAPI(t *testing.T) {
	ts := newTestServer(t, admin, snapshotWithFinal())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("imageType", "ida"))
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="shot.png"`)
	header.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, _ = part.Write([]byte("png-bytes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/tournaments/1/matches/100/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := ts.do(req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, models.ImageIda, ts.bracket.upload.ImageType)
	assert.Equal(t, "image/png", ts.bracket.upload.ContentType)
	assert.Equal(t, []byte("png-bytes"), ts.bracket.body)
}

func TestUploadMatchImageFormCarriesToken(t *testing.T) {
	ts := newTestServer(t, admin, snapshotWithFinal())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField(middleware.CSRFFieldName, ts.csrfToken))
	require.NoError(t, mw.WriteField("imageType", "vuelta"))
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="shot.png"`)
	header.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, _ = part.Write([]byte("png-bytes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/tournaments/1/matches/100/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(ts.csrfCookie)
	rec := ts.send(req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, models.ImageVuelta, ts.bracket.upload.ImageType)
	assert.Equal(t, []byte("png-bytes"), ts.bracket.body)
}

func TestCreateTournamentAPI(t *testing.T) {
	ts := newTestServer(t, admin, emptySnapshot())

	rec := ts.sendJSON(http.MethodPost, "/api/tournaments", map[string]interface{}{"name": "Copa Sur", "teamSize": 2})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "9", decode(t, rec)["tournamentId"])
	require.Len(t, ts.tournaments.created, 1)
	assert.Equal(t, "Copa Sur", ts.tournaments.created[0].Name)

	rec = ts.postForm("/tournaments", url.Values{"name": {"Copa Este"}, "maps": {"Dust2, Nuke"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/tournaments/9?notice=Torneo+creado.", rec.Header().Get("Location"))
	assert.Equal(t, []string{"Dust2", "Nuke"}, ts.tournaments.created[1].Maps)
}

func TestDetailJSON(t *testing.T) {
	ts := newTestServer(t, nil, snapshotWithFinal())

	rec := ts.get("/api/tournaments/1")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool `json:"success"`
		Bracket struct {
			Empty    bool `json:"empty"`
			Champion struct {
				Name string `json:"name"`
			} `json:"champion"`
			Rounds []struct {
				Title string `json:"title"`
			} `json:"rounds"`
		} `json:"bracket"`
		Leaderboard []models.Participant `json:"leaderboard"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.False(t, body.Bracket.Empty)
	assert.Equal(t, "Beto", body.Bracket.Champion.Name)
	require.Len(t, body.Bracket.Rounds, 1)
	assert.Equal(t, "Final", body.Bracket.Rounds[0].Title)
	require.Len(t, body.Leaderboard, 2)
	assert.Equal(t, models.ID("20"), body.Leaderboard[0].ID)
}

func TestServiceRoutes(t *testing.T) {
	ts := newTestServer(t, nil, emptySnapshot())

	rec := ts.get("/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])

	rec = ts.get("/api/session")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Nil(t, body["user"])
	assert.Equal(t, false, body["isAdmin"])

	rec = ts.get("/swagger/doc.json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"swagger"`)

	rec = ts.get("/static/portal.css")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.get("/")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/tournaments", rec.Header().Get("Location"))
}

func TestMutationsRequireCSRFToken(t *testing.T) {
	ts := newTestServer(t, admin, snapshotWithFinal())

	// Форма без токена: cookie сессии есть, но запрос мог прийти с чужого сайта.
	req := httptest.NewRequest(http.MethodPost, "/tournaments/1/generate", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(ts.csrfCookie)
	rec := ts.send(req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/tournaments/1/matches/100", nil)
	req.AddCookie(ts.csrfCookie)
	rec = ts.send(req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, false, decode(t, rec)["success"])

	// Токен есть, но Origin чужой.
	req = httptest.NewRequest(http.MethodPost, "/tournaments/1/generate", nil)
	req.Header.Set("Origin", "https://evil.example.net")
	rec = ts.do(req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	assert.Empty(t, ts.bracket.calls)
}

func TestFormsCarryCSRFToken(t *testing.T) {
	ts := newTestServer(t, admin, emptySnapshot())

	doc := document(t, ts.do(httptest.NewRequest(http.MethodGet, "/tournaments/1", nil)))
	forms := doc.Find(`form[method="post"]`)
	require.NotZero(t, forms.Length())
	forms.Each(func(_ int, f *goquery.Selection) {
		assert.NotEmpty(t, f.Find(`input[type="hidden"][name="csrf_token"]`).AttrOr("value", ""), f.AttrOr("action", ""))
	})

	// Токен из скрытого поля принимается без заголовка.
	generate := doc.Find(`form[action="/tournaments/1/generate"]`)
	token := generate.Find(`input[name="csrf_token"]`).AttrOr("value", "")
	req := httptest.NewRequest(http.MethodPost, "/tournaments/1/generate", strings.NewReader(url.Values{"csrf_token": {token}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(ts.csrfCookie)
	rec := ts.send(req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, []string{"generate"}, ts.bracket.calls)
}
