package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Dosada05/tournament-portal/models"
	"github.com/Dosada05/tournament-portal/repositories"
	"github.com/Dosada05/tournament-portal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// gate позволяет тесту остановить фейковый репозиторий посреди запроса.
type gate struct {
	entered chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gate) pass(ctx context.Context) error {
	if g == nil {
		return nil
	}
	select {
	case g.entered <- struct{}{}:
	default:
	}
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type fakeTournamentRepo struct {
	mu          sync.Mutex
	tournaments []models.Tournament
	getCalls    int
	listErr     error
	createID    models.ID
	createErr   error
	created     []repositories.CreateTournamentParams
	deleteErr   error
	deleted     []models.ID
}

func (f *fakeTournamentRepo) replace(t models.Tournament) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tournaments = []models.Tournament{t}
}

func (f *fakeTournamentRepo) gets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls
}

func (f *fakeTournamentRepo) List(ctx context.Context) ([]models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Tournament(nil), f.tournaments...), nil
}

func (f *fakeTournamentRepo) GetByID(ctx context.Context, id models.ID) (*models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	for _, t := range f.tournaments {
		if t.ID == id {
			t := t
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", repositories.ErrTournamentNotFound, id)
}

func (f *fakeTournamentRepo) Create(ctx context.Context, params repositories.CreateTournamentParams) (models.ID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, params)
	return f.createID, f.createErr
}

func (f *fakeTournamentRepo) Delete(ctx context.Context, id models.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeParticipantRepo struct {
	mu           sync.Mutex
	participants []models.Participant
	err          error
}

func (f *fakeParticipantRepo) ListByTournament(ctx context.Context, tournamentID models.ID) ([]models.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.Participant(nil), f.participants...), nil
}

type fakeMatchRepo struct {
	mu       sync.Mutex
	records  []models.MatchRecord
	listErr  error
	listGate *gate
	cookies  []*http.Cookie

	created   *repositories.CreatedMatch
	createErr error
	creates   []repositories.CreateMatchParams

	updateErr  error
	updateGate *gate
	updates    []repositories.UpdateMatchParams

	teamsErr error
	teams    []repositories.UpdateMatchTeamsParams

	deleteErr error
	deletes   []models.ID

	generateErr error
	generated   []models.ID
}

func (f *fakeMatchRepo) setRecords(records []models.MatchRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = records
}

func (f *fakeMatchRepo) lastCookies() []*http.Cookie {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cookies
}

func (f *fakeMatchRepo) setListGate(g *gate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listGate = g
}

func (f *fakeMatchRepo) ListByTournament(ctx context.Context, tournamentID models.ID) ([]models.MatchRecord, error) {
	f.mu.Lock()
	g, records, err := f.listGate, append([]models.MatchRecord(nil), f.records...), f.listErr
	f.cookies = repositories.CookiesFromContext(ctx)
	f.mu.Unlock()

	if err := g.pass(ctx); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (f *fakeMatchRepo) Create(ctx context.Context, params repositories.CreateMatchParams) (*repositories.CreatedMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, params)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.created, nil
}

func (f *fakeMatchRepo) Update(ctx context.Context, params repositories.UpdateMatchParams) error {
	f.mu.Lock()
	g := f.updateGate
	f.mu.Unlock()
	if err := g.pass(ctx); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, params)
	return f.updateErr
}

func (f *fakeMatchRepo) UpdateTeams(ctx context.Context, params repositories.UpdateMatchTeamsParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.teams = append(f.teams, params)
	return f.teamsErr
}

func (f *fakeMatchRepo) Delete(ctx context.Context, matchID models.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, matchID)
	return f.deleteErr
}

func (f *fakeMatchRepo) GenerateBracket(ctx context.Context, tournamentID models.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generated = append(f.generated, tournamentID)
	return f.generateErr
}

type fakeImageRepo struct {
	mu      sync.Mutex
	images  map[models.ID][]models.MatchImage
	listErr error
	addErr  error
	added   []repositories.AddMatchImageParams
}

func (f *fakeImageRepo) ListByMatch(ctx context.Context, matchID models.ID) ([]models.MatchImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.MatchImage(nil), f.images[matchID]...), nil
}

func (f *fakeImageRepo) Add(ctx context.Context, params repositories.AddMatchImageParams) (*models.MatchImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, params)
	if f.addErr != nil {
		return nil, f.addErr
	}
	return &models.MatchImage{
		ID:          models.ID(fmt.Sprintf("img-%d", len(f.added))),
		MatchID:     params.MatchID,
		ImageType:   params.ImageType,
		ImageURL:    params.ImageURL,
		Description: params.Description,
	}, nil
}

type fakeTitleRepo struct {
	mu      sync.Mutex
	titles  models.RoundTitles
	err     error
	updates map[int]string
}

func (f *fakeTitleRepo) setTitles(titles models.RoundTitles) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titles = titles
}

func (f *fakeTitleRepo) ListByTournament(ctx context.Context, tournamentID models.ID) (models.RoundTitles, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := models.RoundTitles{}
	for k, v := range f.titles {
		out[k] = v
	}
	return out, nil
}

func (f *fakeTitleRepo) Update(ctx context.Context, tournamentID models.ID, round int, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.updates == nil {
		f.updates = map[int]string{}
	}
	f.updates[round] = title
	return nil
}

type fakeChampionRepo struct {
	mu       sync.Mutex
	champion *models.ManualChampion
	err      error
	cleared  int
}

func (f *fakeChampionRepo) set(champion *models.ManualChampion) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.champion = champion
}

func (f *fakeChampionRepo) Get(ctx context.Context, tournamentID models.ID) (*models.ManualChampion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.champion, f.err
}

func (f *fakeChampionRepo) Set(ctx context.Context, tournamentID models.ID, champion models.ManualChampion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.champion = &champion
	return nil
}

func (f *fakeChampionRepo) Clear(ctx context.Context, tournamentID models.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.champion = nil
	f.cleared++
	return nil
}

type fakeUploader struct {
	mu        sync.Mutex
	uploadErr error
	uploaded  map[string][]byte
	deleted   []string
}

func (f *fakeUploader) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploaded == nil {
		f.uploaded = map[string][]byte{}
	}
	f.uploaded[key] = buf.Bytes()
	return &storage.UploadResult{Key: key, Location: f.GetPublicURL(key)}, nil
}

func (f *fakeUploader) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

type refreshCall struct {
	trigger string
	result  string
}

type fakeRefreshObserver struct {
	mu    sync.Mutex
	calls []refreshCall
}

func (o *fakeRefreshObserver) ObserveRefresh(trigger, result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, refreshCall{trigger, result})
}

func (o *fakeRefreshObserver) results() []refreshCall {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]refreshCall(nil), o.calls...)
}

// testRepos собирает фейки для DetailService и BracketService.
type testRepos struct {
	tournaments  *fakeTournamentRepo
	participants *fakeParticipantRepo
	matches      *fakeMatchRepo
	images       *fakeImageRepo
	titles       *fakeTitleRepo
	champions    *fakeChampionRepo
	observer     *fakeRefreshObserver
}

func soloTournament() models.Tournament {
	return models.Tournament{ID: "1", Name: "Copa Norte", TeamSize: 1, BracketType: models.BracketSingleElimination}
}

func newTestRepos(t models.Tournament) *testRepos {
	return &testRepos{
		tournaments: &fakeTournamentRepo{tournaments: []models.Tournament{t}},
		participants: &fakeParticipantRepo{participants: []models.Participant{
			{ID: "10", ParticipantName: "Ana", Points: 3},
			{ID: "20", ParticipantName: "Beto"},
			{ID: "30", ParticipantName: "Caro"},
		}},
		matches: &fakeMatchRepo{records: []models.MatchRecord{
			{
				ID: "100", TournamentID: t.ID, Round: 1, MatchNumber: 1,
				Participant1: &models.Participant{ID: "10", ParticipantName: "Ana"},
				Participant2: &models.Participant{ID: "20", ParticipantName: "Beto"},
				Status:       models.MatchPending,
			},
		}},
		images: &fakeImageRepo{images: map[models.ID][]models.MatchImage{
			"100": {{ID: "1", MatchID: "100", ImageType: models.ImageIda, ImageURL: "https://cdn.example.com/a.png"}},
		}},
		titles:    &fakeTitleRepo{titles: models.RoundTitles{1: "Semifinal"}},
		champions: &fakeChampionRepo{},
		observer:  &fakeRefreshObserver{},
	}
}

// scheduler records delayed refreshes instead of running them.
type scheduler struct {
	mu     sync.Mutex
	delays []time.Duration
	fns    []func()
}

func (s *scheduler) schedule(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	s.fns = append(s.fns, fn)
}

func (s *scheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fns)
}

func (s *scheduler) runAll() {
	s.mu.Lock()
	fns := s.fns
	s.fns = nil
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestDetail(r *testRepos) (*DetailService, *scheduler, *clock) {
	svc := NewDetailService(r.tournaments, r.participants, r.matches, r.images, r.titles, r.champions, r.observer, discardLogger(), DetailServiceConfig{
		PollInterval:     30 * time.Second,
		RefreshDelay:     time.Second,
		ImageConcurrency: 2,
	})
	sched := &scheduler{}
	clk := &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	svc.schedule = sched.schedule
	svc.now = clk.Now
	return svc, sched, clk
}
