package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Dosada05/tournament-portal/models"
	"github.com/Dosada05/tournament-portal/repositories"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// RefreshTrigger - причина обновления данных турнира.
type RefreshTrigger string

const (
	TriggerLoad     RefreshTrigger = "load"
	TriggerMutation RefreshTrigger = "mutation"
	TriggerPoll     RefreshTrigger = "poll"
	TriggerManual   RefreshTrigger = "manual"
	TriggerStale    RefreshTrigger = "stale"
)

const (
	refreshApplied   = "applied"
	refreshDiscarded = "discarded"
	refreshFailed    = "failed"
)

// RefreshObserver получает исход каждого обновления (метрики).
type RefreshObserver interface {
	ObserveRefresh(trigger, result string)
}

// DetailState - кэшированное состояние страницы турнира.
type DetailState struct {
	Tournament   models.Tournament                 `json:"tournament"`
	Participants []models.Participant              `json:"participants"`
	Matches      []models.Match                    `json:"matches"`
	Images       map[models.ID][]models.MatchImage `json:"images"`
	RoundTitles  models.RoundTitles                `json:"roundTitles"`
	Champion     *models.ManualChampion            `json:"manualChampion"`
	IsLoading    bool                              `json:"isLoading"`
	IsRefreshing bool                              `json:"isRefreshing"`
	LoadedAt     time.Time                         `json:"loadedAt"`
	RefreshedAt  time.Time                         `json:"refreshedAt"`
	Generation   uint64                            `json:"generation"`
}

// Snapshot - копия состояния; Stale означает, что данные старше интервала опроса.
type Snapshot struct {
	DetailState
	Stale bool `json:"stale"`
}

// MatchByID finds a cached match.
func (s DetailState) MatchByID(id models.ID) (models.Match, bool) {
	for _, m := range s.Matches {
		if m.ID == id {
			return m, true
		}
	}
	return models.Match{}, false
}

func (s DetailState) ParticipantByID(id models.ID) (models.Participant, bool) {
	for _, p := range s.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return models.Participant{}, false
}

func (s DetailState) clone() DetailState {
	c := s
	c.Participants = append([]models.Participant(nil), s.Participants...)
	c.Matches = append([]models.Match(nil), s.Matches...)
	c.Images = make(map[models.ID][]models.MatchImage, len(s.Images))
	for k, v := range s.Images {
		c.Images[k] = append([]models.MatchImage(nil), v...)
	}
	c.RoundTitles = make(models.RoundTitles, len(s.RoundTitles))
	for k, v := range s.RoundTitles {
		c.RoundTitles[k] = v
	}
	if s.Champion != nil {
		champion := *s.Champion
		c.Champion = &champion
	}
	return c
}

// entry - состояние одного турнира. started растёт при каждом запуске
// загрузки/обновления/локального патча, applied - поколение последних
// применённых данных. Результат запроса применяется, только если он новее
// уже применённого: ответы обогнанных запросов отбрасываются.
type entry struct {
	mu         sync.Mutex
	state      DetailState
	loaded     bool
	started    uint64
	applied    uint64
	refreshing int
}

func (e *entry) begin() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.started++
	return e.started
}

func (e *entry) apply(gen uint64, fn func(*DetailState)) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen <= e.applied {
		return false
	}
	fn(&e.state)
	e.applied = gen
	e.state.Generation = gen
	return true
}

type DetailServiceConfig struct {
	PollInterval     time.Duration
	RefreshDelay     time.Duration
	ImageConcurrency int
}

// DetailService - read-through кэш данных турнира с явной инвалидацией после
// изменений и по таймеру.
type DetailService struct {
	tournaments  repositories.TournamentRepository
	participants repositories.ParticipantRepository
	matches      repositories.MatchRepository
	images       repositories.MatchImageRepository
	titles       repositories.RoundTitleRepository
	champions    repositories.ChampionRepository
	observer     RefreshObserver
	logger       *slog.Logger

	pollInterval     time.Duration
	refreshDelay     time.Duration
	imageConcurrency int

	now      func() time.Time
	schedule func(d time.Duration, fn func())

	mu      sync.Mutex
	entries map[models.ID]*entry
	loads   singleflight.Group
}

func NewDetailService(
	tournaments repositories.TournamentRepository,
	participants repositories.ParticipantRepository,
	matches repositories.MatchRepository,
	images repositories.MatchImageRepository,
	titles repositories.RoundTitleRepository,
	champions repositories.ChampionRepository,
	observer RefreshObserver,
	logger *slog.Logger,
	cfg DetailServiceConfig,
) *DetailService {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.RefreshDelay < 0 {
		cfg.RefreshDelay = 0
	}
	if cfg.ImageConcurrency <= 0 {
		cfg.ImageConcurrency = 4
	}
	return &DetailService{
		tournaments:      tournaments,
		participants:     participants,
		matches:          matches,
		images:           images,
		titles:           titles,
		champions:        champions,
		observer:         observer,
		logger:           logger,
		pollInterval:     cfg.PollInterval,
		refreshDelay:     cfg.RefreshDelay,
		imageConcurrency: cfg.ImageConcurrency,
		now:              time.Now,
		schedule: func(d time.Duration, fn func()) {
			time.AfterFunc(d, fn)
		},
		entries: make(map[models.ID]*entry),
	}
}

func (s *DetailService) entry(id models.ID) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		e = &entry{}
		s.entries[id] = e
	}
	return e
}

// Evict drops the cached state of a tournament (after it is deleted).
func (s *DetailService) Evict(id models.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// Snapshot возвращает кэшированное состояние без обращения к бэкенду.
func (s *DetailService) Snapshot(id models.ID) (Snapshot, bool) {
	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return Snapshot{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return Snapshot{DetailState: e.state.clone()}, false
	}
	return Snapshot{
		DetailState: e.state.clone(),
		Stale:       s.now().Sub(s.lastUpdate(e.state)) > s.pollInterval,
	}, true
}

func (s *DetailService) lastUpdate(st DetailState) time.Time {
	if st.RefreshedAt.After(st.LoadedAt) {
		return st.RefreshedAt
	}
	return st.LoadedAt
}

// Load возвращает состояние турнира, загружая его при первом обращении.
// Если запись турнира старше интервала опроса, кэш отдаётся сразу, а полное
// обновление запускается в фоне с cookie текущего запроса.
func (s *DetailService) Load(ctx context.Context, id models.ID) (Snapshot, error) {
	if snap, ok := s.Snapshot(id); ok {
		if !snap.IsRefreshing && s.now().Sub(snap.LoadedAt) > s.pollInterval {
			s.refreshInBackground(ctx, id, TriggerStale)
		}
		return snap, nil
	}

	// Параллельные холодные загрузки одного турнира схлопываются в одну.
	// Контекст без отмены: загрузка нужна всем ожидающим, а не только первому.
	loadCtx := context.WithoutCancel(ctx)
	_, err, _ := s.loads.Do(id.String(), func() (interface{}, error) {
		return nil, s.load(loadCtx, id)
	})
	if err != nil {
		return Snapshot{}, err
	}

	snap, ok := s.Snapshot(id)
	if !ok {
		// Турнир удалён, пока шла загрузка.
		return Snapshot{}, fmt.Errorf("%w: %s", ErrTournamentNotFound, id)
	}
	return snap, nil
}

func (s *DetailService) load(ctx context.Context, id models.ID) error {
	e := s.entry(id)
	gen := e.begin()
	s.setFlag(e, func(st *DetailState) { st.IsLoading = true })
	defer s.setFlag(e, func(st *DetailState) { st.IsLoading = false })

	var (
		tournament   *models.Tournament
		participants []models.Participant
		records      []models.MatchRecord
		titles       models.RoundTitles
		champion     *models.ManualChampion
		champOK      bool
	)

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Сам турнир - без него страница не имеет смысла.
	g.Go(func() error {
		t, err := s.tournaments.GetByID(gCtx, id)
		if err != nil {
			return tournamentError(id, err)
		}
		tournament = t
		return nil
	})

	// 2-5. Остальные коллекции: ошибка только логируется.
	g.Go(func() error {
		p, err := s.participants.ListByTournament(gCtx, id)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to load participants", slog.String("tournament_id", id.String()), slog.Any("error", err))
			return nil
		}
		participants = p
		return nil
	})
	g.Go(func() error {
		m, err := s.matches.ListByTournament(gCtx, id)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to load matches", slog.String("tournament_id", id.String()), slog.Any("error", err))
			return nil
		}
		records = m
		return nil
	})
	g.Go(func() error {
		t, err := s.titles.ListByTournament(gCtx, id)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to load round titles", slog.String("tournament_id", id.String()), slog.Any("error", err))
			return nil
		}
		titles = t
		return nil
	})
	g.Go(func() error {
		c, err := s.champions.Get(gCtx, id)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to load champion", slog.String("tournament_id", id.String()), slog.Any("error", err))
			return nil
		}
		champion, champOK = c, true
		return nil
	})

	if err := g.Wait(); err != nil {
		s.observe(TriggerLoad, refreshFailed)
		s.forget(id, e)
		return err
	}

	var matches []models.Match
	var images map[models.ID][]models.MatchImage
	if records != nil {
		matches = models.ResolveMatches(records, tournament.IsTeamMode())
		images = s.fetchImages(ctx, matches)
	}

	now := s.now()
	applied := e.apply(gen, func(st *DetailState) {
		st.Tournament = *tournament
		if participants != nil {
			st.Participants = participants
		}
		if matches != nil {
			st.Matches = matches
			st.Images = mergeImages(st.Images, images, matches)
		}
		if titles != nil {
			st.RoundTitles = titles
		}
		if champOK {
			st.Champion = champion
		}
		if st.RoundTitles == nil {
			st.RoundTitles = models.RoundTitles{}
		}
		st.LoadedAt = now
	})
	if !applied {
		// Без применённой записи турнира состояние не считается загруженным.
		s.observe(TriggerLoad, refreshDiscarded)
		s.forget(id, e)
		return fmt.Errorf("load of tournament %s was superseded", id)
	}

	e.mu.Lock()
	e.loaded = true
	e.mu.Unlock()

	s.observe(TriggerLoad, refreshApplied)
	s.logger.InfoContext(ctx, "tournament loaded",
		slog.String("tournament_id", id.String()),
		slog.Int("matches", len(matches)),
		slog.Int("participants", len(participants)))
	return nil
}

func tournamentError(id models.ID, err error) error {
	if errors.Is(err, repositories.ErrTournamentNotFound) {
		return fmt.Errorf("%w: %s", ErrTournamentNotFound, id)
	}
	return fmt.Errorf("failed to load tournament %s: %w", id, err)
}

// forget убирает запись, которая так и не загрузилась: неизвестные id не
// должны копиться в кэше.
func (s *DetailService) forget(id models.ID, e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.mu.Lock()
	loaded := e.loaded
	e.mu.Unlock()
	if current, ok := s.entries[id]; ok && current == e && !loaded {
		delete(s.entries, id)
	}
}

// refreshResult - ответы бэкенда для одного обновления.
type refreshResult struct {
	tournament   *models.Tournament
	participants []models.Participant
	records      []models.MatchRecord
	titles       models.RoundTitles
	champion     *models.ManualChampion

	tournamentErr error
	partErr       error
	matchErr      error
	titlesErr     error
	champErr      error
}

// RefreshTournamentData перезапрашивает участников и матчи. Периодический
// опрос ограничивается ими; остальные триггеры заново читают и сам турнир,
// названия раундов и назначенного чемпиона. Ошибки логируются, прежнее
// состояние остаётся на месте.
func (s *DetailService) RefreshTournamentData(ctx context.Context, id models.ID, trigger RefreshTrigger) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		_, err := s.Load(ctx, id)
		return err
	}

	e.mu.Lock()
	loaded := e.loaded
	teamMode := e.state.Tournament.IsTeamMode()
	e.refreshing++
	e.state.IsRefreshing = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.refreshing--
		e.state.IsRefreshing = e.refreshing > 0
		e.mu.Unlock()
	}()
	if !loaded {
		_, err := s.Load(ctx, id)
		return err
	}

	gen := e.begin()
	full := trigger != TriggerPoll

	var res refreshResult
	var g errgroup.Group
	g.Go(func() error {
		res.participants, res.partErr = s.participants.ListByTournament(ctx, id)
		return nil
	})
	g.Go(func() error {
		res.records, res.matchErr = s.matches.ListByTournament(ctx, id)
		return nil
	})
	if full {
		g.Go(func() error {
			res.tournament, res.tournamentErr = s.tournaments.GetByID(ctx, id)
			return nil
		})
		g.Go(func() error {
			res.titles, res.titlesErr = s.titles.ListByTournament(ctx, id)
			return nil
		})
		g.Go(func() error {
			res.champion, res.champErr = s.champions.Get(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	if errors.Is(res.tournamentErr, repositories.ErrTournamentNotFound) {
		// Турнир удалён в другом месте.
		s.Evict(id)
		s.observe(trigger, refreshFailed)
		return tournamentError(id, res.tournamentErr)
	}

	for name, err := range map[string]error{
		"tournament":   res.tournamentErr,
		"participants": res.partErr,
		"matches":      res.matchErr,
		"round titles": res.titlesErr,
		"champion":     res.champErr,
	} {
		if err != nil {
			s.logger.WarnContext(ctx, "refresh: failed to load "+name,
				slog.String("tournament_id", id.String()),
				slog.String("trigger", string(trigger)),
				slog.Any("error", err))
		}
	}
	if res.partErr != nil && res.matchErr != nil {
		s.observe(trigger, refreshFailed)
		return errors.Join(res.partErr, res.matchErr)
	}

	recordOK := full && res.tournamentErr == nil && res.tournament != nil
	if recordOK {
		teamMode = res.tournament.IsTeamMode()
	}

	var matches []models.Match
	var images map[models.ID][]models.MatchImage
	if res.matchErr == nil {
		matches = models.ResolveMatches(res.records, teamMode)
		images = s.fetchImages(ctx, matches)
	}

	now := s.now()
	applied := e.apply(gen, func(st *DetailState) {
		if res.partErr == nil {
			st.Participants = res.participants
		}
		if res.matchErr == nil {
			st.Matches = matches
			st.Images = mergeImages(st.Images, images, matches)
		}
		if recordOK {
			st.Tournament = *res.tournament
			st.LoadedAt = now
		}
		if full && res.titlesErr == nil {
			st.RoundTitles = res.titles
			if st.RoundTitles == nil {
				st.RoundTitles = models.RoundTitles{}
			}
		}
		if full && res.champErr == nil {
			st.Champion = res.champion
		}
		st.RefreshedAt = now
	})

	if !applied {
		s.observe(trigger, refreshDiscarded)
		s.logger.DebugContext(ctx, "refresh result discarded, newer data already applied",
			slog.String("tournament_id", id.String()), slog.Uint64("generation", gen))
		return nil
	}
	s.observe(trigger, refreshApplied)
	return nil
}

// ScheduleRefresh обновляет данные через RefreshDelay после изменения,
// чтобы база бэкенда успела применить запись. Обновление идёт с cookie
// запроса, который выполнил изменение.
func (s *DetailService) ScheduleRefresh(ctx context.Context, id models.ID) {
	bg := repositories.DetachCookies(ctx)
	s.schedule(s.refreshDelay, func() {
		s.runBackgroundRefresh(bg, id, TriggerMutation)
	})
}

func (s *DetailService) refreshInBackground(ctx context.Context, id models.ID, trigger RefreshTrigger) {
	bg := repositories.DetachCookies(ctx)
	go s.runBackgroundRefresh(bg, id, trigger)
}

func (s *DetailService) runBackgroundRefresh(bg context.Context, id models.ID, trigger RefreshTrigger) {
	ctx, cancel := context.WithTimeout(bg, s.pollInterval)
	defer cancel()
	if err := s.RefreshTournamentData(ctx, id, trigger); err != nil {
		s.logger.Error("background refresh failed",
			slog.String("tournament_id", id.String()),
			slog.String("trigger", string(trigger)),
			slog.Any("error", err))
	}
}

// Patch применяет локальное изменение после подтверждённой мутации.
// Патч получает новое поколение, поэтому запущенные до него обновления со
// старыми данными будут отброшены. Ещё не загруженное состояние не
// патчится: первая загрузка и обновление после мутации прочитают его целиком.
func (s *DetailService) Patch(id models.ID, fn func(*DetailState)) bool {
	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return false
	}
	e.mu.Lock()
	loaded := e.loaded
	e.mu.Unlock()
	if !loaded {
		return false
	}
	gen := e.begin()
	return e.apply(gen, fn)
}

func (s *DetailService) fetchImages(ctx context.Context, matches []models.Match) map[models.ID][]models.MatchImage {
	result := make(map[models.ID][]models.MatchImage, len(matches))
	if len(matches) == 0 {
		return result
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.imageConcurrency)
	for _, m := range matches {
		matchID := m.ID
		g.Go(func() error {
			imgs, err := s.images.ListByMatch(ctx, matchID)
			if err != nil {
				s.logger.WarnContext(ctx, "failed to load match images", slog.String("match_id", matchID.String()), slog.Any("error", err))
				return nil
			}
			mu.Lock()
			result[matchID] = imgs
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return result
}

// mergeImages keeps previously known images for matches whose image request
// failed and drops entries of matches that no longer exist.
func mergeImages(prev, fresh map[models.ID][]models.MatchImage, matches []models.Match) map[models.ID][]models.MatchImage {
	merged := make(map[models.ID][]models.MatchImage, len(matches))
	for _, m := range matches {
		if imgs, ok := fresh[m.ID]; ok {
			merged[m.ID] = imgs
		} else if imgs, ok := prev[m.ID]; ok {
			merged[m.ID] = imgs
		}
	}
	return merged
}

func (s *DetailService) setFlag(e *entry, fn func(*DetailState)) {
	e.mu.Lock()
	fn(&e.state)
	e.mu.Unlock()
}

func (s *DetailService) observe(trigger RefreshTrigger, result string) {
	if s.observer != nil {
		s.observer.ObserveRefresh(string(trigger), result)
	}
}
