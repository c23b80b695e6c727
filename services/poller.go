package services

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/tournament-portal/models"
	"github.com/Dosada05/tournament-portal/repositories"
)

// Refresher - то, что умеет обновлять данные турнира (DetailService).
type Refresher interface {
	RefreshTournamentData(ctx context.Context, id models.ID, trigger RefreshTrigger) error
}

// WatchObserver reports the number of watched tournaments (metrics).
type WatchObserver interface {
	SetWatched(n int)
}

type watch struct {
	expires time.Time
	cookies []*http.Cookie
	cancel  context.CancelFunc
}

// Poller периодически обновляет турниры, вкладку сетки которых сейчас кто-то
// смотрит. Каждый показ вкладки продлевает аренду; когда аренда истекает,
// опрос турнира останавливается.
type Poller struct {
	refresher Refresher
	observer  WatchObserver
	logger    *slog.Logger
	interval  time.Duration
	lease     time.Duration
	now       func() time.Time

	mu      sync.Mutex
	root    context.Context
	watches map[models.ID]*watch
	wg      sync.WaitGroup
}

func NewPoller(refresher Refresher, observer WatchObserver, logger *slog.Logger, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{
		refresher: refresher,
		observer:  observer,
		logger:    logger,
		interval:  interval,
		lease:     2 * interval,
		now:       time.Now,
		root:      context.Background(),
		watches:   make(map[models.ID]*watch),
	}
}

// Start привязывает опрос к жизненному циклу приложения: отмена ctx
// останавливает все циклы.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.root = ctx
}

// Watch продлевает аренду опроса турнира и запускает цикл, если его ещё нет.
// Опрос идёт с cookie последнего зрителя, продлившего аренду.
func (p *Poller) Watch(ctx context.Context, id models.ID) {
	cookies := repositories.CookiesFromContext(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	expires := p.now().Add(p.lease)
	if w, ok := p.watches[id]; ok {
		w.expires = expires
		w.cookies = cookies
		return
	}
	if p.root.Err() != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(p.root)
	w := &watch{expires: expires, cookies: cookies, cancel: cancel}
	p.watches[id] = w
	p.reportLocked()

	p.wg.Add(1)
	go p.loop(loopCtx, id, w)
	p.logger.Info("bracket polling started", slog.String("tournament_id", id.String()), slog.Duration("interval", p.interval))
}

// Unwatch stops polling a tournament immediately.
func (p *Poller) Unwatch(id models.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if w, ok := p.watches[id]; ok {
		w.cancel()
		delete(p.watches, id)
		p.reportLocked()
	}
}

// Watching returns the ids being polled, sorted.
func (p *Poller) Watching() []models.ID {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]models.ID, 0, len(p.watches))
	for id := range p.watches {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Wait blocks until every polling loop has exited.
func (p *Poller) Wait() {
	p.wg.Wait()
}

func (p *Poller) loop(ctx context.Context, id models.ID, w *watch) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.drop(id, w)
			return
		case <-ticker.C:
			if p.expired(w) {
				p.logger.Info("bracket polling stopped, lease expired", slog.String("tournament_id", id.String()))
				p.drop(id, w)
				return
			}
			refreshCtx, cancel := context.WithTimeout(repositories.WithCookies(ctx, p.cookies(w)), p.interval)
			if err := p.refresher.RefreshTournamentData(refreshCtx, id, TriggerPoll); err != nil {
				p.logger.Error("periodic refresh failed", slog.String("tournament_id", id.String()), slog.Any("error", err))
			}
			cancel()
		}
	}
}

func (p *Poller) cookies(w *watch) []*http.Cookie {
	p.mu.Lock()
	defer p.mu.Unlock()
	return w.cookies
}

func (p *Poller) expired(w *watch) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.now().After(w.expires)
}

// drop removes the watch only if it is still the registered one: a new
// Watch after Unwatch must not be removed by the old loop.
func (p *Poller) drop(id models.ID, w *watch) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w.cancel()
	if current, ok := p.watches[id]; ok && current == w {
		delete(p.watches, id)
		p.reportLocked()
	}
}

func (p *Poller) reportLocked() {
	if p.observer != nil {
		p.observer.SetWatched(len(p.watches))
	}
}
