package services

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/tournament-portal/models"
	"github.com/Dosada05/tournament-portal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRefresher struct {
	mu      sync.Mutex
	calls   map[models.ID]int
	cookies map[models.ID]string
}

func (r *countingRefresher) RefreshTournamentData(ctx context.Context, id models.ID, trigger RefreshTrigger) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = map[models.ID]int{}
	}
	r.calls[id]++
	if r.cookies == nil {
		r.cookies = map[models.ID]string{}
	}
	r.cookies[id] = ""
	for _, c := range repositories.CookiesFromContext(ctx) {
		if c.Name == "PHPSESSID" {
			r.cookies[id] = c.Value
		}
	}
	return nil
}

func (r *countingRefresher) session(id models.ID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cookies[id]
}

func (r *countingRefresher) count(id models.ID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[id]
}

type watchGauge struct {
	mu   sync.Mutex
	last int
}

func (g *watchGauge) SetWatched(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = n
}

func (g *watchGauge) value() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

func TestPollerRefreshesWatchedTournament(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	refresher := &countingRefresher{}
	gauge := &watchGauge{}
	p := NewPoller(refresher, gauge, discardLogger(), 10*time.Millisecond)
	p.Start(ctx)

	p.Watch(ctx, "7")
	p.Watch(ctx, "7")
	p.Watch(ctx, "3")
	assert.Equal(t, []models.ID{"3", "7"}, p.Watching())
	assert.Equal(t, 2, gauge.value())

	assert.Eventually(t, func() bool { return refresher.count("7") >= 2 }, time.Second, 5*time.Millisecond)

	p.Unwatch("7")
	assert.Equal(t, []models.ID{"3"}, p.Watching())
	assert.Equal(t, 1, gauge.value())

	cancel()
	p.Wait()
	assert.Empty(t, p.Watching())
	assert.Equal(t, 0, gauge.value())
}

func TestPollerLeaseExpires(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clk := &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	p := NewPoller(&countingRefresher{}, nil, discardLogger(), 10*time.Millisecond)
	p.now = clk.Now
	p.Start(ctx)

	p.Watch(ctx, "7")
	require.Equal(t, []models.ID{"7"}, p.Watching())

	clk.Advance(time.Minute)
	assert.Eventually(t, func() bool { return len(p.Watching()) == 0 }, time.Second, 5*time.Millisecond)

	// Новый показ вкладки снова запускает опрос.
	p.Watch(ctx, "7")
	assert.Equal(t, []models.ID{"7"}, p.Watching())

	cancel()
	p.Wait()
}

func TestPollerWatchAfterShutdownIsNoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPoller(&countingRefresher{}, nil, discardLogger(), time.Second)
	p.Start(ctx)
	cancel()

	p.Watch(ctx, "7")
	assert.Empty(t, p.Watching())
	p.Wait()
}

func TestPollerRefreshesWithViewerSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	refresher := &countingRefresher{}
	p := NewPoller(refresher, nil, discardLogger(), 10*time.Millisecond)
	p.Start(ctx)

	first := repositories.WithCookies(context.Background(), []*http.Cookie{{Name: "PHPSESSID", Value: "admin-1"}})
	p.Watch(first, "7")
	assert.Eventually(t, func() bool { return refresher.session("7") == "admin-1" }, time.Second, 5*time.Millisecond)

	// Продление аренды другим зрителем переключает сессию опроса.
	second := repositories.WithCookies(context.Background(), []*http.Cookie{{Name: "PHPSESSID", Value: "admin-2"}})
	p.Watch(second, "7")
	assert.Eventually(t, func() bool { return refresher.session("7") == "admin-2" }, time.Second, 5*time.Millisecond)

	cancel()
	p.Wait()
}
