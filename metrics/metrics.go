package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors - метрики портала. Регистрируются в переданном реестре, чтобы
// тесты могли использовать собственный prometheus.Registry.
type Collectors struct {
	backendRequests *prometheus.CounterVec
	backendLatency  *prometheus.HistogramVec
	refreshes       *prometheus.CounterVec
	watched         prometheus.Gauge
}

func New(registry prometheus.Registerer) *Collectors {
	c := &Collectors{
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "backend_requests_total",
			Help:      "Requests sent to the PHP backend by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "portal",
			Name:      "backend_request_duration_seconds",
			Help:      "Latency of PHP backend requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "tournament_refreshes_total",
			Help:      "Tournament data refreshes by trigger and result (applied, discarded, failed).",
		}, []string{"trigger", "result"}),
		watched: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "portal",
			Name:      "watched_tournaments",
			Help:      "Tournaments with an active bracket polling lease.",
		}),
	}
	if registry != nil {
		registry.MustRegister(c.backendRequests, c.backendLatency, c.refreshes, c.watched)
	}
	return c
}

func (c *Collectors) ObserveBackendRequest(endpoint, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.backendRequests.WithLabelValues(endpoint, outcome).Inc()
	c.backendLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func (c *Collectors) ObserveRefresh(trigger, result string) {
	if c == nil {
		return
	}
	c.refreshes.WithLabelValues(trigger, result).Inc()
}

func (c *Collectors) SetWatched(n int) {
	if c == nil {
		return
	}
	c.watched.Set(float64(n))
}
