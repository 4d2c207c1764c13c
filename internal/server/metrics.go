package server

import (
	"database/sql"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the admin server.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	events   *prometheus.CounterVec

	mu      sync.Mutex
	handles map[string]prometheus.Collector
}

// NewMetrics creates the collectors on a dedicated registry.
//
// engines reports the number of registered engines when scraped.
func NewMetrics(engines func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alchemy_http_requests_total",
				Help: "Admin API requests by route, method and status.",
			},
			[]string{"route", "method", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "alchemy_http_request_duration_seconds",
				Help:    "Admin API request latency by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alchemy_engine_events_total",
				Help: "Engine lifecycle events by kind.",
			},
			[]string{"kind"},
		),
		handles: make(map[string]prometheus.Collector),
	}

	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.events,
		collectors.NewGoCollector(),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "alchemy_registered_engines",
				Help: "Engines currently registered.",
			},
			func() float64 { return float64(engines()) },
		),
	)
	return m
}

// Registry exposes the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the collected metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// TrackHandle exports the pool statistics of an opened engine handle.
func (m *Metrics) TrackHandle(name string, db *sql.DB) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.handles[name]; ok {
		m.registry.Unregister(old)
	}
	c := collectors.NewDBStatsCollector(db, name)
	if err := m.registry.Register(c); err != nil {
		return
	}
	m.handles[name] = c
}

// ReleaseHandle stops exporting the statistics of a closed handle.
func (m *Metrics) ReleaseHandle(name string, _ *sql.DB) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.handles[name]; ok {
		m.registry.Unregister(c)
		delete(m.handles, name)
	}
}

// CountEvent records one engine lifecycle event.
func (m *Metrics) CountEvent(kind string) {
	m.events.WithLabelValues(kind).Inc()
}

// Middleware counts requests per route template.
func (m *Metrics) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := record(w)
			next.ServeHTTP(rec, r)

			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tpl, err := current.GetPathTemplate(); err == nil {
					route = tpl
				}
			}

			m.requests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
			m.duration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		})
	}
}
