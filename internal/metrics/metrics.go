// Package metrics exposes Prometheus metrics and a health endpoint for
// the sync, relay, and signal engines.
package metrics

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Backfill
	BackfillPages    *prometheus.CounterVec // labels: timeframe
	BackfillKlines   prometheus.Counter
	BackfillErrors   prometheus.Counter
	BackfillCycleDur prometheus.Histogram

	// Live relay
	StreamReconnects prometheus.Counter
	RelayUpserts     *prometheus.CounterVec // labels: timeframe
	RelayDrops       prometheus.Counter

	// Signal engine
	EvalCycleDur   prometheus.Histogram
	Decisions      *prometheus.CounterVec // labels: action
	SignalsStored  prometheus.Counter
	SymbolsSkipped prometheus.Counter
}

// New registers and returns all metrics.
func New() *Metrics {
	m := &Metrics{
		BackfillPages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trendsignals_backfill_pages_total",
			Help: "Backfill pages fetched and stored (by timeframe)",
		}, []string{"timeframe"}),
		BackfillKlines: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trendsignals_backfill_klines_total",
			Help: "Total klines upserted by backfill",
		}),
		BackfillErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trendsignals_backfill_series_errors_total",
			Help: "Series syncs aborted by a fetch/store error",
		}),
		BackfillCycleDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trendsignals_backfill_cycle_duration_seconds",
			Help:    "Duration of one full backfill cycle",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		StreamReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trendsignals_stream_reconnects_total",
			Help: "WebSocket stream reconnection attempts",
		}),
		RelayUpserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trendsignals_relay_upserts_total",
			Help: "Closed candles upserted by the live relay (by timeframe)",
		}, []string{"timeframe"}),
		RelayDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trendsignals_relay_dropped_events_total",
			Help: "Stream events dropped by the relay's bounded queue",
		}),
		EvalCycleDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trendsignals_eval_cycle_duration_seconds",
			Help:    "Duration of one full signal evaluation cycle",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trendsignals_decisions_total",
			Help: "Strategy decisions (by action)",
		}, []string{"action"}),
		SignalsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trendsignals_signals_stored_total",
			Help: "New signals appended to the signal log",
		}),
		SymbolsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trendsignals_symbol_skips_total",
			Help: "Symbol/strategy evaluations skipped (missing data or error)",
		}),
	}

	prometheus.MustRegister(
		m.BackfillPages,
		m.BackfillKlines,
		m.BackfillErrors,
		m.BackfillCycleDur,
		m.StreamReconnects,
		m.RelayUpserts,
		m.RelayDrops,
		m.EvalCycleDur,
		m.Decisions,
		m.SignalsStored,
		m.SymbolsSkipped,
	)
	return m
}

// healthView is the JSON shape served on /healthz.
type healthView struct {
	SQLiteOK        bool      `json:"sqlite_ok"`
	RedisConnected  bool      `json:"redis_connected"`
	StreamConnected bool      `json:"stream_connected"`
	LastEventTime   time.Time `json:"last_event_time"`
	StartedAt       time.Time `json:"started_at"`
}

// HealthStatus represents the process health.
type HealthStatus struct {
	mu sync.RWMutex
	v  healthView
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{v: healthView{StartedAt: time.Now()}}
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.v.SQLiteOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.v.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetStreamConnected(v bool) {
	h.mu.Lock()
	h.v.StreamConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastEventTime(t time.Time) {
	h.mu.Lock()
	h.v.LastEventTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) snapshot() healthView {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.v
}

// Server serves /metrics and /healthz.
type Server struct {
	addr   string
	health *HealthStatus
}

// NewServer creates a metrics server on addr.
func NewServer(addr string, health *HealthStatus) *Server {
	return &Server{addr: addr, health: health}
}

// Start serves in a background goroutine.
func (s *Server) Start() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		snap := s.health.snapshot()
		json.NewEncoder(w).Encode(snap)
	})

	go func() {
		log.Printf("[metrics] serving on %s", s.addr)
		if err := http.ListenAndServe(s.addr, mux); err != nil {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}
