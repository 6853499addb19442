package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the dashboard client.
type Metrics struct {
	// API client
	APIRequests   *prometheus.CounterVec // labels: class=2xx|3xx|4xx|5xx|network|timeout
	APIRequestDur prometheus.Histogram

	// Session refresh coordinator
	TokenRefreshes *prometheus.CounterVec // labels: outcome=success|failure|no_token|superseded
	ParkedRequests prometheus.Gauge
	Teardowns      prometheus.Counter

	// Autocomplete search
	SearchesDispatched prometheus.Counter
	SearchesDiscarded  prometheus.Counter
	SearchFailures     prometheus.Counter

	// Indicator engine
	IndicatorComputeDur prometheus.Histogram
	IndicatorsTotal     prometheus.Counter

	// Caches: bars, overview
	CacheLookups *prometheus.CounterVec // labels: cache, result=hit|miss

	// Redis circuit breaker
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter
	RedisBufferedWrites      prometheus.Counter

	// Gateway
	WSSessions prometheus.Gauge

	// Warm-up scheduler
	WarmupRuns  *prometheus.CounterVec // labels: outcome=ok|error|skipped
	MarketState prometheus.Gauge       // 0=closed, 1=open

	reg prometheus.Gatherer
}

// NewMetrics registers and returns all metrics on the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewMetricsWith registers on reg and serves from g. Tests pass a fresh
// prometheus.NewRegistry() for both.
func NewMetricsWith(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	m := &Metrics{
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockdash_api_requests_total",
			Help: "Backend API requests by outcome class",
		}, []string{"class"}),
		APIRequestDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stockdash_api_request_duration_seconds",
			Help:    "Backend API round-trip latency",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
		}),

		TokenRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockdash_token_refreshes_total",
			Help: "Access token refresh attempts by outcome",
		}, []string{"outcome"}),
		ParkedRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stockdash_parked_requests",
			Help: "Requests waiting for an in-flight token refresh",
		}),
		Teardowns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockdash_session_teardowns_total",
			Help: "Sessions cleared after an irrecoverable auth failure",
		}),

		SearchesDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockdash_searches_dispatched_total",
			Help: "Autocomplete queries sent after the debounce window",
		}),
		SearchesDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockdash_searches_discarded_total",
			Help: "Autocomplete responses dropped because a newer query superseded them",
		}),
		SearchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockdash_search_failures_total",
			Help: "Autocomplete queries that returned an error",
		}),

		IndicatorComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stockdash_indicator_compute_duration_seconds",
			Help:    "Indicator engine compute latency per request",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
		IndicatorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockdash_indicators_total",
			Help: "Total indicator series computed",
		}),

		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockdash_cache_lookups_total",
			Help: "Cache lookups by cache and result",
		}, []string{"cache", "result"}),

		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stockdash_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockdash_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),
		RedisBufferedWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockdash_redis_buffered_writes_total",
			Help: "Writes buffered locally while the Redis circuit breaker is open",
		}),

		WSSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stockdash_ws_search_sessions",
			Help: "Open websocket search sessions",
		}),

		WarmupRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockdash_warmup_runs_total",
			Help: "Scheduled cache warm-up runs by outcome",
		}, []string{"outcome"}),
		MarketState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stockdash_market_state",
			Help: "A-share session state (0=closed, 1=open)",
		}),

		reg: g,
	}

	reg.MustRegister(
		m.APIRequests,
		m.APIRequestDur,
		m.TokenRefreshes,
		m.ParkedRequests,
		m.Teardowns,
		m.SearchesDispatched,
		m.SearchesDiscarded,
		m.SearchFailures,
		m.IndicatorComputeDur,
		m.IndicatorsTotal,
		m.CacheLookups,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
		m.RedisBufferedWrites,
		m.WSSessions,
		m.WarmupRuns,
		m.MarketState,
	)

	return m
}

// Handler serves the registered metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// StatusClass buckets an HTTP status code for the APIRequests label.
func StatusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// Probe checks one dependency. Nil error means healthy.
type Probe func(ctx context.Context) error

// HealthStatus represents the dashboard health.
type HealthStatus struct {
	mu sync.RWMutex

	BackendOK  bool      `json:"backend_ok"`
	StoreOK    bool      `json:"store_ok"`
	StoreKind  string    `json:"store_kind"`
	LastWarmup time.Time `json:"last_warmup"`

	BackendLatencyMs float64   `json:"backend_latency_ms"`
	StoreLatencyMs   float64   `json:"store_latency_ms"`
	LastCheckAt      time.Time `json:"last_check_at"`
	StartedAt        time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus(storeKind string) *HealthStatus {
	return &HealthStatus{
		StoreKind: storeKind,
		StoreOK:   true,
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetLastWarmup(t time.Time) {
	h.mu.Lock()
	h.LastWarmup = t
	h.mu.Unlock()
}

// Check runs both probes and records latency and health.
func (h *HealthStatus) Check(ctx context.Context, backend, store Probe) {
	if backend != nil {
		start := time.Now()
		err := backend(ctx)
		latency := time.Since(start)
		h.mu.Lock()
		h.BackendOK = err == nil
		h.BackendLatencyMs = float64(latency.Microseconds()) / 1000.0
		h.mu.Unlock()
	}
	if store != nil {
		start := time.Now()
		err := store(ctx)
		latency := time.Since(start)
		h.mu.Lock()
		h.StoreOK = err == nil
		h.StoreLatencyMs = float64(latency.Microseconds()) / 1000.0
		h.mu.Unlock()
	}
	h.mu.Lock()
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks until ctx is done.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, backend, store Probe, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				h.Check(probeCtx, backend, store)
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	if !h.BackendOK || !h.StoreOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if !h.BackendOK && !h.StoreOK {
		overallStatus = "unhealthy"
	}

	lastWarmup := ""
	if !h.LastWarmup.IsZero() {
		lastWarmup = h.LastWarmup.Format(time.RFC3339)
	}

	status := struct {
		Status           string  `json:"status"`
		Uptime           string  `json:"uptime"`
		BackendOK        bool    `json:"backend_ok"`
		BackendLatencyMs float64 `json:"backend_latency_ms"`
		StoreKind        string  `json:"store_kind"`
		StoreOK          bool    `json:"store_ok"`
		StoreLatencyMs   float64 `json:"store_latency_ms"`
		LastWarmup       string  `json:"last_warmup"`
		LastCheckAt      string  `json:"last_check_at"`
	}{
		Status:           overallStatus,
		Uptime:           time.Since(h.StartedAt).Round(time.Second).String(),
		BackendOK:        h.BackendOK,
		BackendLatencyMs: h.BackendLatencyMs,
		StoreKind:        h.StoreKind,
		StoreOK:          h.StoreOK,
		StoreLatencyMs:   h.StoreLatencyMs,
		LastWarmup:       lastWarmup,
		LastCheckAt:      h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}
