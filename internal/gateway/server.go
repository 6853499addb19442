// Package gateway serves the dashboard: REST endpoints for indicators,
// search and market data, and a websocket that runs one debounced search
// session per connection.
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"stockdash/internal/apiclient"
	"stockdash/internal/indicator"
	"stockdash/internal/logger"
	"stockdash/internal/metrics"
	"stockdash/internal/model"
	"stockdash/internal/search"
)

// API is the part of the backend client the gateway serves from.
// *apiclient.Client satisfies it.
type API interface {
	KLine(ctx context.Context, code string, q model.KLineQuery) ([]model.PriceBar, error)
	Search(ctx context.Context, keyword string, limit int) ([]model.SearchHit, error)
	Overview(ctx context.Context) (*model.MarketOverview, error)
}

// OverviewSource returns the last warmed market overview.
type OverviewSource interface {
	Overview() (ov *model.MarketOverview, fetchedAt time.Time, ok bool)
}

// Config wires a Server. Only API is required.
type Config struct {
	API      API
	Bars     model.BarCache // optional kline cache
	Engine   *indicator.Engine
	History  *search.History
	Overview OverviewSource
	Metrics  *metrics.Metrics
	Health   http.Handler
	Logger   *slog.Logger

	SearchDebounce time.Duration
	SearchLimit    int
}

// Server holds the dashboard handlers and the websocket hub.
type Server struct {
	api      API
	bars     model.BarCache
	engine   *indicator.Engine
	history  *search.History
	overview OverviewSource
	metrics  *metrics.Metrics
	health   http.Handler
	logger   *slog.Logger
	debounce time.Duration
	limit    int

	hub            *Hub
	fetchLatency   *LatencyTracker
	computeLatency *LatencyTracker
	start          time.Time
	now            func() time.Time
}

// New creates a Server.
func New(cfg Config) *Server {
	if cfg.Engine == nil {
		cfg.Engine = indicator.NewEngine(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SearchDebounce <= 0 {
		cfg.SearchDebounce = search.DefaultDebounce
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = apiclient.DefaultSearchLimit
	}
	s := &Server{
		api:            cfg.API,
		bars:           cfg.Bars,
		engine:         cfg.Engine,
		history:        cfg.History,
		overview:       cfg.Overview,
		metrics:        cfg.Metrics,
		health:         cfg.Health,
		logger:         cfg.Logger.With("component", "gateway"),
		debounce:       cfg.SearchDebounce,
		limit:          cfg.SearchLimit,
		fetchLatency:   NewLatencyTracker(1024),
		computeLatency: NewLatencyTracker(1024),
		start:          time.Now(),
		now:            time.Now,
	}
	s.hub = NewHub(s.logger, s.metrics)
	return s
}

// Hub returns the websocket hub, e.g. to broadcast a session expiry.
func (s *Server) Hub() *Hub { return s.hub }

// RegisterRoutes registers all HTTP routes on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/search", s.handleWS)

	mux.HandleFunc("GET /api/indicators/{code}", s.handleIndicators)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/search/history", s.handleHistory)
	mux.HandleFunc("DELETE /api/search/history", s.handleClearHistory)
	mux.HandleFunc("GET /api/market/overview", s.handleOverview)
	mux.HandleFunc("GET /api/market/status", s.handleMarketStatus)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("OPTIONS /api/", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.WriteHeader(http.StatusNoContent)
	})

	if s.health != nil {
		mux.Handle("GET /healthz", s.health)
	}
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

// Handler returns the routed handler with request tracing applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return s.trace(mux)
}

// trace attaches a trace id to every request, reusing an inbound X-Request-ID.
func (s *Server) trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if rid := r.Header.Get("X-Request-ID"); rid != "" {
			ctx = logger.WithTraceID(ctx, rid)
		}
		ctx, tid := logger.EnsureTraceID(ctx)
		w.Header().Set("X-Request-ID", tid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Close disconnects all websocket clients.
func (s *Server) Close() {
	s.hub.Close()
}
