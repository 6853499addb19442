// Package scheduler runs the dashboard's cron jobs: refreshing the cached
// market overview and pre-fetching watchlist klines into the bar cache.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"stockdash/internal/markethours"
	"stockdash/internal/metrics"
	"stockdash/internal/model"
)

// Source is the subset of the API client the jobs need.
type Source interface {
	Overview(ctx context.Context) (*model.MarketOverview, error)
	Watchlist(ctx context.Context) ([]model.WatchlistItem, error)
	KLine(ctx context.Context, code string, q model.KLineQuery) ([]model.PriceBar, error)
}

// Options configures a Scheduler.
type Options struct {
	Bars     model.BarCache // optional; watchlist klines are skipped without it
	BarQuery model.KLineQuery
	Logger   *slog.Logger
	Metrics  *metrics.Metrics

	// OnWarm runs after every successful warm-up, e.g. to update /healthz.
	OnWarm func(time.Time)
	// OnError runs when a scheduled warm-up fails.
	OnError func(error)
}

// Scheduler manages the warm-up cron task.
type Scheduler struct {
	Cron *cron.Cron

	src     Source
	bars    model.BarCache
	query   model.KLineQuery
	logger  *slog.Logger
	metrics *metrics.Metrics
	onWarm  func(time.Time)
	onError func(error)
	ctx     context.Context
	now     func() time.Time

	mu        sync.RWMutex
	overview  *model.MarketOverview
	fetchedAt time.Time
}

// New creates a scheduler whose jobs run with ctx. Cron specs include a
// seconds field and are evaluated in China Standard Time.
func New(ctx context.Context, src Source, opts Options) *Scheduler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.BarQuery.Period == "" {
		opts.BarQuery.Period = "1d"
	}
	if opts.BarQuery.Days == 0 {
		opts.BarQuery.Days = 120
	}
	return &Scheduler{
		Cron:    cron.New(cron.WithSeconds(), cron.WithLocation(markethours.CST)),
		src:     src,
		bars:    opts.Bars,
		query:   opts.BarQuery,
		logger:  opts.Logger.With("component", "scheduler"),
		metrics: opts.Metrics,
		onWarm:  opts.OnWarm,
		onError: opts.OnError,
		ctx:     ctx,
		now:     time.Now,
	}
}

// Register adds the warm-up task on spec.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.warmTask); err != nil {
		return fmt.Errorf("register warmup task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RunNow warms the caches immediately regardless of market hours
// (startup and manual trigger).
func (s *Scheduler) RunNow() error {
	return s.warm()
}

// Overview returns the cached market overview and when it was fetched.
// ok is false until the first successful warm-up.
func (s *Scheduler) Overview() (ov *model.MarketOverview, fetchedAt time.Time, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overview, s.fetchedAt, s.overview != nil
}

func (s *Scheduler) warmTask() {
	now := s.now()
	open := markethours.IsMarketOpen(now)
	if s.metrics != nil {
		if open {
			s.metrics.MarketState.Set(1)
		} else {
			s.metrics.MarketState.Set(0)
		}
	}
	if !open {
		s.count("skipped")
		s.logger.Debug("warmup skipped", "status", markethours.StatusString(now))
		return
	}
	if err := s.warm(); err != nil {
		s.logger.Error("warmup failed", "error", err)
		if s.onError != nil {
			s.onError(err)
		}
	}
}

func (s *Scheduler) warm() error {
	ov, err := s.src.Overview(s.ctx)
	if err != nil {
		s.count("error")
		return fmt.Errorf("warm overview: %w", err)
	}
	now := s.now()
	s.mu.Lock()
	s.overview = ov
	s.fetchedAt = now
	s.mu.Unlock()

	if s.bars != nil {
		s.warmBars()
	}

	s.count("ok")
	if s.onWarm != nil {
		s.onWarm(now)
	}
	return nil
}

// warmBars refreshes cached klines for every watchlist code. Failures are
// logged per code and do not fail the run.
func (s *Scheduler) warmBars() {
	key, ok := s.query.CacheKey()
	if !ok {
		return
	}
	items, err := s.src.Watchlist(s.ctx)
	if err != nil {
		s.logger.Warn("watchlist unavailable, skipping kline warmup", "error", err)
		return
	}
	warmed := 0
	for _, it := range items {
		bars, err := s.src.KLine(s.ctx, it.Code, s.query)
		if err != nil {
			s.logger.Warn("kline warmup failed", "code", it.Code, "error", err)
			continue
		}
		if err := s.bars.SaveBars(s.ctx, it.Code, key, bars); err != nil {
			s.logger.Warn("bar cache write failed", "code", it.Code, "error", err)
			continue
		}
		warmed++
	}
	s.logger.Info("kline warmup done", "codes", len(items), "warmed", warmed)
}

func (s *Scheduler) count(outcome string) {
	if s.metrics != nil {
		s.metrics.WarmupRuns.WithLabelValues(outcome).Inc()
	}
}
