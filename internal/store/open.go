// Package store selects the durable backend named in the configuration.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"stockdash/config"
	"stockdash/internal/metrics"
	"stockdash/internal/model"
	"stockdash/internal/store/file"
	"stockdash/internal/store/memory"
	"stockdash/internal/store/redis"
	"stockdash/internal/store/sqlite"
)

// Backend is an opened store.
type Backend struct {
	Kind string
	KV   model.KVStore
	Bars model.BarCache // nil for file and memory stores
	Ping metrics.Probe  // nil when the store has nothing to probe
}

// Open opens the store selected by cfg.Store.Kind. m may be nil.
func Open(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*Backend, error) {
	sc := cfg.Store
	switch sc.Kind {
	case "file":
		fs, err := file.Open(sc.Path)
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		return &Backend{Kind: sc.Kind, KV: fs}, nil

	case "memory":
		return &Backend{Kind: sc.Kind, KV: memory.New()}, nil

	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(sc.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		ss, err := sqlite.Open(sqlite.Config{DBPath: sc.Path, BarTTL: sc.BarTTL, Logger: logger})
		if err != nil {
			return nil, err
		}
		return &Backend{
			Kind: sc.Kind,
			KV:   ss,
			Bars: ss,
			Ping: func(ctx context.Context) error { return ss.DB().PingContext(ctx) },
		}, nil

	case "redis":
		rs, err := redis.New(redis.Config{
			Addr:     sc.RedisAddr,
			Password: sc.RedisPassword,
			BarTTL:   sc.BarTTL,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		instrumentRedis(rs, m)
		return &Backend{
			Kind: sc.Kind,
			KV:   rs,
			Bars: rs,
			Ping: func(ctx context.Context) error {
				if st := rs.Breaker().CurrentState(); st == redis.StateOpen {
					return fmt.Errorf("redis circuit %s", st)
				}
				_, _, err := rs.Get(ctx, "healthz")
				return err
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown store kind %q", sc.Kind)
}

func instrumentRedis(rs *redis.Store, m *metrics.Metrics) {
	if m == nil {
		return
	}
	cb := rs.Breaker()
	prev := cb.OnStateChange
	cb.OnStateChange = func(from, to redis.State) {
		if prev != nil {
			prev(from, to)
		}
		m.RedisCircuitBreakerState.Set(float64(to))
		if to == redis.StateOpen {
			m.RedisCircuitBreakerTrips.Inc()
		}
	}
	rs.OnBuffer = func() { m.RedisBufferedWrites.Inc() }
}
