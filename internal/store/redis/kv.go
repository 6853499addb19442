// Package redis implements the durable key-value store and kline cache on
// Redis, guarded by a circuit breaker. Writes issued while the breaker is
// open are kept in a local overlay and flushed once Redis recovers, so a
// short outage never loses a login or a search history update.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"stockdash/internal/model"
)

const (
	defaultPrefix      = "stockdash:"
	defaultBarTTL      = 10 * time.Minute
	defaultMaxFailures = 5
	defaultResetAfter  = 10 * time.Second
)

// Config configures the Redis store.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	Prefix   string        // key namespace, default "stockdash:"
	BarTTL   time.Duration // kline cache TTL, default 10m
	Logger   *slog.Logger
}

// backend is the raw Redis surface the store needs.
type backend interface {
	get(ctx context.Context, key string) (string, bool, error)
	set(ctx context.Context, key, value string, ttl time.Duration) error
	del(ctx context.Context, key string) error
	close() error
}

type redisBackend struct {
	client *goredis.Client
}

func (b *redisBackend) get(ctx context.Context, key string) (string, bool, error) {
	v, err := b.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (b *redisBackend) set(ctx context.Context, key, value string, ttl time.Duration) error {
	return b.client.Set(ctx, key, value, ttl).Err()
}

func (b *redisBackend) del(ctx context.Context, key string) error {
	return b.client.Del(ctx, key).Err()
}

func (b *redisBackend) close() error { return b.client.Close() }

// pendingWrite is a write buffered while the circuit was open.
// A nil value records a delete.
type pendingWrite struct {
	key   string
	value *string
}

// Store is a model.KVStore and model.BarCache backed by Redis.
type Store struct {
	be     backend
	cb     *CircuitBreaker
	prefix string
	barTTL time.Duration
	log    *slog.Logger

	mu      sync.Mutex
	pending []pendingWrite

	// Callbacks (optional)
	OnBuffer func()          // called when a write is buffered
	OnFlush  func(count int) // called after buffered writes are flushed
}

var (
	_ model.KVStore  = (*Store)(nil)
	_ model.BarCache = (*Store)(nil)
)

// New connects to Redis, pings the server and returns a Store.
func New(cfg Config) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	s := newStore(&redisBackend{client: client}, NewCircuitBreaker(defaultMaxFailures, defaultResetAfter), cfg)
	s.log.Info("redis store connected", "addr", cfg.Addr)
	return s, nil
}

func newStore(be backend, cb *CircuitBreaker, cfg Config) *Store {
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	if cfg.BarTTL <= 0 {
		cfg.BarTTL = defaultBarTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Store{
		be:     be,
		cb:     cb,
		prefix: cfg.Prefix,
		barTTL: cfg.BarTTL,
		log:    cfg.Logger.With("component", "redis-store"),
	}

	prev := cb.OnStateChange
	cb.OnStateChange = func(from, to State) {
		if prev != nil {
			prev(from, to)
		}
		s.log.Warn("circuit breaker transition", "from", from.String(), "to", to.String())
		if to == StateClosed {
			go s.flush()
		}
	}
	return s
}

// Breaker exposes the circuit breaker for metrics wiring.
func (s *Store) Breaker() *CircuitBreaker { return s.cb }

func (s *Store) key(k string) string { return s.prefix + k }

// Get returns the value for key. Buffered writes shadow Redis.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if v, buffered, ok := s.lookupPending(key); buffered {
		return v, ok, nil
	}

	var (
		val   string
		found bool
	)
	err := s.cb.Execute(func() error {
		var err error
		val, found, err = s.be.get(ctx, s.key(key))
		return err
	})
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, found, nil
}

// Set stores value under key; buffered if the circuit is open.
func (s *Store) Set(ctx context.Context, key, value string) error {
	err := s.cb.Execute(func() error {
		return s.be.set(ctx, s.key(key), value, 0)
	})
	if errors.Is(err, ErrCircuitOpen) {
		s.buffer(key, &value)
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	s.dropPending(key)
	return nil
}

// Delete removes key; buffered if the circuit is open.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.cb.Execute(func() error {
		return s.be.del(ctx, s.key(key))
	})
	if errors.Is(err, ErrCircuitOpen) {
		s.buffer(key, nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	s.dropPending(key)
	return nil
}

// SaveBars caches bars with the store's TTL. Cache writes are never buffered.
func (s *Store) SaveBars(ctx context.Context, code, period string, bars []model.PriceBar) error {
	data := model.BarsJSON(bars)
	err := s.cb.Execute(func() error {
		return s.be.set(ctx, s.key(barsKey(code, period)), string(data), s.barTTL)
	})
	if errors.Is(err, ErrCircuitOpen) {
		return nil
	}
	return err
}

// LoadBars returns cached bars, or nil on a miss, expiry or open circuit.
func (s *Store) LoadBars(ctx context.Context, code, period string) ([]model.PriceBar, error) {
	var (
		raw   string
		found bool
	)
	err := s.cb.Execute(func() error {
		var err error
		raw, found, err = s.be.get(ctx, s.key(barsKey(code, period)))
		return err
	})
	if errors.Is(err, ErrCircuitOpen) || !found {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis load bars: %w", err)
	}

	var bars []model.PriceBar
	if err := json.Unmarshal([]byte(raw), &bars); err != nil {
		return nil, fmt.Errorf("unmarshal cached bars: %w", err)
	}
	return bars, nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.be.close()
}

// PendingCount returns the number of buffered writes waiting to be flushed.
func (s *Store) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func barsKey(code, period string) string {
	return "bars:" + period + ":" + code
}

// lookupPending returns the latest buffered write for key.
// buffered reports whether one exists; ok is false for a buffered delete.
func (s *Store) lookupPending(key string) (value string, buffered, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.pending) - 1; i >= 0; i-- {
		if s.pending[i].key != key {
			continue
		}
		if s.pending[i].value == nil {
			return "", true, false
		}
		return *s.pending[i].value, true, true
	}
	return "", false, false
}

func (s *Store) buffer(key string, value *string) {
	s.mu.Lock()
	s.pending = append(s.pending, pendingWrite{key: key, value: value})
	s.mu.Unlock()

	if s.OnBuffer != nil {
		s.OnBuffer()
	}
}

func (s *Store) dropPending(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.pending[:0]
	for _, pw := range s.pending {
		if pw.key != key {
			kept = append(kept, pw)
		}
	}
	s.pending = kept
}

// flush replays buffered writes in order once the circuit has closed.
func (s *Store) flush() {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return
	}
	toFlush := s.pending
	s.pending = nil
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	flushed := 0
	for i, pw := range toFlush {
		var err error
		if pw.value == nil {
			err = s.be.del(ctx, s.key(pw.key))
		} else {
			err = s.be.set(ctx, s.key(pw.key), *pw.value, 0)
		}
		if err != nil {
			s.log.Error("flush buffered write failed", "key", pw.key, "err", err)
			s.mu.Lock()
			s.pending = append(append([]pendingWrite(nil), toFlush[i:]...), s.pending...)
			s.mu.Unlock()
			break
		}
		flushed++
	}

	s.log.Info("flushed buffered writes", "count", flushed)
	if s.OnFlush != nil {
		s.OnFlush(flushed)
	}
}
