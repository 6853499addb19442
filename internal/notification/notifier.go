// Package notification delivers operator alerts, such as an expired backend
// session or a failing cache warm-up, to chat and webhook endpoints.
package notification

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Level is the severity of an alert.
type Level string

const (
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
)

// Alert is a single notification.
type Alert struct {
	Level   Level             `json:"level"`
	Title   string            `json:"title"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	At      time.Time         `json:"ts"`
}

// Notifier delivers alerts to one channel.
type Notifier interface {
	Send(ctx context.Context, a Alert) error
}

// LogNotifier writes alerts to a structured logger.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, a Alert) error {
	lvl := slog.LevelInfo
	switch a.Level {
	case LevelWarning:
		lvl = slog.LevelWarn
	case LevelCritical:
		lvl = slog.LevelError
	}
	attrs := []any{"title", a.Title}
	for k, v := range a.Fields {
		attrs = append(attrs, k, v)
	}
	n.logger.Log(ctx, lvl, a.Message, attrs...)
	return nil
}

// Multi sends every alert to all of its notifiers and joins their errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, a Alert) error {
	var errs error
	for _, n := range m {
		if err := n.Send(ctx, a); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}

// Dispatcher sends alerts in the background so callers on hot paths never
// wait on a slow endpoint. Alerts with the same title are dropped while
// within the quiet period of the last one sent.
type Dispatcher struct {
	n       Notifier
	logger  *slog.Logger
	quiet   time.Duration
	timeout time.Duration
	now     func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
	wg   sync.WaitGroup
}

func NewDispatcher(n Notifier, logger *slog.Logger, quiet time.Duration) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		n:       n,
		logger:  logger,
		quiet:   quiet,
		timeout: 10 * time.Second,
		now:     time.Now,
		last:    make(map[string]time.Time),
	}
}

// Notify queues a for delivery. It reports false when a was suppressed.
func (d *Dispatcher) Notify(a Alert) bool {
	now := d.now()
	d.mu.Lock()
	if t, ok := d.last[a.Title]; ok && now.Sub(t) < d.quiet {
		d.mu.Unlock()
		return false
	}
	d.last[a.Title] = now
	d.mu.Unlock()

	if a.At.IsZero() {
		a.At = now
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.n.Send(ctx, a); err != nil {
			d.logger.Warn("alert delivery failed", "title", a.Title, "error", err)
		}
	}()
	return true
}

// Wait blocks until every queued alert has been attempted.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
