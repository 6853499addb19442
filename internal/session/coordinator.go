package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"stockdash/internal/metrics"
	"stockdash/internal/model"
)

// ErrNoRefreshToken is returned when a 401 arrives and there is nothing to
// refresh with. The session has been torn down.
var ErrNoRefreshToken = errors.New("session: no refresh token")

// ErrSessionEnded is returned to a request whose session was torn down or
// logged out while it was in flight.
var ErrSessionEnded = errors.New("session: ended while the request was in flight")

// RefreshError wraps the leader's refresh failure. Every parked caller
// receives the same value.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string { return "session: token refresh failed: " + e.Err.Error() }
func (e *RefreshError) Unwrap() error { return e.Err }

// RefreshFunc exchanges a refresh token for a new pair. The returned
// RefreshToken may be empty when the backend does not rotate it.
type RefreshFunc func(ctx context.Context, refreshToken string) (model.TokenPair, error)

// Options configures a Coordinator.
type Options struct {
	Refresh RefreshFunc

	// OnLogout runs once per teardown, after tokens are cleared. The CLI
	// prints a login hint; the gateway notifies connected sessions.
	OnLogout func()

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

type renewal struct {
	token string
	err   error
}

// Coordinator is the single-flight token refresher. The first caller that
// needs a new access token becomes the leader; callers arriving while the
// refresh is in flight are parked and released in arrival order with the
// leader's outcome.
type Coordinator struct {
	tokens   *Tokens
	refresh  RefreshFunc
	onLogout func()
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu         sync.Mutex
	refreshing bool
	pending    []chan renewal
}

func NewCoordinator(tokens *Tokens, opts Options) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Coordinator{
		tokens:   tokens,
		refresh:  opts.Refresh,
		onLogout: opts.OnLogout,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
}

// Tokens returns the token store the coordinator manages.
func (c *Coordinator) Tokens() *Tokens { return c.tokens }

// Parked reports how many callers are waiting on the current refresh.
func (c *Coordinator) Parked() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Renew obtains a fresh access token after a request sent with used came
// back 401. It returns the token to replay the request with, or an error
// when the session cannot be renewed. If the stored token already differs
// from used, another caller renewed it and the stored token is returned
// without a refresh. If the session ended after the request was sent, Renew
// fails with ErrSessionEnded and does not tear down again. A cancelled ctx
// stops a parked caller from waiting but never cancels the leader's refresh.
func (c *Coordinator) Renew(ctx context.Context, used string) (string, error) {
	c.mu.Lock()
	if c.refreshing {
		return c.park(ctx)
	}

	current, err := c.tokens.Access(ctx)
	if err != nil {
		c.mu.Unlock()
		return "", err
	}
	switch {
	case current != "" && current != used:
		c.mu.Unlock()
		c.countRefresh("superseded")
		return current, nil
	case current == "" && used != "":
		c.mu.Unlock()
		return "", ErrSessionEnded
	}

	refreshToken, err := c.tokens.Refresh(ctx)
	if err != nil {
		c.mu.Unlock()
		return "", err
	}
	if refreshToken == "" {
		c.clear(ctx)
		c.mu.Unlock()
		c.countRefresh("no_token")
		c.loggedOut()
		return "", ErrNoRefreshToken
	}

	c.refreshing = true
	c.mu.Unlock()

	return c.lead(context.WithoutCancel(ctx), refreshToken)
}

// park queues the caller behind the running refresh. c.mu must be held; it
// is released before waiting.
func (c *Coordinator) park(ctx context.Context) (string, error) {
	ch := make(chan renewal, 1)
	c.pending = append(c.pending, ch)
	c.mu.Unlock()
	if c.metrics != nil {
		c.metrics.ParkedRequests.Inc()
		defer c.metrics.ParkedRequests.Dec()
	}

	select {
	case r := <-ch:
		return r.token, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Coordinator) lead(ctx context.Context, refreshToken string) (string, error) {
	c.logger.Info("refreshing access token")

	pair, err := c.refresh(ctx, refreshToken)
	if err == nil && pair.AccessToken == "" {
		err = errors.New("refresh response carried no access_token")
	}
	if err == nil {
		if saveErr := c.tokens.Save(ctx, pair); saveErr != nil {
			// The new token is still usable for this process.
			c.logger.Warn("persist refreshed tokens failed", "error", saveErr)
		}
		c.countRefresh("success")
		c.release(renewal{token: pair.AccessToken})
		return pair.AccessToken, nil
	}

	c.countRefresh("failure")
	c.logger.Warn("token refresh failed, clearing session", "error", err)
	rerr := &RefreshError{Err: err}

	// Tokens are cleared before parked callers observe the rejection.
	c.clear(ctx)
	c.loggedOut()
	c.release(renewal{err: rerr})
	return "", rerr
}

// release hands r to every parked caller in arrival order and ends the
// refresh.
func (c *Coordinator) release(r renewal) {
	c.mu.Lock()
	waiters := c.pending
	c.pending = nil
	c.refreshing = false
	c.mu.Unlock()

	for _, ch := range waiters {
		ch <- r
	}
	if len(waiters) > 0 {
		c.logger.Debug("released parked requests", "count", len(waiters), "ok", r.err == nil)
	}
}

func (c *Coordinator) clear(ctx context.Context) {
	if err := c.tokens.Clear(ctx); err != nil {
		c.logger.Error("clear tokens failed", "error", err)
	}
}

func (c *Coordinator) loggedOut() {
	if c.metrics != nil {
		c.metrics.Teardowns.Inc()
	}
	if c.onLogout != nil {
		c.onLogout()
	}
}

func (c *Coordinator) countRefresh(outcome string) {
	if c.metrics != nil {
		c.metrics.TokenRefreshes.WithLabelValues(outcome).Inc()
	}
}

// Logout clears the session without contacting the backend.
func (c *Coordinator) Logout(ctx context.Context) error {
	if err := c.tokens.Clear(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}
