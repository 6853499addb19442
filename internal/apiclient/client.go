// Package apiclient is the single HTTP egress to the analytics backend. It
// attaches the bearer token, renews expired sessions through a
// session.Coordinator and unwraps response envelopes before decoding.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stockdash/internal/logger"
	"stockdash/internal/metrics"
	"stockdash/internal/model"
	"stockdash/internal/session"
)

const (
	DefaultBaseURL         = "http://localhost:8000/api/v1"
	DefaultTimeout         = 60 * time.Second
	DefaultAnalysisTimeout = 300 * time.Second
)

// Config configures a Client.
type Config struct {
	BaseURL         string        // default: http://localhost:8000/api/v1
	Timeout         time.Duration // default: 60s
	AnalysisTimeout time.Duration // default: 300s, used by Analyze
	TOTPSecret      string        // optional second factor for Login
	HTTPClient      *http.Client

	// OnLogout runs once whenever the session is torn down.
	OnLogout func()

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Client talks to the backend REST API.
type Client struct {
	base            string
	http            *http.Client
	timeout         time.Duration
	analysisTimeout time.Duration
	totpSecret      string

	tokens  *session.Tokens
	session *session.Coordinator
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates a client whose tokens live in kv.
func New(cfg Config, kv model.KVStore) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.AnalysisTimeout <= 0 {
		cfg.AnalysisTimeout = DefaultAnalysisTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &Client{
		base:            strings.TrimRight(cfg.BaseURL, "/"),
		http:            cfg.HTTPClient,
		timeout:         cfg.Timeout,
		analysisTimeout: cfg.AnalysisTimeout,
		totpSecret:      cfg.TOTPSecret,
		tokens:          session.NewTokens(kv),
		logger:          cfg.Logger.With("component", "apiclient"),
		metrics:         cfg.Metrics,
	}
	c.session = session.NewCoordinator(c.tokens, session.Options{
		Refresh:  c.refreshTokens,
		OnLogout: cfg.OnLogout,
		Logger:   c.logger,
		Metrics:  cfg.Metrics,
	})
	return c
}

// Session exposes the refresh coordinator.
func (c *Client) Session() *session.Coordinator { return c.session }

// ---- Request options ----

type request struct {
	query   url.Values
	body    any
	timeout time.Duration
}

// Option customizes a single request.
type Option func(*request)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *request) { r.timeout = d }
}

// WithQuery adds URL query parameters. Empty values are dropped.
func WithQuery(q url.Values) Option {
	return func(r *request) {
		for k, vs := range q {
			for _, v := range vs {
				if v != "" {
					r.query.Add(k, v)
				}
			}
		}
	}
}

// WithBody sends v JSON-encoded.
func WithBody(v any) Option {
	return func(r *request) { r.body = v }
}

// ---- Core ----

// Do performs method path and decodes the unwrapped payload into out (which
// may be nil). A 401 on a non-auth endpoint renews the session once and
// replays the request with the new token.
func (c *Client) Do(ctx context.Context, method, path string, out any, opts ...Option) error {
	r := &request{query: url.Values{}, timeout: c.timeout}
	for _, o := range opts {
		o(r)
	}

	var body []byte
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("%s %s: encode body: %w", method, path, err)
		}
		body = b
	}

	ctx, _ = logger.EnsureTraceID(ctx)

	token, err := c.tokens.Access(ctx)
	if err != nil {
		return err
	}

	raw, err := c.send(ctx, method, path, r, body, token)
	if IsStatus(err, http.StatusUnauthorized) && !isAuthPath(path) {
		c.logger.Info("access token rejected, renewing", append([]any{"path", path}, logger.LogWithTrace(ctx)...)...)
		fresh, rerr := c.session.Renew(ctx, token)
		if rerr != nil {
			return fmt.Errorf("%s %s: %w: %w", method, path, ErrUnauthorized, rerr)
		}
		raw, err = c.send(ctx, method, path, r, body, fresh)
		if IsStatus(err, http.StatusUnauthorized) {
			return fmt.Errorf("%w: %w", ErrUnauthorized, err)
		}
	}
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	payload := unwrap(raw)
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

// send performs one HTTP round trip and returns the body of a 2xx response.
func (c *Client) send(ctx context.Context, method, path string, r *request, body []byte, token string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	u := c.base + path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, fmt.Errorf("%s %s: build request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", logger.TraceID(ctx))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.networkError(ctx, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.networkError(ctx, method, path, err)
	}

	if c.metrics != nil {
		c.metrics.APIRequests.WithLabelValues(metrics.StatusClass(resp.StatusCode)).Inc()
		c.metrics.APIRequestDur.Observe(time.Since(start).Seconds())
	}
	c.logger.Debug("api response", append([]any{
		"method", method, "path", path, "status", resp.StatusCode,
		"elapsed_ms", time.Since(start).Milliseconds(),
	}, logger.LogWithTrace(ctx)...)...)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Method: method, Path: path, Status: resp.StatusCode, Detail: errorDetail(raw)}
	}
	return raw, nil
}

func (c *Client) networkError(ctx context.Context, method, path string, err error) error {
	timeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		timeout = true
	}
	if c.metrics != nil {
		class := "network"
		if timeout {
			class = "timeout"
		}
		c.metrics.APIRequests.WithLabelValues(class).Inc()
	}
	c.logger.Warn("api request failed", append([]any{"method", method, "path", path, "timeout", timeout, "error", err}, logger.LogWithTrace(ctx)...)...)
	return &NetworkError{Method: method, Path: path, Err: err, timeout: timeout}
}

func isAuthPath(path string) bool {
	return strings.Contains(path, "/auth/")
}

// ---- Verb helpers ----

func (c *Client) get(ctx context.Context, path string, out any, opts ...Option) error {
	return c.Do(ctx, http.MethodGet, path, out, opts...)
}

func (c *Client) post(ctx context.Context, path string, body, out any, opts ...Option) error {
	if body != nil {
		opts = append(opts, WithBody(body))
	}
	return c.Do(ctx, http.MethodPost, path, out, opts...)
}

func (c *Client) delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, out)
}
