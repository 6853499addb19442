// Package search implements the autocomplete pipeline: keystrokes are
// debounced, each dispatched query carries a sequence number, and only the
// response of the most recent query is published.
package search

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"stockdash/internal/metrics"
	"stockdash/internal/model"
)

// DefaultDebounce is the quiet period between the last keystroke and the query.
const DefaultDebounce = 300 * time.Millisecond

// Func runs one backend search.
type Func func(ctx context.Context, keyword string) ([]model.SearchHit, error)

// Suggestions is one published update of the dropdown.
type Suggestions struct {
	Seq         uint64            `json:"seq"`
	Keyword     string            `json:"keyword"`
	Items       []model.SearchHit `json:"items"`
	FromHistory bool              `json:"history"`
	Recent      []string          `json:"recent,omitempty"`
}

// Sink receives published suggestions. It is called with the searcher's
// lock held, so it must not call back into the Searcher.
type Sink func(Suggestions)

// Options configures a Searcher.
type Options struct {
	Debounce time.Duration
	History  *History // optional; empty input shows it
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

// Searcher is the state of one search box.
type Searcher struct {
	search   Func
	sink     Sink
	history  *History
	debounce time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	ctx      context.Context

	mu     sync.Mutex
	timer  *time.Timer
	seq    uint64
	shown  int
	closed bool
}

// New creates a searcher. Queries run with ctx; Close does not cancel
// queries already in flight, their responses are discarded instead.
func New(ctx context.Context, fn Func, sink Sink, opts Options) *Searcher {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Searcher{
		search:   fn,
		sink:     sink,
		history:  opts.History,
		debounce: opts.Debounce,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		ctx:      ctx,
	}
}

// Input handles a keystroke. Any pending query is cancelled. An empty
// keyword shows history immediately; otherwise a query is scheduled after
// the debounce window.
func (s *Searcher) Input(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	keyword := strings.TrimSpace(value)
	s.seq++
	if keyword == "" {
		s.publishHistoryLocked()
		return
	}

	seq := s.seq
	s.timer = time.AfterFunc(s.debounce, func() { s.dispatch(seq, keyword) })
}

// Focus shows history when the dropdown is empty.
func (s *Searcher) Focus() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.shown > 0 {
		return
	}
	s.publishHistoryLocked()
}

// Select records a chosen code in history.
func (s *Searcher) Select(ctx context.Context, code string) error {
	if s.history == nil {
		return nil
	}
	return s.history.Add(ctx, code)
}

// Seq returns the latest sequence number.
func (s *Searcher) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Close cancels a pending query. Later responses are dropped.
func (s *Searcher) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Searcher) dispatch(seq uint64, keyword string) {
	s.mu.Lock()
	if s.closed || seq != s.seq {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.SearchesDispatched.Inc()
	}
	hits, err := s.search(s.ctx, keyword)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || seq != s.seq {
		if s.metrics != nil {
			s.metrics.SearchesDiscarded.Inc()
		}
		s.logger.Debug("stale search response dropped", "keyword", keyword, "seq", seq, "latest", s.seq)
		return
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.SearchFailures.Inc()
		}
		s.logger.Debug("search failed", "keyword", keyword, "error", err)
		hits = nil
	}
	s.publishLocked(Suggestions{Seq: seq, Keyword: keyword, Items: hits})
}

func (s *Searcher) publishHistoryLocked() {
	var recent []string
	if s.history != nil {
		recent = s.history.List()
	}
	s.publishLocked(Suggestions{Seq: s.seq, FromHistory: true, Recent: recent})
}

func (s *Searcher) publishLocked(sg Suggestions) {
	if sg.Items == nil {
		sg.Items = []model.SearchHit{}
	}
	s.shown = len(sg.Items) + len(sg.Recent)
	if s.sink != nil {
		s.sink(sg)
	}
}
