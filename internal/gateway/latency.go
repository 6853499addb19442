package gateway

import (
	"math"
	"sort"
	"sync"
	"time"
)

// LatencySummary is a percentile snapshot served on /api/stats.
type LatencySummary struct {
	Count int     `json:"count"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

// LatencyTracker keeps the most recent durations of one operation
// (upstream kline fetch, indicator compute) in a ring. Safe for concurrent use.
type LatencyTracker struct {
	mu      sync.Mutex
	samples []time.Duration
	next    int
	full    bool
}

// NewLatencyTracker creates a tracker holding the last size samples.
func NewLatencyTracker(size int) *LatencyTracker {
	if size <= 0 {
		size = 1024
	}
	return &LatencyTracker{samples: make([]time.Duration, size)}
}

// Record adds one sample.
func (lt *LatencyTracker) Record(d time.Duration) {
	lt.mu.Lock()
	lt.samples[lt.next] = d
	lt.next++
	if lt.next == len(lt.samples) {
		lt.next = 0
		lt.full = true
	}
	lt.mu.Unlock()
}

// Since records the time elapsed from start.
func (lt *LatencyTracker) Since(start time.Time) {
	lt.Record(time.Since(start))
}

// Count returns the number of retained samples.
func (lt *LatencyTracker) Count() int {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	if lt.full {
		return len(lt.samples)
	}
	return lt.next
}

// Summary returns p50/p95/p99 over the retained samples in milliseconds.
func (lt *LatencyTracker) Summary() LatencySummary {
	lt.mu.Lock()
	n := lt.next
	if lt.full {
		n = len(lt.samples)
	}
	ms := make([]float64, n)
	for i := 0; i < n; i++ {
		ms[i] = float64(lt.samples[i].Microseconds()) / 1000.0
	}
	lt.mu.Unlock()

	if n == 0 {
		return LatencySummary{}
	}
	sort.Float64s(ms)
	return LatencySummary{
		Count: n,
		P50Ms: percentile(ms, 0.50),
		P95Ms: percentile(ms, 0.95),
		P99Ms: percentile(ms, 0.99),
	}
}

// percentile interpolates the p-th quantile of an ascending slice.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	rank := p * float64(n-1)
	lower := int(math.Floor(rank))
	if lower+1 >= n {
		return sorted[n-1]
	}
	frac := rank - float64(lower)
	return sorted[lower]*(1-frac) + sorted[lower+1]*frac
}
