package gateway

import (
	"math"
	"testing"
	"time"
)

func TestLatencyTracker_Empty(t *testing.T) {
	lt := NewLatencyTracker(16)
	if got := lt.Summary(); got != (LatencySummary{}) {
		t.Errorf("empty tracker: got %+v", got)
	}
}

func TestLatencyTracker_SingleSample(t *testing.T) {
	lt := NewLatencyTracker(16)
	lt.Record(42 * time.Millisecond)

	got := lt.Summary()
	if got.Count != 1 || got.P50Ms != 42 || got.P95Ms != 42 || got.P99Ms != 42 {
		t.Errorf("single sample: got %+v", got)
	}
}

func TestLatencyTracker_Percentiles(t *testing.T) {
	lt := NewLatencyTracker(1000)
	for i := 1; i <= 100; i++ {
		lt.Record(time.Duration(i) * time.Millisecond)
	}

	got := lt.Summary()
	if math.Abs(got.P50Ms-50.5) > 0.01 {
		t.Errorf("p50: got %f, want 50.5", got.P50Ms)
	}
	if math.Abs(got.P95Ms-95.05) > 0.01 {
		t.Errorf("p95: got %f, want 95.05", got.P95Ms)
	}
	if math.Abs(got.P99Ms-99.01) > 0.01 {
		t.Errorf("p99: got %f, want 99.01", got.P99Ms)
	}
}

func TestLatencyTracker_Wraparound(t *testing.T) {
	lt := NewLatencyTracker(10)
	for i := 1; i <= 20; i++ {
		lt.Record(time.Duration(i) * time.Millisecond)
	}

	if lt.Count() != 10 {
		t.Fatalf("Count() = %d, want 10", lt.Count())
	}
	// ring now holds 11..20
	if got := lt.Summary().P50Ms; math.Abs(got-15.5) > 0.01 {
		t.Errorf("p50 after wraparound: got %f, want 15.5", got)
	}
}
