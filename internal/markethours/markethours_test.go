package markethours

import (
	"strings"
	"testing"
	"time"
)

func cst(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, CST)
}

func TestPhaseAt(t *testing.T) {
	cases := []struct {
		at   time.Time
		want Phase
	}{
		{cst(2026, 3, 2, 9, 0), PhasePreOpen},
		{cst(2026, 3, 2, 9, 30), PhaseMorning},
		{cst(2026, 3, 2, 11, 29), PhaseMorning},
		{cst(2026, 3, 2, 11, 30), PhaseLunch},
		{cst(2026, 3, 2, 13, 0), PhaseAfternoon},
		{cst(2026, 3, 2, 14, 59), PhaseAfternoon},
		{cst(2026, 3, 2, 15, 0), PhaseClosed},
		{cst(2026, 3, 7, 10, 0), PhaseClosed},  // Saturday
		{cst(2026, 10, 5, 10, 0), PhaseClosed}, // National Day
	}
	for _, tc := range cases {
		if got := PhaseAt(tc.at); got != tc.want {
			t.Errorf("PhaseAt(%s) = %s, want %s", tc.at.Format("2006-01-02 15:04 Mon"), got, tc.want)
		}
	}
}

func TestIsMarketOpen_ConvertsZone(t *testing.T) {
	// 02:00 UTC is 10:00 CST on a Monday.
	if !IsMarketOpen(time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC)) {
		t.Error("expected market open at 10:00 CST")
	}
	// 04:00 UTC is 12:00 CST, lunch break.
	if IsMarketOpen(time.Date(2026, 3, 2, 4, 0, 0, 0, time.UTC)) {
		t.Error("expected market closed during lunch")
	}
}

func TestNextOpen(t *testing.T) {
	cases := []struct {
		from, want time.Time
	}{
		{cst(2026, 3, 2, 8, 0), cst(2026, 3, 2, 9, 30)},    // pre-open
		{cst(2026, 3, 2, 12, 0), cst(2026, 3, 2, 13, 0)},   // lunch
		{cst(2026, 3, 2, 15, 30), cst(2026, 3, 3, 9, 30)},  // after close
		{cst(2026, 3, 6, 16, 0), cst(2026, 3, 9, 9, 30)},   // Friday evening
		{cst(2026, 9, 30, 16, 0), cst(2026, 10, 8, 9, 30)}, // National Day week
		{cst(2026, 2, 13, 15, 0), cst(2026, 2, 24, 9, 30)}, // Spring Festival
	}
	for _, tc := range cases {
		if got := NextOpen(tc.from); !got.Equal(tc.want) {
			t.Errorf("NextOpen(%s) = %s, want %s", tc.from, got, tc.want)
		}
	}
}

func TestCurrentSessionClose(t *testing.T) {
	if got := CurrentSessionClose(cst(2026, 3, 2, 10, 0)); !got.Equal(cst(2026, 3, 2, 11, 30)) {
		t.Errorf("morning close = %s", got)
	}
	if got := CurrentSessionClose(cst(2026, 3, 2, 14, 0)); !got.Equal(cst(2026, 3, 2, 15, 0)) {
		t.Errorf("afternoon close = %s", got)
	}
	if got := CurrentSessionClose(cst(2026, 3, 2, 12, 0)); !got.IsZero() {
		t.Errorf("expected zero during lunch, got %s", got)
	}
}

func TestAddHolidays(t *testing.T) {
	day := cst(2027, 2, 8, 10, 0)
	if !IsMarketOpen(day) {
		t.Fatal("expected 2027-02-08 to be a trading day before it is added")
	}
	if err := AddHolidays([]string{"2027-02-08"}); err != nil {
		t.Fatal(err)
	}
	if IsMarketOpen(day) {
		t.Error("expected added holiday to be closed")
	}
	if err := AddHolidays([]string{"08/02/2027"}); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestStatusString(t *testing.T) {
	if s := StatusString(cst(2026, 3, 2, 10, 0)); !strings.HasPrefix(s, "Market Open") || !strings.Contains(s, "1h30m") {
		t.Errorf("unexpected open status %q", s)
	}
	if s := StatusString(cst(2026, 3, 2, 12, 0)); !strings.Contains(s, "Mon 13:00") {
		t.Errorf("unexpected lunch status %q", s)
	}
}
