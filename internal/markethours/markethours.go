// Package markethours knows the Shanghai/Shenzhen A-share trading calendar.
package markethours

import (
	"fmt"
	"time"
)

// CST is China Standard Time (UTC+8), fixed so no host tzdata is needed.
var CST = time.FixedZone("CST", 8*3600)

// Continuous trading sessions in CST, as minutes since midnight.
const (
	MorningOpen    = 9*60 + 30
	MorningClose   = 11*60 + 30
	AfternoonOpen  = 13 * 60
	AfternoonClose = 15 * 60
)

// Phase is the position of a moment within the trading day.
type Phase string

const (
	PhaseClosed    Phase = "closed"    // non-trading day, or after close
	PhasePreOpen   Phase = "pre_open"  // trading day, before the morning session
	PhaseMorning   Phase = "morning"   // 09:30-11:30
	PhaseLunch     Phase = "lunch"     // 11:30-13:00
	PhaseAfternoon Phase = "afternoon" // 13:00-15:00
)

// PhaseAt returns the trading phase at t.
func PhaseAt(t time.Time) Phase {
	c := t.In(CST)
	if !IsTradingDay(c) {
		return PhaseClosed
	}
	hm := c.Hour()*60 + c.Minute()
	switch {
	case hm < MorningOpen:
		return PhasePreOpen
	case hm < MorningClose:
		return PhaseMorning
	case hm < AfternoonOpen:
		return PhaseLunch
	case hm < AfternoonClose:
		return PhaseAfternoon
	default:
		return PhaseClosed
	}
}

// IsMarketOpen returns true if t falls within a continuous trading session
// (09:30-11:30 or 13:00-15:00 CST, Mon-Fri, excluding holidays).
func IsMarketOpen(t time.Time) bool {
	p := PhaseAt(t)
	return p == PhaseMorning || p == PhaseAfternoon
}

// IsWeekday returns true if t is Mon-Fri in CST.
func IsWeekday(t time.Time) bool {
	wd := t.In(CST).Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// IsTradingDay returns true if t is a weekday and not a holiday.
func IsTradingDay(t time.Time) bool {
	c := t.In(CST)
	return IsWeekday(c) && !IsHoliday(c)
}

// NextOpen returns the start of the next trading session strictly after t,
// or t's own session start if t is before it. During the lunch break this is
// today's 13:00.
func NextOpen(t time.Time) time.Time {
	c := t.In(CST)
	if IsTradingDay(c) {
		hm := c.Hour()*60 + c.Minute()
		if hm < MorningOpen {
			return atMinute(c, MorningOpen)
		}
		if hm >= MorningClose && hm < AfternoonOpen {
			return atMinute(c, AfternoonOpen)
		}
	}

	d := c.AddDate(0, 0, 1)
	for i := 0; i < 20; i++ { // Spring Festival and National Day run over a week
		if IsTradingDay(d) {
			return atMinute(d, MorningOpen)
		}
		d = d.AddDate(0, 0, 1)
	}
	return atMinute(c.AddDate(0, 0, 1), MorningOpen)
}

// CurrentSessionClose returns the end of the session containing t. Returns
// the zero time if the market is not open.
func CurrentSessionClose(t time.Time) time.Time {
	switch PhaseAt(t) {
	case PhaseMorning:
		return atMinute(t.In(CST), MorningClose)
	case PhaseAfternoon:
		return atMinute(t.In(CST), AfternoonClose)
	}
	return time.Time{}
}

// StatusString returns a human-readable market status.
func StatusString(t time.Time) string {
	if IsMarketOpen(t) {
		d := CurrentSessionClose(t).Sub(t)
		return fmt.Sprintf("Market Open, session ends in %s", fmtDur(d))
	}
	next := NextOpen(t)
	d := next.Sub(t)
	c := next.In(CST)
	return fmt.Sprintf("Market Closed, opens %s %s (%s)",
		c.Weekday().String()[:3], c.Format("15:04"), fmtDur(d))
}

func atMinute(day time.Time, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), minute/60, minute%60, 0, 0, CST)
}

func fmtDur(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
