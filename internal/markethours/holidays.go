package markethours

import (
	"fmt"
	"sync"
	"time"
)

// SSE/SZSE exchange closures for 2026 on weekdays.
var sseHolidays2026 = []struct {
	month time.Month
	day   int
}{
	{time.January, 1},    // New Year
	{time.January, 2},    // New Year
	{time.February, 16},  // Spring Festival
	{time.February, 17},  // Spring Festival
	{time.February, 18},  // Spring Festival
	{time.February, 19},  // Spring Festival
	{time.February, 20},  // Spring Festival
	{time.February, 23},  // Spring Festival (tentative)
	{time.April, 6},      // Qingming
	{time.May, 1},        // Labour Day
	{time.May, 4},        // Labour Day
	{time.May, 5},        // Labour Day
	{time.June, 19},      // Dragon Boat
	{time.September, 25}, // Mid-Autumn
	{time.October, 1},    // National Day
	{time.October, 2},    // National Day
	{time.October, 5},    // National Day
	{time.October, 6},    // National Day
	{time.October, 7},    // National Day
}

var (
	holidayMu  sync.RWMutex
	holidaySet map[string]bool
)

func init() {
	holidaySet = make(map[string]bool, len(sseHolidays2026))
	for _, h := range sseHolidays2026 {
		holidaySet[dateKey(2026, h.month, h.day)] = true
	}
}

// AddHolidays marks extra closed dates given as YYYY-MM-DD, e.g. from the
// dashboard config for years not built in.
func AddHolidays(dates []string) error {
	holidayMu.Lock()
	defer holidayMu.Unlock()
	for _, d := range dates {
		t, err := time.ParseInLocation("2006-01-02", d, CST)
		if err != nil {
			return fmt.Errorf("holiday %q: %w", d, err)
		}
		holidaySet[dateKey(t.Year(), t.Month(), t.Day())] = true
	}
	return nil
}

// IsHoliday returns true if the date (in CST) is an exchange holiday.
func IsHoliday(t time.Time) bool {
	c := t.In(CST)
	holidayMu.RLock()
	defer holidayMu.RUnlock()
	return holidaySet[dateKey(c.Year(), c.Month(), c.Day())]
}

func dateKey(year int, month time.Month, day int) string {
	return time.Date(year, month, day, 0, 0, 0, 0, CST).Format("2006-01-02")
}
