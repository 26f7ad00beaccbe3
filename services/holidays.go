package services

import (
	"sort"
	"time"
)

// maxHolidayDistance caps both holiday-distance features. Callers cannot
// distinguish "no holiday found" from "holiday further than 30 days"; both
// come back as 30, matching what the models were trained on.
const maxHolidayDistance = 30

// Algerian public holidays for 2023-2026: fixed civil dates plus the
// observed dates of the movable religious holidays. The range covers the
// production data window; dates outside it fall back to the distance cap.
var algerianHolidayDates = []string{
	// 2023
	"2023-01-01", "2023-01-12", "2023-04-21", "2023-04-22", "2023-05-01",
	"2023-06-28", "2023-06-29", "2023-07-05", "2023-07-19", "2023-07-28",
	"2023-09-27", "2023-11-01",
	// 2024
	"2024-01-01", "2024-01-12", "2024-04-10", "2024-04-11", "2024-05-01",
	"2024-06-16", "2024-06-17", "2024-07-05", "2024-07-07", "2024-07-16",
	"2024-09-15", "2024-11-01",
	// 2025
	"2025-01-01", "2025-01-12", "2025-03-30", "2025-03-31", "2025-05-01",
	"2025-06-06", "2025-06-07", "2025-06-26", "2025-07-05", "2025-11-01",
	"2025-09-04",
	// 2026
	"2026-01-01", "2026-01-12", "2026-03-20", "2026-03-21", "2026-05-01",
	"2026-05-27", "2026-05-28", "2026-06-16", "2026-06-25", "2026-07-05",
	"2026-08-25", "2026-11-01",
}

// HolidayIndex answers nearest-holiday queries against a sorted, deduplicated
// date table. Read-only after construction.
type HolidayIndex struct {
	dates []time.Time
}

// NewHolidayIndex builds the index from the built-in Algerian calendar.
func NewHolidayIndex() *HolidayIndex {
	return newHolidayIndexFrom(algerianHolidayDates)
}

func newHolidayIndexFrom(raw []string) *HolidayIndex {
	seen := make(map[string]bool, len(raw))
	dates := make([]time.Time, 0, len(raw))
	for _, s := range raw {
		if seen[s] {
			continue
		}
		seen[s] = true
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			// The table is compiled in; a bad entry is a programming error.
			panic("holidays: bad date " + s)
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return &HolidayIndex{dates: dates}
}

// DaysSinceLast returns the number of days from the nearest holiday at or
// before t to t, clipped to [0, maxHolidayDistance].
func (x *HolidayIndex) DaysSinceLast(t time.Time) int {
	day := truncateToDay(t)
	// First index whose date is after day; the holiday at or before is i-1.
	i := sort.Search(len(x.dates), func(i int) bool { return x.dates[i].After(day) })
	if i == 0 {
		return maxHolidayDistance
	}
	return clipDays(day.Sub(x.dates[i-1]))
}

// DaysUntilNext returns the number of whole days from t to the nearest
// holiday midnight at or after t, clipped to [0, maxHolidayDistance]. The
// comparison uses the full timestamp and the fractional day is floored, so
// an intraday scan on a holiday skips ahead to the following holiday; the
// models were trained with exactly this asymmetry.
func (x *HolidayIndex) DaysUntilNext(t time.Time) int {
	i := sort.Search(len(x.dates), func(i int) bool { return !x.dates[i].Before(t) })
	if i == len(x.dates) {
		return maxHolidayDistance
	}
	return clipDays(x.dates[i].Sub(t))
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func clipDays(d time.Duration) int {
	days := int(d.Hours() / 24)
	if days > maxHolidayDistance {
		return maxHolidayDistance
	}
	if days < 0 {
		return 0
	}
	return days
}
