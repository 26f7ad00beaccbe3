package services

import (
	"testing"
	"time"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestHolidayDistancesOnHoliday(t *testing.T) {
	idx := NewHolidayIndex()

	// At the holiday's own midnight both distances are zero.
	d := date("2024-01-01 00:00:00")
	if got := idx.DaysSinceLast(d); got != 0 {
		t.Errorf("DaysSinceLast = %d, want 0", got)
	}
	if got := idx.DaysUntilNext(d); got != 0 {
		t.Errorf("DaysUntilNext = %d, want 0", got)
	}

	// An intraday scan on the holiday still reads 0 backward, but the
	// forward match skips to the next holiday (Jan 12), floored.
	d = date("2024-01-01 09:30:00")
	if got := idx.DaysSinceLast(d); got != 0 {
		t.Errorf("DaysSinceLast = %d, want 0", got)
	}
	if got := idx.DaysUntilNext(d); got != 10 {
		t.Errorf("DaysUntilNext = %d, want 10", got)
	}
}

func TestHolidayDistancesBetweenHolidays(t *testing.T) {
	idx := NewHolidayIndex()

	// 2024-01-05 sits between Jan 1 and Jan 12 (Yennayer).
	d := date("2024-01-05 00:00:00")
	if got := idx.DaysSinceLast(d); got != 4 {
		t.Errorf("DaysSinceLast = %d, want 4", got)
	}
	if got := idx.DaysUntilNext(d); got != 7 {
		t.Errorf("DaysUntilNext = %d, want 7", got)
	}

	// A mid-afternoon scan leaves 6 whole days until Jan 12: the forward
	// distance floors the fractional day, the backward one is unaffected.
	d = date("2024-01-05 14:30:00")
	if got := idx.DaysSinceLast(d); got != 4 {
		t.Errorf("DaysSinceLast = %d, want 4", got)
	}
	if got := idx.DaysUntilNext(d); got != 6 {
		t.Errorf("DaysUntilNext = %d, want 6", got)
	}
}

func TestHolidayDistancesClipped(t *testing.T) {
	idx := newHolidayIndexFrom([]string{"2024-01-01", "2024-12-31"})

	d := date("2024-06-15 12:00:00")
	if got := idx.DaysSinceLast(d); got != 30 {
		t.Errorf("DaysSinceLast = %d, want clip at 30", got)
	}
	if got := idx.DaysUntilNext(d); got != 30 {
		t.Errorf("DaysUntilNext = %d, want clip at 30", got)
	}
}

func TestHolidayDistancesOutsideWindow(t *testing.T) {
	idx := NewHolidayIndex()

	// Before the first tabulated year there is no holiday at or before.
	before := date("2019-05-05 00:00:00")
	if got := idx.DaysSinceLast(before); got != 30 {
		t.Errorf("DaysSinceLast = %d, want 30 for date before window", got)
	}

	// After the last tabulated year there is no holiday at or after.
	after := date("2031-05-05 00:00:00")
	if got := idx.DaysUntilNext(after); got != 30 {
		t.Errorf("DaysUntilNext = %d, want 30 for date after window", got)
	}
}

func TestHolidayDistancesRange(t *testing.T) {
	idx := NewHolidayIndex()

	// Sweep a year of days: distances always land in [0, 30].
	d := date("2024-01-01 00:00:00")
	for i := 0; i < 366; i++ {
		since := idx.DaysSinceLast(d)
		until := idx.DaysUntilNext(d)
		if since < 0 || since > 30 {
			t.Fatalf("DaysSinceLast(%s) = %d, out of [0,30]", d, since)
		}
		if until < 0 || until > 30 {
			t.Fatalf("DaysUntilNext(%s) = %d, out of [0,30]", d, until)
		}
		d = d.Add(24 * time.Hour)
	}
}

func TestHolidayIndexDeduplicatesAndSorts(t *testing.T) {
	idx := newHolidayIndexFrom([]string{"2024-05-01", "2024-01-01", "2024-05-01"})
	if len(idx.dates) != 2 {
		t.Fatalf("len(dates) = %d, want 2", len(idx.dates))
	}
	if !idx.dates[0].Before(idx.dates[1]) {
		t.Error("dates should be sorted ascending")
	}
}
