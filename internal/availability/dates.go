package availability

import (
	"time"

	"github.com/faylib/equipment-calendar/internal/model"
)

// Dates are calendar dates in the venue's local time as returned upstream.
// They are carried as UTC midnights so that day arithmetic never crosses a
// DST boundary.

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(model.DateLayout, s, time.UTC)
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(model.DateLayout)
}

// AddDays moves a calendar date by n days.
func AddDays(t time.Time, n int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+n, 0, 0, 0, 0, time.UTC)
}

// MonthStart returns the first day of the month containing t.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// WeekStarts returns the start dates of the weekly windows fetched for a
// view beginning at start: start, start+7, ... one per week.
func WeekStarts(start time.Time) []time.Time {
	out := make([]time.Time, WeeksPerFetch)
	for i := range out {
		out[i] = AddDays(start, i*DaysPerWeek)
	}
	return out
}
