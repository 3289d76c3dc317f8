// Package sundays computes the set of valid attendance dates: every Sunday
// of a configured calendar year. Attendance may only be recorded on those
// dates, so the list is also served to clients.
package sundays

import "time"

// DateLayout is the wire format for attendance dates.
const DateLayout = "2006-01-02"

// Calendar holds the allowed dates for one year.
type Calendar struct {
	year  int
	dates []string
}

// NewCalendar enumerates every Sunday of the given year.
func NewCalendar(year int) *Calendar {
	dates := make([]string, 0, 53)
	day := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	// advance to the first Sunday
	for day.Weekday() != time.Sunday {
		day = day.AddDate(0, 0, 1)
	}
	for day.Year() == year {
		dates = append(dates, day.Format(DateLayout))
		day = day.AddDate(0, 0, 7)
	}
	return &Calendar{year: year, dates: dates}
}

// Year returns the configured calendar year.
func (c *Calendar) Year() int {
	return c.year
}

// Dates returns every allowed date as YYYY-MM-DD strings, ascending.
func (c *Calendar) Dates() []string {
	out := make([]string, len(c.dates))
	copy(out, c.dates)
	return out
}

// Contains reports whether t falls on a Sunday of the configured year.
func (c *Calendar) Contains(t time.Time) bool {
	return t.Year() == c.year && t.Weekday() == time.Sunday
}

// Parse converts a YYYY-MM-DD string into a UTC date and reports whether it
// is an allowed attendance date.
func (c *Calendar) Parse(raw string) (time.Time, bool) {
	t, err := time.ParseInLocation(DateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, c.Contains(t)
}
