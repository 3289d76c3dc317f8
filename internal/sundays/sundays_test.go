package sundays

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendarDates2026(t *testing.T) {
	cal := NewCalendar(2026)

	dates := cal.Dates()
	require.NotEmpty(t, dates)
	assert.Equal(t, "2026-01-04", dates[0])
	assert.Equal(t, "2026-12-27", dates[len(dates)-1])

	for _, raw := range dates {
		day, err := time.ParseInLocation(DateLayout, raw, time.UTC)
		require.NoError(t, err)
		assert.Equal(t, time.Sunday, day.Weekday())
		assert.Equal(t, 2026, day.Year())
	}
}

func TestCalendarContains(t *testing.T) {
	cal := NewCalendar(2026)

	sunday := time.Date(2026, time.January, 4, 0, 0, 0, 0, time.UTC)
	monday := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	otherYear := time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC)

	assert.True(t, cal.Contains(sunday))
	assert.False(t, cal.Contains(monday))
	assert.False(t, cal.Contains(otherYear))
}

func TestCalendarParse(t *testing.T) {
	cal := NewCalendar(2026)

	day, ok := cal.Parse("2026-01-04")
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, time.January, 4, 0, 0, 0, 0, time.UTC), day)

	_, ok = cal.Parse("2026-01-05")
	assert.False(t, ok)

	_, ok = cal.Parse("not-a-date")
	assert.False(t, ok)
}
