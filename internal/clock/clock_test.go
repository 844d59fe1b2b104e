package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dhaka(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Dhaka")
	require.NoError(t, err)
	return loc
}

func TestDayUsesLocalCalendar(t *testing.T) {
	loc := dhaka(t)
	// 01:00 local on the 2nd is still the 1st in UTC
	now := time.Date(2024, 3, 2, 1, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), Day(now))
	assert.Equal(t, "2024-03-02T00:00:00.000Z", FormatDay(Today(Fixed(now))))
}

func TestParseDay(t *testing.T) {
	for _, in := range []string{"2024-05-01", "2024-05-01T18:45:00.000Z", " 2024-05-01 10:00"} {
		d, err := ParseDay(in)
		require.NoError(t, err, in)
		assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), d)
	}
	_, err := ParseDay("05/01/2024")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestBeforeCutoffBoundary(t *testing.T) {
	loc := dhaka(t)
	cutoff := 6*time.Hour + 30*time.Minute
	assert.True(t, BeforeCutoff(time.Date(2024, 5, 1, 6, 29, 59, 0, loc), cutoff))
	assert.False(t, BeforeCutoff(time.Date(2024, 5, 1, 6, 30, 0, 0, loc), cutoff))
	assert.False(t, BeforeCutoff(time.Date(2024, 5, 1, 23, 0, 0, 0, loc), cutoff))
	assert.True(t, BeforeCutoff(time.Date(2024, 5, 1, 0, 0, 0, 0, loc), cutoff))
}

func TestMonthRange(t *testing.T) {
	start, end := MonthRange(time.Date(2024, 12, 17, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), end)
}
