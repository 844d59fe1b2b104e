// Package clock supplies the local wall clock and the calendar-day helpers
// used for delivery dates.  A delivery date is stored as midnight UTC of
// the calendar day, while "today" and the same-day cutoff are evaluated in
// the configured local timezone.
package clock

import (
	"errors"
	"strings"
	"time"
)

// DayLayout is the wire format of a normalized delivery date.
const DayLayout = "2006-01-02T00:00:00.000Z"

// ErrInvalidDate is returned by ParseDay for input without a leading
// YYYY-MM-DD.
var ErrInvalidDate = errors.New("invalid date")

// Clock returns the current time in the service's local timezone.
type Clock interface {
	Now() time.Time
}

// Local reads the system clock and converts it to Loc.
type Local struct {
	Loc *time.Location
}

// NewLocal returns a Local clock; a nil location means UTC.
func NewLocal(loc *time.Location) Local {
	if loc == nil {
		loc = time.UTC
	}
	return Local{Loc: loc}
}

func (l Local) Now() time.Time { return time.Now().In(l.Loc) }

// Fixed always reports the same instant.  Tests use it to pin the cutoff.
type Fixed time.Time

func (f Fixed) Now() time.Time { return time.Time(f) }

// Day truncates t to its calendar day in t's own location and re-expresses
// that day as midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today is the normalized local calendar day of c.
func Today(c Clock) time.Time { return Day(c.Now()) }

// ParseDay accepts "YYYY-MM-DD" optionally followed by a time part
// ("2024-05-01T09:00:00Z") and keeps only the calendar day.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "T "); i >= 0 {
		s = s[:i]
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t.UTC(), nil
}

// FormatDay renders a normalized day.
func FormatDay(day time.Time) string { return day.UTC().Format(DayLayout) }

// BeforeCutoff reports whether now is strictly earlier than cutoff past
// local midnight of now's day.
func BeforeCutoff(now time.Time, cutoff time.Duration) bool {
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return now.Sub(midnight) < cutoff
}

// MonthRange returns the first instant of day's month and the first instant
// of the following month, both UTC.
func MonthRange(day time.Time) (time.Time, time.Time) {
	y, m, _ := day.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
