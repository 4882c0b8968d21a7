// Package period converts named reporting periods into concrete
// calendar-aware time ranges.
package period

import (
	"strings"
	"time"
)

// Named periods understood by RangeFor. Matching is case-insensitive;
// anything unrecognized resolves to ThisMonth semantics rather than
// failing.
const (
	ThisWeek    = "This Week"
	ThisMonth   = "This Month"
	LastMonth   = "Last Month"
	Last3Months = "Last 3 Months"
	Last6Months = "Last 6 Months"
	ThisYear    = "This Year"
	LastYear    = "Last Year"
)

// Service resolves period names against an injectable clock.
type Service struct {
	now func() time.Time
}

// NewService creates a Service on the wall clock.
func NewService() *Service {
	return &Service{now: time.Now}
}

// NewServiceWithClock creates a Service with a fixed clock, for tests.
func NewServiceWithClock(now func() time.Time) *Service {
	return &Service{now: now}
}

// RangeFor maps a named period to a concrete [start, end] range. Start
// boundaries are truncated to local midnight; "This …" periods end now.
func (s *Service) RangeFor(name string) (time.Time, time.Time) {
	now := s.now()

	switch canonical(name) {
	case ThisWeek:
		start := startOfDay(now).AddDate(0, 0, -int(now.Weekday()))
		return start, now
	case LastMonth:
		start := startOfMonth(now).AddDate(0, -1, 0)
		return start, endOfMonth(start)
	case Last3Months:
		return startOfMonth(now).AddDate(0, -3, 0), now
	case Last6Months:
		return startOfMonth(now).AddDate(0, -6, 0), now
	case ThisYear:
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location()), now
	case LastYear:
		start := time.Date(now.Year()-1, 1, 1, 0, 0, 0, 0, now.Location())
		return start, lastInstant(time.Date(now.Year()-1, 12, 31, 0, 0, 0, 0, now.Location()))
	default: // ThisMonth and anything unrecognized
		return startOfMonth(now), now
	}
}

// PreviousRangeFor mirrors the period immediately before the current
// range: the preceding calendar month for This Month, the prior
// N-month window for Last N Months. Never a fixed-delta shift.
func (s *Service) PreviousRangeFor(name string, currentStart, currentEnd time.Time) (time.Time, time.Time) {
	switch canonical(name) {
	case ThisWeek:
		start := currentStart.AddDate(0, 0, -7)
		return start, lastInstant(currentStart.AddDate(0, 0, -1))
	case Last3Months:
		return currentStart.AddDate(0, -3, 0), lastInstant(currentStart.AddDate(0, 0, -1))
	case Last6Months:
		return currentStart.AddDate(0, -6, 0), lastInstant(currentStart.AddDate(0, 0, -1))
	case ThisYear, LastYear:
		start := currentStart.AddDate(-1, 0, 0)
		return start, lastInstant(time.Date(start.Year(), 12, 31, 0, 0, 0, 0, start.Location()))
	default: // ThisMonth, LastMonth and anything unrecognized
		start := startOfMonth(currentStart).AddDate(0, -1, 0)
		return start, endOfMonth(start)
	}
}

// CustomMonthRange spans one calendar month, from its first midnight to
// its last instant.
func (s *Service) CustomMonthRange(month time.Month, year int) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, s.now().Location())
	return start, endOfMonth(start)
}

func canonical(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "this week":
		return ThisWeek
	case "last month":
		return LastMonth
	case "last 3 months":
		return Last3Months
	case "last 6 months":
		return Last6Months
	case "this year":
		return ThisYear
	case "last year":
		return LastYear
	default:
		return ThisMonth
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// endOfMonth returns the last instant (23:59:59.999) of the month
// containing t.
func endOfMonth(t time.Time) time.Time {
	return lastInstant(startOfMonth(t).AddDate(0, 1, -1))
}

func lastInstant(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, int(999*time.Millisecond), day.Location())
}
