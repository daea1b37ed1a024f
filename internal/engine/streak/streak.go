// Package streak holds the daily continuity rules. The activity day is
// derived once upstream (midnight-aligned UTC) and passed in; nothing here
// touches the wall clock, which keeps the rules testable and timezone-safe.
package streak

import "time"

type Change int

const (
	NoChange Change = iota
	Started
	Extended
	Reset
)

type State struct {
	Current int
	Longest int
}

// Day truncates a timestamp to its UTC calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// Evaluate applies one qualifying activity on today's date to the streak.
// Multiple activities on the same day are a no-op. A gap of exactly one day
// extends the streak; any larger gap starts a new streak at 1 rather than
// zeroing out.
func Evaluate(lastActivity *time.Time, today time.Time, current, longest int) (State, Change) {
	if lastActivity == nil {
		s := State{Current: 1, Longest: max(longest, 1)}
		return s, Started
	}

	switch days := DaysBetween(*lastActivity, today); {
	case days <= 0:
		return State{Current: current, Longest: longest}, NoChange
	case days == 1:
		cur := current + 1
		return State{Current: cur, Longest: max(longest, cur)}, Extended
	default:
		return State{Current: 1, Longest: max(longest, 1)}, Reset
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
