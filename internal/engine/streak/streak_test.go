package streak

import (
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestEvaluateFirstActivity(t *testing.T) {
	s, ch := Evaluate(nil, day("2026-08-30"), 0, 0)
	if ch != Started || s.Current != 1 || s.Longest != 1 {
		t.Errorf("first activity: got %+v change=%d", s, ch)
	}
}

func TestEvaluateSameDay(t *testing.T) {
	last := day("2026-08-30")
	s, ch := Evaluate(&last, day("2026-08-30"), 4, 9)
	if ch != NoChange || s.Current != 4 || s.Longest != 9 {
		t.Errorf("same day should not change streak: got %+v change=%d", s, ch)
	}
}

func TestEvaluateConsecutiveDay(t *testing.T) {
	last := day("2026-08-29")
	s, ch := Evaluate(&last, day("2026-08-30"), 4, 4)
	if ch != Extended || s.Current != 5 || s.Longest != 5 {
		t.Errorf("consecutive day: got %+v change=%d", s, ch)
	}
}

func TestEvaluateConsecutiveDayKeepsLongest(t *testing.T) {
	last := day("2026-08-29")
	s, _ := Evaluate(&last, day("2026-08-30"), 2, 11)
	if s.Current != 3 || s.Longest != 11 {
		t.Errorf("longest should be preserved: got %+v", s)
	}
}

func TestEvaluateGapResets(t *testing.T) {
	last := day("2026-08-27")
	s, ch := Evaluate(&last, day("2026-08-30"), 6, 6)
	if ch != Reset || s.Current != 1 || s.Longest != 6 {
		t.Errorf("3-day gap should reset to 1: got %+v change=%d", s, ch)
	}
}

func TestEvaluateIgnoresTimeOfDay(t *testing.T) {
	// 23:50 yesterday followed by 00:10 today counts as consecutive days,
	// not as a same-day pair or a gap.
	last := time.Date(2026, 8, 29, 23, 50, 0, 0, time.UTC)
	today := time.Date(2026, 8, 30, 0, 10, 0, 0, time.UTC)
	s, ch := Evaluate(&last, today, 1, 1)
	if ch != Extended || s.Current != 2 {
		t.Errorf("midnight boundary: got %+v change=%d", s, ch)
	}
}

func TestDaysBetween(t *testing.T) {
	if d := DaysBetween(day("2026-08-27"), day("2026-08-30")); d != 3 {
		t.Errorf("DaysBetween = %d, want 3", d)
	}
	if d := DaysBetween(day("2026-08-30"), day("2026-08-30")); d != 0 {
		t.Errorf("DaysBetween same day = %d, want 0", d)
	}
}
