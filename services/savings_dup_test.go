package services

import (
	"context"
	"errors"
	"testing"

	"finquestAPI/internal/apperror"
	"finquestAPI/internal/savings"

	"github.com/google/uuid"
)

func TestTitlesShareToken(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"Cancelled Netflix subscription", "Netflix premium plan", true},
		{"Cancelled Netflix", "Dropped gym membership", false},
		{"Netflix", "netflix", true},
		{"Cut my gym membership", "Gym cancelled", true},
		{"a b c", "a b c", false}, // tokens under 3 chars are too generic
		{"", "Netflix", false},
	}

	for _, c := range cases {
		if got := titlesShareToken(c.a, c.b); got != c.want {
			t.Errorf("titlesShareToken(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestAmountWithinTolerance(t *testing.T) {
	// 13 vs 14 is inside ±20% of 13, the reference duplicate scenario.
	if !amountWithinTolerance(13, 14, 0.20) {
		t.Error("14 should be within 20% of 13")
	}
	if amountWithinTolerance(13, 16, 0.20) {
		t.Error("16 should be outside 20% of 13")
	}
	if !amountWithinTolerance(100, 80, 0.20) {
		t.Error("80 should be within 20% of 100")
	}
	if amountWithinTolerance(0, 10, 0.20) {
		t.Error("non-positive existing amounts never match")
	}
}

func TestProgressPercent(t *testing.T) {
	cases := []struct {
		completed, total, want int
	}{
		{0, 4, 0},
		{1, 4, 25},
		{2, 3, 67},
		{1, 3, 33},
		{3, 3, 100},
		{0, 0, 0},
	}

	for _, c := range cases {
		if got := progressPercent(c.completed, c.total); got != c.want {
			t.Errorf("progressPercent(%d, %d) = %d, want %d", c.completed, c.total, got, c.want)
		}
	}
}

func TestCreateEventRejectsBadInput(t *testing.T) {
	// Validation runs before any storage access, so a zero-value service
	// is enough to exercise it.
	s := &SavingsService{}
	ctx := context.Background()
	userID := uuid.New()

	cases := []struct {
		name string
		req  savings.CreateEventRequest
	}{
		{"missing title", savings.CreateEventRequest{Amount: 10, Period: savings.PeriodMonth}},
		{"non-positive amount", savings.CreateEventRequest{Title: "Netflix", Amount: 0, Period: savings.PeriodMonth}},
		{"bad period", savings.CreateEventRequest{Title: "Netflix", Amount: 10, Period: "week"}},
		{"bad source", savings.CreateEventRequest{Title: "Netflix", Amount: 10, Period: savings.PeriodMonth, Source: "import"}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, _, err := s.CreateEvent(ctx, userID, &c.req)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("CreateEvent(%s) error = %v, want ErrValidation", c.name, err)
			}
		})
	}
}
