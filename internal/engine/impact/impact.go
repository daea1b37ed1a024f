// Package impact turns a user's full set of savings events into annualized
// totals. It is always a full recompute over the complete event set; an
// incremental patch cannot stay correct once historical events are edited
// or deleted upstream.
package impact

import (
	"finquestAPI/internal/savings"
	"finquestAPI/utils"
)

type Totals struct {
	AnnualEstimated     float64
	AnnualVerified      float64
	ProofsVerifiedCount int
}

// Annualize converts an event amount to a yearly figure.
func Annualize(amount float64, period savings.Period) float64 {
	if period == savings.PeriodMonth {
		return amount * 12
	}
	return amount
}

// Recompute sums every well-formed event. Non-positive amounts are skipped
// rather than errored; old rows with bad data must not wedge the dashboard.
// The result depends only on the event set, so re-running is idempotent.
func Recompute(events []*savings.Event) Totals {
	var t Totals
	for _, ev := range events {
		if ev == nil || ev.Amount <= 0 {
			continue
		}
		annual := Annualize(ev.Amount, ev.Period)
		t.AnnualEstimated += annual
		if ev.Verified {
			t.AnnualVerified += annual
			t.ProofsVerifiedCount++
		}
	}
	t.AnnualEstimated = utils.RoundHalfUp2(t.AnnualEstimated)
	t.AnnualVerified = utils.RoundHalfUp2(t.AnnualVerified)
	return t
}
