// Package dailyseed derives the deterministic selection behind daily
// challenges. The same (date, userSeed) pair always hashes to the same
// picks, so regenerating a challenge after a retry or a crashed write is
// idempotent without any coordination.
package dailyseed

import (
	"fmt"
	"hash/fnv"
	"time"
)

// DateKey is the timezone-agnostic calendar key used everywhere a "day"
// matters: challenge uniqueness, expiry, duplicate detection.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// EndOfDay is the expiry instant for a calendar date: the first nanosecond
// of the next UTC day.
func EndOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}

// Seed hashes a date key and per-user seed into a 64-bit value.
func Seed(dateKey, userSeed string) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s", dateKey, userSeed)
	return h.Sum64()
}

// Pick maps a seed onto an index in [0, n). The salt lets one seed drive
// several independent picks (quest, challenge type) without correlation.
func Pick(seed uint64, salt uint64, n int) int {
	if n <= 0 {
		return 0
	}
	h := fnv.New64a()
	fmt.Fprintf(h, "%d|%d", seed, salt)
	return int(h.Sum64() % uint64(n))
}
