// Package level maps total XP to a user level. The level is a pure function
// of xpTotal and is recomputed on every read so it can never drift from the
// XP it was derived from.
package level

// Thresholds are the minimum XP for each level, level 1 first.
var Thresholds = []int{0, 500, 1500, 3000, 5000, 10000, 20000}

// ForXP returns the 1-based level for a total XP amount. Negative input
// clamps to level 1.
func ForXP(xpTotal int) int {
	lvl := 1
	for i, min := range Thresholds {
		if xpTotal >= min {
			lvl = i + 1
		}
	}
	return lvl
}

// NextThreshold returns the XP needed for the next level, or 0 and false at
// the top tier.
func NextThreshold(xpTotal int) (int, bool) {
	for _, min := range Thresholds {
		if xpTotal < min {
			return min, true
		}
	}
	return 0, false
}

// ToNext returns how much XP is missing until the next level, 0 at the top.
func ToNext(xpTotal int) int {
	next, ok := NextThreshold(xpTotal)
	if !ok {
		return 0
	}
	return next - xpTotal
}
