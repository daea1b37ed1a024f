package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseLocaleFloat parses a decimal number accepting both "." and "," as
// the decimal separator, so answers typed on European keyboards grade the
// same as US-formatted ones.
func ParseLocaleFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}

	// "1.234,56" and "1,234.56" both appear in the wild; strip the grouping
	// separator before normalizing the decimal one.
	if strings.Contains(s, ",") && strings.Contains(s, ".") {
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	} else {
		s = strings.Replace(s, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

// RoundHalfUp2 rounds to 2 decimal places with standard half-up rounding.
// The epsilon keeps values like 1.005, which sit just below the midpoint in
// binary floating point, rounding the way money math expects.
func RoundHalfUp2(v float64) float64 {
	return math.Floor(v*100+0.5+1e-9) / 100
}
