package core

import (
	"strings"

	"github.com/montanaflynn/stats"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Round rounds half away from zero to the given number of decimal places. NaN rounds to 0.
func Round(x float64, places int) float64 {
	r, err := stats.Round(x, places)
	if err != nil {
		return 0
	}
	return r
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
