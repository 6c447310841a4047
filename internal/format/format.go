// Package format holds the one implementation of the numeric formatting the
// dashboard uses everywhere. Thresholds are fixed: values at or above 1e9
// render with a "B" suffix, 1e6 with "M", 1e3 with "K", always two decimals.
package format

import (
	"fmt"
	"math"
	"strconv"
)

// Compact renders a value with a suffix per the threshold table.
func Compact(value float64) string {
	sign := ""
	if value < 0 {
		sign = "-"
		value = -value
	}

	switch {
	case value >= 1e9:
		return fmt.Sprintf("%s%.2fB", sign, value/1e9)
	case value >= 1e6:
		return fmt.Sprintf("%s%.2fM", sign, value/1e6)
	case value >= 1e3:
		return fmt.Sprintf("%s%.2fK", sign, value/1e3)
	default:
		return fmt.Sprintf("%s%.2f", sign, value)
	}
}

// Money renders a value as a dollar amount with the same suffix table.
func Money(value float64) string {
	if value < 0 {
		return "-$" + Compact(-value)
	}
	return "$" + Compact(value)
}

// Percent renders a ratio as a percentage with two decimals.
func Percent(value float64) string {
	return fmt.Sprintf("%.2f%%", value*100)
}

// Count renders an integer-like value with thousands grouping.
func Count(value float64) string {
	n := int64(math.Round(value))
	s := strconv.FormatInt(n, 10)
	neg := false
	if n < 0 {
		neg = true
		s = s[1:]
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
