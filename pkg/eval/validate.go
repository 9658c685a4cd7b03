package eval

import (
	"math"
	"strconv"
	"strings"
)

const DefaultTolerance = 0.03

// percentEpsilon is how close 60 and 0.60*100 must be to count as the same
// answer.
const percentEpsilon = 1e-9

func cleanAnswer(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	return strings.TrimSpace(s)
}

// parseNumber accepts plain decimals and a/b fractions.
func parseNumber(s string) (float64, bool) {
	if strings.Contains(s, "/") {
		parts := strings.Split(s, "/")
		if len(parts) != 2 {
			return 0, false
		}
		num, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return 0, false
		}
		denom, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil || denom == 0 {
			return 0, false
		}
		return num / denom, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Validate reports whether actual matches expected. Both sides may be
// bracketed, decimal or a fraction. A percentage matches its decimal form
// in either direction (60 and 0.60); otherwise the values must be within
// tolerance. Anything that does not parse is compared as trimmed text.
func Validate(expected, actual string, tolerance float64) bool {
	expected = cleanAnswer(expected)
	actual = cleanAnswer(actual)

	e, okE := parseNumber(expected)
	a, okA := parseNumber(actual)
	if !okE || !okA {
		return expected == actual
	}

	if e > 1 && a < 1 && math.Abs(e-a*100) <= percentEpsilon {
		return true
	}
	if a > 1 && e < 1 && math.Abs(a-e*100) <= percentEpsilon {
		return true
	}

	return math.Abs(e-a) <= tolerance
}
