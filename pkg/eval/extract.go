package eval

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	delimiterRe = regexp.MustCompile(`(?s)FINAL_ANSWER:(.*?)END_ANSWER`)
	fractionRe  = regexp.MustCompile(`\b(\d+)/(\d+)\b`)
	percentRe   = regexp.MustCompile(`(\d+\.?\d*)%`)
	numberRe    = regexp.MustCompile(`\b\d+\.?\d*\b`)
)

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ExtractNumericAnswer pulls the value to score out of a final answer. It
// tries, in order, the FINAL_ANSWER delimiters, the first a/b fraction
// (rounded to two decimals), the first percentage and finally the last
// number in the text.
func ExtractNumericAnswer(text string) (string, bool) {
	if m := delimiterRe.FindStringSubmatch(text); m != nil {
		inner := cleanAnswer(m[1])
		if v, err := strconv.ParseFloat(inner, 64); err == nil {
			return formatNumber(v), true
		}
		return inner, true
	}

	if m := fractionRe.FindStringSubmatch(text); m != nil {
		num, errN := strconv.Atoi(m[1])
		denom, errD := strconv.Atoi(m[2])
		if errN == nil && errD == nil && denom != 0 {
			v := float64(num) / float64(denom)
			return formatNumber(math.Round(v*100) / 100), true
		}
	}

	if m := percentRe.FindStringSubmatch(text); m != nil {
		return m[1], true
	}

	if numbers := numberRe.FindAllString(text, -1); len(numbers) > 0 {
		return strings.TrimSpace(numbers[len(numbers)-1]), true
	}

	return "", false
}
