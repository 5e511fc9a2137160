package usecase

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// CleanString trims s and collapses internal whitespace runs to a single space.
// Non-string input yields "".
func CleanString(input interface{}) string {
	s, ok := input.(string)
	if !ok {
		return ""
	}
	return strings.Join(strings.Fields(s), " ")
}

// ToNumber coerces a cell value to a float. Numbers pass through, strings are
// parsed from their leading decimal prefix with a decimal comma accepted.
// Anything unparsable, NaN or infinite yields 0.
func ToNumber(input interface{}) float64 {
	switch v := input.(type) {
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	case uint:
		return float64(v)
	case uint64:
		return float64(v)
	case string:
		return parseLocaleNumber(v)
	default:
		return 0
	}
}

// leadingNumberPattern matches the decimal prefix of a cell: an optional sign,
// digits with optional space-separated thousands groups, and an optional
// decimal part after a dot or comma. "6 btl" yields "6", "1 250,75 €" yields
// "1 250,75". NaN and infinity literals never match and "0x1A" stops at "0".
var leadingNumberPattern = regexp.MustCompile(`^[+-]?(?:\d+(?:[ \x{00a0}\x{202f}]\d{3})*(?:[.,]\d*)?|[.,]\d+)`)

// parseLocaleNumber parses "12,5", " 6 ", "1 250,75" or "6 btl" style numbers
func parseLocaleNumber(s string) float64 {
	prefix := leadingNumberPattern.FindString(strings.TrimSpace(s))
	if prefix == "" {
		return 0
	}
	// Thousands separators as spaces (including NBSP) are common in French exports
	prefix = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "").Replace(prefix)
	prefix = strings.Replace(prefix, ",", ".", 1)

	n, err := strconv.ParseFloat(prefix, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}

func finite(n float64) float64 {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}
