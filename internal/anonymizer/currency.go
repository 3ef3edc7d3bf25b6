package anonymizer

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseCurrencyToFloat parses a human-entered dollar amount into its absolute
// value. Accepts an optional leading "$", comma grouping, and a k/m/b
// magnitude suffix (case-insensitive): "$1.68B" -> 1_680_000_000,
// "$500k" -> 500_000, "$1,000,000,000" -> 1_000_000_000.
func ParseCurrencyToFloat(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("empty currency value")
	}

	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("currency value %q has no digits", raw)
	}

	multiplier := 1.0
	switch last := s[len(s)-1]; last {
	case 'k', 'K':
		multiplier = 1e3
		s = s[:len(s)-1]
	case 'm', 'M':
		multiplier = 1e6
		s = s[:len(s)-1]
	case 'b', 'B':
		multiplier = 1e9
		s = s[:len(s)-1]
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable currency value %q: %w", raw, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("negative currency value %q", raw)
	}
	return value * multiplier, nil
}

// bucketForMillions maps a dollar value (already converted to millions) into
// one of the 13 fixed range labels. Intervals are half-open: min <= v < max.
func bucketForMillions(millions float64) string {
	for _, r := range aumRanges {
		if r.MaxMillions < 0 {
			// Open-ended top bucket.
			if millions >= r.MinMillions {
				return r.Label
			}
			continue
		}
		if millions >= r.MinMillions && millions < r.MaxMillions {
			return r.Label
		}
	}
	// Unreachable for non-negative input; the top bucket absorbs the rest.
	return aumRanges[len(aumRanges)-1].Label
}
