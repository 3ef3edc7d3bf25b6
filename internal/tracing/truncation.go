package tracing

import (
	"strings"
)

const (
	// DefaultMaxLength bounds a generic span attribute.
	DefaultMaxLength = 200

	// MaxSQLLength bounds recorded SQL statements.
	MaxSQLLength = 500

	// MaxRedisLength bounds recorded Redis keys.
	MaxRedisLength = 100

	// MaxHeaderLength bounds recorded HTTP header values.
	MaxHeaderLength = 100

	// MaxTranscriptLength bounds transcript excerpts. Interview transcripts
	// run to tens of kilobytes and never belong in a span whole.
	MaxTranscriptLength = 150
)

// maskPIILookup lists attribute-name fragments whose values carry candidate
// identity and must be masked before export.
var maskPIILookup = map[string]bool{
	"email":    true,
	"phone":    true,
	"password": true,
	"address":  true,
	"name":     true,
	"firm":     true,
	"secret":   true,
	"token":    true,
	"api_key":  true,
}

// SafeAttributeValue masks values whose attribute name looks sensitive and
// truncates anything longer than maxLength.
func SafeAttributeValue(name string, value string, maxLength int) string {
	lowerName := strings.ToLower(name)
	for keyword := range maskPIILookup {
		if strings.Contains(lowerName, keyword) {
			return MaskPII(value)
		}
	}
	return TruncateString(value, maxLength)
}

// MaskPII hides the middle of a sensitive value, keeping just enough of the
// edges to correlate log lines.
func MaskPII(value string) string {
	if value == "" {
		return ""
	}

	runes := []rune(value)
	length := len(runes)

	if length <= 1 {
		return "*"
	}
	if length <= 4 {
		if length == 2 {
			return string(runes[0:1]) + "*"
		}
		return string(runes[0:1]) + strings.Repeat("*", length-2) + string(runes[length-1:])
	}

	// "advisor@example.com" -> "ad***************om"
	return string(runes[0:2]) + strings.Repeat("*", length-4) + string(runes[length-2:])
}

// TruncateString keeps the head and tail of an over-long string joined by
// an ellipsis.
func TruncateString(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}

	if maxLength <= 3 {
		return string(runes[:maxLength])
	}

	half := (maxLength - 3) / 2
	if half < 1 {
		half = 1
	}
	return string(runes[:half]) + "..." + string(runes[len(runes)-half:])
}

// SafeSQL bounds a SQL statement for span attributes.
func SafeSQL(sql string) string {
	return TruncateString(sql, MaxSQLLength)
}

// SafeRedisKey bounds a Redis key for span attributes.
func SafeRedisKey(key string) string {
	return TruncateString(key, MaxRedisLength)
}

// SafeTranscriptExcerpt bounds transcript text for span attributes.
func SafeTranscriptExcerpt(content string) string {
	return TruncateString(content, MaxTranscriptLength)
}
