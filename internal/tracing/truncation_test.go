package tracing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskPII(t *testing.T) {
	assert.Equal(t, "", MaskPII(""))
	assert.Equal(t, "*", MaskPII("a"))
	assert.Equal(t, "J*", MaskPII("Jo"))
	assert.Equal(t, "J**n", MaskPII("John"))
	assert.Equal(t, "ad***************om", MaskPII("advisor@example.com"))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	got := TruncateString("abcdefghijklmnopqrstuvwxyz", 11)
	assert.Equal(t, "abcd...wxyz", got)
	assert.Len(t, got, 11)
}

func TestSafeTranscriptExcerpt(t *testing.T) {
	long := strings.Repeat("advisor grew the book. ", 20)
	got := SafeTranscriptExcerpt(long)
	assert.LessOrEqual(t, len(got), MaxTranscriptLength)
	assert.Contains(t, got, "...")

	assert.Equal(t, "short transcript", SafeTranscriptExcerpt("short transcript"))
}

func TestSafeAttributeValue(t *testing.T) {
	// Sensitive names are masked regardless of length.
	assert.Equal(t, "ad***************om",
		SafeAttributeValue("contact.email", "advisor@example.com", DefaultMaxLength))
	// Others are only truncated.
	assert.Equal(t, "plain", SafeAttributeValue("note", "plain", DefaultMaxLength))
}
