package intake

import (
	"context"
	"strings"
	"testing"

	"talentvault/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProcessorDefaults(t *testing.T) {
	p := NewProcessor(Components{}, Settings{})
	assert.Equal(t, 10, p.s.PrefetchCount)
	assert.Equal(t, int64(16<<20), p.s.MaxAttachmentBytes)
}

func TestHandleMessageMalformedBodyIsAcked(t *testing.T) {
	p := NewProcessor(Components{}, Settings{})
	// A body that can never be reprocessed must not be requeued.
	assert.True(t, p.HandleMessage([]byte("not json")))
}

func TestLocatorForSubmissionStable(t *testing.T) {
	a := LocatorForSubmission("0191e3a4-0000-7000-8000-000000000001")
	b := LocatorForSubmission("0191e3a4-0000-7000-8000-000000000001")
	c := LocatorForSubmission("0191e3a4-0000-7000-8000-000000000002")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	require.True(t, strings.HasPrefix(a, constants.LocatorPrefix))
	assert.Len(t, a, len(constants.LocatorPrefix)+6)
}

func TestStripIdentity(t *testing.T) {
	in := map[string]string{
		"candidate_name": "Jordan Blake",
		"email":          "jordan@example.com",
		"phone":          "555-0100",
		"firm":           "Merrill Lynch",
		"aum":            "$1.68B",
	}

	out := stripIdentity(in)

	assert.NotContains(t, out, "candidate_name")
	assert.NotContains(t, out, "email")
	assert.NotContains(t, out, "phone")
	assert.Equal(t, "Merrill Lynch", out["firm"])
	assert.Equal(t, "$1.68B", out["aum"])
	// Input untouched.
	assert.Equal(t, "Jordan Blake", in["candidate_name"])
}

func TestExtractAttachmentsWithoutExtractor(t *testing.T) {
	p := NewProcessor(Components{}, Settings{})
	in := &InboundEmail{Attachments: []InboundAttachment{
		{Filename: "resume.pdf", ContentType: constants.ContentTypePDF, ContentBase64: "aGVsbG8="},
	}}
	assert.Empty(t, p.extractAttachments(context.Background(), in))
}

func TestExtractAttachmentsSkipsNonPDF(t *testing.T) {
	p := NewProcessor(Components{PDFExtractor: &PDFTextExtractor{}}, Settings{})
	in := &InboundEmail{Attachments: []InboundAttachment{
		{Filename: "photo.png", ContentType: "image/png", ContentBase64: "aGVsbG8="},
	}}
	// Non-PDF attachments never reach the parser.
	assert.Empty(t, p.extractAttachments(context.Background(), in))
}
