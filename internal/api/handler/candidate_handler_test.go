package handler_test

import (
	"context"
	"testing"

	"talentvault/internal/anonymizer"
	"talentvault/internal/api/handler"
	"talentvault/internal/evidence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCandidateHandler() *handler.CandidateHandler {
	return handler.NewCandidateHandler(nil, anonymizer.New(), evidence.NewExtractor())
}

func TestAnonymizePreview(t *testing.T) {
	h := newCandidateHandler()

	resp, err := h.AnonymizePreview(context.Background(), &handler.AnonymizeRequest{
		Candidate: map[string]string{
			"firm": "Morgan Stanley",
			"aum":  "$1.68B",
			"city": "Frisco",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "a leading national wirehouse", resp.Anonymized["firm"])
	assert.Equal(t, "$1.5B-$2B range", resp.Anonymized["aum"])
	assert.Equal(t, "Dallas/Fort Worth", resp.Anonymized["city"])
}

func TestAnonymizePreviewEmptyRecord(t *testing.T) {
	h := newCandidateHandler()

	_, err := h.AnonymizePreview(context.Background(), &handler.AnonymizeRequest{})
	assert.Error(t, err)
}

func TestBulletsPreview(t *testing.T) {
	h := newCandidateHandler()

	resp, err := h.BulletsPreview(context.Background(), &handler.BulletsRequest{
		Candidate:  map[string]string{"aum": "$1.68B"},
		Transcript: "I manage about $1.68B for around 200 families.",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Bullets)

	// Sorted by confidence, highest first.
	for i := 1; i < len(resp.Bullets); i++ {
		assert.GreaterOrEqual(t, resp.Bullets[i-1].ConfidenceScore, resp.Bullets[i].ConfidenceScore)
	}
}

func TestBulletsPreviewNothingToMine(t *testing.T) {
	h := newCandidateHandler()

	_, err := h.BulletsPreview(context.Background(), &handler.BulletsRequest{})
	assert.Error(t, err)
}
