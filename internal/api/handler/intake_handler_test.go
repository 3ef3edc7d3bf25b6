package handler

import (
	"encoding/json"
	"testing"

	"talentvault/internal/intake"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseFromResult(t *testing.T) {
	t.Run("fresh submission", func(t *testing.T) {
		resp := responseFromResult(&intake.SubmitResult{SubmissionUUID: "abc"})
		assert.Equal(t, "abc", resp.SubmissionUUID)
		assert.Equal(t, "QUEUED", resp.Status)
		assert.False(t, resp.Duplicate)
	})

	t.Run("duplicate carries the flag on the wire", func(t *testing.T) {
		resp := responseFromResult(&intake.SubmitResult{
			SubmissionUUID: "original-uuid",
			Duplicate:      true,
		})
		assert.Equal(t, "DUPLICATE", resp.Status)
		assert.True(t, resp.Duplicate)

		// Senders key off the JSON field, not the status label.
		body, err := json.Marshal(resp)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"submission_uuid": "original-uuid",
			"status": "DUPLICATE",
			"duplicate": true
		}`, string(body))
	})
}
