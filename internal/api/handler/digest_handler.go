package handler

import (
	"context"

	"talentvault/internal/digest"
)

// DigestHandler serves digest previews and issues.
type DigestHandler struct {
	builder *digest.Builder
}

// NewDigestHandler wires the digest endpoints.
func NewDigestHandler(builder *digest.Builder) *DigestHandler {
	return &DigestHandler{builder: builder}
}

// DigestRequest bounds how many candidates a digest includes. Zero falls
// back to the configured maximum.
type DigestRequest struct {
	Limit int `json:"limit,omitempty"`
}

// Preview renders a digest without recording a send.
func (h *DigestHandler) Preview(ctx context.Context, req *DigestRequest) (*digest.Digest, error) {
	limit := 0
	if req != nil {
		limit = req.Limit
	}
	return h.builder.BuildDigest(ctx, limit)
}

// Issue renders a digest, logs it, and queues the digest.issued event.
func (h *DigestHandler) Issue(ctx context.Context, req *DigestRequest) (*digest.Digest, error) {
	limit := 0
	if req != nil {
		limit = req.Limit
	}
	return h.builder.IssueDigest(ctx, limit)
}
