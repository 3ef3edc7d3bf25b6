package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"talentvault/internal/anonymizer"
	"talentvault/internal/evidence"
	"talentvault/internal/storage"
)

// CandidateHandler serves vault lookups and the stateless anonymization and
// bullet-generation previews recruiters use before submitting.
type CandidateHandler struct {
	storage *storage.Storage
	anon    *anonymizer.Anonymizer
	extr    *evidence.Extractor
}

// NewCandidateHandler wires the candidate endpoints.
func NewCandidateHandler(store *storage.Storage, anon *anonymizer.Anonymizer, extr *evidence.Extractor) *CandidateHandler {
	return &CandidateHandler{
		storage: store,
		anon:    anon,
		extr:    extr,
	}
}

// CandidateResponse is the anonymized vault view of one candidate. Raw
// submission data never appears here.
type CandidateResponse struct {
	Locator             string                 `json:"locator"`
	Headline            string                 `json:"headline,omitempty"`
	FirmGeneralized     string                 `json:"firm_generalized,omitempty"`
	AUMRange            string                 `json:"aum_range,omitempty"`
	ProductionRange     string                 `json:"production_range,omitempty"`
	LocationGeneralized string                 `json:"location_generalized,omitempty"`
	Profile             map[string]string      `json:"profile,omitempty"`
	Bullets             []evidence.BulletPoint `json:"bullets,omitempty"`
	Status              string                 `json:"status"`
	UpdatedAt           string                 `json:"updated_at"`
}

// GetByLocator fetches one vaulted candidate.
func (h *CandidateHandler) GetByLocator(ctx context.Context, locator string) (*CandidateResponse, error) {
	if locator == "" {
		return nil, fmt.Errorf("missing locator")
	}

	c, err := h.storage.Postgres.GetCandidateByLocator(ctx, locator)
	if err != nil {
		return nil, err
	}

	resp := &CandidateResponse{
		Locator:             c.Locator,
		Headline:            c.Headline,
		FirmGeneralized:     c.FirmGeneralized,
		AUMRange:            c.AUMRange,
		ProductionRange:     c.ProductionRange,
		LocationGeneralized: c.LocationGeneralized,
		Status:              c.Status,
		UpdatedAt:           c.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if len(c.AnonymizedProfile) > 0 {
		if err := json.Unmarshal(c.AnonymizedProfile, &resp.Profile); err != nil {
			return nil, fmt.Errorf("stored profile unreadable: %w", err)
		}
	}
	if len(c.Bullets) > 0 {
		if err := json.Unmarshal(c.Bullets, &resp.Bullets); err != nil {
			return nil, fmt.Errorf("stored bullets unreadable: %w", err)
		}
	}
	return resp, nil
}

// AnonymizeRequest is a raw candidate record for the preview endpoint.
type AnonymizeRequest struct {
	Candidate map[string]string `json:"candidate"`
}

// AnonymizeResponse holds the generalized record.
type AnonymizeResponse struct {
	Anonymized map[string]string `json:"anonymized"`
}

// AnonymizePreview generalizes a record without storing anything.
func (h *CandidateHandler) AnonymizePreview(_ context.Context, req *AnonymizeRequest) (*AnonymizeResponse, error) {
	if req == nil || len(req.Candidate) == 0 {
		return nil, fmt.Errorf("empty candidate record")
	}
	return &AnonymizeResponse{Anonymized: h.anon.AnonymizeCandidate(req.Candidate)}, nil
}

// BulletsRequest carries the raw material for bullet generation.
type BulletsRequest struct {
	Candidate  map[string]string `json:"candidate"`
	Transcript string            `json:"transcript,omitempty"`
	Notes      string            `json:"notes,omitempty"`
}

// BulletsResponse holds the generated bullets, sorted by confidence.
type BulletsResponse struct {
	Bullets []evidence.BulletPoint `json:"bullets"`
}

// BulletsPreview mines bullets from a record without storing anything.
func (h *CandidateHandler) BulletsPreview(_ context.Context, req *BulletsRequest) (*BulletsResponse, error) {
	if req == nil || (len(req.Candidate) == 0 && req.Transcript == "" && req.Notes == "") {
		return nil, fmt.Errorf("nothing to mine")
	}
	candidate := req.Candidate
	if candidate == nil {
		candidate = map[string]string{}
	}
	return &BulletsResponse{Bullets: h.extr.GenerateBulletsWithEvidence(candidate, req.Transcript, req.Notes)}, nil
}
