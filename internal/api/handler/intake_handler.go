package handler

import (
	"context"
	"fmt"

	"talentvault/internal/config"
	"talentvault/internal/intake"
	"talentvault/internal/storage"
)

// IntakeHandler fronts the email intake webhook.
type IntakeHandler struct {
	cfg     *config.Config
	storage *storage.Storage
	service *intake.Service
}

// NewIntakeHandler wires the webhook handler.
func NewIntakeHandler(cfg *config.Config, store *storage.Storage, service *intake.Service) *IntakeHandler {
	return &IntakeHandler{
		cfg:     cfg,
		storage: store,
		service: service,
	}
}

// EmailWebhookResponse is the webhook's reply. Duplicates still answer with
// the submission UUID of the original so the sender can correlate.
type EmailWebhookResponse struct {
	SubmissionUUID string `json:"submission_uuid"`
	Status         string `json:"status"`
	Duplicate      bool   `json:"duplicate"`
}

// HandleEmailWebhook validates and submits one inbound email.
func (h *IntakeHandler) HandleEmailWebhook(ctx context.Context, in *intake.InboundEmail) (*EmailWebhookResponse, error) {
	if in == nil {
		return nil, fmt.Errorf("empty webhook payload")
	}
	if in.From == "" {
		return nil, fmt.Errorf("missing sender address")
	}

	result, err := h.service.SubmitEmail(ctx, in)
	if err != nil {
		return nil, err
	}
	return responseFromResult(result), nil
}

func responseFromResult(result *intake.SubmitResult) *EmailWebhookResponse {
	status := "QUEUED"
	if result.Duplicate {
		status = "DUPLICATE"
	}
	return &EmailWebhookResponse{
		SubmissionUUID: result.SubmissionUUID,
		Status:         status,
		Duplicate:      result.Duplicate,
	}
}
