package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"talentvault/internal/config"
	"talentvault/internal/constants"
	"talentvault/internal/logger"
	"talentvault/internal/storage"
	"talentvault/internal/storage/models"
	"talentvault/internal/tracing"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrDuplicateSubmission marks a raw email whose MD5 was seen before.
var ErrDuplicateSubmission = errors.New("duplicate submission")

var intakeTracer = otel.Tracer("talentvault/intake")

// InboundAttachment is one base64-encoded email attachment.
type InboundAttachment struct {
	Filename      string `json:"filename"`
	ContentType   string `json:"content_type"`
	ContentBase64 string `json:"content_base64"`
}

// InboundEmail is the webhook payload for one referral email.
type InboundEmail struct {
	MessageID     string              `json:"message_id"`
	From          string              `json:"from"`
	To            string              `json:"to"`
	Subject       string              `json:"subject"`
	TextBody      string              `json:"text_body"`
	SourceChannel string              `json:"source_channel,omitempty"`
	Transcript    string              `json:"transcript,omitempty"`
	Attachments   []InboundAttachment `json:"attachments,omitempty"`
}

// SubmitResult is what the webhook returns to the sender.
type SubmitResult struct {
	SubmissionUUID string `json:"submission_uuid"`
	Duplicate      bool   `json:"duplicate"`
}

// Service is the webhook-side half of intake: archive, dedup, enqueue. The
// consumer-side Processor picks up from the queue.
type Service struct {
	store *storage.Storage
	cfg   *config.Config
	log   zerolog.Logger
}

// NewService builds the intake service.
func NewService(store *storage.Storage, cfg *config.Config) *Service {
	return &Service{
		store: store,
		cfg:   cfg,
		log:   logger.Logger.With().Str("component", "intake_service").Logger(),
	}
}

// SubmitEmail archives the raw payload, records the submission, and
// enqueues it for processing. A duplicate body returns the original
// submission UUID with Duplicate set; the caller still answers 200.
func (s *Service) SubmitEmail(ctx context.Context, in *InboundEmail) (*SubmitResult, error) {
	ctx, span := intakeTracer.Start(ctx, "Service.SubmitEmail",
		trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	if in == nil || (in.TextBody == "" && len(in.Attachments) == 0) {
		err := fmt.Errorf("inbound email has no body and no attachments")
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, err
	}

	newUUID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating submission UUID: %w", err)
	}
	submissionUUID := newUUID.String()
	span.SetAttributes(attribute.String("submission.uuid", submissionUUID))

	raw, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("serializing raw email: %w", err)
	}

	objectKey, md5Hex, err := s.store.MinIO.UploadRawEmailStreaming(ctx, submissionUUID,
		bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeObjectStor)
		return nil, fmt.Errorf("archiving raw email: %w", err)
	}

	// Dedup is best-effort: a Redis outage degrades to "not duplicate"
	// rather than refusing intake.
	if s.store.Redis != nil {
		exists, existingUUID, dedupErr := s.store.Redis.CheckAndAddRawEmailMD5(ctx, md5Hex, submissionUUID)
		if dedupErr != nil {
			s.log.Warn().Err(dedupErr).Msg("dedup check failed, continuing without it")
		} else if exists {
			span.SetAttributes(attribute.Bool("submission.duplicate", true))
			s.log.Info().
				Str("submission_uuid", submissionUUID).
				Str("original_submission", existingUUID).
				Msg("duplicate email submission")

			if s.store.Postgres != nil {
				dup := &models.IntakeSubmission{
					SubmissionUUID:   submissionUUID,
					ReceivedAt:       time.Now().UTC(),
					SourceChannel:    in.SourceChannel,
					FromEmail:        in.From,
					Subject:          in.Subject,
					RawEmailPathOSS:  objectKey,
					RawEmailMD5:      md5Hex,
					AttachmentCount:  len(in.Attachments),
					ProcessingStatus: constants.StatusSubmissionDuplicate,
				}
				if err := s.store.Postgres.CreateIntakeSubmission(ctx, dup); err != nil {
					s.log.Warn().Err(err).Msg("recording duplicate submission failed")
				}
			}

			result := &SubmitResult{SubmissionUUID: submissionUUID, Duplicate: true}
			if existingUUID != "" {
				result.SubmissionUUID = existingUUID
			}
			return result, nil
		}
	}

	submission := &models.IntakeSubmission{
		SubmissionUUID:   submissionUUID,
		ReceivedAt:       time.Now().UTC(),
		SourceChannel:    in.SourceChannel,
		FromEmail:        in.From,
		Subject:          in.Subject,
		RawEmailPathOSS:  objectKey,
		RawEmailMD5:      md5Hex,
		AttachmentCount:  len(in.Attachments),
		ProcessingStatus: constants.StatusSubmissionUploaded,
	}
	if err := s.store.Postgres.CreateIntakeSubmission(ctx, submission); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, fmt.Errorf("recording intake submission: %w", err)
	}

	msg := storage.EmailIntakeMessage{
		SubmissionUUID:  submissionUUID,
		ReceivedAt:      submission.ReceivedAt,
		SourceChannel:   in.SourceChannel,
		FromEmail:       in.From,
		Subject:         in.Subject,
		RawEmailPathOSS: objectKey,
		RawEmailMD5:     md5Hex,
		AttachmentCount: len(in.Attachments),
	}
	if err := s.store.RabbitMQ.PublishJSON(ctx,
		s.cfg.RabbitMQ.IntakeEventsExchange, s.cfg.RabbitMQ.EmailReceivedKey,
		msg, true); err != nil {
		// Roll the dedup record back so the sender can retry cleanly.
		if s.store.Redis != nil {
			if rbErr := s.store.Redis.RemoveRawEmailMD5(ctx, md5Hex); rbErr != nil {
				s.log.Warn().Err(rbErr).Msg("rolling back dedup record failed")
			}
		}
		if dbErr := s.store.Postgres.MarkSubmissionFailed(ctx, submissionUUID, err); dbErr != nil {
			s.log.Warn().Err(dbErr).Msg("marking submission failed errored")
		}
		tracing.RecordError(span, err, tracing.ErrorTypeRabbitMQ)
		return nil, fmt.Errorf("enqueueing intake message: %w", err)
	}

	if err := s.store.Postgres.UpdateSubmissionStatus(ctx, submissionUUID, constants.StatusSubmissionQueued); err != nil {
		s.log.Warn().Err(err).Msg("updating submission status failed")
	}

	span.SetStatus(codes.Ok, "")
	return &SubmitResult{SubmissionUUID: submissionUUID}, nil
}
