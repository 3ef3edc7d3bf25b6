package intake

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"talentvault/internal/anonymizer"
	"talentvault/internal/config"
	"talentvault/internal/constants"
	"talentvault/internal/enrichment"
	"talentvault/internal/evidence"
	"talentvault/internal/logger"
	"talentvault/internal/storage"
	"talentvault/internal/storage/models"
	"talentvault/internal/tracing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Components aggregates the processor's functional dependencies so tests
// can swap them out.
type Components struct {
	Storage      *storage.Storage
	PDFExtractor *PDFTextExtractor
	Enricher     *enrichment.ApolloClient
	Anonymizer   *anonymizer.Anonymizer
	Extractor    *evidence.Extractor
}

// Settings carries pure configuration, no business components.
type Settings struct {
	CRMEventsExchange    string
	CandidateUpsertedKey string
	EmailIntakeQueue     string
	PrefetchCount        int
	MaxAttachmentBytes   int64
}

// SettingsFromConfig derives processor settings from the service config.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		CRMEventsExchange:    cfg.RabbitMQ.CRMEventsExchange,
		CandidateUpsertedKey: cfg.RabbitMQ.CandidateUpsertedKey,
		EmailIntakeQueue:     cfg.RabbitMQ.EmailIntakeQueue,
		PrefetchCount:        cfg.RabbitMQ.PrefetchCount,
		MaxAttachmentBytes:   cfg.Intake.MaxAttachmentBytes,
	}
}

// Processor is the consumer-side half of intake. It drains the email
// intake queue and runs each submission through parse, enrichment,
// anonymization, evidence bullets, and the vault upsert.
type Processor struct {
	c   Components
	s   Settings
	log zerolog.Logger
}

// NewProcessor wires the pipeline.
func NewProcessor(c Components, s Settings) *Processor {
	if s.PrefetchCount <= 0 {
		s.PrefetchCount = 10
	}
	if s.MaxAttachmentBytes <= 0 {
		s.MaxAttachmentBytes = 16 << 20
	}
	return &Processor{
		c:   c,
		s:   s,
		log: logger.Logger.With().Str("component", "intake_processor").Logger(),
	}
}

// Start registers the consumer on the email intake queue. Close the
// returned channel to stop it.
func (p *Processor) Start() (chan struct{}, error) {
	return p.c.Storage.RabbitMQ.StartConsumer(p.s.EmailIntakeQueue, p.s.PrefetchCount, p.HandleMessage)
}

// HandleMessage processes one queued intake message. A malformed message
// or a failed pipeline run is acked after the submission is marked FAILED:
// requeueing would only poison the queue, and the raw email stays archived
// for manual replay.
func (p *Processor) HandleMessage(body []byte) bool {
	var msg storage.EmailIntakeMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		p.log.Error().Err(err).Msg("unparseable intake message dropped")
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctx, span := intakeTracer.Start(ctx, "Processor.HandleMessage",
		trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(attribute.String("submission.uuid", msg.SubmissionUUID))

	if err := p.ProcessSubmission(ctx, &msg); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		p.log.Error().Err(err).
			Str("submission_uuid", msg.SubmissionUUID).
			Msg("intake processing failed")

		if dbErr := p.c.Storage.Postgres.MarkSubmissionFailed(ctx, msg.SubmissionUUID, err); dbErr != nil {
			p.log.Warn().Err(dbErr).Msg("marking submission failed errored")
		}
		// Free the dedup record so a corrected resend is not swallowed.
		if msg.RawEmailMD5 != "" && p.c.Storage.Redis != nil {
			if rbErr := p.c.Storage.Redis.RemoveRawEmailMD5(ctx, msg.RawEmailMD5); rbErr != nil {
				p.log.Warn().Err(rbErr).Msg("rolling back dedup record failed")
			}
		}
		return true
	}

	span.SetStatus(codes.Ok, "")
	return true
}

// ProcessSubmission runs the full pipeline for one archived email.
func (p *Processor) ProcessSubmission(ctx context.Context, msg *storage.EmailIntakeMessage) error {
	raw, err := p.c.Storage.MinIO.GetRawEmail(ctx, msg.RawEmailPathOSS)
	if err != nil {
		return fmt.Errorf("fetching archived email: %w", err)
	}

	var in InboundEmail
	if err := json.Unmarshal(raw, &in); err != nil {
		return fmt.Errorf("parsing archived email payload: %w", err)
	}

	parsed := ParseReferralEmail(in.TextBody)
	candidateData := parsed.Candidate

	// PDF attachments feed the experience text.
	if attachmentText := p.extractAttachments(ctx, &in); attachmentText != "" {
		if existing := candidateData["candidate_experience"]; existing != "" {
			candidateData["candidate_experience"] = existing + " " + attachmentText
		} else {
			candidateData["candidate_experience"] = attachmentText
		}
	}

	transcript := in.Transcript
	if transcript == "" {
		transcript = parsed.Transcript
	}
	if transcript != "" {
		trace.SpanFromContext(ctx).SetAttributes(
			attribute.String("intake.transcript_excerpt", tracing.SafeTranscriptExcerpt(transcript)))
	}

	if err := p.c.Storage.Postgres.UpdateSubmissionStatus(ctx, msg.SubmissionUUID, constants.StatusSubmissionParsed); err != nil {
		p.log.Warn().Err(err).Msg("updating submission status failed")
	}

	// Enrichment is best-effort; a failed lookup logs and moves on.
	var enrichmentJSON []byte
	if p.c.Enricher != nil && p.c.Enricher.Enabled() {
		contact, err := p.c.Enricher.Enrich(ctx, in.From)
		if err != nil {
			p.log.Warn().Err(err).Str("email", in.From).Msg("enrichment failed")
		} else if contact != nil {
			if candidateData["city"] == "" && contact.City != "" {
				candidateData["city"] = contact.City
			}
			if candidateData["state"] == "" && contact.State != "" {
				candidateData["state"] = contact.State
			}
			enrichmentJSON, _ = json.Marshal(contact)
		}
	}
	if err := p.c.Storage.Postgres.UpdateSubmissionStatus(ctx, msg.SubmissionUUID, constants.StatusSubmissionEnriched); err != nil {
		p.log.Warn().Err(err).Msg("updating submission status failed")
	}

	// Bullets mine the raw values; the stored profile is generalized.
	bullets := p.c.Extractor.GenerateBulletsWithEvidence(candidateData, transcript, parsed.Notes)

	profile := stripIdentity(candidateData)
	anonymized := p.c.Anonymizer.AnonymizeCandidate(profile)

	if err := p.c.Storage.Postgres.UpdateSubmissionStatus(ctx, msg.SubmissionUUID, constants.StatusSubmissionAnonymized); err != nil {
		p.log.Warn().Err(err).Msg("updating submission status failed")
	}

	candidateID, err := storage.NewCandidateID()
	if err != nil {
		return err
	}
	locator := LocatorForSubmission(msg.SubmissionUUID)

	transcriptPath := ""
	if transcript != "" {
		transcriptPath, err = p.c.Storage.MinIO.UploadTranscript(ctx, candidateID, transcript)
		if err != nil {
			return fmt.Errorf("archiving transcript: %w", err)
		}
	}

	anonymizedJSON, err := models.StringMapToJSON(anonymized)
	if err != nil {
		return fmt.Errorf("serializing anonymized profile: %w", err)
	}
	bulletsJSON, err := json.Marshal(bullets)
	if err != nil {
		return fmt.Errorf("serializing bullets: %w", err)
	}

	location := anonymized["city"]
	if st := anonymized["state"]; location != "" && st != "" {
		location += ", " + st
	}

	submissionUUID := msg.SubmissionUUID
	candidate := &models.VaultCandidate{
		CandidateID:          candidateID,
		Locator:              locator,
		Headline:             anonymized["headline"],
		FirmGeneralized:      anonymized["firm"],
		AUMRange:             anonymized["aum"],
		ProductionRange:      anonymized["production"],
		LocationGeneralized:  location,
		AnonymizedProfile:    anonymizedJSON,
		Bullets:              bulletsJSON,
		EnrichmentJSON:       enrichmentJSON,
		SourceSubmissionUUID: &submissionUUID,
		TranscriptPathOSS:    transcriptPath,
		Status:               constants.StatusCandidateActive,
	}

	if err := p.c.Storage.Postgres.UpsertCandidateWithOutbox(ctx, candidate,
		p.s.CRMEventsExchange, p.s.CandidateUpsertedKey); err != nil {
		return fmt.Errorf("vaulting candidate: %w", err)
	}

	if err := p.c.Storage.Postgres.AttachCandidateToSubmission(ctx, msg.SubmissionUUID,
		candidateID, constants.StatusSubmissionVaulted); err != nil {
		p.log.Warn().Err(err).Msg("attaching candidate to submission failed")
	}

	p.log.Info().
		Str("submission_uuid", msg.SubmissionUUID).
		Str("locator", locator).
		Int("bullets", len(bullets)).
		Msg("candidate vaulted")
	return nil
}

// extractAttachments decodes and parses PDF attachments, returning their
// concatenated text. Oversized or unreadable attachments are skipped.
func (p *Processor) extractAttachments(ctx context.Context, in *InboundEmail) string {
	if p.c.PDFExtractor == nil || len(in.Attachments) == 0 {
		return ""
	}

	var parts []string
	for _, att := range in.Attachments {
		if att.ContentType != constants.ContentTypePDF &&
			!strings.HasSuffix(strings.ToLower(att.Filename), ".pdf") {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(att.ContentBase64)
		if err != nil {
			p.log.Warn().Err(err).Str("filename", att.Filename).Msg("undecodable attachment skipped")
			continue
		}
		if int64(len(data)) > p.s.MaxAttachmentBytes {
			p.log.Warn().Str("filename", att.Filename).Int("bytes", len(data)).Msg("oversized attachment skipped")
			continue
		}
		text, err := p.c.PDFExtractor.ExtractTextFromBytes(ctx, data, att.Filename)
		if err != nil {
			p.log.Warn().Err(err).Str("filename", att.Filename).Msg("attachment extraction failed")
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// stripIdentity drops direct identifiers before the profile is stored.
// The locator stands in for the name everywhere downstream.
func stripIdentity(candidateData map[string]string) map[string]string {
	profile := make(map[string]string, len(candidateData))
	for k, v := range candidateData {
		switch k {
		case "candidate_name", "email", "phone":
			continue
		}
		profile[k] = v
	}
	return profile
}

// LocatorForSubmission derives the stable public locator slug for a
// submission, e.g. "TWAV-7f3a9c". Reprocessing the same submission yields
// the same locator, which is what makes the vault upsert idempotent.
func LocatorForSubmission(submissionUUID string) string {
	sum := md5.Sum([]byte(submissionUUID))
	return constants.LocatorPrefix + hex.EncodeToString(sum[:3])
}
