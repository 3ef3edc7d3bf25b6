package constants

// Intake submission statuses, recorded on IntakeSubmission rows as the
// pipeline advances.
const (
	StatusSubmissionReceived   = "RECEIVED"
	StatusSubmissionUploaded   = "RAW_UPLOADED"
	StatusSubmissionQueued     = "QUEUED"
	StatusSubmissionParsed     = "PARSED"
	StatusSubmissionEnriched   = "ENRICHED"
	StatusSubmissionAnonymized = "ANONYMIZED"
	StatusSubmissionVaulted    = "VAULTED"
	StatusSubmissionDuplicate  = "DUPLICATE"
	StatusSubmissionFailed     = "FAILED"
)

// Outbox message statuses.
const (
	StatusOutboxPending    = "PENDING"
	StatusOutboxProcessing = "PROCESSING"
	StatusOutboxProcessed  = "PROCESSED"
	StatusOutboxFailed     = "FAILED"
)

// Outbox event types published to the CRM events exchange.
const (
	EventCandidateUpserted = "candidate.upserted"
	EventDigestIssued      = "digest.issued"
)

// Vault candidate statuses.
const (
	StatusCandidateActive    = "ACTIVE"
	StatusCandidatePlaced    = "PLACED"
	StatusCandidateWithdrawn = "WITHDRAWN"
)

// Attachment content types the intake parser understands.
const (
	ContentTypePDF   = "application/pdf"
	ContentTypeText  = "text/plain"
	ContentTypeEmail = "message/rfc822"
)

// LocatorPrefix is the stable prefix of every vault locator slug,
// e.g. "TWAV-7f3a9c".
const LocatorPrefix = "TWAV-"
