package storage

import "time"

// EmailIntakeMessage is enqueued by the intake webhook after the raw email
// is archived; the intake consumer drives the rest of the pipeline from it.
type EmailIntakeMessage struct {
	SubmissionUUID  string    `json:"submission_uuid"`
	ReceivedAt      time.Time `json:"received_at"`
	SourceChannel   string    `json:"source_channel,omitempty"`
	FromEmail       string    `json:"from_email"`
	Subject         string    `json:"subject,omitempty"`
	RawEmailPathOSS string    `json:"raw_email_path_oss"`
	// RawEmailMD5 lets a failed consumer roll the dedup record back.
	RawEmailMD5     string `json:"raw_email_md5,omitempty"`
	AttachmentCount int    `json:"attachment_count,omitempty"`
}

// CandidateUpsertedEvent is the outbox payload published to the CRM events
// exchange when a vault profile is created or refreshed.
type CandidateUpsertedEvent struct {
	CandidateID    string    `json:"candidate_id"`
	Locator        string    `json:"locator"`
	SubmissionUUID string    `json:"submission_uuid,omitempty"`
	Headline       string    `json:"headline,omitempty"`
	AUMRange       string    `json:"aum_range,omitempty"`
	BulletCount    int       `json:"bullet_count"`
	UpsertedAt     time.Time `json:"upserted_at"`
}

// DigestIssuedEvent is the outbox payload published when a digest is
// assembled.
type DigestIssuedEvent struct {
	DigestID    uint64    `json:"digest_id"`
	Title       string    `json:"title"`
	ItemCount   int       `json:"item_count"`
	Locators    []string  `json:"locators"`
	GeneratedAt time.Time `json:"generated_at"`
}
