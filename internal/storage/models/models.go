package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// VaultCandidate is the anonymized advisor profile stored in the vault. The
// row never carries the candidate's name, firm, or exact figures; those live
// only in the raw submission archive.
type VaultCandidate struct {
	CandidateID string `gorm:"type:char(36);primaryKey"`
	// Locator is the public slug used in digests, e.g. "TWAV-7f3a9c".
	Locator  string `gorm:"type:varchar(20);not null;uniqueIndex:idx_vc_locator_unique"`
	Headline string `gorm:"type:text"`
	// Generalized fields produced by the anonymizer.
	FirmGeneralized     string `gorm:"type:varchar(255)"`
	AUMRange            string `gorm:"type:varchar(50)"`
	ProductionRange     string `gorm:"type:varchar(50)"`
	LocationGeneralized string `gorm:"type:varchar(255)"`
	// AnonymizedProfile holds the full generalized record as produced by the
	// anonymizer, key for key.
	AnonymizedProfile datatypes.JSON `gorm:"type:jsonb"`
	// Bullets holds the evidence-backed digest bullets, sorted by confidence.
	Bullets        datatypes.JSON `gorm:"type:jsonb"`
	EnrichmentJSON datatypes.JSON `gorm:"type:jsonb"`
	// SourceSubmissionUUID links back to the intake submission that produced
	// this profile.
	SourceSubmissionUUID *string   `gorm:"type:char(36);index:idx_vc_source_submission"`
	TranscriptPathOSS    string    `gorm:"type:varchar(1024)"`
	Status               string    `gorm:"type:varchar(50);default:'ACTIVE';index:idx_vc_status"`
	CreatedAt            time.Time `gorm:"type:timestamptz;default:CURRENT_TIMESTAMP"`
	UpdatedAt            time.Time `gorm:"type:timestamptz;default:CURRENT_TIMESTAMP;autoUpdateTime"`
}

func (VaultCandidate) TableName() string {
	return "vault_candidates"
}

// IntakeSubmission records one referral email as it moves through the
// pipeline. The raw email body is archived in object storage, not here.
type IntakeSubmission struct {
	SubmissionUUID  string    `gorm:"type:char(36);primaryKey"`
	ReceivedAt      time.Time `gorm:"type:timestamptz;default:CURRENT_TIMESTAMP;index:idx_is_received_at"`
	SourceChannel   string    `gorm:"type:varchar(100)"`
	FromEmail       string    `gorm:"type:varchar(255)"`
	Subject         string    `gorm:"type:varchar(998)"`
	RawEmailPathOSS string    `gorm:"type:varchar(1024)"`
	RawEmailMD5     string    `gorm:"type:char(32);index:idx_is_raw_email_md5"`
	AttachmentCount int       `gorm:"default:0"`
	// CandidateID is set once the submission produces a vault profile.
	CandidateID      *string   `gorm:"type:char(36);index:idx_is_candidate_id"`
	ProcessingStatus string    `gorm:"type:varchar(50);default:'RECEIVED';index:idx_is_processing_status"`
	ErrorMessage     string    `gorm:"type:text"`
	CreatedAt        time.Time `gorm:"type:timestamptz;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time `gorm:"type:timestamptz;default:CURRENT_TIMESTAMP;autoUpdateTime"`

	Candidate *VaultCandidate `gorm:"foreignKey:CandidateID;references:CandidateID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (IntakeSubmission) TableName() string {
	return "intake_submissions"
}

// DigestLog records each assembled digest and the locators it featured.
type DigestLog struct {
	DigestID          uint64         `gorm:"primaryKey;autoIncrement"`
	Title             string         `gorm:"type:varchar(255);not null"`
	ItemCount         int            `gorm:"not null"`
	CandidateLocators datatypes.JSON `gorm:"type:jsonb"`
	RenderedPathOSS   string         `gorm:"type:varchar(1024)"`
	GeneratedAt       time.Time      `gorm:"type:timestamptz;default:CURRENT_TIMESTAMP;index:idx_dl_generated_at"`
}

func (DigestLog) TableName() string {
	return "digest_logs"
}

// StringToJSON converts a raw JSON string to datatypes.JSON.
func StringToJSON(s string) datatypes.JSON {
	return datatypes.JSON(s)
}

// MapToJSON converts a map to datatypes.JSON.
func MapToJSON(m map[string]interface{}) (datatypes.JSON, error) {
	bytes, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}

// StringMapToJSON converts a string map to datatypes.JSON.
func StringMapToJSON(m map[string]string) (datatypes.JSON, error) {
	bytes, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}
