package evidence

import "time"

// SourceType identifies where a piece of evidence was mined from.
type SourceType string

const (
	SourceTranscript SourceType = "transcript"
	SourceCRMField   SourceType = "crm_field"
	SourceEmail      SourceType = "email"
	SourceNote       SourceType = "note"
)

// Evidence is a text snippet plus metadata backing a claim in a generated
// bullet point. Created once during extraction and never mutated; each
// BulletPoint owns its own copies.
type Evidence struct {
	SourceType SourceType `json:"source_type"`
	SourceID   string     `json:"source_id"`
	Text       string     `json:"text"`
	Confidence float64    `json:"confidence"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

// BulletCategory classifies a digest bullet. The category decides whether
// the bullet needs transcript-backed evidence to be publishable.
type BulletCategory string

const (
	CategoryGrowthAchievement  BulletCategory = "growth_achievement"
	CategoryPerformanceRanking BulletCategory = "performance_ranking"
	CategoryClientMetric       BulletCategory = "client_metric"
	CategoryFinancialMetric    BulletCategory = "financial_metric"
	CategoryLicense            BulletCategory = "license_certification"
	CategoryCompensation       BulletCategory = "compensation"
	CategoryAvailability       BulletCategory = "availability"
	CategoryMobility           BulletCategory = "mobility"
	CategoryEducation          BulletCategory = "education"
	CategoryExperience         BulletCategory = "experience"
)

// requiredEvidenceCategories lists the categories whose bullets are dropped
// unless at least one linked Evidence came from a transcript. Quantified
// claims never go out on the strength of CRM hearsay alone.
var requiredEvidenceCategories = map[BulletCategory]bool{
	CategoryFinancialMetric:    true,
	CategoryGrowthAchievement:  true,
	CategoryPerformanceRanking: true,
	CategoryClientMetric:       true,
}

// RequiresEvidence reports whether bullets in this category must carry
// transcript-backed evidence.
func (c BulletCategory) RequiresEvidence() bool {
	return requiredEvidenceCategories[c]
}

// BulletPoint is one candidate digest line with its supporting evidence.
type BulletPoint struct {
	Text             string         `json:"text"`
	Category         BulletCategory `json:"category"`
	Evidence         []Evidence     `json:"evidence,omitempty"`
	ConfidenceScore  float64        `json:"confidence_score"`
	RequiredEvidence bool           `json:"required_evidence"`
}

// HasValidEvidence reports whether the bullet may be published. Bullets in a
// required-evidence category need at least one transcript-sourced Evidence;
// all other bullets are always valid.
func (b *BulletPoint) HasValidEvidence() bool {
	if !b.RequiredEvidence {
		return true
	}
	for _, ev := range b.Evidence {
		if ev.SourceType == SourceTranscript {
			return true
		}
	}
	return false
}
