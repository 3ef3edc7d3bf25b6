package evidence

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"talentvault/internal/logger"
)

// Extractor mines free text and CRM records for quantifiable achievements.
// It is stateless apart from its logger and safe for concurrent use; all
// pattern tables are immutable package data.
type Extractor struct {
	log zerolog.Logger
}

// NewExtractor returns an Extractor logging through the global logger.
func NewExtractor() *Extractor {
	return &Extractor{log: logger.Logger.With().Str("component", "evidence_extractor").Logger()}
}

// WithLogger replaces the extractor's logger. Used by tests and consumers
// that carry a request-scoped logger.
func (e *Extractor) WithLogger(log zerolog.Logger) *Extractor {
	e.log = log
	return e
}

// ExtractFromTranscript scans an interview transcript sentence by sentence.
// Each pattern family contributes at most one Evidence per sentence (first
// matching pattern in the family wins); a sentence mentioning both AUM and a
// ranking therefore yields two Evidence items.
func (e *Extractor) ExtractFromTranscript(transcript string) []Evidence {
	if strings.TrimSpace(transcript) == "" {
		return nil
	}

	var out []Evidence
	for i, sentence := range splitSentences(transcript) {
		for _, family := range patternFamilies {
			for _, p := range family.Patterns {
				if p.MatchString(sentence) {
					out = append(out, Evidence{
						SourceType: SourceTranscript,
						SourceID:   fmt.Sprintf("transcript:%d:%s", i, family.Name),
						Text:       sentence,
						Confidence: family.Confidence,
					})
					break
				}
			}
		}
	}
	return out
}

// crmEvidenceFields is the fixed set of CRM fields promoted to evidence.
// CRM data is operator-entered and trusted unconditionally (confidence 1.0);
// whether it may back a published claim is decided later by the
// required-evidence rule, not here.
var crmEvidenceFields = []string{
	"firm",
	"aum",
	"production",
	"top_performance",
	"professional_designations",
	"interviewer_notes",
}

// ExtractFromCRM turns the known CRM fields of a candidate record into
// Evidence items with source_type crm_field.
func (e *Extractor) ExtractFromCRM(record map[string]string) []Evidence {
	var out []Evidence
	for _, field := range crmEvidenceFields {
		value := strings.TrimSpace(record[field])
		if value == "" {
			continue
		}
		out = append(out, Evidence{
			SourceType: SourceCRMField,
			SourceID:   "crm:" + field,
			Text:       fmt.Sprintf("%s: %s", field, value),
			Confidence: 1.0,
		})
	}
	return out
}

// ExtractFromNotes applies the transcript pattern families to recruiter
// notes. Notes share the family confidences but carry the weaker note
// source type, so they cannot satisfy the required-evidence rule.
func (e *Extractor) ExtractFromNotes(notes string) []Evidence {
	if strings.TrimSpace(notes) == "" {
		return nil
	}

	var out []Evidence
	for i, sentence := range splitSentences(notes) {
		for _, family := range patternFamilies {
			for _, p := range family.Patterns {
				if p.MatchString(sentence) {
					out = append(out, Evidence{
						SourceType: SourceNote,
						SourceID:   fmt.Sprintf("note:%d:%s", i, family.Name),
						Text:       sentence,
						Confidence: family.Confidence,
					})
					break
				}
			}
		}
	}
	return out
}

// CategorizeBullet classifies bullet text by running the category decision
// list in order; the first matching rule wins and unmatched text defaults to
// plain experience.
func (e *Extractor) CategorizeBullet(text string) BulletCategory {
	for _, rule := range categoryRules {
		if rule.Pattern.MatchString(text) {
			return rule.Category
		}
	}
	return CategoryExperience
}

// Source-type weights used by CalculateConfidence. Distinct from the
// per-evidence confidence: the weight says how much we trust the channel,
// the confidence says how sure the extraction itself was.
var sourceWeights = map[SourceType]float64{
	SourceCRMField:   1.0,
	SourceTranscript: 0.9,
	SourceNote:       0.7,
	SourceEmail:      0.6,
}

const (
	noEvidenceConfidence = 0.2
	multiEvidenceBoost   = 1.1
	shortBulletPenalty   = 0.8
	shortBulletWordMin   = 5
)

// CalculateConfidence scores a bullet from its linked evidence: a
// source-weighted average of evidence confidences, boosted 1.1x (capped at
// 1.0) when more than one item agrees, penalized 0.8x when the bullet text
// is under five words. No evidence at all scores a flat 0.2.
func (e *Extractor) CalculateConfidence(bulletText string, evidence []Evidence) float64 {
	if len(evidence) == 0 {
		return noEvidenceConfidence
	}

	var weighted, total float64
	for _, ev := range evidence {
		weight, ok := sourceWeights[ev.SourceType]
		if !ok {
			weight = sourceWeights[SourceEmail]
		}
		weighted += weight * ev.Confidence
		total += weight
	}
	confidence := weighted / total

	if len(evidence) > 1 {
		confidence *= multiEvidenceBoost
		if confidence > 1.0 {
			confidence = 1.0
		}
	}
	if len(strings.Fields(bulletText)) < shortBulletWordMin {
		confidence *= shortBulletPenalty
	}
	return confidence
}

const linkOverlapThreshold = 0.3

// LinkEvidenceToBullet returns the evidence items whose word overlap with
// the bullet exceeds the link threshold. The ratio is
// |intersection| / min(|bullet words|, |snippet words|) over lowercased
// tokens: a cheap set heuristic, not semantic similarity.
func (e *Extractor) LinkEvidenceToBullet(bulletText string, all []Evidence) []Evidence {
	bulletWords := tokenSet(bulletText)
	if len(bulletWords) == 0 {
		return nil
	}

	var linked []Evidence
	for _, ev := range all {
		snippetWords := tokenSet(ev.Text)
		if len(snippetWords) == 0 {
			continue
		}
		overlap := 0
		for w := range bulletWords {
			if snippetWords[w] {
				overlap++
			}
		}
		minSize := len(bulletWords)
		if len(snippetWords) < minSize {
			minSize = len(snippetWords)
		}
		if float64(overlap)/float64(minSize) > linkOverlapThreshold {
			linked = append(linked, ev)
		}
	}
	return linked
}

// tokenSet lowercases text and splits it into a set of alphanumeric tokens.
func tokenSet(text string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

const sentinelDecimal = "\x00"

// splitSentences breaks text on sentence punctuation while protecting
// decimal points inside dollar amounts ("$1.68B" must not split a
// sentence).
func splitSentences(text string) []string {
	masked := maskDecimals(text)

	var sentences []string
	var current strings.Builder
	for _, r := range masked {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, unmaskDecimals(s))
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, unmaskDecimals(s))
	}
	return sentences
}

func maskDecimals(text string) string {
	var b strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		if r == '.' && i > 0 && i+1 < len(runes) && isDigit(runes[i-1]) && isDigit(runes[i+1]) {
			b.WriteString(sentinelDecimal)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func unmaskDecimals(text string) string {
	return strings.ReplaceAll(text, sentinelDecimal, ".")
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
