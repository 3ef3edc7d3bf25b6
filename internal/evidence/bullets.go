package evidence

import (
	"sort"
	"strings"
)

// maxTranscriptAchievements caps how many raw transcript snippets are
// promoted into standalone bullets.
const maxTranscriptAchievements = 5

// GenerateBulletsWithEvidence assembles the digest bullets for one
// candidate. It pools evidence from the CRM record, the interview
// transcript, and recruiter notes, builds candidate bullet strings from the
// structured fields plus up to five transcript achievement snippets,
// categorizes and scores each, and drops any bullet in a required-evidence
// category that lacks transcript backing. The result is sorted by
// confidence, highest first.
//
// Missing inputs only shrink the evidence pool; the call never fails.
func (e *Extractor) GenerateBulletsWithEvidence(candidateData map[string]string, transcript, notes string) []BulletPoint {
	pool := e.ExtractFromCRM(candidateData)
	transcriptEvidence := e.ExtractFromTranscript(transcript)
	pool = append(pool, transcriptEvidence...)
	pool = append(pool, e.ExtractFromNotes(notes)...)

	candidates := e.candidateBulletTexts(candidateData, transcriptEvidence)

	bullets := make([]BulletPoint, 0, len(candidates))
	for _, text := range candidates {
		category := e.CategorizeBullet(text)
		linked := e.LinkEvidenceToBullet(text, pool)
		bullet := BulletPoint{
			Text:             text,
			Category:         category,
			Evidence:         linked,
			RequiredEvidence: category.RequiresEvidence(),
		}
		bullet.ConfidenceScore = e.CalculateConfidence(text, linked)

		if !bullet.HasValidEvidence() {
			// Precision over completeness: a quantified claim without a
			// transcript behind it does not go into a digest.
			e.log.Debug().
				Str("category", string(category)).
				Str("bullet", text).
				Msg("dropping bullet without transcript evidence")
			continue
		}
		bullets = append(bullets, bullet)
	}

	sort.SliceStable(bullets, func(i, j int) bool {
		return bullets[i].ConfidenceScore > bullets[j].ConfidenceScore
	})
	return bullets
}

// candidateBulletTexts renders bullet strings from structured CRM fields and
// appends up to maxTranscriptAchievements achievement snippets mined from
// the transcript.
func (e *Extractor) candidateBulletTexts(candidateData map[string]string, transcriptEvidence []Evidence) []string {
	var texts []string
	seen := make(map[string]bool)
	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			return
		}
		seen[t] = true
		texts = append(texts, t)
	}

	if v := strings.TrimSpace(candidateData["headline"]); v != "" {
		add(v)
	}
	if v := strings.TrimSpace(candidateData["aum"]); v != "" {
		add("Manages " + v + " in client assets")
	}
	if v := strings.TrimSpace(candidateData["production"]); v != "" {
		add("Generating " + v + " in annual production")
	}
	if v := strings.TrimSpace(candidateData["top_performance"]); v != "" {
		add(v)
	}
	if v := strings.TrimSpace(candidateData["professional_designations"]); v != "" {
		add("Holds " + v)
	}
	if v := strings.TrimSpace(candidateData["candidate_experience"]); v != "" {
		add(v)
	}

	promoted := 0
	for _, ev := range transcriptEvidence {
		if promoted >= maxTranscriptAchievements {
			break
		}
		if !isAchievementEvidence(ev) {
			continue
		}
		add(strings.TrimSuffix(strings.TrimSpace(ev.Text), "."))
		promoted++
	}
	return texts
}

// isAchievementEvidence reports whether a transcript Evidence belongs to a
// family worth promoting to standalone bullet text.
func isAchievementEvidence(ev Evidence) bool {
	idx := strings.LastIndex(ev.SourceID, ":")
	if idx < 0 {
		return false
	}
	return achievementFamilies[ev.SourceID[idx+1:]]
}
