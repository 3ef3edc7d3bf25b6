package evidence

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasValidEvidence(t *testing.T) {
	transcriptEv := Evidence{SourceType: SourceTranscript, Confidence: 0.95}
	crmEv := Evidence{SourceType: SourceCRMField, Confidence: 1.0}

	t.Run("required category needs transcript backing", func(t *testing.T) {
		b := BulletPoint{Category: CategoryFinancialMetric, RequiredEvidence: true, Evidence: []Evidence{crmEv}}
		assert.False(t, b.HasValidEvidence())

		b.Evidence = append(b.Evidence, transcriptEv)
		assert.True(t, b.HasValidEvidence())
	})

	t.Run("non required category always valid", func(t *testing.T) {
		b := BulletPoint{Category: CategoryExperience}
		assert.True(t, b.HasValidEvidence())
	})

	for _, cat := range []BulletCategory{
		CategoryFinancialMetric, CategoryGrowthAchievement,
		CategoryPerformanceRanking, CategoryClientMetric,
	} {
		assert.True(t, cat.RequiresEvidence(), "category %s", cat)
	}
	for _, cat := range []BulletCategory{
		CategoryLicense, CategoryCompensation, CategoryAvailability,
		CategoryMobility, CategoryEducation, CategoryExperience,
	} {
		assert.False(t, cat.RequiresEvidence(), "category %s", cat)
	}
}

func TestGenerateBulletsDropsUnbackedClaims(t *testing.T) {
	e := NewExtractor()

	// AUM comes from the CRM only; no transcript confirms it. The financial
	// bullet must be dropped, the experience bullet survives.
	bullets := e.GenerateBulletsWithEvidence(map[string]string{
		"aum":      "$1.68B",
		"headline": "Veteran advisor leading a multigenerational planning practice",
	}, "", "")

	require.Len(t, bullets, 1)
	assert.Equal(t, CategoryExperience, bullets[0].Category)
	for _, b := range bullets {
		assert.NotEqual(t, CategoryFinancialMetric, b.Category)
	}
}

func TestGenerateBulletsKeepsTranscriptBackedClaims(t *testing.T) {
	e := NewExtractor()

	bullets := e.GenerateBulletsWithEvidence(
		map[string]string{"aum": "$1.68B"},
		"He manages $1.68B in client assets across the practice.",
		"",
	)

	var financial *BulletPoint
	for i := range bullets {
		if bullets[i].Category == CategoryFinancialMetric {
			financial = &bullets[i]
		}
	}
	require.NotNil(t, financial, "transcript-backed financial bullet should survive")
	assert.True(t, financial.HasValidEvidence())
	assert.True(t, financial.RequiredEvidence)

	hasTranscript := false
	for _, ev := range financial.Evidence {
		if ev.SourceType == SourceTranscript {
			hasTranscript = true
		}
	}
	assert.True(t, hasTranscript)
}

func TestGenerateBulletsScenario(t *testing.T) {
	e := NewExtractor()

	bullets := e.GenerateBulletsWithEvidence(nil,
		"Built $2.2B RIA from inception alongside founder.", "")

	require.Len(t, bullets, 1)
	b := bullets[0]
	assert.Equal(t, CategoryGrowthAchievement, b.Category)
	assert.Equal(t, "Built $2.2B RIA from inception alongside founder", b.Text)
	require.Len(t, b.Evidence, 1)
	assert.Equal(t, SourceTranscript, b.Evidence[0].SourceType)
	assert.InDelta(t, 0.95, b.ConfidenceScore, 1e-9)
}

func TestGenerateBulletsSortedByConfidence(t *testing.T) {
	e := NewExtractor()

	bullets := e.GenerateBulletsWithEvidence(
		map[string]string{
			"headline":                  "Planning-led practice serving business owners",
			"professional_designations": "CFP, CIMA",
		},
		"He grew the book 40% in three years. Holds Series 7 and Series 66 licenses.",
		"",
	)
	require.NotEmpty(t, bullets)
	assert.True(t, sort.SliceIsSorted(bullets, func(i, j int) bool {
		return bullets[i].ConfidenceScore > bullets[j].ConfidenceScore
	}), "bullets must be sorted by confidence, highest first")
}

func TestGenerateBulletsCapsTranscriptAchievements(t *testing.T) {
	e := NewExtractor()

	transcript := ""
	for i := 0; i < 8; i++ {
		transcript += fmt.Sprintf("Grew segment %d revenue by %d%% year over year. ", i, 20+i)
	}

	bullets := e.GenerateBulletsWithEvidence(nil, transcript, "")
	assert.LessOrEqual(t, len(bullets), maxTranscriptAchievements)
	for _, b := range bullets {
		assert.Equal(t, CategoryGrowthAchievement, b.Category)
	}
}

func TestGenerateBulletsDefensiveInputs(t *testing.T) {
	e := NewExtractor()

	assert.NotPanics(t, func() {
		assert.Empty(t, e.GenerateBulletsWithEvidence(nil, "", ""))
		assert.Empty(t, e.GenerateBulletsWithEvidence(map[string]string{}, "", ""))
		e.GenerateBulletsWithEvidence(map[string]string{"firm": "Merrill"}, "", "no metrics here")
	})
}
