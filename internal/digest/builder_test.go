package digest

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"talentvault/internal/anonymizer"
	"talentvault/internal/config"
	"talentvault/internal/evidence"
	"talentvault/internal/storage/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBuilder(t *testing.T) *Builder {
	t.Helper()
	cfg := &config.Config{}
	cfg.Digest.Title = "Advisor Vault Digest"
	cfg.Digest.MaxCandidates = 12
	b, err := NewBuilder(nil, anonymizer.New(), cfg)
	require.NoError(t, err)
	return b
}

func TestItemFromCandidate(t *testing.T) {
	b := testBuilder(t)

	bullets, err := json.Marshal([]evidence.BulletPoint{
		{Text: "Built a book in the $1B-$1.5B range", Category: evidence.CategoryFinancialMetric, ConfidenceScore: 0.9},
	})
	require.NoError(t, err)

	item := b.itemFromCandidate(&models.VaultCandidate{
		Locator:             "TWAV-7f3a9c",
		Headline:            "Veteran advisor with a multigenerational practice",
		LocationGeneralized: "Dallas/Fort Worth",
		AUMRange:            "$1B-$1.5B range",
		Bullets:             bullets,
	})

	assert.Equal(t, "TWAV-7f3a9c", item.Locator)
	assert.Equal(t, "Dallas/Fort Worth", item.Metro)
	assert.Equal(t, "$1B-$1.5B range", item.AUMRange)
	require.Len(t, item.Bullets, 1)
	assert.Equal(t, "Built a book in the $1B-$1.5B range", item.Bullets[0])
}

func TestItemFromCandidateReanonymizesRawLeftovers(t *testing.T) {
	b := testBuilder(t)

	// A row written before the anonymizer ran must still come out clean.
	item := b.itemFromCandidate(&models.VaultCandidate{
		Locator:             "TWAV-aa11bb",
		Headline:            "Top producer at Merrill Lynch",
		LocationGeneralized: "Frisco, TX",
		AUMRange:            "$1.68B",
	})

	assert.NotContains(t, item.Headline, "Merrill Lynch")
	assert.Equal(t, "Dallas/Fort Worth", item.Metro)
	assert.Equal(t, "$1.5B-$2B range", item.AUMRange)
}

func TestItemFromCandidateDropsUnsupportedBullets(t *testing.T) {
	b := testBuilder(t)

	bullets, err := json.Marshal([]evidence.BulletPoint{
		{Text: "Claims top 1% ranking", Category: evidence.CategoryPerformanceRanking, RequiredEvidence: true},
		{Text: "Holds CFP and CIMA designations", Category: evidence.CategoryLicense, ConfidenceScore: 1.0},
	})
	require.NoError(t, err)

	item := b.itemFromCandidate(&models.VaultCandidate{
		Locator: "TWAV-cc22dd",
		Bullets: bullets,
	})

	// The ranking claim has no transcript evidence behind it.
	require.Len(t, item.Bullets, 1)
	assert.Equal(t, "Holds CFP and CIMA designations", item.Bullets[0])
}

func TestDigestTemplateRendering(t *testing.T) {
	b := testBuilder(t)

	d := &Digest{
		Title:       "Advisor Vault Digest",
		GeneratedAt: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
		Items: []DigestItem{
			{
				Locator:  "TWAV-7f3a9c",
				Headline: "Veteran advisor",
				Metro:    "Dallas/Fort Worth",
				AUMRange: "$1B-$1.5B range",
				Bullets:  []string{"Built a team of six", "Holds CFP & CIMA"},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, b.tmpl.Execute(&buf, d))
	out := buf.String()

	assert.Contains(t, out, "TWAV-7f3a9c")
	assert.Contains(t, out, "Dallas/Fort Worth")
	assert.Contains(t, out, "August 25, 2026")
	// html/template escapes the ampersand.
	assert.Contains(t, out, "CFP &amp; CIMA")
}
