package evidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSentencesProtectsDollarDecimals(t *testing.T) {
	sentences := splitSentences("He built a $1.68B book. Top 2% nationally.")
	require.Len(t, sentences, 2)
	assert.Equal(t, "He built a $1.68B book.", sentences[0])
	assert.Equal(t, "Top 2% nationally.", sentences[1])
}

func TestExtractFromTranscript(t *testing.T) {
	e := NewExtractor()

	t.Run("growth sentence yields a single evidence", func(t *testing.T) {
		// AUM patterns must not fire here: there is no assets/book keyword,
		// so only the growth family matches.
		evs := e.ExtractFromTranscript("Built $2.2B RIA from inception alongside founder")
		require.Len(t, evs, 1)
		assert.Equal(t, SourceTranscript, evs[0].SourceType)
		assert.InDelta(t, 0.95, evs[0].Confidence, 1e-9)
		assert.Contains(t, evs[0].SourceID, "growth")
	})

	t.Run("one evidence per family per sentence", func(t *testing.T) {
		evs := e.ExtractFromTranscript("He built a $1.68B book. Top 2% nationally.")
		require.Len(t, evs, 3)
		// Sentence 1: aum + growth, sentence 2: ranking.
		assert.Equal(t, "transcript:0:aum", evs[0].SourceID)
		assert.Equal(t, "transcript:0:growth", evs[1].SourceID)
		assert.Equal(t, "transcript:1:ranking", evs[2].SourceID)
		assert.InDelta(t, 0.90, evs[2].Confidence, 1e-9)
	})

	t.Run("licenses", func(t *testing.T) {
		evs := e.ExtractFromTranscript("Holds Series 7 and Series 66, plus the CFP.")
		require.Len(t, evs, 1)
		assert.Contains(t, evs[0].SourceID, "license")
		assert.InDelta(t, 0.95, evs[0].Confidence, 1e-9)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, e.ExtractFromTranscript(""))
		assert.Empty(t, e.ExtractFromTranscript("   \n"))
	})

	t.Run("no match no evidence", func(t *testing.T) {
		assert.Empty(t, e.ExtractFromTranscript("We talked about his family and the weather."))
	})
}

func TestExtractFromCRM(t *testing.T) {
	e := NewExtractor()

	evs := e.ExtractFromCRM(map[string]string{
		"aum":        "$1.68B",
		"production": "$1.4M",
		"firm":       "Merrill Lynch",
		"city":       "Frisco", // not an evidence field
	})
	require.Len(t, evs, 3)
	for _, ev := range evs {
		assert.Equal(t, SourceCRMField, ev.SourceType)
		assert.InDelta(t, 1.0, ev.Confidence, 1e-9)
	}
	assert.Equal(t, "crm:firm", evs[0].SourceID)
	assert.Equal(t, "firm: Merrill Lynch", evs[0].Text)
}

func TestCategorizeBulletPrecedence(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		text string
		want BulletCategory
	}{
		// Growth outranks financial even with a dollar figure present.
		{"Built $2.2B RIA from inception alongside founder", CategoryGrowthAchievement},
		// Ranking outranks client metric.
		{"Ranked #1 for client retention", CategoryPerformanceRanking},
		// Client metric outranks financial.
		{"Serves 180 households with $400M AUM", CategoryClientMetric},
		{"Manages $1.68B in client assets", CategoryFinancialMetric},
		{"Series 7 and Series 66", CategoryLicense},
		{"Targeting 50% upfront on the deal structure", CategoryCompensation},
		{"Available immediately after notice period", CategoryAvailability},
		{"Open to relocating for the right platform fit", CategoryMobility},
		{"MBA, undergraduate degree in finance", CategoryEducation},
		{"Fifteen years advising multigenerational wealth", CategoryExperience},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, e.CategorizeBullet(tt.text), "text %q", tt.text)
	}
}

func TestCalculateConfidence(t *testing.T) {
	e := NewExtractor()

	t.Run("single transcript evidence keeps its confidence", func(t *testing.T) {
		// Weighted average with a single source cancels the weight:
		// 0.9*0.95/0.9 = 0.95.
		got := e.CalculateConfidence("Built a two billion dollar book", []Evidence{
			{SourceType: SourceTranscript, Confidence: 0.95},
		})
		assert.InDelta(t, 0.95, got, 1e-9)
	})

	t.Run("no evidence floor", func(t *testing.T) {
		assert.InDelta(t, 0.2, e.CalculateConfidence("some bullet text here now", nil), 1e-9)
	})

	t.Run("multi evidence boost capped at one", func(t *testing.T) {
		got := e.CalculateConfidence("Manages $1.68B in client assets", []Evidence{
			{SourceType: SourceCRMField, Confidence: 1.0},
			{SourceType: SourceTranscript, Confidence: 0.95},
		})
		// (1.0*1.0 + 0.9*0.95) / 1.9 * 1.1 = 1.0296... -> capped.
		assert.InDelta(t, 1.0, got, 1e-9)
	})

	t.Run("short bullet penalty", func(t *testing.T) {
		long := e.CalculateConfidence("one two three four five", []Evidence{
			{SourceType: SourceTranscript, Confidence: 0.95},
		})
		short := e.CalculateConfidence("one two three four", []Evidence{
			{SourceType: SourceTranscript, Confidence: 0.95},
		})
		assert.InDelta(t, 0.95, long, 1e-9)
		assert.InDelta(t, 0.95*0.8, short, 1e-9)
	})

	t.Run("weights differ by source type", func(t *testing.T) {
		note := e.CalculateConfidence("serves one hundred eighty households today", []Evidence{
			{SourceType: SourceNote, Confidence: 0.9},
			{SourceType: SourceEmail, Confidence: 0.9},
		})
		// Both items share confidence 0.9, so the weighted mean is 0.9 and
		// the boost applies: 0.9*1.1.
		assert.InDelta(t, 0.99, note, 1e-9)
	})
}

func TestLinkEvidenceToBullet(t *testing.T) {
	e := NewExtractor()

	pool := []Evidence{
		{SourceType: SourceTranscript, Text: "He manages $1.68B in client assets today", SourceID: "transcript:0:aum"},
		{SourceType: SourceNote, Text: "Wants a move to Texas next spring", SourceID: "note:0:growth"},
	}

	linked := e.LinkEvidenceToBullet("Manages $1.68B in client assets", pool)
	require.Len(t, linked, 1)
	assert.Equal(t, "transcript:0:aum", linked[0].SourceID)

	assert.Empty(t, e.LinkEvidenceToBullet("", pool))
	assert.Empty(t, e.LinkEvidenceToBullet("completely unrelated wording", pool))
}
