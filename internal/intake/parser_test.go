package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReferralEmailLabeledFields(t *testing.T) {
	body := `Name: Jordan Blake
Firm: Merrill Lynch
AUM: $1.68B
Production: $1.4M
Location: Frisco, TX
Designations: CFP, CIMA
Headline: Veteran advisor leading a multigenerational planning practice`

	parsed := ParseReferralEmail(body)
	require.NotNil(t, parsed)

	assert.Equal(t, "Jordan Blake", parsed.Candidate["candidate_name"])
	assert.Equal(t, "Merrill Lynch", parsed.Candidate["firm"])
	assert.Equal(t, "$1.68B", parsed.Candidate["aum"])
	assert.Equal(t, "$1.4M", parsed.Candidate["production"])
	assert.Equal(t, "Frisco", parsed.Candidate["city"])
	assert.Equal(t, "TX", parsed.Candidate["state"])
	assert.Equal(t, "CFP, CIMA", parsed.Candidate["professional_designations"])
	assert.Empty(t, parsed.Transcript)
}

func TestParseReferralEmailAlternateLabels(t *testing.T) {
	body := `Candidate: A. Smith
Book Size: $400M
T12: $2.1M
Licenses: Series 7, Series 66`

	parsed := ParseReferralEmail(body)
	assert.Equal(t, "A. Smith", parsed.Candidate["candidate_name"])
	assert.Equal(t, "$400M", parsed.Candidate["aum"])
	assert.Equal(t, "$2.1M", parsed.Candidate["production"])
	assert.Equal(t, "Series 7, Series 66", parsed.Candidate["professional_designations"])
}

func TestParseReferralEmailSections(t *testing.T) {
	body := `Firm: LPL Financial

Transcript:
He built a $1.68B book.
Top 2% nationally.

Notes:
Wants a move to Texas next spring.`

	parsed := ParseReferralEmail(body)
	assert.Equal(t, "LPL Financial", parsed.Candidate["firm"])
	assert.Equal(t, "He built a $1.68B book. Top 2% nationally.", parsed.Transcript)
	assert.Equal(t, "Wants a move to Texas next spring.", parsed.Notes)
}

func TestParseReferralEmailUnlabeledTextGoesToNotes(t *testing.T) {
	body := `Great candidate, met at the conference.
Firm: Edward Jones`

	parsed := ParseReferralEmail(body)
	assert.Equal(t, "Edward Jones", parsed.Candidate["firm"])
	assert.Equal(t, "Great candidate, met at the conference.", parsed.Notes)
}

func TestParseReferralEmailEmptyBody(t *testing.T) {
	parsed := ParseReferralEmail("   \n ")
	require.NotNil(t, parsed)
	assert.Empty(t, parsed.Candidate)
	assert.Empty(t, parsed.Transcript)
	assert.Empty(t, parsed.Notes)
}

func TestParseReferralEmailRepeatedLabels(t *testing.T) {
	body := `Experience: 15 years at a wirehouse.
Experience: Led a team of six advisors.
AUM: $500M
AUM: $900M`

	parsed := ParseReferralEmail(body)
	// Free-text fields accumulate; scalar fields keep the first value.
	assert.Equal(t, "15 years at a wirehouse. Led a team of six advisors.", parsed.Candidate["candidate_experience"])
	assert.Equal(t, "$500M", parsed.Candidate["aum"])
}
