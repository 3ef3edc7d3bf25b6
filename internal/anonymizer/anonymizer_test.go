package anonymizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCurrencyToFloat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    float64
		wantErr bool
	}{
		{"billions with decimal", "$1.68B", 1_680_000_000.0, false},
		{"thousands suffix", "$500k", 500_000.0, false},
		{"millions suffix", "$750M", 750_000_000.0, false},
		{"lowercase suffix", "2.5b", 2_500_000_000.0, false},
		{"comma grouped", "$1,000,000,000", 1_000_000_000.0, false},
		{"plain number", "250000", 250_000.0, false},
		{"space before suffix", "$1.2 B", 1_200_000_000.0, false},
		{"empty", "", 0, true},
		{"only dollar sign", "$", 0, true},
		{"words", "about a billion", 0, true},
		{"negative", "-$5M", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCurrencyToFloat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestGeneralizeDollarRange(t *testing.T) {
	a := New()

	tests := []struct {
		input string
		want  string
	}{
		{"$1.68B", "$1.5B-$2B range"},
		{"$500M", "$500M-$750M range"},
		{"$80M", "under $100M range"},
		{"$7B", "$5B+ range"},
		{"", "not disclosed"},
		{"call me", "not disclosed"},
		{"not disclosed", "not disclosed"},
		// Already bucketed values must survive a second pass.
		{"$1.5B-$2B range", "$1.5B-$2B range"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, a.GeneralizeDollarRange(tt.input), "input %q", tt.input)
	}
}

// The bucket intervals are half-open (min <= v < max): exactly $1B belongs to
// the $1B-$1.5B bucket, not $750M-$1B.
func TestDollarRangeBoundaries(t *testing.T) {
	a := New()

	assert.Equal(t, "$1B-$1.5B range", a.GeneralizeDollarRange("$1,000,000,000"))
	assert.Equal(t, "$750M-$1B range", a.GeneralizeDollarRange("$999.9M"))
	assert.Equal(t, "$1.5B-$2B range", a.GeneralizeDollarRange("$1.5B"))
	assert.Equal(t, "$5B+ range", a.GeneralizeDollarRange("$5B"))
	assert.Equal(t, "under $100M range", a.GeneralizeDollarRange("$0"))
}

func TestGeneralizeFirm(t *testing.T) {
	a := New()

	tests := []struct {
		input string
		want  string
	}{
		{"Merrill Lynch", "a leading national wirehouse"},
		{"MERRILL LYNCH WEALTH MANAGEMENT", "a leading national wirehouse"},
		{"Morgan Stanley - Private Wealth", "a leading national wirehouse"},
		{"LPL Financial", "a major independent broker-dealer"},
		{"Raymond James & Associates", "a premier regional brokerage"},
		{"Edward Jones", "a major national branch network firm"},
		{"Smith Family Office", "a leading financial services firm"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, a.GeneralizeFirm(tt.input), "input %q", tt.input)
	}
}

func TestNormalizeLocation(t *testing.T) {
	a := New()

	t.Run("table city maps to metro and drops state", func(t *testing.T) {
		record := map[string]string{"city": "Frisco", "state": "TX"}
		out := a.AnonymizeCandidate(record)
		assert.Equal(t, "Dallas/Fort Worth", out["city"])
		assert.Equal(t, "", out["state"])
	})

	t.Run("unknown city keeps state and drops detail", func(t *testing.T) {
		record := map[string]string{"city": "Ridgefield 06877", "state": "CT"}
		out := a.AnonymizeCandidate(record)
		assert.Equal(t, "Ridgefield area, CT", out["city"])
		assert.Equal(t, "CT", out["state"])
	})

	t.Run("no city", func(t *testing.T) {
		out := a.AnonymizeCandidate(map[string]string{"city": "", "state": "TX"})
		assert.Equal(t, "Location not disclosed", out["city"])
	})

	t.Run("free form current_location", func(t *testing.T) {
		assert.Equal(t, "Phoenix", a.GeneralizeLocation("Scottsdale, AZ 85251"))
		assert.Equal(t, "Greenville area, SC", a.GeneralizeLocation("Greenville, SC"))
		assert.Equal(t, "Location not disclosed", a.GeneralizeLocation(""))
	})

	t.Run("metro labels pass through unchanged", func(t *testing.T) {
		for _, metro := range []string{"South Florida", "Tampa Bay", "New York Metro", "Dallas/Fort Worth"} {
			assert.Equal(t, metro, a.GeneralizeLocation(metro))
		}
	})
}

func TestStripEducation(t *testing.T) {
	a := New()

	tests := []struct {
		input string
		want  string
	}{
		{"MBA from LSU", "MBA"},
		{"CFP, MBA from LSU", "CFP, MBA"},
		{"BS at Ohio State University", "BS"},
		{"Master of Science from MIT", "Master of Science"},
		{"CFP (University of Georgia)", "CFP"},
		{"Series 7, Series 66", "Series 7, Series 66"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, a.StripEducation(tt.input), "input %q", tt.input)
	}
}

func TestGeneralizeFreeText(t *testing.T) {
	a := New()

	t.Run("firm keywords replaced", func(t *testing.T) {
		got := a.GeneralizeFreeText("Spent 12 years at Merrill before moving to UBS.")
		assert.NotContains(t, got, "Merrill")
		assert.NotContains(t, got, "UBS")
		assert.Contains(t, got, "the firm")
	})

	t.Run("internal tool names replaced", func(t *testing.T) {
		got := a.GeneralizeFreeText("Led adoption of AdvisorPro and the proprietary system for planning.")
		assert.NotContains(t, got, "AdvisorPro")
		assert.Contains(t, got, "internal systems")
	})

	t.Run("plain text untouched", func(t *testing.T) {
		in := "Strong planning practice with multigenerational families."
		assert.Equal(t, in, a.GeneralizeFreeText(in))
	})

	t.Run("multibyte case folding keeps offsets aligned", func(t *testing.T) {
		// U+0130 lowercases to a longer byte sequence; the surrounding text
		// must survive the replacement intact.
		got := a.GeneralizeFreeText("İstanbul desk İİ, then Merrill Lynch, then İzmir.")
		assert.NotContains(t, got, "Merrill")
		assert.Contains(t, got, "İstanbul desk İİ")
		assert.Contains(t, got, "İzmir.")
	})
}

// Scenario from the vault-alert pipeline: one record, all transforms at once.
func TestAnonymizeCandidateScenario(t *testing.T) {
	a := New()

	record := map[string]string{
		"firm":  "Merrill Lynch",
		"aum":   "$1.68B",
		"city":  "Frisco",
		"state": "TX",
	}
	out := a.AnonymizeCandidate(record)

	assert.Equal(t, map[string]string{
		"firm":  "a leading national wirehouse",
		"aum":   "$1.5B-$2B range",
		"city":  "Dallas/Fort Worth",
		"state": "",
	}, out)

	// Copy-on-write: the input record is untouched.
	assert.Equal(t, "Merrill Lynch", record["firm"])
	assert.Equal(t, "TX", record["state"])
}

func TestAnonymizeCandidateIdempotent(t *testing.T) {
	a := New()

	record := map[string]string{
		"firm":                      "Morgan Stanley",
		"aum":                       "$2.2B",
		"production":                "$1.8M",
		"city":                      "Scottsdale",
		"state":                     "AZ",
		"current_location":          "Scottsdale, AZ",
		"professional_designations": "CFP, MBA from LSU",
		"interviewer_notes":         "Built book at Merrill using WealthConnect.",
		"headline":                  "Top advisor",
		"unknown_field":             "left alone",
	}

	once := a.AnonymizeCandidate(record)
	twice := a.AnonymizeCandidate(once)

	assert.Equal(t, once, twice)
	assert.Equal(t, "left alone", twice["unknown_field"])

	// "South Florida" is a metro label containing none of its own keywords;
	// a second pass must not drift it to "South Florida area".
	miami := a.AnonymizeCandidate(map[string]string{"city": "Miami", "state": "FL"})
	assert.Equal(t, "South Florida", miami["city"])
	assert.Equal(t, miami, a.AnonymizeCandidate(miami))

	// Same key set in and out.
	assert.Len(t, once, len(record))
	for k := range record {
		assert.Contains(t, once, k)
	}
}

func TestAnonymizeCandidateNeverLeaksOnBadInput(t *testing.T) {
	a := New()

	out := a.AnonymizeCandidate(map[string]string{
		"aum":        "ask him",
		"production": "",
		"firm":       "   ",
	})
	assert.Equal(t, "not disclosed", out["aum"])
	assert.Equal(t, "not disclosed", out["production"])
}
