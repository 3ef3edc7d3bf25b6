package evidence

import "regexp"

// Static regex library for evidence mining. Families are applied per
// sentence in slice order; within a family the first matching pattern wins.
// Confidence is a fixed per-family constant, not a computed score.

const (
	confidenceFinancial = 0.95
	confidenceGrowth    = 0.95
	confidenceLicense   = 0.95
	confidenceRanking   = 0.90
	confidenceClient    = 0.90
)

// patternFamily is one ordered group of patterns sharing a confidence.
type patternFamily struct {
	Name       string
	Patterns   []*regexp.Regexp
	Confidence float64
}

// dollar amount with optional magnitude suffix or written-out unit.
const dollarExpr = `\$[\d,]+(?:\.\d+)?\s*(?:[kmbKMB]\b|billion|million|thousand)?`

var patternFamilies = []patternFamily{
	{
		Name:       "aum",
		Confidence: confidenceFinancial,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)` + dollarExpr + `[^.]{0,40}?\b(?:aum|assets under management|in (?:client )?assets|book)\b`),
			regexp.MustCompile(`(?i)\b(?:aum|assets under management|book)\b[^.]{0,30}?(?:of|at|near|over|above)\s*` + dollarExpr),
			regexp.MustCompile(`(?i)\bmanag(?:es|ed|ing)\b[^.]{0,40}?` + dollarExpr),
		},
	},
	{
		Name:       "production",
		Confidence: confidenceFinancial,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)` + dollarExpr + `[^.]{0,30}?\b(?:production|gdc|t-?12|trailing[ -]?(?:twelve|12)|annual revenue)\b`),
			regexp.MustCompile(`(?i)\b(?:production|gdc|t-?12|trailing[ -]?(?:twelve|12))\b[^.]{0,30}?` + dollarExpr),
		},
	},
	{
		Name:       "growth",
		Confidence: confidenceGrowth,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:built|grew|doubled|tripled|scaled|expanded|launched)\b[^.]{0,60}?(?:` + dollarExpr + `|\d+\s*%|from\s+(?:scratch|zero|inception))`),
			regexp.MustCompile(`(?i)\b(?:built|grew|launched)\b[^.]{0,40}?\bfrom\s+inception\b`),
			regexp.MustCompile(`(?i)\bgrowth\s+of\s+(?:` + dollarExpr + `|\d+\s*%)`),
			regexp.MustCompile(`(?i)\bincreased\b[^.]{0,40}?\bby\s+(?:` + dollarExpr + `|\d+\s*%)`),
		},
	},
	{
		Name:       "ranking",
		Confidence: confidenceRanking,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\btop\s+\d+\s*%?\b`),
			regexp.MustCompile(`(?i)\b(?:president'?s\s+club|chairman'?s\s+(?:club|council)|circle\s+of\s+excellence)\b`),
			regexp.MustCompile(`(?i)\branked\s+(?:#\s?\d+|number\s+\d+|\d+(?:st|nd|rd|th))\b`),
			regexp.MustCompile(`(?i)\b(?:forbes|barron'?s)\b[^.]{0,40}?\b(?:advisor|list|ranking)`),
		},
	},
	{
		Name:       "client",
		Confidence: confidenceClient,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b\d+\+?\s*(?:households|clients|families|relationships)\b`),
			regexp.MustCompile(`(?i)\b(?:client\s+)?retention\b[^.]{0,20}?\d+\s*%`),
			regexp.MustCompile(`(?i)\baverage\s+(?:client|household|account)\b[^.]{0,30}?` + dollarExpr),
		},
	},
	{
		Name:       "license",
		Confidence: confidenceLicense,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bseries\s+(?:7|24|63|65|66)\b`),
			regexp.MustCompile(`(?i)\b(?:cfp|cfa|chfc|clu|cima|cpwa|aif|cpa)\b`),
			regexp.MustCompile(`(?i)\b(?:life|health|insurance)\s+licens(?:e|ed|es)\b`),
		},
	},
}

// achievementFamilies are the families whose transcript snippets are worth
// promoting into standalone bullet text.
var achievementFamilies = map[string]bool{
	"aum":        true,
	"production": true,
	"growth":     true,
	"ranking":    true,
}

// Bullet categorization is a decision list: predicates evaluated in order,
// first hit wins. The order is a tie-break policy (growth outranks ranking
// outranks client outranks financial outranks license outranks the
// free-text heuristics) and must not be reordered.
type categoryRule struct {
	Pattern  *regexp.Regexp
	Category BulletCategory
}

var categoryRules = []categoryRule{
	{regexp.MustCompile(`(?i)\b(?:built|grew|doubled|tripled|scaled|expanded|launched|from\s+inception|from\s+scratch|growth)\b`), CategoryGrowthAchievement},
	{regexp.MustCompile(`(?i)\b(?:top\s+\d+|ranked|president'?s\s+club|chairman'?s|barron'?s|forbes)\b`), CategoryPerformanceRanking},
	{regexp.MustCompile(`(?i)\b(?:households|clients|families|relationships|retention)\b`), CategoryClientMetric},
	{regexp.MustCompile(`(?i)(?:` + dollarExpr + `|\b(?:aum|production|gdc|revenue|assets)\b)`), CategoryFinancialMetric},
	{regexp.MustCompile(`(?i)\b(?:series\s+\d+|cfp|cfa|chfc|clu|cima|cpwa|aif|licens)\b`), CategoryLicense},
	{regexp.MustCompile(`(?i)\b(?:compensation|comp\b|payout|salary|base\b|upfront|deal\s+structure|grid)\b`), CategoryCompensation},
	{regexp.MustCompile(`(?i)\b(?:available|availability|start\s+date|notice\s+period|timeline|immediately)\b`), CategoryAvailability},
	{regexp.MustCompile(`(?i)\b(?:reloc|open\s+to\s+mov|willing\s+to\s+mov|mobility|commute)\b`), CategoryMobility},
	{regexp.MustCompile(`(?i)\b(?:mba|bachelor|master'?s|degree|university|college)\b`), CategoryEducation},
}
