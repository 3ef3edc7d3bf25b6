package anonymizer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Anonymizer rewrites confidentiality-sensitive candidate fields into
// generalized equivalents that keep their market-intelligence value.
//
// Every transform degrades to a documented default instead of returning an
// error: a record that cannot be generalized must never leak its raw value.
// The zero value is usable; all state lives in the package-level tables.
type Anonymizer struct{}

// New returns an Anonymizer.
func New() *Anonymizer {
	return &Anonymizer{}
}

// Field keys recognized by AnonymizeCandidate. Anything else passes through
// untouched.
const (
	FieldFirm            = "firm"
	FieldAUM             = "aum"
	FieldProduction      = "production"
	FieldCity            = "city"
	FieldState           = "state"
	FieldCurrentLocation = "current_location"
	FieldDesignations    = "professional_designations"
	FieldNotes           = "interviewer_notes"
	FieldHeadline        = "headline"
	FieldTopPerformance  = "top_performance"
	FieldExperience      = "candidate_experience"
)

var freeTextFields = []string{FieldNotes, FieldHeadline, FieldTopPerformance, FieldExperience}

// AnonymizeCandidate returns a new record with the same keys and generalized
// values. The input is never mutated and the call never fails; see the
// individual transforms for their fallbacks.
func (a *Anonymizer) AnonymizeCandidate(record map[string]string) map[string]string {
	out := make(map[string]string, len(record))
	for k, v := range record {
		out[k] = v
	}

	if v, ok := out[FieldFirm]; ok {
		out[FieldFirm] = a.GeneralizeFirm(v)
	}
	if v, ok := out[FieldAUM]; ok {
		out[FieldAUM] = a.GeneralizeDollarRange(v)
	}
	if v, ok := out[FieldProduction]; ok {
		out[FieldProduction] = a.GeneralizeDollarRange(v)
	}

	if city, ok := out[FieldCity]; ok {
		state := out[FieldState]
		newCity, keepState := a.normalizeCityState(city, state)
		out[FieldCity] = newCity
		if _, hasState := out[FieldState]; hasState && !keepState {
			out[FieldState] = ""
		}
	}
	if v, ok := out[FieldCurrentLocation]; ok {
		out[FieldCurrentLocation] = a.GeneralizeLocation(v)
	}

	if v, ok := out[FieldDesignations]; ok {
		out[FieldDesignations] = a.StripEducation(v)
	}

	for _, field := range freeTextFields {
		if v, ok := out[field]; ok {
			out[field] = a.GeneralizeFreeText(v)
		}
	}

	return out
}

// GeneralizeFirm maps a firm name onto its category via case-insensitive
// substring match, first table entry wins. A non-empty value that matches
// nothing becomes GenericFirm; empty stays empty.
func (a *Anonymizer) GeneralizeFirm(firm string) string {
	trimmed := strings.TrimSpace(firm)
	if trimmed == "" {
		return firm
	}
	lower := strings.ToLower(trimmed)
	for _, m := range firmMappings {
		if strings.Contains(lower, m.Keyword) {
			return m.Category
		}
	}
	// Already-generalized output contains no firm keyword and would land
	// here; returning it unchanged keeps the transform idempotent.
	if strings.HasPrefix(lower, "a leading") || strings.HasPrefix(lower, "a major") ||
		strings.HasPrefix(lower, "a premier") || strings.HasPrefix(lower, "a national") {
		return trimmed
	}
	return GenericFirm
}

// GeneralizeDollarRange buckets an AUM or production figure into one of the
// 13 fixed ranges. Empty or unparseable input yields NotDisclosed; values
// already in bucketed form pass through unchanged.
func (a *Anonymizer) GeneralizeDollarRange(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return NotDisclosed
	}
	if trimmed == NotDisclosed || strings.HasSuffix(trimmed, " range") {
		return trimmed
	}
	value, err := ParseCurrencyToFloat(trimmed)
	if err != nil {
		return NotDisclosed
	}
	return bucketForMillions(value / 1e6)
}

var zipCodeRe = regexp.MustCompile(`\s*\b\d{5}(?:-\d{4})?\b`)

// normalizeCityState maps a city into its metro area. When a table entry
// matches, the state is dropped (keepState=false). Unknown cities keep their
// state and are generalized to "<city> area, <state>" with zip codes and
// sub-locality detail removed.
func (a *Anonymizer) normalizeCityState(city, state string) (normalized string, keepState bool) {
	trimmed := strings.TrimSpace(city)
	if trimmed == "" {
		return LocationNotDisclosed, false
	}
	if metroLabels[trimmed] {
		return trimmed, false
	}
	lower := strings.ToLower(trimmed)
	for _, m := range locationMappings {
		if strings.Contains(lower, m.Keyword) {
			return m.Metro, false
		}
	}
	if trimmed == LocationNotDisclosed || strings.HasSuffix(trimmed, " area") || strings.Contains(trimmed, " area,") {
		// Already generalized.
		return trimmed, false
	}

	cleaned := zipCodeRe.ReplaceAllString(trimmed, "")
	// Keep only the leading locality; "Old Town, Eastside" style detail is
	// itself identifying.
	if idx := strings.Index(cleaned, ","); idx >= 0 {
		cleaned = cleaned[:idx]
	}
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return LocationNotDisclosed, false
	}
	st := strings.TrimSpace(state)
	if st == "" {
		return cleaned + " area", true
	}
	return cleaned + " area, " + st, true
}

// GeneralizeLocation applies the same policy as normalizeCityState to a
// single free-form "City, ST" value.
func (a *Anonymizer) GeneralizeLocation(location string) string {
	trimmed := strings.TrimSpace(location)
	if trimmed == "" {
		return LocationNotDisclosed
	}
	if metroLabels[trimmed] {
		return trimmed
	}
	lower := strings.ToLower(trimmed)
	for _, m := range locationMappings {
		if strings.Contains(lower, m.Keyword) {
			return m.Metro
		}
	}
	if trimmed == LocationNotDisclosed || strings.HasSuffix(trimmed, " area") || strings.Contains(trimmed, " area,") {
		return trimmed
	}

	cleaned := zipCodeRe.ReplaceAllString(trimmed, "")
	city, state := cleaned, ""
	if idx := strings.Index(cleaned, ","); idx >= 0 {
		city = strings.TrimSpace(cleaned[:idx])
		state = strings.TrimSpace(cleaned[idx+1:])
	}
	if city == "" {
		return LocationNotDisclosed
	}
	if state == "" {
		return city + " area"
	}
	return city + " area, " + state
}

var (
	// "MBA from LSU", "BS at Ohio State" -> credential only.
	educationFromAtRe = regexp.MustCompile(`\s+(?:[Ff]rom|[Aa]t)\s+[A-Z][A-Za-z.&'\- ]*`)
	// "of" only strips institution names, not credential grammar like
	// "Master of Science".
	educationOfRe = regexp.MustCompile(`\s+of\s+(?:the\s+)?[A-Z][A-Za-z.&'\- ]*(?:University|College|Institute|School)[A-Za-z ]*`)
	// Parenthetical institution mentions: "CFP (University of Georgia)".
	educationParenRe = regexp.MustCompile(`\s*\([^)]*(?:University|College|Institute|School|[A-Z]{2,})[^)]*\)`)
)

// StripEducation removes institution mentions from a designations string
// while preserving the credential names themselves.
func (a *Anonymizer) StripEducation(designations string) string {
	if strings.TrimSpace(designations) == "" {
		return designations
	}
	parts := strings.Split(designations, ",")
	for i, part := range parts {
		s := educationFromAtRe.ReplaceAllString(part, "")
		s = educationOfRe.ReplaceAllString(s, "")
		s = educationParenRe.ReplaceAllString(s, "")
		parts[i] = strings.TrimSpace(s)
	}
	// Drop segments that were nothing but an institution mention.
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

var (
	// CamelCase product names ending in a platform-ish suffix:
	// "AdvisorPro", "WealthConnect", "ClientView".
	internalToolRe = regexp.MustCompile(`\b[A-Z][a-z]+[A-Za-z]*(?:Pro|Connect|View|Portal|System|Platform|Suite)\b`)
	// Explicit mentions of in-house tooling.
	internalPhraseRe = regexp.MustCompile(`(?i)\b(?:internal|proprietary)\s+(?:system|platform|tool)s?\b`)

	// InternalSystems replaces identifiable tooling references in free text.
	internalSystemsPlaceholder = "internal systems"
)

// GeneralizeFreeText scrubs firm keywords and identifiable internal-tool
// names out of notes, headlines and achievement text.
func (a *Anonymizer) GeneralizeFreeText(text string) string {
	if text == "" {
		return text
	}
	out := text
	for _, m := range firmMappings {
		out = replaceInsensitive(out, m.Keyword, FirmPlaceholder)
	}
	out = internalToolRe.ReplaceAllString(out, internalSystemsPlaceholder)
	out = internalPhraseRe.ReplaceAllString(out, internalSystemsPlaceholder)
	return out
}

// replaceInsensitive replaces every case-insensitive occurrence of keyword.
// Matching walks runes in the original text, so characters whose lowercase
// form changes byte length (U+0130 and friends) cannot shift the offsets.
func replaceInsensitive(text, keyword, replacement string) string {
	if keyword == "" {
		return text
	}
	var b strings.Builder
	for len(text) > 0 {
		start, length := indexFold(text, keyword)
		if start < 0 {
			b.WriteString(text)
			break
		}
		b.WriteString(text[:start])
		b.WriteString(replacement)
		text = text[start+length:]
	}
	return b.String()
}

// indexFold finds the first case-insensitive occurrence of substr in s,
// returning its byte offset and byte length in s, or (-1, 0).
func indexFold(s, substr string) (start, length int) {
	for i := 0; i < len(s); {
		if l, ok := matchFoldAt(s[i:], substr); ok {
			return i, l
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return -1, 0
}

// matchFoldAt reports whether s begins with a case-insensitive match of
// substr, and the match's byte length in s.
func matchFoldAt(s, substr string) (int, bool) {
	i := 0
	for _, kr := range substr {
		r, size := utf8.DecodeRuneInString(s[i:])
		if size == 0 || unicode.ToLower(r) != unicode.ToLower(kr) {
			return 0, false
		}
		i += size
	}
	return i, true
}
