package intake

import (
	"strings"
)

// ParsedEmail is the structured form of one referral email body.
type ParsedEmail struct {
	// Candidate holds labeled fields keyed the way the anonymizer and
	// evidence extractor expect them (firm, aum, production, city, state,
	// professional_designations, headline, ...).
	Candidate  map[string]string
	Transcript string
	Notes      string
}

// fieldLabels maps the labels recruiters actually write to canonical field
// keys. Matching is case-insensitive on the text before the first colon.
var fieldLabels = map[string]string{
	"name":                      "candidate_name",
	"candidate":                 "candidate_name",
	"candidate name":            "candidate_name",
	"firm":                      "firm",
	"current firm":              "firm",
	"broker dealer":             "firm",
	"broker-dealer":             "firm",
	"aum":                       "aum",
	"assets":                    "aum",
	"assets under management":   "aum",
	"book size":                 "aum",
	"production":                "production",
	"t12":                       "production",
	"trailing 12":               "production",
	"trailing twelve":           "production",
	"gdc":                       "production",
	"location":                  "location",
	"city":                      "city",
	"state":                     "state",
	"designations":              "professional_designations",
	"licenses":                  "professional_designations",
	"certifications":            "professional_designations",
	"professional designations": "professional_designations",
	"headline":                  "headline",
	"summary":                   "headline",
	"experience":                "candidate_experience",
	"background":                "candidate_experience",
	"education":                 "education",
	"top performance":           "top_performance",
	"performance":               "top_performance",
	"recognition":               "top_performance",
	"email":                     "email",
	"phone":                     "phone",
}

// Section headers that switch the parser into block-capture mode.
var (
	transcriptHeaders = []string{"transcript", "interview transcript", "call transcript", "interview notes"}
	notesHeaders      = []string{"notes", "recruiter notes", "additional notes", "comments"}
)

// ParseReferralEmail splits a referral email body into labeled candidate
// fields, a transcript block, and free-form notes. Labeled lines look like
// "AUM: $1.68B"; a "Transcript:" or "Notes:" line opens a block that runs
// until the next recognized header or end of body. Unlabeled text outside
// any block lands in notes.
func ParseReferralEmail(body string) *ParsedEmail {
	parsed := &ParsedEmail{Candidate: make(map[string]string)}
	if strings.TrimSpace(body) == "" {
		return parsed
	}

	const (
		modeFields = iota
		modeTranscript
		modeNotes
	)
	mode := modeFields

	var transcript, notes []string

	for _, rawLine := range strings.Split(body, "\n") {
		line := strings.TrimSpace(rawLine)

		if header, rest := matchHeader(line, transcriptHeaders); header {
			mode = modeTranscript
			if rest != "" {
				transcript = append(transcript, rest)
			}
			continue
		}
		if header, rest := matchHeader(line, notesHeaders); header {
			mode = modeNotes
			if rest != "" {
				notes = append(notes, rest)
			}
			continue
		}

		switch mode {
		case modeTranscript:
			if line != "" {
				transcript = append(transcript, line)
			}
		case modeNotes:
			if line != "" {
				notes = append(notes, line)
			}
		default:
			if line == "" {
				continue
			}
			if key, value, ok := matchLabeledLine(line); ok {
				setCandidateField(parsed.Candidate, key, value)
			} else {
				notes = append(notes, line)
			}
		}
	}

	parsed.Transcript = strings.Join(transcript, " ")
	parsed.Notes = strings.Join(notes, " ")
	return parsed
}

// matchHeader reports whether line is one of the given section headers,
// returning any text that follows the colon on the same line.
func matchHeader(line string, headers []string) (bool, string) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return false, ""
	}
	label := strings.ToLower(strings.TrimSpace(line[:idx]))
	for _, h := range headers {
		if label == h {
			return true, strings.TrimSpace(line[idx+1:])
		}
	}
	return false, ""
}

// matchLabeledLine parses "Label: value" into a canonical field key. Lines
// whose label is unknown are not fields.
func matchLabeledLine(line string) (key, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return "", "", false
	}
	label := strings.ToLower(strings.TrimSpace(line[:idx]))
	key, known := fieldLabels[label]
	if !known {
		return "", "", false
	}
	return key, strings.TrimSpace(line[idx+1:]), true
}

// setCandidateField stores a parsed value, splitting combined
// "City, ST" locations into city and state.
func setCandidateField(fields map[string]string, key, value string) {
	if value == "" {
		return
	}
	if key == "location" {
		if comma := strings.Index(value, ","); comma > 0 {
			city := strings.TrimSpace(value[:comma])
			state := strings.TrimSpace(value[comma+1:])
			if city != "" && fields["city"] == "" {
				fields["city"] = city
			}
			if state != "" && fields["state"] == "" {
				fields["state"] = state
			}
			return
		}
		if fields["city"] == "" {
			fields["city"] = value
		}
		return
	}
	// First occurrence wins; repeated labels append for free-text fields.
	if existing, ok := fields[key]; ok && existing != "" {
		if key == "candidate_experience" || key == "headline" || key == "top_performance" {
			fields[key] = existing + " " + value
		}
		return
	}
	fields[key] = value
}
