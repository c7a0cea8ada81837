// Package eval implements the grading pipeline: structure, key-question,
// reasoning and summary evaluation over a segmented transcript, combined into
// one weighted score. Every violation or success it emits is anchored to the
// rubric, and where it makes a claim about what the student said, to the
// transcript as well.
package eval

import (
	"fmt"
	"regexp"
)

// Citation URIs use an en dash between timestamps; downstream consumers parse
// this exact shape.
const timestampSeparator = "–"

// RubricCitation points at one rubric anchor.
// URI form: rubric://<rubric_id>#<anchor>
type RubricCitation struct {
	RubricID string `json:"rubric_id"`
	Anchor   string `json:"anchor"` // includes the leading '#'
}

func (c RubricCitation) URI() string {
	return fmt.Sprintf("rubric://%s%s", c.RubricID, c.Anchor)
}

// StudentSource says which submission artifact a citation points into.
type StudentSource string

const (
	SourceOral    StudentSource = "oral"
	SourceSummary StudentSource = "summary"
)

// StudentCitation points at a span of the student's submission.
// URI forms:
//
//	student://oral#<start>–<end>
//	student://summary#<start>–<end>
//	student://summary#tokens=<count>
type StudentCitation struct {
	Source StudentSource `json:"source"`

	// Timestamp span (MM:SS or HH:MM:SS). Empty when TokenCount is set.
	TimestampStart string `json:"timestamp_start,omitempty"`
	TimestampEnd   string `json:"timestamp_end,omitempty"`

	// Token-count marker into the summary.
	TokenCount int `json:"token_count,omitempty"`
	IsTokens   bool `json:"is_tokens,omitempty"`
}

// OralSpan builds a timestamp citation into the oral transcript.
func OralSpan(start, end string) StudentCitation {
	return StudentCitation{Source: SourceOral, TimestampStart: start, TimestampEnd: end}
}

// SummaryTokens builds a token-count citation into the summary.
func SummaryTokens(count int) StudentCitation {
	return StudentCitation{Source: SourceSummary, TokenCount: count, IsTokens: true}
}

func (c StudentCitation) URI() string {
	if c.IsTokens {
		return fmt.Sprintf("student://%s#tokens=%d", c.Source, c.TokenCount)
	}
	return fmt.Sprintf("student://%s#%s%s%s", c.Source, c.TimestampStart, timestampSeparator, c.TimestampEnd)
}

var (
	rubricURIRe        = regexp.MustCompile(`^rubric://([^#]+)(#.+)$`)
	studentURIRe       = regexp.MustCompile(`^student://(oral|summary)#(.+)$`)
	studentTokensRe    = regexp.MustCompile(`^tokens=(\d+)$`)
	studentSpanRe      = regexp.MustCompile(`^(.+)` + timestampSeparator + `(.+)$`)
	citationTimestamps = regexp.MustCompile(`^(\d{1,2}:)?\d{1,2}:\d{2}$`)
)

// ParseRubricCitation parses a rubric:// URI.
func ParseRubricCitation(uri string) (RubricCitation, error) {
	m := rubricURIRe.FindStringSubmatch(uri)
	if m == nil {
		return RubricCitation{}, fmt.Errorf("invalid rubric citation %q", uri)
	}
	return RubricCitation{RubricID: m[1], Anchor: m[2]}, nil
}

// ParseStudentCitation parses a student:// URI.
func ParseStudentCitation(uri string) (StudentCitation, error) {
	m := studentURIRe.FindStringSubmatch(uri)
	if m == nil {
		return StudentCitation{}, fmt.Errorf("invalid student citation %q", uri)
	}
	source := StudentSource(m[1])
	fragment := m[2]

	if tm := studentTokensRe.FindStringSubmatch(fragment); tm != nil {
		var count int
		fmt.Sscanf(tm[1], "%d", &count)
		return StudentCitation{Source: source, TokenCount: count, IsTokens: true}, nil
	}

	sm := studentSpanRe.FindStringSubmatch(fragment)
	if sm == nil {
		return StudentCitation{}, fmt.Errorf("invalid student citation fragment %q", fragment)
	}
	if !citationTimestamps.MatchString(sm[1]) || !citationTimestamps.MatchString(sm[2]) {
		return StudentCitation{}, fmt.Errorf("invalid timestamp span %q", fragment)
	}
	return StudentCitation{Source: source, TimestampStart: sm[1], TimestampEnd: sm[2]}, nil
}
