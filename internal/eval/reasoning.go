package eval

import (
	"regexp"

	"github.com/oscegrade/oscegrade/internal/rubric"
	"github.com/oscegrade/oscegrade/internal/transcript"
)

// reasoningContextChars bounds the text window kept around a pattern match.
const reasoningContextChars = 50

// ReasoningEvaluator detects required clinical reasoning links by pattern
// matching over the student's summary, falling back to the full transcript
// when no summary section exists.
//
// Dual-citation rule: every detected link carries both the link's rubric
// citation and a student citation at the matched span. A missing link cites
// only the rubric, since there is nothing of the student's to point at.
type ReasoningEvaluator struct {
	RubricID string
}

type detectedLink struct {
	LinkID          string `json:"link_id"`
	Anchor          string `json:"anchor"`
	Description     string `json:"description"`
	RubricCitation  string `json:"rubric_citation"`
	StudentCitation string `json:"student_citation"`
	Context         string `json:"context"`
}

type missingLink struct {
	LinkID         string `json:"link_id"`
	Anchor         string `json:"anchor"`
	Description    string `json:"description"`
	RubricCitation string `json:"rubric_citation"`
}

func (e *ReasoningEvaluator) Evaluate(cfg rubric.ReasoningConfig, seg *transcript.Segmented) *Result {
	utterances := reasoningUtterances(seg)

	res := &Result{Component: ComponentReasoning}
	var detected []detectedLink
	var missing []missingLink

	for _, link := range cfg.RequiredLinks {
		rubricURI := RubricCitation{RubricID: e.RubricID, Anchor: link.Anchor}.URI()

		u, window, ok := findPattern(link.Pattern, utterances)
		if !ok {
			missing = append(missing, missingLink{
				LinkID:         link.ID,
				Anchor:         link.Anchor,
				Description:    link.Description,
				RubricCitation: rubricURI,
			})
			res.Violations = append(res.Violations, Violation{
				Description:     "Missing clinical reasoning: " + link.Description,
				RubricCitations: []string{rubricURI},
				Severity:        SeverityCritical,
			})
			continue
		}

		studentURI := OralSpan(u.TimestampStart, u.TimestampEnd).URI()
		detected = append(detected, detectedLink{
			LinkID:          link.ID,
			Anchor:          link.Anchor,
			Description:     link.Description,
			RubricCitation:  rubricURI,
			StudentCitation: studentURI,
			Context:         window,
		})
		res.Successes = append(res.Successes, Success{
			Description:      "Demonstrated reasoning: " + link.Description,
			RubricCitations:  []string{rubricURI},
			StudentCitations: []string{studentURI},
		})
	}

	// Simple ratio by design: reasoning links are all-or-nothing evidence of
	// the thought process, unlike key questions which carry policy weights.
	if len(cfg.RequiredLinks) > 0 {
		res.Score = float64(len(detected)) / float64(len(cfg.RequiredLinks))
	} else {
		res.Score = 1.0
	}
	res.Detail = map[string]any{
		"detected_links": detected,
		"missing_links":  missing,
		"required_count": len(cfg.RequiredLinks),
		"detected_count": len(detected),
	}
	return res
}

// reasoningUtterances prefers the Summary section's student speech and falls
// back to every student utterance in encounter order.
func reasoningUtterances(seg *transcript.Segmented) []transcript.Utterance {
	if sec := seg.Section("Summary"); sec != nil {
		if us := sec.StudentUtterances(); len(us) > 0 {
			return us
		}
	}
	return seg.StudentUtterances()
}

// findPattern scans utterances in order for the first match of pattern
// (case-insensitive) and returns the matched utterance plus a context window
// of up to reasoningContextChars characters either side of the match.
func findPattern(pattern string, utterances []transcript.Utterance) (transcript.Utterance, string, bool) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		// Bad patterns are rejected at rubric approval; here they simply
		// never match.
		return transcript.Utterance{}, "", false
	}
	for _, u := range utterances {
		loc := re.FindStringIndex(u.Text)
		if loc == nil {
			continue
		}
		start := loc[0] - reasoningContextChars
		if start < 0 {
			start = 0
		}
		end := loc[1] + reasoningContextChars
		if end > len(u.Text) {
			end = len(u.Text)
		}
		return u, u.Text[start:end], true
	}
	return transcript.Utterance{}, "", false
}
