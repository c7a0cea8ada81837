package eval

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oscegrade/oscegrade/internal/rubric"
	"github.com/oscegrade/oscegrade/internal/transcript"
)

// SummaryEvaluator scores the Summary section: half succinctness against the
// rubric token budget, half presence of required content elements.
type SummaryEvaluator struct {
	RubricID string
}

// summaryText returns the student's speech in the Summary section.
func summaryText(seg *transcript.Segmented) string {
	sec := seg.Section("Summary")
	if sec == nil {
		return ""
	}
	var parts []string
	for _, u := range sec.StudentUtterances() {
		parts = append(parts, u.Text)
	}
	return strings.Join(parts, " ")
}

func (e *SummaryEvaluator) Evaluate(cfg rubric.SummaryConfig, seg *transcript.Segmented) *Result {
	text := summaryText(seg)
	tokens := CountTokens(text)

	overflow := tokens - cfg.MaxTokens
	if overflow < 0 {
		overflow = 0
	}
	// Drafts reach this evaluator through the authoring probe endpoints, so a
	// zero divisor has not necessarily been caught by approval validation. 0/0
	// is NaN; keep the division behind the overflow check.
	succinct := 1.0
	if overflow > 0 {
		if cfg.OverflowDivisor > 0 {
			succinct = clamp01(1 - float64(overflow)/float64(cfg.OverflowDivisor))
		} else {
			succinct = 0
		}
	}

	res := &Result{Component: ComponentSummary}

	var matched, missing []string
	for _, el := range cfg.RequiredElements {
		// Approval validation rejects bad or absent patterns; a broken one
		// here counts as undetected rather than failing the request.
		re, err := regexp.Compile("(?i)" + el.Pattern)
		if err == nil && el.Pattern != "" && re.MatchString(text) {
			matched = append(matched, el.ID)
			res.Successes = append(res.Successes, Success{
				Description: "Included required element: " + el.Description,
				RubricCitations: []string{
					RubricCitation{RubricID: e.RubricID, Anchor: el.Anchor}.URI(),
				},
				StudentCitations: []string{SummaryTokens(tokens).URI()},
			})
			continue
		}
		missing = append(missing, el.ID)
		res.Violations = append(res.Violations, Violation{
			Description: "Missing required element: " + el.Description,
			RubricCitations: []string{
				RubricCitation{RubricID: e.RubricID, Anchor: el.Anchor}.URI(),
			},
			StudentCitations: []string{SummaryTokens(tokens).URI()},
			Severity:         SeverityMinor,
		})
	}

	elements := 1.0
	if len(cfg.RequiredElements) > 0 {
		elements = float64(len(matched)) / float64(len(cfg.RequiredElements))
	}

	if overflow > 0 {
		res.Violations = append(res.Violations, Violation{
			Description: fmt.Sprintf("Summary too long: %d tokens (max %d)", tokens, cfg.MaxTokens),
			RubricCitations: []string{
				RubricCitation{RubricID: e.RubricID, Anchor: cfg.Anchor}.URI(),
			},
			StudentCitations: []string{SummaryTokens(tokens).URI()},
			Severity:         SeverityMinor,
		})
	}

	res.Score = clamp01(0.5*succinct + 0.5*elements)
	res.Detail = map[string]any{
		"token_count":      tokens,
		"max_tokens":       cfg.MaxTokens,
		"succinct_score":   succinct,
		"elements_score":   elements,
		"matched_elements": matched,
		"missing_elements": missing,
	}
	return res
}
