package eval

import (
	"fmt"
	"strings"

	"github.com/oscegrade/oscegrade/internal/rubric"
	"github.com/oscegrade/oscegrade/internal/transcript"
)

// StructureEvaluator scores section ordering and completeness. The base score
// is LCS(detected, expected) / len(expected); rubric penalty clauses then pull
// it down before clamping to [0,1].
type StructureEvaluator struct {
	RubricID string
}

func (e *StructureEvaluator) Evaluate(cfg rubric.StructureConfig, seg *transcript.Segmented) *Result {
	expected := cfg.ExpectedOrder
	detected := seg.DetectedOrder

	base := 1.0 // vacuous when the rubric expects nothing; validation rejects that shape
	if len(expected) > 0 {
		base = float64(lcsLength(detected, expected)) / float64(len(expected))
	}
	inOrder := lcsElements(detected, expected)

	res := &Result{Component: ComponentStructure}
	var totalPenalty float64
	var applied []map[string]any

	for _, p := range cfg.Penalties {
		v := e.checkPenalty(p, detected)
		if v == nil {
			continue
		}
		res.Violations = append(res.Violations, *v)
		applied = append(applied, map[string]any{
			"id": p.ID, "value": p.Value, "description": p.Description,
		})
		totalPenalty += p.Value
	}

	if len(inOrder) > 0 {
		res.Successes = append(res.Successes, Success{
			Description:     "Correctly ordered sections: " + strings.Join(inOrder, ", "),
			RubricCitations: []string{RubricCitation{RubricID: e.RubricID, Anchor: cfg.Anchor}.URI()},
		})
	}

	// Missing and out-of-order sections not covered by a named penalty still
	// surface as violations, without a score delta of their own.
	detectedSet := map[string]bool{}
	for _, s := range detected {
		detectedSet[s] = true
	}
	for _, section := range expected {
		if detectedSet[section] {
			continue
		}
		if hasPenaltyFor(cfg.Penalties, "missing_"+strings.ToLower(section)) {
			continue
		}
		res.Violations = append(res.Violations, Violation{
			Description:     fmt.Sprintf("Missing %s section", section),
			RubricCitations: []string{RubricCitation{RubricID: e.RubricID, Anchor: cfg.Anchor}.URI()},
			Severity:        SeverityMajor,
		})
	}
	for _, pair := range outOfOrderPairs(detected, expected) {
		first, second := pair[0], pair[1]
		if hasPenaltyFor(cfg.Penalties, fmt.Sprintf("swap_%s_before_%s", strings.ToLower(second), strings.ToLower(first))) {
			continue
		}
		res.Violations = append(res.Violations, Violation{
			Description: fmt.Sprintf("%s appears before %s (expected order: %s then %s)",
				second, first, first, second),
			RubricCitations: []string{RubricCitation{RubricID: e.RubricID, Anchor: cfg.Anchor}.URI()},
			Severity:        SeverityMinor,
		})
	}

	res.Score = clamp01(base + totalPenalty)
	res.Detail = map[string]any{
		"lcs_score":        base,
		"penalties":        applied,
		"detected_order":   detected,
		"expected_order":   expected,
		"ordered_sections": inOrder,
	}
	return res
}

// checkPenalty applies the id conventions: missing_<section> fires when the
// section never appears; swap_<a>_before_<b> fires when a precedes b although
// b is expected first.
func (e *StructureEvaluator) checkPenalty(p rubric.Penalty, detected []string) *Violation {
	if rest, ok := strings.CutPrefix(p.ID, "missing_"); ok {
		section := normalizeSectionLabel(rest)
		if !containsLabel(detected, section) {
			return &Violation{
				Description:     p.Description,
				RubricCitations: []string{RubricCitation{RubricID: e.RubricID, Anchor: p.Anchor}.URI()},
				Severity:        SeverityMajor,
			}
		}
	}
	if rest, ok := strings.CutPrefix(p.ID, "swap_"); ok {
		parts := strings.SplitN(rest, "_before_", 2)
		if len(parts) == 2 {
			early := normalizeSectionLabel(parts[0]) // appears too early
			late := normalizeSectionLabel(parts[1])  // should come first
			iEarly := indexOfLabel(detected, early)
			iLate := indexOfLabel(detected, late)
			if iEarly >= 0 && iLate >= 0 && iEarly < iLate {
				return &Violation{
					Description:     p.Description,
					RubricCitations: []string{RubricCitation{RubricID: e.RubricID, Anchor: p.Anchor}.URI()},
					Severity:        SeverityMajor,
				}
			}
		}
	}
	return nil
}

// outOfOrderPairs returns (shouldBeFirst, shouldBeSecond) for each adjacent
// detected pair whose expected positions are inverted.
func outOfOrderPairs(detected, expected []string) [][2]string {
	pos := map[string]int{}
	for i, s := range expected {
		pos[s] = i
	}
	var out [][2]string
	for i := 0; i+1 < len(detected); i++ {
		a, b := detected[i], detected[i+1]
		pa, okA := pos[a]
		pb, okB := pos[b]
		if !okA || !okB {
			continue
		}
		if pa > pb {
			out = append(out, [2]string{b, a})
		}
	}
	return out
}

// normalizeSectionLabel maps a lowercase penalty-id fragment onto the section
// label casing used in transcripts (CC, HPI, ..., Summary).
func normalizeSectionLabel(fragment string) string {
	if strings.EqualFold(fragment, "summary") {
		return "Summary"
	}
	return strings.ToUpper(fragment)
}

func hasPenaltyFor(penalties []rubric.Penalty, id string) bool {
	for _, p := range penalties {
		if strings.Contains(p.ID, id) {
			return true
		}
	}
	return false
}

func containsLabel(labels []string, label string) bool {
	return indexOfLabel(labels, label) >= 0
}

func indexOfLabel(labels []string, label string) int {
	for i, l := range labels {
		if strings.EqualFold(l, label) {
			return i
		}
	}
	return -1
}
