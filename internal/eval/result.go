package eval

import (
	"errors"
	"fmt"
)

// Severity grades how badly a violation hurts the presentation.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
)

// Component names the four evaluated categories plus the reserved fifth.
type Component string

const (
	ComponentStructure     Component = "structure"
	ComponentKeyQuestions  Component = "key_questions"
	ComponentReasoning     Component = "reasoning"
	ComponentSummary       Component = "summary"
	ComponentCommunication Component = "communication"
)

// ErrCitationIntegrity marks an evaluator defect: feedback emitted without its
// required citations. It is fatal to the whole grading request and must never
// be swallowed; uncited feedback cannot be shown to a student.
var ErrCitationIntegrity = errors.New("citation integrity violated")

// ErrRubricDefect marks a rubric that should have been rejected at approval
// time, e.g. weights that do not sum to 1.0.
var ErrRubricDefect = errors.New("rubric defect")

// ErrMalformedTranscript marks a segmented transcript missing expected data.
// Evaluators still degrade to partial scores where they can.
var ErrMalformedTranscript = errors.New("malformed transcript")

// Violation is a rubric requirement the student failed, with the clauses that
// demand it and, where applicable, the spans showing what was said instead.
type Violation struct {
	Description      string   `json:"description"`
	RubricCitations  []string `json:"rubric_citations"`
	StudentCitations []string `json:"student_citations"`
	Severity         Severity `json:"severity"`
}

// Success is a rubric requirement the student met.
type Success struct {
	Description      string   `json:"description"`
	RubricCitations  []string `json:"rubric_citations"`
	StudentCitations []string `json:"student_citations"`
}

// Result is one component's evaluation outcome. Created fresh per request and
// never mutated afterwards.
type Result struct {
	Component  Component   `json:"component"`
	Score      float64     `json:"score"` // in [0,1]
	Violations []Violation `json:"violations"`
	Successes  []Success   `json:"successes"`

	// SemanticUsed records whether the semantic backend contributed to the
	// scores (key-question component only).
	SemanticUsed bool `json:"semantic_used,omitempty"`

	// Detail carries component-specific diagnostics for downstream audit.
	Detail map[string]any `json:"detail,omitempty"`
}

// CheckIntegrity enforces the citation rules over a result: every violation
// and success carries at least one rubric citation, and reasoning items carry
// a student citation on every success (dual-citation rule).
func (r *Result) CheckIntegrity() error {
	for i, v := range r.Violations {
		if len(v.RubricCitations) == 0 {
			return fmt.Errorf("%w: %s violation %d (%q) has no rubric citation",
				ErrCitationIntegrity, r.Component, i, v.Description)
		}
	}
	for i, s := range r.Successes {
		if len(s.RubricCitations) == 0 {
			return fmt.Errorf("%w: %s success %d (%q) has no rubric citation",
				ErrCitationIntegrity, r.Component, i, s.Description)
		}
		if r.Component == ComponentReasoning && len(s.StudentCitations) == 0 {
			return fmt.Errorf("%w: reasoning success %d (%q) has no student citation",
				ErrCitationIntegrity, i, s.Description)
		}
	}
	// Written so NaN fails too: every comparison against NaN is false.
	if !(r.Score >= 0 && r.Score <= 1) {
		return fmt.Errorf("%s score %v out of [0,1]", r.Component, r.Score)
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
