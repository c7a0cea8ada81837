package rubric

import (
	"time"
)

// Status is a rubric lifecycle state. Draft rubrics may be edited or deleted;
// approved rubrics are immutable and never hard-deleted.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusApproved Status = "approved"
	StatusArchived Status = "archived"
)

// Weights for the grading components. Must sum to 1.0 within 0.001.
// Communication is carried for forward compatibility and defaults to 0.
type Weights struct {
	Structure     float64 `json:"structure" validate:"gte=0,lte=1"`
	KeyQuestions  float64 `json:"key_questions" validate:"gte=0,lte=1"`
	Reasoning     float64 `json:"reasoning" validate:"gte=0,lte=1"`
	Summary       float64 `json:"summary" validate:"gte=0,lte=1"`
	Communication float64 `json:"communication" validate:"gte=0,lte=1"`
}

// Sum returns the total of all component weights.
func (w Weights) Sum() float64 {
	return w.Structure + w.KeyQuestions + w.Reasoning + w.Summary + w.Communication
}

// Penalty is a named structure deduction, e.g. id "missing_summary" with
// value -0.3. Ids follow the missing_<section> / swap_<a>_before_<b>
// conventions the structure evaluator interprets.
type Penalty struct {
	ID          string  `json:"id" validate:"required"`
	Anchor      string  `json:"anchor" validate:"required,startswith=#"`
	Description string  `json:"description" validate:"required"`
	Value       float64 `json:"value" validate:"lte=0"`
}

// StructureConfig describes the expected section ordering.
type StructureConfig struct {
	Anchor        string    `json:"anchor" validate:"required,startswith=#"`
	ExpectedOrder []string  `json:"expected_order" validate:"required,min=1"`
	Penalties     []Penalty `json:"penalties" validate:"dive"`
}

// KeyQuestion is a question the student is expected to ask, detected by
// matching any of its phrases against student utterances.
type KeyQuestion struct {
	ID       string   `json:"id" validate:"required"`
	Anchor   string   `json:"anchor" validate:"required,startswith=#"`
	Label    string   `json:"label" validate:"required"`
	Critical bool     `json:"critical"`
	Phrases  []string `json:"phrases" validate:"required,min=1"`
}

// KeyQuestionsPolicy sets per-question weights and the coverage threshold.
type KeyQuestionsPolicy struct {
	Anchor            string  `json:"anchor" validate:"required,startswith=#"`
	CriticalWeight    float64 `json:"critical_weight" validate:"gt=0"`
	NoncriticalWeight float64 `json:"noncritical_weight" validate:"gt=0"`
	CoverageThreshold float64 `json:"coverage_threshold" validate:"gte=0,lte=1"`
}

// ReasoningLink is a required clinical reasoning connection, detected via a
// regular expression over the student's summary (or full transcript).
type ReasoningLink struct {
	ID          string `json:"id" validate:"required"`
	Anchor      string `json:"anchor" validate:"required,startswith=#"`
	Description string `json:"description" validate:"required"`
	Pattern     string `json:"pattern" validate:"required"`
}

// ReasoningConfig lists the required reasoning links.
type ReasoningConfig struct {
	Anchor          string          `json:"anchor" validate:"required,startswith=#"`
	RequiredLinks   []ReasoningLink `json:"required_links" validate:"dive"`
	MajorGapPenalty float64         `json:"major_gap_penalty" validate:"lte=0"`
}

// SummaryElement is content the summary must include. Pattern is required at
// approval time: elements without one cannot be detected deterministically.
type SummaryElement struct {
	ID          string `json:"id" validate:"required"`
	Anchor      string `json:"anchor" validate:"required,startswith=#"`
	Description string `json:"description" validate:"required"`
	Pattern     string `json:"pattern"`
}

// SummaryConfig bounds summary length and lists required elements.
type SummaryConfig struct {
	Anchor           string           `json:"anchor" validate:"required,startswith=#"`
	MaxTokens        int              `json:"max_tokens" validate:"gt=0"`
	OverflowDivisor  int              `json:"overflow_divisor" validate:"gt=0"`
	RequiredElements []SummaryElement `json:"required_elements" validate:"dive"`
}

// CommunicationRule is a placeholder category rule, not evaluated yet.
type CommunicationRule struct {
	ID          string `json:"id" validate:"required"`
	Anchor      string `json:"anchor" validate:"required,startswith=#"`
	Description string `json:"description" validate:"required"`
}

// CommunicationConfig carries the forward-compatible fifth category.
type CommunicationConfig struct {
	Anchor string              `json:"anchor" validate:"required,startswith=#"`
	Weight float64             `json:"weight" validate:"gte=0,lte=1"`
	Rules  []CommunicationRule `json:"rules" validate:"dive"`
}

// Rubric is a versioned grading configuration. Once approved it is immutable;
// edits produce a new draft version with a bumped patch number.
type Rubric struct {
	RubricID  string    `json:"rubric_id" validate:"required"`
	Version   string    `json:"version" validate:"required"`
	Status    Status    `json:"status" validate:"oneof=draft approved archived"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Weights            Weights             `json:"weights"`
	Structure          StructureConfig     `json:"structure"`
	KeyQuestions       []KeyQuestion       `json:"key_questions" validate:"dive"`
	KeyQuestionsPolicy KeyQuestionsPolicy  `json:"key_questions_policy"`
	Reasoning          ReasoningConfig     `json:"reasoning"`
	Summary            SummaryConfig       `json:"summary"`
	Communication      CommunicationConfig `json:"communication"`
}

// AllAnchors returns every anchor declared anywhere in the rubric,
// including duplicates, in declaration order.
func (r *Rubric) AllAnchors() []string {
	anchors := []string{r.Structure.Anchor}
	for _, p := range r.Structure.Penalties {
		anchors = append(anchors, p.Anchor)
	}
	for _, q := range r.KeyQuestions {
		anchors = append(anchors, q.Anchor)
	}
	anchors = append(anchors, r.KeyQuestionsPolicy.Anchor)
	for _, l := range r.Reasoning.RequiredLinks {
		anchors = append(anchors, l.Anchor)
	}
	anchors = append(anchors, r.Reasoning.Anchor)
	for _, e := range r.Summary.RequiredElements {
		anchors = append(anchors, e.Anchor)
	}
	anchors = append(anchors, r.Summary.Anchor)
	for _, c := range r.Communication.Rules {
		anchors = append(anchors, c.Anchor)
	}
	anchors = append(anchors, r.Communication.Anchor)
	return anchors
}

// HasAnchor reports whether the rubric declares the given anchor.
func (r *Rubric) HasAnchor(anchor string) bool {
	for _, a := range r.AllAnchors() {
		if a == anchor {
			return true
		}
	}
	return false
}
