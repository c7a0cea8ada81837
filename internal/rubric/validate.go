package rubric

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	fieldValidator = validator.New(validator.WithRequiredStructEnabled())
	semverRe       = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
)

// Issue is one validation finding. Severity "error" blocks approval;
// "warning" does not.
type Issue struct {
	Severity string `json:"severity"` // error|warning
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Report is the outcome of validating a rubric.
type Report struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues"`
}

func (r *Report) errorf(category, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Severity: "error", Category: category, Message: fmt.Sprintf(format, args...)})
	r.Valid = false
}

func (r *Report) warnf(category, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Severity: "warning", Category: category, Message: fmt.Sprintf(format, args...)})
}

// Validate runs the full approval-time check suite. A rubric may only be
// approved if the returned report is Valid.
func Validate(rb *Rubric) Report {
	rep := Report{Valid: true}

	if err := fieldValidator.Struct(rb); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				rep.errorf("fields", "%s fails %q constraint", fe.Namespace(), fe.Tag())
			}
		} else {
			rep.errorf("fields", "%v", err)
		}
	}

	if !semverRe.MatchString(rb.Version) {
		rep.errorf("version", "invalid semantic version %q, expected X.Y.Z", rb.Version)
	}

	validateWeights(rb, &rep)
	validateAnchors(rb, &rep)
	validateStructure(rb, &rep)
	validateQuestions(rb, &rep)
	validateReasoning(rb, &rep)
	validateSummary(rb, &rep)

	return rep
}

func validateWeights(rb *Rubric, rep *Report) {
	if total := rb.Weights.Sum(); total < 0.999 || total > 1.001 {
		rep.errorf("weights", "weights must sum to 1.0, got %s", strconv.FormatFloat(total, 'f', 4, 64))
	}
}

func validateAnchors(rb *Rubric, rep *Report) {
	seen := map[string]bool{}
	for _, a := range rb.AllAnchors() {
		if seen[a] {
			rep.errorf("anchors", "duplicate anchor %s", a)
		}
		seen[a] = true
	}
}

func validateStructure(rb *Rubric, rep *Report) {
	if len(rb.Structure.ExpectedOrder) == 0 {
		rep.errorf("structure", "expected_order must not be empty")
	}
	seen := map[string]bool{}
	for _, label := range rb.Structure.ExpectedOrder {
		if seen[label] {
			rep.errorf("structure", "section %s repeats in expected_order", label)
		}
		seen[label] = true
	}
}

func validateQuestions(rb *Rubric, rep *Report) {
	critical := 0
	phraseOwner := map[string]string{}
	for _, q := range rb.KeyQuestions {
		if q.Critical {
			critical++
		}
		if len(q.Phrases) == 0 {
			rep.errorf("key_questions", "question %s has no matching phrases", q.ID)
		}
		for _, p := range q.Phrases {
			norm := strings.ToLower(strings.TrimSpace(p))
			if owner, dup := phraseOwner[norm]; dup && owner != q.ID {
				rep.warnf("key_questions", "phrase %q appears in both %s and %s", p, owner, q.ID)
			}
			phraseOwner[norm] = q.ID
		}
	}
	if len(rb.KeyQuestions) > 0 && critical == 0 {
		rep.warnf("key_questions", "no critical question defined")
	}
}

func validateReasoning(rb *Rubric, rep *Report) {
	for _, link := range rb.Reasoning.RequiredLinks {
		if _, err := regexp.Compile("(?i)" + link.Pattern); err != nil {
			rep.errorf("reasoning", "link %s has invalid pattern: %v", link.ID, err)
		}
	}
}

func validateSummary(rb *Rubric, rep *Report) {
	if rb.Summary.MaxTokens < 40 || rb.Summary.MaxTokens > 120 {
		rep.warnf("summary", "max_tokens %d outside the recommended 40-120 range", rb.Summary.MaxTokens)
	}
	for _, el := range rb.Summary.RequiredElements {
		if el.Pattern == "" {
			rep.errorf("summary", "element %s declares no detection pattern", el.ID)
			continue
		}
		if _, err := regexp.Compile("(?i)" + el.Pattern); err != nil {
			rep.errorf("summary", "element %s has invalid pattern: %v", el.ID, err)
		}
	}
}
