// Package feedback turns evaluation results into prose. Every item keeps the
// citations of the violation or success it was rendered from; the composer
// never invents a statement that lacks one.
package feedback

import (
	"fmt"
	"math"

	"github.com/oscegrade/oscegrade/internal/eval"
)

// Item is one rendered feedback line with its citations carried through.
type Item struct {
	Type      string              `json:"type"` // violation|success
	Text      string              `json:"text"`
	Citations map[string][]string `json:"citations"` // "rubric" and "student"
}

// Section groups feedback for one grading category.
type Section struct {
	Category string `json:"category"`
	Items    []Item `json:"items"`
}

// Feedback is the complete rendered output for one grading.
type Feedback struct {
	OverallSummary string    `json:"overall_summary"`
	Sections       []Section `json:"sections"`
}

var categoryTitles = map[eval.Component]string{
	eval.ComponentStructure:    "Presentation Structure",
	eval.ComponentKeyQuestions: "Key Questions",
	eval.ComponentReasoning:    "Clinical Reasoning",
	eval.ComponentSummary:      "Summary",
}

var componentOrder = []eval.Component{
	eval.ComponentStructure,
	eval.ComponentKeyQuestions,
	eval.ComponentReasoning,
	eval.ComponentSummary,
}

// Compose renders a grading result into banded prose plus per-category items.
func Compose(gr *eval.GradingResult) *Feedback {
	fb := &Feedback{OverallSummary: overallSummary(gr.OverallScore)}
	for _, comp := range componentOrder {
		res := gr.Results[comp]
		if res == nil {
			continue
		}
		fb.Sections = append(fb.Sections, composeSection(comp, res))
	}
	return fb
}

func overallSummary(score float64) string {
	quality := "Needs improvement"
	switch {
	case score >= 0.9:
		quality = "Excellent work"
	case score >= 0.8:
		quality = "Strong performance"
	case score >= 0.7:
		quality = "Good effort"
	case score >= 0.6:
		quality = "Satisfactory"
	}
	return fmt.Sprintf("%s. You scored %d%% on this presentation.", quality, int(math.Round(score*100)))
}

func composeSection(comp eval.Component, res *eval.Result) Section {
	sec := Section{Category: categoryTitles[comp]}
	for _, v := range res.Violations {
		sec.Items = append(sec.Items, Item{
			Type: "violation",
			Text: v.Description,
			Citations: map[string][]string{
				"rubric":  v.RubricCitations,
				"student": v.StudentCitations,
			},
		})
	}
	for _, s := range res.Successes {
		sec.Items = append(sec.Items, Item{
			Type: "success",
			Text: s.Description,
			Citations: map[string][]string{
				"rubric":  s.RubricCitations,
				"student": s.StudentCitations,
			},
		})
	}
	return sec
}
