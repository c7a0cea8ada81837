package eval_test

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oscegrade/oscegrade/internal/eval"
	"github.com/oscegrade/oscegrade/internal/rubric"
	"github.com/oscegrade/oscegrade/internal/transcript"
)

func summarySeg(text string) *transcript.Segmented {
	return &transcript.Segmented{
		TranscriptID: "t1",
		Sections: []transcript.Section{{
			Label: "Summary",
			Utterances: []transcript.Utterance{{
				Speaker:        transcript.SpeakerStudent,
				Text:           text,
				TimestampStart: "08:00",
				TimestampEnd:   "08:45",
			}},
		}},
		DetectedOrder: []string{"Summary"},
	}
}

func summaryCfg(elements ...rubric.SummaryElement) rubric.SummaryConfig {
	return rubric.SummaryConfig{
		Anchor:           "#summary",
		MaxTokens:        80,
		OverflowDivisor:  20,
		RequiredElements: elements,
	}
}

func TestSummaryWithinBudgetAllElements(t *testing.T) {
	cfg := summaryCfg(
		rubric.SummaryElement{ID: "age-sex", Anchor: "#el-age", Description: "age and sex",
			Pattern: `\d+-year-old (man|woman)`},
		rubric.SummaryElement{ID: "diagnosis", Anchor: "#el-dx", Description: "working diagnosis",
			Pattern: `stroke`},
	)
	ev := &eval.SummaryEvaluator{RubricID: "r1"}
	res := ev.Evaluate(cfg, summarySeg(
		"So to summarize, this is a 67-year-old man with sudden left-sided weakness, concerning for acute stroke."))

	assert.InDelta(t, 1.0, res.Score, 1e-9)
	assert.Empty(t, res.Violations)
	require.Len(t, res.Successes, 2)
	assert.Equal(t, []string{"rubric://r1#el-age"}, res.Successes[0].RubricCitations)
	require.Len(t, res.Successes[0].StudentCitations, 1)
	assert.True(t, strings.HasPrefix(res.Successes[0].StudentCitations[0], "student://summary#tokens="))
}

func TestSummaryOverflowScoring(t *testing.T) {
	// 95 tokens against a budget of 80 with divisor 20: succinctness
	// 1 - 15/20 = 0.25; no required elements means elements score 1.0.
	text := strings.TrimSpace(strings.Repeat("word ", 95))
	require.Equal(t, 95, eval.CountTokens(text))

	ev := &eval.SummaryEvaluator{RubricID: "r1"}
	res := ev.Evaluate(summaryCfg(), summarySeg(text))

	assert.InDelta(t, 0.5*0.25+0.5*1.0, res.Score, 1e-9)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, "Summary too long: 95 tokens (max 80)", res.Violations[0].Description)
	assert.Equal(t, eval.SeverityMinor, res.Violations[0].Severity)
	assert.Equal(t, []string{"student://summary#tokens=95"}, res.Violations[0].StudentCitations)
}

func TestSummaryExtremeOverflowClampsToZeroSuccinctness(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("word ", 300))
	ev := &eval.SummaryEvaluator{RubricID: "r1"}
	res := ev.Evaluate(summaryCfg(), summarySeg(text))
	// succinctness floor is 0, elements 1.0
	assert.InDelta(t, 0.5, res.Score, 1e-9)
}

func TestSummaryMissingElement(t *testing.T) {
	cfg := summaryCfg(rubric.SummaryElement{
		ID: "diagnosis", Anchor: "#el-dx", Description: "working diagnosis", Pattern: `stroke`,
	})
	ev := &eval.SummaryEvaluator{RubricID: "r1"}
	res := ev.Evaluate(cfg, summarySeg("In summary the patient has weakness of unclear cause."))

	assert.InDelta(t, 0.5, res.Score, 1e-9)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, "Missing required element: working diagnosis", res.Violations[0].Description)
	assert.Equal(t, []string{"rubric://r1#el-dx"}, res.Violations[0].RubricCitations)
	assert.NotEmpty(t, res.Violations[0].StudentCitations)
}

func TestSummaryElementMatchIsCaseInsensitive(t *testing.T) {
	cfg := summaryCfg(rubric.SummaryElement{
		ID: "diagnosis", Anchor: "#el-dx", Description: "working diagnosis", Pattern: `STROKE`,
	})
	ev := &eval.SummaryEvaluator{RubricID: "r1"}
	res := ev.Evaluate(cfg, summarySeg("Likely an acute stroke."))
	assert.Len(t, res.Successes, 1)
}

func TestSummaryZeroOverflowDivisor(t *testing.T) {
	// Reachable through the authoring probes, which accept unvalidated drafts.
	cfg := rubric.SummaryConfig{Anchor: "#summary", MaxTokens: 10, OverflowDivisor: 0}
	ev := &eval.SummaryEvaluator{RubricID: "r1"}

	res := ev.Evaluate(cfg, summarySeg("Brief summary."))
	require.False(t, math.IsNaN(res.Score))
	assert.InDelta(t, 1.0, res.Score, 1e-9)
	require.NoError(t, res.CheckIntegrity())

	// Over budget with a zero divisor: any overflow forfeits succinctness.
	over := ev.Evaluate(cfg, summarySeg(strings.TrimSpace(strings.Repeat("word ", 12))))
	require.False(t, math.IsNaN(over.Score))
	assert.InDelta(t, 0.5, over.Score, 1e-9)
	require.NoError(t, over.CheckIntegrity())
}

func TestCheckIntegrityRejectsNaNScore(t *testing.T) {
	res := &eval.Result{Component: eval.ComponentSummary, Score: math.NaN()}
	assert.Error(t, res.CheckIntegrity())

	res.Score = 0.5
	assert.NoError(t, res.CheckIntegrity())
}

func TestSummaryNoSummarySection(t *testing.T) {
	cfg := summaryCfg(rubric.SummaryElement{
		ID: "diagnosis", Anchor: "#el-dx", Description: "working diagnosis", Pattern: `stroke`,
	})
	seg := &transcript.Segmented{
		TranscriptID:  "t1",
		Sections:      []transcript.Section{{Label: "CC"}},
		DetectedOrder: []string{"CC"},
	}
	ev := &eval.SummaryEvaluator{RubricID: "r1"}
	res := ev.Evaluate(cfg, seg)

	// zero tokens is under budget, so succinctness is full and only the
	// element half is lost
	assert.InDelta(t, 0.5, res.Score, 1e-9)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, []string{"student://summary#tokens=0"}, res.Violations[0].StudentCitations)
	require.NoError(t, res.CheckIntegrity())
}
