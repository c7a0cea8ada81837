package eval

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/oscegrade/oscegrade/internal/rubric"
	"github.com/oscegrade/oscegrade/internal/transcript"
)

// GradingResult is the engine's output: the overall score, the per-component
// breakdown and the four component results. Immutable once returned.
type GradingResult struct {
	RubricID      string                  `json:"rubric_id"`
	RubricVersion string                  `json:"rubric_version"`
	TranscriptID  string                  `json:"transcript_id"`
	OverallScore  float64                 `json:"overall_score"`
	Scores        ComponentScores         `json:"component_scores"`
	Breakdown     map[Component]Breakdown `json:"score_breakdown"`
	Results       map[Component]*Result   `json:"results"`
}

// Engine runs the four evaluators concurrently over one (rubric, transcript)
// pair and aggregates their scores. It holds only read-only state and is safe
// for concurrent use across requests.
type Engine struct {
	embedder Embedder
	log      *logrus.Logger
}

func NewEngine(embedder Embedder, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.New()
	}
	return &Engine{embedder: embedder, log: log}
}

// Evaluate grades a segmented transcript against an approved rubric.
//
// The four evaluators are independent pure functions over the same inputs and
// run in parallel; aggregation blocks until all four finish. Cancellation of
// ctx abandons the request atomically: no partial result is ever returned.
// A citation integrity failure is a bug in an evaluator and fails the whole
// call; uncited feedback must never reach a student.
func (e *Engine) Evaluate(ctx context.Context, rb *rubric.Rubric, seg *transcript.Segmented) (*GradingResult, error) {
	if seg == nil || len(seg.Sections) == 0 {
		// Still grade what we can: structure degrades against an empty
		// detected order, the other components score their own absences.
		e.log.WithField("rubric_id", rb.RubricID).Warn("transcript has no sections, grading degraded")
		if seg == nil {
			return nil, fmt.Errorf("%w: no segmented transcript", ErrMalformedTranscript)
		}
	}

	var structureRes, questionsRes, reasoningRes, summaryRes *Result

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ev := &StructureEvaluator{RubricID: rb.RubricID}
		structureRes = ev.Evaluate(rb.Structure, seg)
		return gctx.Err()
	})
	g.Go(func() error {
		m := NewQuestionMatcher(rb.RubricID, e.embedder)
		m.Log = e.log
		var err error
		questionsRes, err = m.Evaluate(gctx, rb.KeyQuestions, rb.KeyQuestionsPolicy, seg)
		return err
	})
	g.Go(func() error {
		ev := &ReasoningEvaluator{RubricID: rb.RubricID}
		reasoningRes = ev.Evaluate(rb.Reasoning, seg)
		return gctx.Err()
	})
	g.Go(func() error {
		ev := &SummaryEvaluator{RubricID: rb.RubricID}
		summaryRes = ev.Evaluate(rb.Summary, seg)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := map[Component]*Result{
		ComponentStructure:    structureRes,
		ComponentKeyQuestions: questionsRes,
		ComponentReasoning:    reasoningRes,
		ComponentSummary:      summaryRes,
	}
	for _, r := range results {
		if err := r.CheckIntegrity(); err != nil {
			return nil, err
		}
	}

	scores := ComponentScores{
		Structure:    structureRes.Score,
		KeyQuestions: questionsRes.Score,
		Reasoning:    reasoningRes.Score,
		Summary:      summaryRes.Score,
	}
	overall, breakdown, err := Aggregate(rb.Weights, scores)
	if err != nil {
		return nil, err
	}

	return &GradingResult{
		RubricID:      rb.RubricID,
		RubricVersion: rb.Version,
		TranscriptID:  seg.TranscriptID,
		OverallScore:  overall,
		Scores:        scores,
		Breakdown:     breakdown,
		Results:       results,
	}, nil
}

// EvaluateStructure runs only the structure component.
func (e *Engine) EvaluateStructure(rb *rubric.Rubric, seg *transcript.Segmented) (*Result, error) {
	res := (&StructureEvaluator{RubricID: rb.RubricID}).Evaluate(rb.Structure, seg)
	if err := res.CheckIntegrity(); err != nil {
		return nil, err
	}
	return res, nil
}

// EvaluateKeyQuestions runs only the key-question component.
func (e *Engine) EvaluateKeyQuestions(ctx context.Context, rb *rubric.Rubric, seg *transcript.Segmented) (*Result, error) {
	m := NewQuestionMatcher(rb.RubricID, e.embedder)
	m.Log = e.log
	res, err := m.Evaluate(ctx, rb.KeyQuestions, rb.KeyQuestionsPolicy, seg)
	if err != nil {
		return nil, err
	}
	if err := res.CheckIntegrity(); err != nil {
		return nil, err
	}
	return res, nil
}

// EvaluateReasoning runs only the reasoning component.
func (e *Engine) EvaluateReasoning(rb *rubric.Rubric, seg *transcript.Segmented) (*Result, error) {
	res := (&ReasoningEvaluator{RubricID: rb.RubricID}).Evaluate(rb.Reasoning, seg)
	if err := res.CheckIntegrity(); err != nil {
		return nil, err
	}
	return res, nil
}

// EvaluateSummary runs only the summary component.
func (e *Engine) EvaluateSummary(rb *rubric.Rubric, seg *transcript.Segmented) (*Result, error) {
	res := (&SummaryEvaluator{RubricID: rb.RubricID}).Evaluate(rb.Summary, seg)
	if err := res.CheckIntegrity(); err != nil {
		return nil, err
	}
	return res, nil
}
