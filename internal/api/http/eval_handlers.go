package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/oscegrade/oscegrade/internal/eval"
	"github.com/oscegrade/oscegrade/internal/grading"
	"github.com/oscegrade/oscegrade/internal/rubric"
	"github.com/oscegrade/oscegrade/internal/transcript"
)

// Single-component endpoints for rubric authoring: probe one evaluator
// against a transcript without recording a grading.

type componentEval func(ctx context.Context, engine *eval.Engine, rb *rubric.Rubric, seg *transcript.Segmented) (*eval.Result, error)

func evalComponentHandler(store rubric.Store, engine *eval.Engine, run componentEval) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req grading.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := reqValidator.Struct(&req); err != nil {
			http.Error(w, "invalid request: "+err.Error(), http.StatusBadRequest)
			return
		}
		rb, err := store.Get(r.Context(), req.RubricID, req.RubricVersion)
		if err != nil {
			writeError(w, err)
			return
		}
		transcriptID := req.TranscriptID
		if transcriptID == "" {
			transcriptID = uuid.NewString()
		}
		seg := transcript.Process(transcriptID, req.RawTranscript)
		res, err := run(r.Context(), engine, rb, seg)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// POST /evaluate/structure
func EvaluateStructureHandler(store rubric.Store, engine *eval.Engine) http.HandlerFunc {
	return evalComponentHandler(store, engine,
		func(_ context.Context, e *eval.Engine, rb *rubric.Rubric, seg *transcript.Segmented) (*eval.Result, error) {
			return e.EvaluateStructure(rb, seg)
		})
}

// POST /evaluate/questions
func EvaluateQuestionsHandler(store rubric.Store, engine *eval.Engine) http.HandlerFunc {
	return evalComponentHandler(store, engine,
		func(ctx context.Context, e *eval.Engine, rb *rubric.Rubric, seg *transcript.Segmented) (*eval.Result, error) {
			return e.EvaluateKeyQuestions(ctx, rb, seg)
		})
}

// POST /evaluate/reasoning
func EvaluateReasoningHandler(store rubric.Store, engine *eval.Engine) http.HandlerFunc {
	return evalComponentHandler(store, engine,
		func(_ context.Context, e *eval.Engine, rb *rubric.Rubric, seg *transcript.Segmented) (*eval.Result, error) {
			return e.EvaluateReasoning(rb, seg)
		})
}

// POST /evaluate/summary
func EvaluateSummaryHandler(store rubric.Store, engine *eval.Engine) http.HandlerFunc {
	return evalComponentHandler(store, engine,
		func(_ context.Context, e *eval.Engine, rb *rubric.Rubric, seg *transcript.Segmented) (*eval.Result, error) {
			return e.EvaluateSummary(rb, seg)
		})
}
