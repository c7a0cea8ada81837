package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/oscegrade/oscegrade/internal/eval"
	"github.com/oscegrade/oscegrade/internal/grading"
	"github.com/oscegrade/oscegrade/internal/rubric"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP statuses. Citation integrity
// failures are deliberately 500: they are bugs, not client mistakes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rubric.ErrNotFound), errors.Is(err, grading.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, rubric.ErrConflict), errors.Is(err, rubric.ErrImmutable),
		errors.Is(err, grading.ErrRubricNotApproved):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, eval.ErrRubricDefect), errors.Is(err, eval.ErrMalformedTranscript):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
