package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/oscegrade/oscegrade/internal/grading"
)

var reqValidator = validator.New(validator.WithRequiredStructEnabled())

// POST /gradings
func GradeHandler(svc *grading.Service) http.HandlerFunc {
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
		resp, err := svc.Grade(r.Context(), &req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// GET /gradings/{gradingID}
func GetGradingHandler(store grading.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "gradingID"))
		if id == "" {
			http.Error(w, "gradingID required", http.StatusBadRequest)
			return
		}
		resp, err := store.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// GET /transcripts/{transcriptID}/gradings
func ListGradingsHandler(store grading.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "transcriptID"))
		items, err := store.ListByTranscript(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}
