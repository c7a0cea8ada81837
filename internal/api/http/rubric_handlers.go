package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/oscegrade/oscegrade/internal/rubric"
)

// POST /rubrics
func CreateRubricHandler(store rubric.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rb rubric.Rubric
		if err := json.NewDecoder(r.Body).Decode(&rb); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := store.Create(r.Context(), &rb); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, &rb)
	}
}

// GET /rubrics/{rubricID}?version=X.Y.Z  (no version: latest approved)
func GetRubricHandler(store rubric.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "rubricID"))
		if id == "" {
			http.Error(w, "rubricID required", http.StatusBadRequest)
			return
		}
		rb, err := store.Get(r.Context(), id, r.URL.Query().Get("version"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rb)
	}
}

// GET /rubrics/{rubricID}/versions
func ListRubricVersionsHandler(store rubric.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "rubricID"))
		versions, err := store.ListVersions(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, versions)
	}
}

// PUT /rubrics/{rubricID}
// Every edit lands as a new draft with the patch version bumped off the
// latest existing version; approved rubrics are never touched in place.
func UpdateRubricHandler(store rubric.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "rubricID"))
		var rb rubric.Rubric
		if err := json.NewDecoder(r.Body).Decode(&rb); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if rb.RubricID != "" && rb.RubricID != id {
			http.Error(w, "rubric_id mismatch", http.StatusBadRequest)
			return
		}
		rb.RubricID = id
		updated, err := store.Update(r.Context(), &rb)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

// POST /rubrics/{rubricID}/approve?version=X.Y.Z
func ApproveRubricHandler(store rubric.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "rubricID"))
		version := r.URL.Query().Get("version")
		if version == "" {
			http.Error(w, "version required", http.StatusBadRequest)
			return
		}
		rb, err := store.Approve(r.Context(), id, version)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rb)
	}
}

// DELETE /rubrics/{rubricID}?version=X.Y.Z
func DeleteRubricHandler(store rubric.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "rubricID"))
		version := r.URL.Query().Get("version")
		if version == "" {
			http.Error(w, "version required", http.StatusBadRequest)
			return
		}
		if err := store.Delete(r.Context(), id, version); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// POST /rubrics/validate
// Dry-run QA check: returns the full issue report without storing anything.
func ValidateRubricHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rb rubric.Rubric
		if err := json.NewDecoder(r.Body).Decode(&rb); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, rubric.Validate(&rb))
	}
}
