package http

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/oscegrade/oscegrade/internal/transcript"
)

// POST /transcripts/segment  { "transcript_id": "...", "raw": "..." }
// Preview endpoint: shows how a raw transcript parses and segments before an
// examiner commits to grading it.
func SegmentTranscriptHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TranscriptID string `json:"transcript_id"`
			Raw          string `json:"raw"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.Raw == "" {
			http.Error(w, "raw transcript required", http.StatusBadRequest)
			return
		}
		if req.TranscriptID == "" {
			req.TranscriptID = uuid.NewString()
		}
		writeJSON(w, http.StatusOK, transcript.Process(req.TranscriptID, req.Raw))
	}
}

// GET /health
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
