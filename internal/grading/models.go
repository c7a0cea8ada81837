package grading

import (
	"github.com/oscegrade/oscegrade/internal/eval"
	"github.com/oscegrade/oscegrade/internal/feedback"
)

// Request is one grading job: a rubric reference plus either a raw transcript
// to parse or an already segmented one.
type Request struct {
	RubricID      string `json:"rubric_id" validate:"required"`
	RubricVersion string `json:"rubric_version"` // empty: latest approved
	TranscriptID  string `json:"transcript_id"`
	RawTranscript string `json:"raw_transcript" validate:"required"`
}

// Response is the persisted outcome of one grading request.
type Response struct {
	GradingID     string             `json:"grading_id"`
	RubricID      string             `json:"rubric_id"`
	RubricVersion string             `json:"rubric_version"`
	TranscriptID  string             `json:"transcript_id"`
	OverallScore  float64            `json:"overall_score"`
	Result        *eval.GradingResult `json:"result"`
	Feedback      *feedback.Feedback  `json:"feedback"`
	CreatedAt     int64              `json:"created_at"`
}
