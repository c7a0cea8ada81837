package grading

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oscegrade/oscegrade/internal/auth"
	"github.com/oscegrade/oscegrade/internal/eval"
	"github.com/oscegrade/oscegrade/internal/feedback"
	"github.com/oscegrade/oscegrade/internal/rubric"
	"github.com/oscegrade/oscegrade/internal/transcript"
)

// ErrRubricNotApproved rejects grading against a draft or archived rubric.
var ErrRubricNotApproved = errors.New("rubric not approved")

// Service runs grading end to end: resolve the rubric, parse and segment the
// transcript, evaluate, compose feedback, persist.
type Service struct {
	Rubrics rubric.Store
	Store   Store
	Engine  *eval.Engine
	Log     *logrus.Logger
}

func NewService(rubrics rubric.Store, store Store, engine *eval.Engine, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{Rubrics: rubrics, Store: store, Engine: engine, Log: log}
}

func (s *Service) Grade(ctx context.Context, req *Request) (*Response, error) {
	rb, err := s.Rubrics.Get(ctx, req.RubricID, req.RubricVersion)
	if err != nil {
		return nil, fmt.Errorf("resolve rubric %s: %w", req.RubricID, err)
	}
	if rb.Status != rubric.StatusApproved {
		return nil, fmt.Errorf("%w: %s@%s is %s", ErrRubricNotApproved, rb.RubricID, rb.Version, rb.Status)
	}

	transcriptID := req.TranscriptID
	if transcriptID == "" {
		transcriptID = uuid.NewString()
	}
	seg := transcript.Process(transcriptID, req.RawTranscript)
	if len(seg.StudentUtterances()) == 0 {
		return nil, fmt.Errorf("%w: no student speech in transcript %s",
			eval.ErrMalformedTranscript, transcriptID)
	}
	if !seg.HasSection("Summary") {
		// Gradable, but summary and reasoning scores will be degraded.
		s.Log.WithField("transcript", transcriptID).Warn("no summary section detected")
	}

	result, err := s.Engine.Evaluate(ctx, rb, seg)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		GradingID:     uuid.NewString(),
		RubricID:      result.RubricID,
		RubricVersion: result.RubricVersion,
		TranscriptID:  result.TranscriptID,
		OverallScore:  result.OverallScore,
		Result:        result,
		Feedback:      feedback.Compose(result),
		CreatedAt:     time.Now().Unix(),
	}
	if err := s.Store.Save(ctx, resp); err != nil {
		return nil, fmt.Errorf("persist grading %s: %w", resp.GradingID, err)
	}
	s.Log.WithFields(logrus.Fields{
		"grading_id": resp.GradingID,
		"rubric":     resp.RubricID + "@" + resp.RubricVersion,
		"transcript": resp.TranscriptID,
		"score":      resp.OverallScore,
		"graded_by":  auth.SubjectFromContext(ctx),
	}).Info("grading complete")
	return resp, nil
}
