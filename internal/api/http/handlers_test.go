package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	api "github.com/oscegrade/oscegrade/internal/api/http"
	"github.com/oscegrade/oscegrade/internal/eval"
	"github.com/oscegrade/oscegrade/internal/grading"
	"github.com/oscegrade/oscegrade/internal/rubric"
)

const rawEncounter = `
[00:05] Student: Good morning, what brings you in today?
[00:12] Patient: I suddenly got weak on my left side.
[00:30] Student: When did the weakness start?
[01:10] Student: Any fever or headache?
[01:40] Student: Do you have any medical conditions?
[02:10] Student: Do you smoke?
[03:10] Student: So to summarize, this is a 67-year-old man with acute onset of focal weakness, most consistent with stroke.
`

func rubricBody() map[string]any {
	return map[string]any{
		"rubric_id": "stroke-osce-01",
		"version":   "1.0.0",
		"status":    "draft",
		"weights": map[string]float64{
			"structure": 0.25, "key_questions": 0.25, "reasoning": 0.25, "summary": 0.25,
		},
		"structure": map[string]any{
			"anchor":         "#structure",
			"expected_order": []string{"CC", "HPI", "ROS", "PMH", "SH", "FH", "Summary"},
		},
		"key_questions": []map[string]any{{
			"id": "q-onset", "anchor": "#q-onset", "label": "symptom onset",
			"critical": true, "phrases": []string{"when did the weakness start"},
		}},
		"key_questions_policy": map[string]any{
			"anchor": "#kq-policy", "critical_weight": 2.0,
			"noncritical_weight": 1.0, "coverage_threshold": 0.8,
		},
		"reasoning": map[string]any{
			"anchor": "#reasoning",
			"required_links": []map[string]any{{
				"id": "link-stroke", "anchor": "#link-stroke",
				"description": "acute focal deficit to stroke",
				"pattern":     "acute.*focal.*stroke",
			}},
		},
		"summary": map[string]any{
			"anchor": "#summary", "max_tokens": 80, "overflow_divisor": 20,
			"required_elements": []map[string]any{{
				"id": "dx", "anchor": "#el-dx", "description": "working diagnosis", "pattern": "stroke",
			}},
		},
	}
}

func newTestRouter(t *testing.T) (*chi.Mux, rubric.Store) {
	t.Helper()
	rubrics := rubric.NewInMemoryStore()
	gradings := grading.NewMemoryStore()
	engine := eval.NewEngine(nil, nil)
	svc := grading.NewService(rubrics, gradings, engine, nil)

	r := chi.NewRouter()
	r.Post("/rubrics", api.CreateRubricHandler(rubrics))
	r.Get("/rubrics/{rubricID}", api.GetRubricHandler(rubrics))
	r.Get("/rubrics/{rubricID}/versions", api.ListRubricVersionsHandler(rubrics))
	r.Put("/rubrics/{rubricID}", api.UpdateRubricHandler(rubrics))
	r.Post("/rubrics/{rubricID}/approve", api.ApproveRubricHandler(rubrics))
	r.Delete("/rubrics/{rubricID}", api.DeleteRubricHandler(rubrics))
	r.Post("/rubrics/validate", api.ValidateRubricHandler())
	r.Post("/gradings", api.GradeHandler(svc))
	r.Get("/gradings/{gradingID}", api.GetGradingHandler(gradings))
	r.Get("/transcripts/{transcriptID}/gradings", api.ListGradingsHandler(gradings))
	r.Post("/transcripts/segment", api.SegmentTranscriptHandler())
	r.Get("/health", api.HealthHandler())
	return r, rubrics
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRubricLifecycleOverHTTP(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/rubrics", rubricBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// duplicate create conflicts
	rec = doJSON(t, r, http.MethodPost, "/rubrics", rubricBody())
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/rubrics/stroke-osce-01/approve?version=1.0.0", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var approved rubric.Rubric
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &approved))
	assert.Equal(t, rubric.StatusApproved, approved.Status)

	// latest approved resolves without a version
	rec = doJSON(t, r, http.MethodGet, "/rubrics/stroke-osce-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// approved versions cannot be deleted
	rec = doJSON(t, r, http.MethodDelete, "/rubrics/stroke-osce-01?version=1.0.0", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// edits land as a new draft
	rec = doJSON(t, r, http.MethodPut, "/rubrics/stroke-osce-01", rubricBody())
	require.Equal(t, http.StatusOK, rec.Code)
	var updated rubric.Rubric
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "1.0.1", updated.Version)
	assert.Equal(t, rubric.StatusDraft, updated.Status)

	rec = doJSON(t, r, http.MethodGet, "/rubrics/stroke-osce-01/versions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var versions []rubric.VersionInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &versions))
	assert.Len(t, versions, 2)
}

func TestApproveRejectsInvalidRubric(t *testing.T) {
	r, _ := newTestRouter(t)

	body := rubricBody()
	body["weights"] = map[string]float64{"structure": 0.9, "key_questions": 0.9}
	rec := doJSON(t, r, http.MethodPost, "/rubrics", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/rubrics/stroke-osce-01/approve?version=1.0.0", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed validation")
}

func TestValidateEndpointReportsIssues(t *testing.T) {
	r, _ := newTestRouter(t)

	body := rubricBody()
	body["version"] = "not-semver"
	rec := doJSON(t, r, http.MethodPost, "/rubrics/validate", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var rep rubric.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.False(t, rep.Valid)
	assert.NotEmpty(t, rep.Issues)
}

func TestGradeOverHTTP(t *testing.T) {
	r, rubrics := newTestRouter(t)
	rec := doJSON(t, r, http.MethodPost, "/rubrics", rubricBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	_, err := rubrics.Approve(context.Background(), "stroke-osce-01", "1.0.0")
	require.NoError(t, err)

	rec = doJSON(t, r, http.MethodPost, "/gradings", map[string]any{
		"rubric_id":      "stroke-osce-01",
		"transcript_id":  "t-500",
		"raw_transcript": rawEncounter,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp grading.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.GradingID)
	assert.Greater(t, resp.OverallScore, 0.0)
	require.NotNil(t, resp.Feedback)

	rec = doJSON(t, r, http.MethodGet, "/gradings/"+resp.GradingID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/transcripts/t-500/gradings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []grading.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestGradeValidationAndErrorMapping(t *testing.T) {
	r, _ := newTestRouter(t)

	// missing required fields
	rec := doJSON(t, r, http.MethodPost, "/gradings", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// unknown rubric maps to 404
	rec = doJSON(t, r, http.MethodPost, "/gradings", map[string]any{
		"rubric_id": "missing", "raw_transcript": rawEncounter,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/gradings/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSegmentPreviewOverHTTP(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := doJSON(t, r, http.MethodPost, "/transcripts/segment", map[string]any{
		"transcript_id": "t-1", "raw": rawEncounter,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var seg struct {
		DetectedOrder []string `json:"detected_order"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &seg))
	assert.Equal(t, []string{"CC", "HPI", "ROS", "PMH", "SH", "Summary"}, seg.DetectedOrder)
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
