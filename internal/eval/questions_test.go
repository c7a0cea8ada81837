package eval_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oscegrade/oscegrade/internal/eval"
	"github.com/oscegrade/oscegrade/internal/rubric"
	"github.com/oscegrade/oscegrade/internal/transcript"
)

// fakeEmbedder maps known texts onto fixed unit vectors so cosine scores are
// exactly predictable. Unknown texts get an orthogonal default.
type fakeEmbedder struct {
	vectors   map[string][]float32
	available bool
	failEmbed bool
	calls     int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.failEmbed {
		return nil, errors.New("backend overloaded")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := f.vectors[strings.ToLower(t)]; ok {
			out[i] = v
		} else {
			out[i] = []float32{0, 0, 1}
		}
	}
	return out, nil
}

func (f *fakeEmbedder) Available(context.Context) bool { return f.available }

// fillerLines pad the corpus so idf behaves like it does on a real encounter;
// BM25 is uninformative over two or three documents.
var fillerLines = []string{
	"any fever or chills recently",
	"do you smoke or drink alcohol",
	"tell me about your job",
	"who lives with you at home",
	"any allergies to foods",
	"how is your appetite",
	"any recent travel outside of town",
	"thank you for sharing that",
}

func questionSeg(texts ...string) *transcript.Segmented {
	sec := transcript.Section{Label: "HPI"}
	for i, txt := range append(append([]string{}, texts...), fillerLines...) {
		ts := transcript.FormatSeconds(float64(10 * i))
		sec.Utterances = append(sec.Utterances, transcript.Utterance{
			Speaker:        transcript.SpeakerStudent,
			Text:           txt,
			TimestampStart: ts,
			TimestampEnd:   transcript.FormatSeconds(float64(10*i + 8)),
		})
	}
	return &transcript.Segmented{
		TranscriptID:  "t1",
		Sections:      []transcript.Section{sec},
		DetectedOrder: []string{"HPI"},
	}
}

var defaultPolicy = rubric.KeyQuestionsPolicy{
	Anchor:            "#kq-policy",
	CriticalWeight:    2.0,
	NoncriticalWeight: 1.0,
	CoverageThreshold: 0.8,
}

func TestQuestionsLexicalOnlyMatch(t *testing.T) {
	questions := []rubric.KeyQuestion{{
		ID:      "q-onset",
		Anchor:  "#q-onset",
		Label:   "symptom onset",
		Phrases: []string{"when did the weakness start"},
	}}
	seg := questionSeg(
		"Good morning, what brings you in today?",
		"When did the weakness start exactly?",
	)

	m := eval.NewQuestionMatcher("r1", nil)
	res, err := m.Evaluate(context.Background(), questions, defaultPolicy, seg)
	require.NoError(t, err)

	assert.False(t, res.SemanticUsed)
	assert.InDelta(t, 1.0, res.Score, 1e-9)
	require.Len(t, res.Successes, 1)
	assert.Contains(t, res.Successes[0].Description, "Asked about symptom onset")
	assert.Equal(t, []string{"rubric://r1#q-onset"}, res.Successes[0].RubricCitations)
	require.Len(t, res.Successes[0].StudentCitations, 1)
	assert.Equal(t, "student://oral#00:10–00:18", res.Successes[0].StudentCitations[0])
}

func TestQuestionsUnmatchedCriticalIsCriticalViolation(t *testing.T) {
	questions := []rubric.KeyQuestion{
		{ID: "q-meds", Anchor: "#q-meds", Label: "current medications",
			Critical: true, Phrases: []string{"what medications do you take"}},
		{ID: "q-fam", Anchor: "#q-fam", Label: "family history",
			Phrases: []string{"does anyone in your family have heart disease"}},
	}
	seg := questionSeg("Tell me about the pain.")

	m := eval.NewQuestionMatcher("r1", nil)
	res, err := m.Evaluate(context.Background(), questions, defaultPolicy, seg)
	require.NoError(t, err)

	assert.Zero(t, res.Score)
	require.Len(t, res.Violations, 2)
	assert.Equal(t, eval.SeverityCritical, res.Violations[0].Severity)
	assert.Equal(t, "Did not ask about current medications", res.Violations[0].Description)
	assert.Equal(t, eval.SeverityMinor, res.Violations[1].Severity)
}

func TestQuestionsCriticalWeighting(t *testing.T) {
	questions := []rubric.KeyQuestion{
		{ID: "q-crit", Anchor: "#q-crit", Label: "onset", Critical: true,
			Phrases: []string{"when did the weakness start"}},
		{ID: "q-minor", Anchor: "#q-minor", Label: "hobbies",
			Phrases: []string{"completely absent phrase zzz"}},
	}
	seg := questionSeg("When did the weakness start?")

	m := eval.NewQuestionMatcher("r1", nil)
	res, err := m.Evaluate(context.Background(), questions, defaultPolicy, seg)
	require.NoError(t, err)

	// matched critical weight 2 out of total 3
	assert.InDelta(t, 2.0/3.0, res.Score, 1e-9)
}

func TestQuestionsSemanticContribution(t *testing.T) {
	emb := &fakeEmbedder{
		available: true,
		vectors: map[string][]float32{
			"any trouble with your vision?": {1, 0, 0},
			"do you have visual problems":   {1, 0, 0},
		},
	}
	questions := []rubric.KeyQuestion{{
		ID:      "q-vision",
		Anchor:  "#q-vision",
		Label:   "visual symptoms",
		Phrases: []string{"do you have visual problems"},
	}}
	// No lexical overlap beyond stopwords; the embedding match carries it.
	seg := questionSeg("Any trouble with your vision?")

	m := eval.NewQuestionMatcher("r1", emb)
	res, err := m.Evaluate(context.Background(), questions, defaultPolicy, seg)
	require.NoError(t, err)

	assert.True(t, res.SemanticUsed)
	assert.InDelta(t, 1.0, res.Score, 1e-9)
	require.Len(t, res.Successes, 1)
	// batch embedding: one call for utterances, one for phrases
	assert.Equal(t, 2, emb.calls)
}

func TestQuestionsBackendFailureFallsBackToLexical(t *testing.T) {
	emb := &fakeEmbedder{available: true, failEmbed: true}
	questions := []rubric.KeyQuestion{{
		ID:      "q-onset",
		Anchor:  "#q-onset",
		Label:   "symptom onset",
		Phrases: []string{"when did the weakness start"},
	}}
	seg := questionSeg("When did the weakness start?")

	m := eval.NewQuestionMatcher("r1", emb)
	res, err := m.Evaluate(context.Background(), questions, defaultPolicy, seg)
	require.NoError(t, err, "a failing backend must degrade, not error")

	assert.False(t, res.SemanticUsed)
	// lexical weight renormalized to 1.0 keeps the threshold reachable
	assert.InDelta(t, 1.0, res.Score, 1e-9)
	assert.Len(t, res.Successes, 1)
}

func TestQuestionsBackendUnavailableFallsBackToLexical(t *testing.T) {
	emb := &fakeEmbedder{available: false}
	questions := []rubric.KeyQuestion{{
		ID:      "q-onset",
		Anchor:  "#q-onset",
		Label:   "symptom onset",
		Phrases: []string{"when did the weakness start"},
	}}
	seg := questionSeg("When did the weakness start?")

	m := eval.NewQuestionMatcher("r1", emb)
	res, err := m.Evaluate(context.Background(), questions, defaultPolicy, seg)
	require.NoError(t, err)

	assert.False(t, res.SemanticUsed)
	assert.Zero(t, emb.calls, "Embed must not be called when the probe fails")
	assert.InDelta(t, 1.0, res.Score, 1e-9)
}

func TestQuestionsNoQuestionsScoresFull(t *testing.T) {
	m := eval.NewQuestionMatcher("r1", nil)
	res, err := m.Evaluate(context.Background(), nil, defaultPolicy, questionSeg("hello"))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Score, 1e-9)
	assert.Empty(t, res.Violations)
}

func TestQuestionsDeterministic(t *testing.T) {
	questions := []rubric.KeyQuestion{
		{ID: "q1", Anchor: "#q1", Label: "onset", Phrases: []string{"when did it start", "how long has this been going on"}},
		{ID: "q2", Anchor: "#q2", Label: "severity", Phrases: []string{"how bad is the pain"}},
	}
	seg := questionSeg(
		"When did it start?",
		"How bad is the pain on a scale of one to ten?",
	)

	m := eval.NewQuestionMatcher("r1", nil)
	first, err := m.Evaluate(context.Background(), questions, defaultPolicy, seg)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := m.Evaluate(context.Background(), questions, defaultPolicy, seg)
		require.NoError(t, err)
		assert.Equal(t, first.Score, again.Score)
		assert.Equal(t, first.Successes, again.Successes)
	}
}
