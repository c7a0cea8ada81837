package eval

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oscegrade/oscegrade/internal/rubric"
	"github.com/oscegrade/oscegrade/internal/transcript"
)

// Default hybrid weights and acceptance threshold. Rubrics may not override
// the threshold; score comparability across cohorts depends on it.
const (
	DefaultLexicalWeight  = 0.4
	DefaultSemanticWeight = 0.6
	DefaultMatchThreshold = 0.5
)

// QuestionMatch records one accepted key-question detection.
type QuestionMatch struct {
	QuestionID      string  `json:"question_id"`
	QuestionAnchor  string  `json:"question_anchor"`
	MatchedPhrase   string  `json:"matched_phrase"`
	Confidence      float64 `json:"confidence"`
	StudentCitation string  `json:"student_citation"`
	Critical        bool    `json:"critical"`
	Weight          float64 `json:"weight"`
}

// QuestionMatcher detects rubric key questions in student utterances by
// combining BM25 lexical relevance with embedding cosine similarity.
type QuestionMatcher struct {
	RubricID       string
	Embedder       Embedder // nil disables semantic scoring entirely
	LexicalWeight  float64
	SemanticWeight float64
	Threshold      float64
	Log            *logrus.Logger
}

func NewQuestionMatcher(rubricID string, embedder Embedder) *QuestionMatcher {
	return &QuestionMatcher{
		RubricID:       rubricID,
		Embedder:       embedder,
		LexicalWeight:  DefaultLexicalWeight,
		SemanticWeight: DefaultSemanticWeight,
		Threshold:      DefaultMatchThreshold,
	}
}

// Evaluate matches every key question against the student's utterances.
//
// The semantic backend is probed once per call and all embeddings happen in
// two batch calls (utterances, then phrases). Any backend failure degrades to
// lexical-only scoring with the lexical weight renormalized to 1.0, so the
// acceptance threshold stays reachable; it is never a request failure.
func (m *QuestionMatcher) Evaluate(ctx context.Context, questions []rubric.KeyQuestion, policy rubric.KeyQuestionsPolicy, seg *transcript.Segmented) (*Result, error) {
	utterances := seg.StudentUtterances()

	texts := make([]string, len(utterances))
	for i, u := range utterances {
		texts[i] = u.Text
	}
	lexIndex := newBM25Index(texts)

	semantic := m.Embedder != nil && m.Embedder.Available(ctx) && len(texts) > 0
	var utterVecs [][]float32
	phraseVecs := map[string][][]float32{} // question id -> one vector per phrase
	if semantic {
		var err error
		utterVecs, err = m.Embedder.Embed(ctx, texts)
		if err == nil {
			var all []string
			for _, q := range questions {
				all = append(all, q.Phrases...)
			}
			var vecs [][]float32
			if vecs, err = m.Embedder.Embed(ctx, all); err == nil {
				off := 0
				for _, q := range questions {
					phraseVecs[q.ID] = vecs[off : off+len(q.Phrases)]
					off += len(q.Phrases)
				}
			}
		}
		if err != nil {
			semantic = false
			if m.Log != nil {
				m.Log.WithError(err).Warn("embedding backend failed, matching on lexical scores only")
			}
		}
	} else if m.Log != nil && m.Embedder != nil && len(texts) > 0 {
		m.Log.WithField("rubric_id", m.RubricID).
			Warn("semantic backend unavailable, matching on lexical scores only")
	}

	wLex, wSem := m.LexicalWeight, m.SemanticWeight
	if !semantic {
		wLex, wSem = 1.0, 0.0
	}

	res := &Result{Component: ComponentKeyQuestions, SemanticUsed: semantic}
	var matches []QuestionMatch
	var unmatched []string
	var totalWeight, matchedWeight float64

	for _, q := range questions {
		weight := policy.NoncriticalWeight
		if q.Critical {
			weight = policy.CriticalWeight
		}
		totalWeight += weight

		confidence, phrase, utterIdx := matchQuestion(q, lexIndex, phraseVecs[q.ID], utterVecs, wLex, wSem)

		if confidence >= m.Threshold && utterIdx >= 0 {
			u := utterances[utterIdx]
			citation := OralSpan(u.TimestampStart, u.TimestampEnd).URI()
			matches = append(matches, QuestionMatch{
				QuestionID:      q.ID,
				QuestionAnchor:  q.Anchor,
				MatchedPhrase:   phrase,
				Confidence:      confidence,
				StudentCitation: citation,
				Critical:        q.Critical,
				Weight:          weight,
			})
			matchedWeight += weight
			res.Successes = append(res.Successes, Success{
				Description: fmt.Sprintf("Asked about %s (confidence %.2f)", q.Label, confidence),
				RubricCitations: []string{
					RubricCitation{RubricID: m.RubricID, Anchor: q.Anchor}.URI(),
				},
				StudentCitations: []string{citation},
			})
			continue
		}

		unmatched = append(unmatched, q.ID)
		severity := SeverityMinor
		if q.Critical {
			severity = SeverityCritical
		}
		res.Violations = append(res.Violations, Violation{
			Description: fmt.Sprintf("Did not ask about %s", q.Label),
			RubricCitations: []string{
				RubricCitation{RubricID: m.RubricID, Anchor: q.Anchor}.URI(),
			},
			Severity: severity,
		})
	}

	if totalWeight > 0 {
		res.Score = clamp01(matchedWeight / totalWeight)
	} else {
		res.Score = 1.0
	}
	res.Detail = map[string]any{
		"matches":             matches,
		"unmatched_questions": unmatched,
		"total_weight":        totalWeight,
		"matched_weight":      matchedWeight,
	}
	return res, nil
}

// matchQuestion scores every rubric phrase of q against the utterances and
// returns the best hybrid confidence, the winning phrase and the index of the
// best-matching utterance (-1 when there are no utterances). Ties keep the
// earliest phrase, so repeated runs yield identical matches.
func matchQuestion(q rubric.KeyQuestion, lexIndex *bm25Index, phraseVecs, utterVecs [][]float32, wLex, wSem float64) (float64, string, int) {
	bestConf, bestPhrase, bestUtter := 0.0, "", -1
	for pi, phrase := range q.Phrases {
		lexScore, lexIdx := lexIndex.BestMatch(phrase)

		semScore, semIdx := 0.0, -1
		if pi < len(phraseVecs) {
			semScore, semIdx = bestCosine(phraseVecs[pi], utterVecs)
		}

		hybrid := wLex*lexScore + wSem*semScore
		if bestUtter != -1 && hybrid <= bestConf {
			continue
		}

		// Cite the utterance picked by the dominant signal.
		idx := lexIdx
		if semIdx >= 0 && wSem*semScore >= wLex*lexScore {
			idx = semIdx
		}
		if idx >= 0 {
			bestConf, bestPhrase, bestUtter = hybrid, phrase, idx
		}
	}
	return bestConf, bestPhrase, bestUtter
}
