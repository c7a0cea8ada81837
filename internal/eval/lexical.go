package eval

import (
	"math"
	"regexp"
	"strings"
)

var wordRe = regexp.MustCompile(`\w+`)

func tokenizeWords(text string) []string {
	return wordRe.FindAllString(strings.ToLower(text), -1)
}

// bm25Index ranks short queries against a fixed document corpus using the
// Okapi BM25 weighting. Built once per request over the student's utterances
// and read-only afterwards, so it is safe to share across goroutines.
type bm25Index struct {
	docs   [][]string
	df     map[string]int
	avgLen float64
	k1     float64
	b      float64
}

// bm25NormDivisor maps raw Okapi scores onto [0,1]; raw scores above it
// saturate at 1. Chosen to keep confidences comparable across corpora.
const bm25NormDivisor = 10.0

func newBM25Index(texts []string) *bm25Index {
	idx := &bm25Index{df: map[string]int{}, k1: 1.5, b: 0.75}
	total := 0
	for _, t := range texts {
		doc := tokenizeWords(t)
		idx.docs = append(idx.docs, doc)
		total += len(doc)
		seen := map[string]bool{}
		for _, term := range doc {
			if !seen[term] {
				idx.df[term]++
				seen[term] = true
			}
		}
	}
	if len(idx.docs) > 0 {
		idx.avgLen = float64(total) / float64(len(idx.docs))
	}
	return idx
}

// score returns the BM25 score of the query against document i.
func (idx *bm25Index) score(query []string, i int) float64 {
	doc := idx.docs[i]
	if len(doc) == 0 || idx.avgLen == 0 {
		return 0
	}
	tf := map[string]int{}
	for _, term := range doc {
		tf[term]++
	}
	n := float64(len(idx.docs))
	var s float64
	for _, term := range query {
		f := float64(tf[term])
		if f == 0 {
			continue
		}
		df := float64(idx.df[term])
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		denom := f + idx.k1*(1-idx.b+idx.b*float64(len(doc))/idx.avgLen)
		s += idf * (f * (idx.k1 + 1)) / denom
	}
	return s
}

// BestMatch scores the query phrase against every document and returns the
// best normalized score with its document index. Returns index -1 on an
// empty corpus.
func (idx *bm25Index) BestMatch(phrase string) (float64, int) {
	query := tokenizeWords(phrase)
	best, bestIdx := 0.0, -1
	for i := range idx.docs {
		if s := idx.score(query, i); bestIdx == -1 || s > best {
			best, bestIdx = s, i
		}
	}
	if bestIdx == -1 {
		return 0, -1
	}
	return math.Min(best/bm25NormDivisor, 1.0), bestIdx
}
