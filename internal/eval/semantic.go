package eval

import (
	"context"
	"math"
)

// Embedder turns texts into fixed-size vectors. Implementations wrap a
// pretrained sentence-embedding backend; the model is read-only and shared
// across concurrent requests.
//
// Available is a capability probe the matcher calls once per request. When it
// reports false the matcher falls back to lexical-only scoring instead of
// failing the grading request.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Available(ctx context.Context) bool
}

// cosine returns the cosine similarity of two vectors, 0 for mismatched or
// zero-length input.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// bestCosine returns the highest similarity between query and any candidate,
// with the candidate's index, or (0, -1) when candidates is empty.
func bestCosine(query []float32, candidates [][]float32) (float64, int) {
	best, bestIdx := 0.0, -1
	for i, c := range candidates {
		if s := cosine(query, c); bestIdx == -1 || s > best {
			best, bestIdx = s, i
		}
	}
	return best, bestIdx
}
