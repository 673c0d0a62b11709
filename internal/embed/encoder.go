package embed

import (
	"context"
	"math"
)

// Encoder produces sentence embeddings. Implementations must be
// deterministic for identical input so results can be cached.
type Encoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}

// Cosine returns the cosine similarity of two vectors.
// Returns exactly 0.0 when either vector has zero norm; never divides by
// zero. Symmetric in its arguments.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
