package store

import "math"

// CosineDistance calculates the cosine distance between two vectors.
// The result is in [0, 2]: 0 for identical direction, 1 for orthogonal,
// 2 for opposite. Mismatched lengths and zero vectors have no defined
// distance and return NaN, which callers drop via the distance guard.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.NaN()
	}

	var dot, normA, normB float64
	for i := 0; i < len(a); i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return math.NaN()
	}

	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
