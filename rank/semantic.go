package rank

import "math"

// Semantic computes the cosine similarity between a precomputed query
// embedding and a candidate's stored embedding, normalized to [0,1].
//
// Semantic scoring is best-effort: nil, mismatched, or zero-norm vectors
// yield 0.0 rather than an error, so keyword-only ranking stays usable when
// embeddings are missing or malformed.
func Semantic(queryVector, entityVector []float32) float64 {
	if len(queryVector) == 0 || len(entityVector) == 0 {
		return 0.0
	}
	if len(queryVector) != len(entityVector) {
		return 0.0
	}

	var dot, normQ, normE float64
	for i := range queryVector {
		q := float64(queryVector[i])
		e := float64(entityVector[i])
		dot += q * e
		normQ += q * q
		normE += e * e
	}

	if normQ == 0 || normE == 0 {
		return 0.0
	}

	cos := dot / (math.Sqrt(normQ) * math.Sqrt(normE))

	// Map [-1,1] to [0,1] and clamp against float drift.
	score := (cos + 1) / 2
	if score < 0 {
		return 0.0
	}
	if score > 1 {
		return 1.0
	}
	return score
}
