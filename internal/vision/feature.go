package vision

import "math"

// minNorm is the magnitude below which a vector is considered degenerate
// and left untouched by normalization.
const minNorm = 1e-6

// Normalize returns the L2-normalized copy of v. Vectors with near-zero
// magnitude are returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm < minNorm {
		return v
	}

	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// CosineSimilarity computes the cosine similarity of two vectors after
// normalizing both. Mismatched lengths or empty vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	na := Normalize(a)
	nb := Normalize(b)

	var dot float64
	for i := range na {
		dot += float64(na[i]) * float64(nb[i])
	}
	return dot
}

// ResizeVector adjusts v to exactly size elements: longer vectors are
// truncated, shorter ones zero-padded. The input is never mutated.
func ResizeVector(v []float32, size int) []float32 {
	if size <= 0 {
		return nil
	}
	out := make([]float32, size)
	copy(out, v)
	return out
}
