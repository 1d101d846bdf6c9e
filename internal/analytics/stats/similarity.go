package stats

import "math"

// Cosine returns the cosine similarity of two equal-length vectors, bounded
// in [-1, 1]. Returns false when either vector has zero norm or lengths
// differ.
func Cosine(a, b []float64) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	norm := math.Sqrt(na) * math.Sqrt(nb)
	if norm == 0 {
		return 0, false
	}
	sim := dot / norm
	// Guard against float drift outside the bound.
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}
	return sim, true
}
