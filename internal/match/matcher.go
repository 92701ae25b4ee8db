// Package match implements nearest-neighbor search over enrolled face
// embeddings. The metric is Euclidean (L2) distance, never cosine
// similarity; thresholds are calibrated for L2 and the two must not be
// conflated. The scan is exhaustive: enrollment counts are classroom-scale,
// so no index structure is warranted.
package match

import "math"

// Enrollment is the matcher's view of one identity: its id and every
// embedding enrolled for it. Identities without embeddings (soft-deleted)
// must be filtered by the caller or are skipped here.
type Enrollment struct {
	ID         string
	Embeddings [][]float64
}

// Candidate is a match result: the winning identity and its distance.
type Candidate struct {
	ID       string
	Distance float64
}

// Distance returns the L2 norm between two equal-length vectors.
func Distance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Best scans every embedding of every enrollment and returns the identity
// with the globally minimum distance to probe. Returns false when nothing
// is enrolled.
func Best(probe []float64, enrollments []Enrollment) (Candidate, bool) {
	best := Candidate{Distance: math.Inf(1)}
	found := false
	for _, e := range enrollments {
		for _, emb := range e.Embeddings {
			if len(emb) != len(probe) {
				continue
			}
			if d := Distance(probe, emb); d < best.Distance {
				best = Candidate{ID: e.ID, Distance: d}
				found = true
			}
		}
	}
	return best, found
}

// Match returns the best candidate strictly below tolerance. No match is a
// normal outcome, not an error.
func Match(probe []float64, tolerance float64, enrollments []Enrollment) (Candidate, bool) {
	best, ok := Best(probe, enrollments)
	if !ok || best.Distance >= tolerance {
		return Candidate{}, false
	}
	return best, true
}

// Within reports whether probe is within tolerance of any of the given
// embeddings, along with the closest distance found. Used by monitoring,
// which compares against a single identity's enrollments rather than
// searching globally.
func Within(probe []float64, tolerance float64, embeddings [][]float64) (float64, bool) {
	best := math.Inf(1)
	for _, emb := range embeddings {
		if len(emb) != len(probe) {
			continue
		}
		if d := Distance(probe, emb); d < best {
			best = d
		}
	}
	return best, best < tolerance
}
