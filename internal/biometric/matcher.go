package biometric

import "math"

// Tolerance profiles. Authentication uses the tighter bound because a false
// accept there lets one person vote as another. Duplicate-enrollment
// prevention uses the looser bound so near-duplicate identities trying to
// re-register are still caught.
const (
	ToleranceAuthentication = 0.45
	ToleranceDuplicate      = 0.55
)

// Distance returns the Euclidean distance between two embeddings.
// Mismatched dimensions yield +Inf so the pair can never match.
func Distance(a, b Embedding) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Matches reports whether candidate is within tolerance of any member of
// known. Monotonic in tolerance: growing the bound never turns a match into
// a non-match.
func Matches(candidate Embedding, known []Embedding, tolerance float64) bool {
	for _, k := range known {
		if Distance(candidate, k) <= tolerance {
			return true
		}
	}
	return false
}
