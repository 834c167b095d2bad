package biometric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// perturb shifts every dimension by delta, giving a known Euclidean distance
// of delta*sqrt(Dim) from the base.
func perturb(e Embedding, delta float64) Embedding {
	out := make(Embedding, len(e))
	for i, v := range e {
		out[i] = v + delta
	}
	return out
}

func TestDistance(t *testing.T) {
	base := sequentialEmbedding(0.2)

	t.Run("identical embeddings have zero distance", func(t *testing.T) {
		assert.Zero(t, Distance(base, base))
	})

	t.Run("known perturbation yields known distance", func(t *testing.T) {
		shifted := perturb(base, 0.03)
		want := 0.03 * math.Sqrt(float64(Dim))
		assert.InDelta(t, want, Distance(base, shifted), 1e-9)
	})

	t.Run("mismatched dimensions can never match", func(t *testing.T) {
		short := Embedding{1, 2, 3}
		assert.True(t, math.IsInf(Distance(base, short), 1))
	})
}

func TestMatches(t *testing.T) {
	base := sequentialEmbedding(0.2)

	t.Run("matches any member within tolerance", func(t *testing.T) {
		far := perturb(base, 1.0)
		near := perturb(base, 0.01)
		assert.True(t, Matches(base, []Embedding{far, near}, ToleranceAuthentication))
	})

	t.Run("rejects when every member is outside tolerance", func(t *testing.T) {
		far := perturb(base, 1.0)
		assert.False(t, Matches(base, []Embedding{far}, ToleranceAuthentication))
	})

	t.Run("empty known set never matches", func(t *testing.T) {
		assert.False(t, Matches(base, nil, ToleranceDuplicate))
	})

	// Monotonicity: if distance(a,b) <= t1 <= t2 then a match at t1 implies
	// a match at t2.
	t.Run("monotonic in tolerance", func(t *testing.T) {
		known := []Embedding{perturb(base, 0.02)}
		d := Distance(base, known[0])
		for _, tol := range []float64{d, d + 0.1, d + 0.5} {
			assert.True(t, Matches(base, known, tol), "tolerance %v", tol)
		}
		assert.False(t, Matches(base, known, d-1e-9))
	})

	t.Run("authentication profile is stricter than duplicate profile", func(t *testing.T) {
		require.Less(t, ToleranceAuthentication, ToleranceDuplicate)

		// A sample that sits between the two bounds: rejected for
		// authentication, still flagged as a duplicate enrollment.
		delta := (ToleranceAuthentication + ToleranceDuplicate) / 2 / math.Sqrt(float64(Dim))
		between := perturb(base, delta)
		assert.False(t, Matches(between, []Embedding{base}, ToleranceAuthentication))
		assert.True(t, Matches(between, []Embedding{base}, ToleranceDuplicate))
	})
}
