package biometric

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigest(t *testing.T) {
	t.Run("deterministic for identical embeddings", func(t *testing.T) {
		e := sequentialEmbedding(0.4)
		assert.Equal(t, Digest(e), Digest(e))

		clone := make(Embedding, len(e))
		copy(clone, e)
		assert.Equal(t, Digest(e), Digest(clone))
	})

	t.Run("differs when embeddings differ", func(t *testing.T) {
		a := sequentialEmbedding(0.4)
		b := perturb(a, 0.001)
		assert.NotEqual(t, Digest(a), Digest(b))
	})

	t.Run("sensitive to a single dimension", func(t *testing.T) {
		a := sequentialEmbedding(0.4)
		b := make(Embedding, len(a))
		copy(b, a)
		b[Dim-1] += 1e-9
		assert.NotEqual(t, Digest(a), Digest(b))
	})

	t.Run("hex form is 64 characters", func(t *testing.T) {
		assert.Len(t, DigestHex(sequentialEmbedding(0)), 64)
	})
}
