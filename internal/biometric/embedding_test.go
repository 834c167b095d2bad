package biometric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "facevote/pkg/domain-errors"
)

func sequentialEmbedding(start float64) Embedding {
	e := make(Embedding, Dim)
	for i := range e {
		e[i] = start + float64(i)*0.01
	}
	return e
}

func TestCanonicalCodec(t *testing.T) {
	t.Run("round trips through canonical bytes", func(t *testing.T) {
		original := sequentialEmbedding(0.5)
		decoded, err := Decode(original.Bytes())
		require.NoError(t, err)
		assert.Equal(t, original, decoded)
	})

	t.Run("rejects truncated payloads", func(t *testing.T) {
		_, err := Decode(sequentialEmbedding(0).Bytes()[:100])
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeDataCorruption))
	})

	t.Run("rejects non-finite values", func(t *testing.T) {
		e := sequentialEmbedding(0)
		e[7] = math.NaN()
		_, err := Decode(e.Bytes())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeDataCorruption))
	})
}

func TestDecodeAll_SkipsCorruptEntriesIndividually(t *testing.T) {
	good1 := sequentialEmbedding(0.1)
	good2 := sequentialEmbedding(0.2)
	raws := [][]byte{
		good1.Bytes(),
		[]byte("garbage"),
		good2.Bytes(),
		nil,
	}

	decoded, skipped := DecodeAll(raws)

	assert.Equal(t, 2, skipped)
	require.Len(t, decoded, 2)
	assert.Equal(t, good1, decoded[0])
	assert.Equal(t, good2, decoded[1])
}

func TestDecodeAll_AllCorrupt(t *testing.T) {
	decoded, skipped := DecodeAll([][]byte{[]byte("a"), []byte("b")})
	assert.Empty(t, decoded)
	assert.Equal(t, 2, skipped)
}

func TestMean(t *testing.T) {
	t.Run("averages per dimension", func(t *testing.T) {
		a := make(Embedding, Dim)
		b := make(Embedding, Dim)
		for i := range a {
			a[i] = 1.0
			b[i] = 3.0
		}
		m := Mean([]Embedding{a, b})
		require.Len(t, m, Dim)
		for i := range m {
			assert.InDelta(t, 2.0, m[i], 1e-12)
		}
	})

	t.Run("returns nil for empty input", func(t *testing.T) {
		assert.Nil(t, Mean(nil))
	})

	t.Run("single embedding is its own mean", func(t *testing.T) {
		e := sequentialEmbedding(0.3)
		assert.Equal(t, e, Mean([]Embedding{e}))
	})
}
