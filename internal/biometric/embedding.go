// Package biometric converts captured imagery into comparable identity
// vectors and decides identity equality under tunable tolerance.
//
// Nothing in this package touches storage or the ledger; it is pure
// computation so every property can be unit tested.
package biometric

import (
	"encoding/binary"
	"math"

	dErrors "facevote/pkg/domain-errors"
)

// Dim is the fixed dimensionality of every identity embedding.
const Dim = 128

// encodedSize is the canonical wire size of one embedding: Dim 64-bit floats.
const encodedSize = Dim * 8

// Embedding is a fixed-length identity feature vector.
//
// Canonical serialization is an ordered sequence of Dim little-endian IEEE-754
// 64-bit values. The anonymization digest is computed over exactly these
// bytes, so the encoding must never change silently.
type Embedding []float64

// Bytes returns the canonical serialization of the embedding.
func (e Embedding) Bytes() []byte {
	buf := make([]byte, len(e)*8)
	for i, v := range e {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// Decode parses a canonical serialization, validating length and finiteness.
// Stored rows pass through here on every read; anything malformed is rejected
// rather than silently coerced.
func Decode(raw []byte) (Embedding, error) {
	if len(raw) != encodedSize {
		return nil, dErrors.Newf(dErrors.CodeDataCorruption,
			"embedding has %d bytes, want %d", len(raw), encodedSize)
	}
	e := make(Embedding, Dim)
	for i := range e {
		v := math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, dErrors.Newf(dErrors.CodeDataCorruption,
				"embedding dimension %d is not finite", i)
		}
		e[i] = v
	}
	return e, nil
}

// DecodeAll decodes a batch of stored embeddings. Corrupt entries are skipped
// individually; the second return value reports how many were dropped so the
// caller can log them. When every entry is corrupt the caller decides whether
// that is fatal.
func DecodeAll(raws [][]byte) (decoded []Embedding, skipped int) {
	decoded = make([]Embedding, 0, len(raws))
	for _, raw := range raws {
		e, err := Decode(raw)
		if err != nil {
			skipped++
			continue
		}
		decoded = append(decoded, e)
	}
	return decoded, skipped
}

// Mean returns the per-dimension arithmetic mean of the given embeddings.
// Averaging multiple capture frames reduces sensor and pose noise at
// enrollment time.
func Mean(embeddings []Embedding) Embedding {
	if len(embeddings) == 0 {
		return nil
	}
	out := make(Embedding, Dim)
	for _, e := range embeddings {
		for i, v := range e {
			out[i] += v
		}
	}
	n := float64(len(embeddings))
	for i := range out {
		out[i] /= n
	}
	return out
}
