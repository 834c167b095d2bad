package biometric

import (
	"crypto/sha256"
	"encoding/hex"
)

// DigestSize is the byte length of an anonymized voter digest.
const DigestSize = sha256.Size

// Digest computes the anonymized voter commitment: a SHA-256 over the
// embedding's canonical byte representation. Identical embedding bytes always
// yield identical digests; no salt or nonce is applied, because the ledger
// side must be able to reproduce the digest from the stored embedding alone.
func Digest(e Embedding) [DigestSize]byte {
	return sha256.Sum256(e.Bytes())
}

// DigestHex returns the digest as a lowercase hex string for logs and
// audit events.
func DigestHex(e Embedding) string {
	d := Digest(e)
	return hex.EncodeToString(d[:])
}
