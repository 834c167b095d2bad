// Package ledger mediates every read and write against the distributed
// election contract. Nothing else in the codebase talks to the chain, which
// is what makes the single-writer nonce invariant enforceable.
package ledger

import "context"

//go:generate mockgen -source=ledger.go -destination=mocks/bridge_mock.go -package=mocks Bridge

// TallyRow is one candidate's on-chain state as reported by the contract.
type TallyRow struct {
	Ordinal uint64 `json:"ordinal"`
	Name    string `json:"name"`
	Votes   uint64 `json:"votes"`
	Active  bool   `json:"active"`
}

// Bridge abstracts the election contract. Every write builds a transaction
// with the signing account's sequence number fetched at call time, submits
// it, and blocks until on-ledger confirmation; there is no fire-and-forget
// path. Implementations must serialize all writes from one signing account.
type Bridge interface {
	// Deploy creates a new election contract (no constructor arguments)
	// and returns its address once the deployment is mined.
	Deploy(ctx context.Context) (string, error)

	// AddCandidate registers a candidate on the contract and returns the
	// ledger-assigned 1-based ordinal, derived by re-reading the contract's
	// candidate count after confirmation. Correct only while candidate
	// additions are not concurrent, which the bridge's write serialization
	// guarantees for a single process.
	AddCandidate(ctx context.Context, contract, name string) (uint64, error)

	// DeactivateCandidate marks the given ordinal inactive on the contract.
	DeactivateCandidate(ctx context.Context, contract string, ordinal uint64) error

	// Vote records an anonymized voter digest against a candidate ordinal
	// and blocks until the transaction is confirmed. The digest length is
	// fixed at 32 bytes by the parameter type.
	Vote(ctx context.Context, contract string, digest [32]byte, ordinal uint64) error

	// ReadTally returns every candidate's on-chain vote count.
	ReadTally(ctx context.Context, contract string) ([]TallyRow, error)
}
