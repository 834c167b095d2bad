package models

import (
	"time"

	id "facevote/pkg/domain"
	dErrors "facevote/pkg/domain-errors"
)

// AttemptState tracks how far a vote got across the two storage systems.
type AttemptState string

const (
	// AttemptPending is recorded before the ledger write. A pending attempt
	// carries no on-chain side effect and is safe to retry.
	AttemptPending AttemptState = "pending"
	// AttemptSubmitted means the ledger confirmed the vote but the voter's
	// local status flip has not been observed yet.
	AttemptSubmitted AttemptState = "submitted"
	// AttemptCommitted means both the ledger write and the local flip are
	// durable. Terminal.
	AttemptCommitted AttemptState = "committed"
)

// Attempt is the idempotency journal entry for one vote submission. It is
// what lets a crash between ledger confirmation and the local status flip
// be detected and repaired instead of silently permitting a second vote.
type Attempt struct {
	ID         id.AttemptID
	VoterID    id.VoterID
	ElectionID id.ElectionID
	DigestHex  string
	Ordinal    uint64
	State      AttemptState
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewAttempt journals a pending vote submission.
func NewAttempt(attemptID id.AttemptID, voterID id.VoterID, electionID id.ElectionID,
	digestHex string, ordinal uint64, now time.Time) (*Attempt, error) {
	if voterID.IsNil() || electionID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "attempt requires voter and election")
	}
	if digestHex == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "attempt requires a voter digest")
	}
	if ordinal == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "candidate ordinal must be positive")
	}
	return &Attempt{
		ID:         attemptID,
		VoterID:    voterID,
		ElectionID: electionID,
		DigestHex:  digestHex,
		Ordinal:    ordinal,
		State:      AttemptPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Open reports whether the attempt still needs work.
func (a *Attempt) Open() bool {
	return a.State != AttemptCommitted
}

// Clone returns a deep copy.
func (a *Attempt) Clone() *Attempt {
	clone := *a
	return &clone
}
