package models

import (
	"strings"
	"time"

	id "facevote/pkg/domain"
	dErrors "facevote/pkg/domain-errors"
)

// Voter is the aggregate root for a registered voter.
//
// Invariants:
//   - Enrollment is non-empty and unique across all voters
//   - Embeddings holds at least one canonical embedding serialization
//   - HasVoted transitions false→true exactly once per voting cycle; it
//     reverses only through an explicit administrative reset (election
//     deletion resets every voter)
//
// The biometric payload is stored only as embedding bytes; raw imagery is
// never persisted.
type Voter struct {
	ID         id.VoterID `json:"id"`
	Name       string     `json:"name"`
	Enrollment string     `json:"enrollment"`
	Embeddings [][]byte   `json:"-"`
	HasVoted   bool       `json:"has_voted"`
	CreatedAt  time.Time  `json:"created_at"`
}

func NewVoter(voterID id.VoterID, name, enrollment string, embeddings [][]byte, now time.Time) (*Voter, error) {
	name = strings.TrimSpace(name)
	enrollment = strings.TrimSpace(enrollment)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "voter name is required")
	}
	if enrollment == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "enrollment code is required")
	}
	if len(embeddings) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "voter must have at least one embedding")
	}
	return &Voter{
		ID:         voterID,
		Name:       name,
		Enrollment: enrollment,
		Embeddings: embeddings,
		HasVoted:   false,
		CreatedAt:  now,
	}, nil
}

// CanVote checks the single-cast invariant.
func (v *Voter) CanVote() error {
	if v.HasVoted {
		return dErrors.New(dErrors.CodeConflict, "voter has already cast a vote")
	}
	return nil
}

// ApplyVote flips the voted flag. Call CanVote first; the pair is used
// inside the store's Execute callback so the check and the flip share one
// lock.
func (v *Voter) ApplyVote() {
	v.HasVoted = true
}

// CanDelete allows removal only while the voter has not voted, so a cast
// ballot always keeps its off-chain counterpart.
func (v *Voter) CanDelete() error {
	if v.HasVoted {
		return dErrors.New(dErrors.CodeConflict, "voter has already voted and cannot be deleted")
	}
	return nil
}

// Clone returns a deep copy so callers can hand voters across goroutines
// without sharing the embedding slices.
func (v *Voter) Clone() *Voter {
	out := *v
	out.Embeddings = make([][]byte, len(v.Embeddings))
	for i, e := range v.Embeddings {
		out.Embeddings[i] = append([]byte(nil), e...)
	}
	return &out
}
