package models

import (
	"strings"
	"time"

	id "facevote/pkg/domain"
	dErrors "facevote/pkg/domain-errors"
)

// Election is a ballot contract deployed on the ledger.
//
// Invariants:
//   - Name is unique case-insensitively.
//   - ContractAddress is set at creation and never changes.
//   - At most one election is active at a time; activation is store-atomic.
type Election struct {
	ID              id.ElectionID
	Name            string
	ContractAddress string
	IsActive        bool
	CreatedAt       time.Time
}

// NewElection validates and constructs an Election.
func NewElection(electionID id.ElectionID, name, contractAddress string, createdAt time.Time) (*Election, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "election name is required")
	}
	if contractAddress == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "election requires a contract address")
	}
	return &Election{
		ID:              electionID,
		Name:            name,
		ContractAddress: contractAddress,
		CreatedAt:       createdAt,
	}, nil
}

// Candidate is a ballot option registered on an election's contract.
//
// OnChainID is the 1-based ordinal the contract assigned; it is the only
// identifier the ledger understands and never changes once assigned.
type Candidate struct {
	ID         id.CandidateID
	ElectionID id.ElectionID
	Name       string
	Party      string
	OnChainID  uint64
	Active     bool
	CreatedAt  time.Time
}

// NewCandidate validates and constructs a Candidate.
func NewCandidate(candidateID id.CandidateID, electionID id.ElectionID, name, party string, onChainID uint64, createdAt time.Time) (*Candidate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "candidate name is required")
	}
	if onChainID == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "candidate ordinal must be assigned by the contract")
	}
	return &Candidate{
		ID:         candidateID,
		ElectionID: electionID,
		Name:       name,
		Party:      strings.TrimSpace(party),
		OnChainID:  onChainID,
		Active:     true,
		CreatedAt:  createdAt,
	}, nil
}
