// Package domain defines typed identifiers shared across features.
//
// Wrapping uuid.UUID in distinct named types makes cross-aggregate mixups a
// compile error: a VoterID cannot be passed where an ElectionID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "facevote/pkg/domain-errors"
)

type (
	// VoterID identifies a registered voter.
	VoterID uuid.UUID
	// AdminID identifies an administrator account.
	AdminID uuid.UUID
	// ElectionID identifies an election aggregate.
	ElectionID uuid.UUID
	// CandidateID identifies an off-chain candidate record.
	CandidateID uuid.UUID
	// SessionID identifies an admin session.
	SessionID uuid.UUID
	// AttemptID identifies a vote attempt journal entry.
	AttemptID uuid.UUID
)

func (id VoterID) String() string     { return uuid.UUID(id).String() }
func (id AdminID) String() string     { return uuid.UUID(id).String() }
func (id ElectionID) String() string  { return uuid.UUID(id).String() }
func (id CandidateID) String() string { return uuid.UUID(id).String() }
func (id SessionID) String() string   { return uuid.UUID(id).String() }
func (id AttemptID) String() string   { return uuid.UUID(id).String() }

func (id VoterID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id AdminID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ElectionID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id CandidateID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id AttemptID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

// NewVoterID returns a fresh random voter ID.
func NewVoterID() VoterID { return VoterID(uuid.New()) }

// NewAdminID returns a fresh random admin ID.
func NewAdminID() AdminID { return AdminID(uuid.New()) }

// NewElectionID returns a fresh random election ID.
func NewElectionID() ElectionID { return ElectionID(uuid.New()) }

// NewCandidateID returns a fresh random candidate ID.
func NewCandidateID() CandidateID { return CandidateID(uuid.New()) }

// NewSessionID returns a fresh random session ID.
func NewSessionID() SessionID { return SessionID(uuid.New()) }

// NewAttemptID returns a fresh random attempt ID.
func NewAttemptID() AttemptID { return AttemptID(uuid.New()) }

// parseUUID enforces the shared invariant: IDs must be valid, non-nil UUIDs.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id is required", kind)
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id is not a valid uuid", kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id cannot be the nil uuid", kind)
	}
	return parsed, nil
}

// ParseVoterID validates raw and returns a typed voter ID.
func ParseVoterID(raw string) (VoterID, error) {
	parsed, err := parseUUID(raw, "voter")
	return VoterID(parsed), err
}

// ParseAdminID validates raw and returns a typed admin ID.
func ParseAdminID(raw string) (AdminID, error) {
	parsed, err := parseUUID(raw, "admin")
	return AdminID(parsed), err
}

// ParseElectionID validates raw and returns a typed election ID.
func ParseElectionID(raw string) (ElectionID, error) {
	parsed, err := parseUUID(raw, "election")
	return ElectionID(parsed), err
}

// ParseCandidateID validates raw and returns a typed candidate ID.
func ParseCandidateID(raw string) (CandidateID, error) {
	parsed, err := parseUUID(raw, "candidate")
	return CandidateID(parsed), err
}

// ParseSessionID validates raw and returns a typed session ID.
func ParseSessionID(raw string) (SessionID, error) {
	parsed, err := parseUUID(raw, "session")
	return SessionID(parsed), err
}
