package store

import (
	"context"

	"facevote/internal/election/models"
	id "facevote/pkg/domain"
)

// Store persists elections and their candidates.
//
// Implementations return pkg/platform/sentinel errors; services translate
// them into domain errors.
type Store interface {
	// CreateIfAbsent inserts the election only while no election exists at
	// all; otherwise the existing election is returned with created=false.
	// The registry holds at most one election at a time.
	CreateIfAbsent(ctx context.Context, election *models.Election) (existing *models.Election, created bool, err error)

	FindByID(ctx context.Context, electionID id.ElectionID) (*models.Election, error)
	FindActive(ctx context.Context) (*models.Election, error)
	List(ctx context.Context) ([]*models.Election, error)

	// Activate marks the election active and every other election inactive
	// in one atomic step.
	Activate(ctx context.Context, electionID id.ElectionID) error

	// Delete removes the election and all its candidates.
	Delete(ctx context.Context, electionID id.ElectionID) error

	AddCandidate(ctx context.Context, candidate *models.Candidate) error
	ListCandidates(ctx context.Context, electionID id.ElectionID) ([]*models.Candidate, error)
	FindCandidateByOrdinal(ctx context.Context, electionID id.ElectionID, ordinal uint64) (*models.Candidate, error)
	DeactivateCandidate(ctx context.Context, candidateID id.CandidateID) error
}
