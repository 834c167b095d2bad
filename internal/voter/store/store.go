// Package store persists the Voter aggregate. Implementations return
// pkg/platform/sentinel errors; services translate them into domain errors.
package store

import (
	"context"

	"facevote/internal/voter/models"
	id "facevote/pkg/domain"
)

// Store is the voter persistence contract.
type Store interface {
	// Create inserts a new voter. Returns sentinel.ErrConflict when the
	// enrollment code is already taken.
	Create(ctx context.Context, voter *models.Voter) error

	FindByID(ctx context.Context, voterID id.VoterID) (*models.Voter, error)
	FindByEnrollment(ctx context.Context, enrollment string) (*models.Voter, error)
	List(ctx context.Context) ([]*models.Voter, error)

	// Execute atomically runs validate then mutate against the voter row
	// while holding its lock (mutex in memory, FOR UPDATE in postgres).
	// This is what keeps two concurrent vote attempts from both passing
	// the "not yet voted" check.
	Execute(ctx context.Context, voterID id.VoterID,
		validate func(*models.Voter) error,
		mutate func(*models.Voter)) (*models.Voter, error)

	// Delete removes a voter. Returns sentinel.ErrNotFound when absent.
	Delete(ctx context.Context, voterID id.VoterID) error

	// ResetAllVoted clears every voter's voted flag and reports how many
	// rows changed. Used by election deletion's global reset.
	ResetAllVoted(ctx context.Context) (int64, error)
}
