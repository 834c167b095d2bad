// Package store persists the vote attempt journal. Implementations return
// pkg/platform/sentinel errors; the orchestrator translates them.
package store

import (
	"context"
	"time"

	"facevote/internal/voting/models"
	id "facevote/pkg/domain"
)

// Store is the attempt journal contract. At most one open (non-committed)
// attempt may exist per voter and election; Create returns
// sentinel.ErrConflict when that slot is taken.
type Store interface {
	Create(ctx context.Context, attempt *models.Attempt) error

	FindByID(ctx context.Context, attemptID id.AttemptID) (*models.Attempt, error)

	// FindOpen returns the open attempt for the voter and election, or
	// sentinel.ErrNotFound when there is none.
	FindOpen(ctx context.Context, voterID id.VoterID, electionID id.ElectionID) (*models.Attempt, error)

	// SetState advances the attempt's state and stamps UpdatedAt.
	SetState(ctx context.Context, attemptID id.AttemptID, state models.AttemptState, now time.Time) error

	// Retarget rewrites the digest and ordinal of a pending attempt. Returns
	// sentinel.ErrNotFound once the attempt has left the pending state.
	Retarget(ctx context.Context, attemptID id.AttemptID, digestHex string, ordinal uint64, now time.Time) error

	// ListSubmitted returns attempts whose ledger write confirmed but whose
	// local flip was never recorded. The reconciler repairs these.
	ListSubmitted(ctx context.Context) ([]*models.Attempt, error)
}
