package store

import (
	"context"
	"sync"
	"time"

	"facevote/internal/voting/models"
	id "facevote/pkg/domain"
	"facevote/pkg/platform/sentinel"
)

type openKey struct {
	voter    id.VoterID
	election id.ElectionID
}

// InMemory is a map-backed attempt journal for tests and single-node runs.
type InMemory struct {
	mu       sync.RWMutex
	attempts map[id.AttemptID]*models.Attempt
	open     map[openKey]id.AttemptID
}

func NewInMemory() *InMemory {
	return &InMemory{
		attempts: make(map[id.AttemptID]*models.Attempt),
		open:     make(map[openKey]id.AttemptID),
	}
}

func (s *InMemory) Create(_ context.Context, attempt *models.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := openKey{voter: attempt.VoterID, election: attempt.ElectionID}
	if _, taken := s.open[key]; taken {
		return sentinel.ErrConflict
	}

	s.attempts[attempt.ID] = attempt.Clone()
	s.open[key] = attempt.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, attemptID id.AttemptID) (*models.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	attempt, ok := s.attempts[attemptID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return attempt.Clone(), nil
}

func (s *InMemory) FindOpen(_ context.Context, voterID id.VoterID, electionID id.ElectionID) (*models.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	attemptID, ok := s.open[openKey{voter: voterID, election: electionID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.attempts[attemptID].Clone(), nil
}

func (s *InMemory) SetState(_ context.Context, attemptID id.AttemptID, state models.AttemptState, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt, ok := s.attempts[attemptID]
	if !ok {
		return sentinel.ErrNotFound
	}
	attempt.State = state
	attempt.UpdatedAt = now
	if state == models.AttemptCommitted {
		delete(s.open, openKey{voter: attempt.VoterID, election: attempt.ElectionID})
	}
	return nil
}

func (s *InMemory) Retarget(_ context.Context, attemptID id.AttemptID, digestHex string, ordinal uint64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt, ok := s.attempts[attemptID]
	if !ok || attempt.State != models.AttemptPending {
		return sentinel.ErrNotFound
	}
	attempt.DigestHex = digestHex
	attempt.Ordinal = ordinal
	attempt.UpdatedAt = now
	return nil
}

func (s *InMemory) ListSubmitted(_ context.Context) ([]*models.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Attempt
	for _, attempt := range s.attempts {
		if attempt.State == models.AttemptSubmitted {
			out = append(out, attempt.Clone())
		}
	}
	return out, nil
}
