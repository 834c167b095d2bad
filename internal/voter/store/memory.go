package store

import (
	"context"
	"strings"
	"sync"

	"facevote/internal/voter/models"
	id "facevote/pkg/domain"
	"facevote/pkg/platform/sentinel"
)

// InMemory is the development and test twin of the postgres store.
type InMemory struct {
	mu           sync.RWMutex
	voters       map[id.VoterID]*models.Voter
	byEnrollment map[string]id.VoterID
}

func NewInMemory() *InMemory {
	return &InMemory{
		voters:       make(map[id.VoterID]*models.Voter),
		byEnrollment: make(map[string]id.VoterID),
	}
}

func enrollmentKey(enrollment string) string {
	return strings.ToLower(strings.TrimSpace(enrollment))
}

func (s *InMemory) Create(_ context.Context, voter *models.Voter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := enrollmentKey(voter.Enrollment)
	if _, taken := s.byEnrollment[key]; taken {
		return sentinel.ErrConflict
	}
	s.voters[voter.ID] = voter.Clone()
	s.byEnrollment[key] = voter.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, voterID id.VoterID) (*models.Voter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	voter, ok := s.voters[voterID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return voter.Clone(), nil
}

func (s *InMemory) FindByEnrollment(_ context.Context, enrollment string) (*models.Voter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	voterID, ok := s.byEnrollment[enrollmentKey(enrollment)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.voters[voterID].Clone(), nil
}

func (s *InMemory) List(_ context.Context) ([]*models.Voter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Voter, 0, len(s.voters))
	for _, voter := range s.voters {
		out = append(out, voter.Clone())
	}
	return out, nil
}

func (s *InMemory) Execute(_ context.Context, voterID id.VoterID,
	validate func(*models.Voter) error,
	mutate func(*models.Voter)) (*models.Voter, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	voter, ok := s.voters[voterID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(voter); err != nil {
		return nil, err
	}
	mutate(voter)
	return voter.Clone(), nil
}

func (s *InMemory) Delete(_ context.Context, voterID id.VoterID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	voter, ok := s.voters[voterID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byEnrollment, enrollmentKey(voter.Enrollment))
	delete(s.voters, voterID)
	return nil
}

func (s *InMemory) ResetAllVoted(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed int64
	for _, voter := range s.voters {
		if voter.HasVoted {
			voter.HasVoted = false
			changed++
		}
	}
	return changed, nil
}
