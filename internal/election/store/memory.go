package store

import (
	"context"
	"sync"

	"facevote/internal/election/models"
	id "facevote/pkg/domain"
	"facevote/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded in-memory Store for tests and local runs.
type InMemory struct {
	mu         sync.RWMutex
	elections  map[id.ElectionID]*models.Election
	candidates map[id.CandidateID]*models.Candidate
}

func NewInMemory() *InMemory {
	return &InMemory{
		elections:  make(map[id.ElectionID]*models.Election),
		candidates: make(map[id.CandidateID]*models.Candidate),
	}
}

// CreateIfAbsent records the election only while the registry is empty;
// otherwise the election that already exists is returned unchanged.
func (s *InMemory) CreateIfAbsent(ctx context.Context, election *models.Election) (*models.Election, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := s.oldest(); existing != nil {
		return cloneElection(existing), false, nil
	}
	s.elections[election.ID] = cloneElection(election)
	return cloneElection(election), true, nil
}

func (s *InMemory) oldest() *models.Election {
	var out *models.Election
	for _, election := range s.elections {
		if out == nil || election.CreatedAt.Before(out.CreatedAt) {
			out = election
		}
	}
	return out
}

func (s *InMemory) FindByID(ctx context.Context, electionID id.ElectionID) (*models.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	election, ok := s.elections[electionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneElection(election), nil
}

func (s *InMemory) FindActive(ctx context.Context) (*models.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, election := range s.elections {
		if election.IsActive {
			return cloneElection(election), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) List(ctx context.Context) ([]*models.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Election, 0, len(s.elections))
	for _, election := range s.elections {
		out = append(out, cloneElection(election))
	}
	return out, nil
}

func (s *InMemory) Activate(ctx context.Context, electionID id.ElectionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.elections[electionID]
	if !ok {
		return sentinel.ErrNotFound
	}
	for _, election := range s.elections {
		election.IsActive = false
	}
	target.IsActive = true
	return nil
}

func (s *InMemory) Delete(ctx context.Context, electionID id.ElectionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.elections[electionID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.elections, electionID)
	for candidateID, candidate := range s.candidates {
		if candidate.ElectionID == electionID {
			delete(s.candidates, candidateID)
		}
	}
	return nil
}

func (s *InMemory) AddCandidate(ctx context.Context, candidate *models.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.elections[candidate.ElectionID]; !ok {
		return sentinel.ErrNotFound
	}
	for _, existing := range s.candidates {
		if existing.ElectionID == candidate.ElectionID && existing.OnChainID == candidate.OnChainID {
			return sentinel.ErrConflict
		}
	}
	s.candidates[candidate.ID] = cloneCandidate(candidate)
	return nil
}

func (s *InMemory) ListCandidates(ctx context.Context, electionID id.ElectionID) ([]*models.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Candidate
	for _, candidate := range s.candidates {
		if candidate.ElectionID == electionID {
			out = append(out, cloneCandidate(candidate))
		}
	}
	return out, nil
}

func (s *InMemory) FindCandidateByOrdinal(ctx context.Context, electionID id.ElectionID, ordinal uint64) (*models.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, candidate := range s.candidates {
		if candidate.ElectionID == electionID && candidate.OnChainID == ordinal {
			return cloneCandidate(candidate), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) DeactivateCandidate(ctx context.Context, candidateID id.CandidateID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidate, ok := s.candidates[candidateID]
	if !ok {
		return sentinel.ErrNotFound
	}
	candidate.Active = false
	return nil
}

func cloneElection(e *models.Election) *models.Election {
	clone := *e
	return &clone
}

func cloneCandidate(c *models.Candidate) *models.Candidate {
	clone := *c
	return &clone
}
