package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"facevote/internal/election/models"
	id "facevote/pkg/domain"
	"facevote/pkg/platform/sentinel"
)

type ElectionStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *ElectionStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestElectionStoreSuite(t *testing.T) {
	suite.Run(t, new(ElectionStoreSuite))
}

func (s *ElectionStoreSuite) newElection(name string) *models.Election {
	return &models.Election{
		ID:              id.NewElectionID(),
		Name:            name,
		ContractAddress: "0x00000000000000000000000000000000000000aa",
		CreatedAt:       time.Now(),
	}
}

func (s *ElectionStoreSuite) newCandidate(electionID id.ElectionID, name string, ordinal uint64) *models.Candidate {
	return &models.Candidate{
		ID:         id.NewCandidateID(),
		ElectionID: electionID,
		Name:       name,
		OnChainID:  ordinal,
		Active:     true,
		CreatedAt:  time.Now(),
	}
}

// createElection clears the registry and inserts a fresh election, since the
// store holds at most one at a time.
func (s *ElectionStoreSuite) createElection(name string) *models.Election {
	s.T().Helper()
	existing, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	for _, e := range existing {
		s.Require().NoError(s.store.Delete(s.ctx, e.ID))
	}
	election := s.newElection(name)
	_, created, err := s.store.CreateIfAbsent(s.ctx, election)
	s.Require().NoError(err)
	s.Require().True(created)
	return election
}

// TestCreateIfAbsent verifies the registry holds at most one election.
func (s *ElectionStoreSuite) TestCreateIfAbsent() {
	first := s.newElection("First")

	s.Run("creates the first election", func() {
		stored, created, err := s.store.CreateIfAbsent(s.ctx, first)
		s.Require().NoError(err)
		s.True(created)
		s.Equal(first.ID, stored.ID)
	})

	s.Run("returns the existing election regardless of name", func() {
		stored, created, err := s.store.CreateIfAbsent(s.ctx, s.newElection("Second"))
		s.Require().NoError(err)
		s.False(created)
		s.Equal(first.ID, stored.ID)

		all, err := s.store.List(s.ctx)
		s.Require().NoError(err)
		s.Len(all, 1)
	})

	s.Run("accepts a new election once the registry is empty again", func() {
		s.Require().NoError(s.store.Delete(s.ctx, first.ID))

		stored, created, err := s.store.CreateIfAbsent(s.ctx, s.newElection("Successor"))
		s.Require().NoError(err)
		s.True(created)
		s.NotEqual(first.ID, stored.ID)
	})
}

// TestActivation verifies the single-active invariant.
func (s *ElectionStoreSuite) TestActivation() {
	s.Run("activates the election", func() {
		election := s.createElection("A")

		s.Require().NoError(s.store.Activate(s.ctx, election.ID))

		active, err := s.store.FindActive(s.ctx)
		s.Require().NoError(err)
		s.Equal(election.ID, active.ID)
	})

	s.Run("a successor election starts inactive", func() {
		successor := s.createElection("B")

		_, err := s.store.FindActive(s.ctx)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		s.Require().NoError(s.store.Activate(s.ctx, successor.ID))
		active, err := s.store.FindActive(s.ctx)
		s.Require().NoError(err)
		s.Equal(successor.ID, active.ID)
	})

	s.Run("returns ErrNotFound for unknown election", func() {
		s.Require().ErrorIs(s.store.Activate(s.ctx, id.NewElectionID()), sentinel.ErrNotFound)
	})

	s.Run("FindActive returns ErrNotFound with no active election", func() {
		_, err := NewInMemory().FindActive(s.ctx)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestCandidates verifies candidate bookkeeping under an election.
func (s *ElectionStoreSuite) TestCandidates() {
	s.Run("adds and lists candidates", func() {
		election := s.createElection("With Candidates")

		s.Require().NoError(s.store.AddCandidate(s.ctx, s.newCandidate(election.ID, "Alice", 1)))
		s.Require().NoError(s.store.AddCandidate(s.ctx, s.newCandidate(election.ID, "Bob", 2)))

		candidates, err := s.store.ListCandidates(s.ctx, election.ID)
		s.Require().NoError(err)
		s.Len(candidates, 2)
	})

	s.Run("rejects duplicate ordinals within an election", func() {
		election := s.createElection("Dup Ordinals")

		s.Require().NoError(s.store.AddCandidate(s.ctx, s.newCandidate(election.ID, "Alice", 1)))
		err := s.store.AddCandidate(s.ctx, s.newCandidate(election.ID, "Clone", 1))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("rejects candidates for unknown elections", func() {
		err := s.store.AddCandidate(s.ctx, s.newCandidate(id.NewElectionID(), "Orphan", 1))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("finds candidates by ordinal", func() {
		election := s.createElection("By Ordinal")

		s.Require().NoError(s.store.AddCandidate(s.ctx, s.newCandidate(election.ID, "Alice", 3)))

		found, err := s.store.FindCandidateByOrdinal(s.ctx, election.ID, 3)
		s.Require().NoError(err)
		s.Equal("Alice", found.Name)

		_, err = s.store.FindCandidateByOrdinal(s.ctx, election.ID, 9)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("deactivates a candidate in place", func() {
		election := s.createElection("Deactivation")

		candidate := s.newCandidate(election.ID, "Alice", 1)
		s.Require().NoError(s.store.AddCandidate(s.ctx, candidate))
		s.Require().NoError(s.store.DeactivateCandidate(s.ctx, candidate.ID))

		found, err := s.store.FindCandidateByOrdinal(s.ctx, election.ID, 1)
		s.Require().NoError(err)
		s.False(found.Active)
	})
}

// TestDelete verifies cascade removal of candidates.
func (s *ElectionStoreSuite) TestDelete() {
	s.Run("removes the election and its candidates", func() {
		election := s.createElection("Doomed")
		s.Require().NoError(s.store.AddCandidate(s.ctx, s.newCandidate(election.ID, "Alice", 1)))

		s.Require().NoError(s.store.Delete(s.ctx, election.ID))

		_, err := s.store.FindByID(s.ctx, election.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		candidates, err := s.store.ListCandidates(s.ctx, election.ID)
		s.Require().NoError(err)
		s.Empty(candidates)
	})

	s.Run("empties the registry for a successor", func() {
		election := s.createElection("Recycled")
		s.Require().NoError(s.store.Delete(s.ctx, election.ID))

		_, created, err := s.store.CreateIfAbsent(s.ctx, s.newElection("Recycled"))
		s.Require().NoError(err)
		s.True(created)
	})

	s.Run("returns ErrNotFound for unknown election", func() {
		s.Require().ErrorIs(s.store.Delete(s.ctx, id.NewElectionID()), sentinel.ErrNotFound)
	})
}
