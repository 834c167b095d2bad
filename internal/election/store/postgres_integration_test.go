//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"facevote/internal/election/models"
	"facevote/internal/election/store"
	id "facevote/pkg/domain"
	"facevote/pkg/platform/sentinel"
	"facevote/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "candidates", "elections")
	s.Require().NoError(err)
}

func newTestElection(name string) *models.Election {
	return &models.Election{
		ID:              id.NewElectionID(),
		Name:            name,
		ContractAddress: "0x00000000000000000000000000000000000000aa",
		CreatedAt:       time.Now(),
	}
}

// TestConcurrentCreate verifies racing creations converge on a single row.
func (s *PostgresStoreSuite) TestConcurrentCreate() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var createdCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			name := "Race " + uuid.NewString()
			stored, created, err := s.store.CreateIfAbsent(ctx, newTestElection(name))
			if err != nil {
				return
			}
			if created {
				createdCount.Add(1)
			}
			s.NotNil(stored)
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), createdCount.Load(), "exactly one creation should win")

	all, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)

	// Every later attempt hands back the row that won.
	again, created, err := s.store.CreateIfAbsent(ctx, newTestElection("Latecomer "+uuid.NewString()))
	s.Require().NoError(err)
	s.False(created)
	s.Equal(all[0].ID, again.ID)
}

// TestActivationIsAtomic verifies concurrent activations leave one active row.
func (s *PostgresStoreSuite) TestActivationIsAtomic() {
	ctx := context.Background()

	election := newTestElection("Activation " + uuid.NewString())
	_, _, err := s.store.CreateIfAbsent(ctx, election)
	s.Require().NoError(err)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.store.Activate(ctx, election.ID)
		}()
	}
	wg.Wait()

	all, err := s.store.List(ctx)
	s.Require().NoError(err)
	activeCount := 0
	for _, e := range all {
		if e.IsActive {
			activeCount++
		}
	}
	s.Equal(1, activeCount, "exactly one election may be active")
}

// TestCandidateCascadeDelete verifies candidates vanish with their election.
func (s *PostgresStoreSuite) TestCandidateCascadeDelete() {
	ctx := context.Background()

	election := newTestElection("Cascade " + uuid.NewString())
	_, _, err := s.store.CreateIfAbsent(ctx, election)
	s.Require().NoError(err)

	candidate := &models.Candidate{
		ID:         id.NewCandidateID(),
		ElectionID: election.ID,
		Name:       "Alice",
		OnChainID:  1,
		Active:     true,
		CreatedAt:  time.Now(),
	}
	s.Require().NoError(s.store.AddCandidate(ctx, candidate))

	s.Require().NoError(s.store.Delete(ctx, election.ID))

	candidates, err := s.store.ListCandidates(ctx, election.ID)
	s.Require().NoError(err)
	s.Empty(candidates)
}

// TestOrdinalUniqueness verifies the (election, ordinal) constraint.
func (s *PostgresStoreSuite) TestOrdinalUniqueness() {
	ctx := context.Background()

	election := newTestElection("Ordinals " + uuid.NewString())
	_, _, err := s.store.CreateIfAbsent(ctx, election)
	s.Require().NoError(err)

	first := &models.Candidate{
		ID: id.NewCandidateID(), ElectionID: election.ID,
		Name: "Alice", OnChainID: 1, Active: true, CreatedAt: time.Now(),
	}
	s.Require().NoError(s.store.AddCandidate(ctx, first))

	clone := &models.Candidate{
		ID: id.NewCandidateID(), ElectionID: election.ID,
		Name: "Clone", OnChainID: 1, Active: true, CreatedAt: time.Now(),
	}
	s.Require().ErrorIs(s.store.AddCandidate(ctx, clone), sentinel.ErrConflict)
}
