package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"facevote/internal/voting/models"
	id "facevote/pkg/domain"
	"facevote/pkg/platform/sentinel"
)

type AttemptStoreSuite struct {
	suite.Suite
	store *InMemory
}

func (s *AttemptStoreSuite) SetupTest() {
	s.store = NewInMemory()
}

func TestAttemptStoreSuite(t *testing.T) {
	suite.Run(t, new(AttemptStoreSuite))
}

func (s *AttemptStoreSuite) newAttempt(voterID id.VoterID, electionID id.ElectionID) *models.Attempt {
	attempt, err := models.NewAttempt(id.NewAttemptID(), voterID, electionID,
		"ab12cd34", 1, time.Now())
	s.Require().NoError(err)
	return attempt
}

func (s *AttemptStoreSuite) TestSingleOpenAttempt() {
	s.Run("journals one open attempt per voter and election", func() {
		voterID, electionID := id.NewVoterID(), id.NewElectionID()
		first := s.newAttempt(voterID, electionID)
		s.Require().NoError(s.store.Create(context.Background(), first))

		err := s.store.Create(context.Background(), s.newAttempt(voterID, electionID))
		s.Require().ErrorIs(err, sentinel.ErrConflict)

		open, err := s.store.FindOpen(context.Background(), voterID, electionID)
		s.Require().NoError(err)
		s.Equal(first.ID, open.ID)
		s.Equal(models.AttemptPending, open.State)
	})

	s.Run("committing frees the slot", func() {
		voterID, electionID := id.NewVoterID(), id.NewElectionID()
		attempt := s.newAttempt(voterID, electionID)
		s.Require().NoError(s.store.Create(context.Background(), attempt))

		s.Require().NoError(s.store.SetState(context.Background(), attempt.ID, models.AttemptCommitted, time.Now()))

		_, err := s.store.FindOpen(context.Background(), voterID, electionID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		s.Require().NoError(s.store.Create(context.Background(), s.newAttempt(voterID, electionID)))
	})

	s.Run("different voters do not contend", func() {
		electionID := id.NewElectionID()
		s.Require().NoError(s.store.Create(context.Background(), s.newAttempt(id.NewVoterID(), electionID)))
		s.Require().NoError(s.store.Create(context.Background(), s.newAttempt(id.NewVoterID(), electionID)))
	})
}

func (s *AttemptStoreSuite) TestStateTransitions() {
	s.Run("advances pending to submitted to committed", func() {
		attempt := s.newAttempt(id.NewVoterID(), id.NewElectionID())
		s.Require().NoError(s.store.Create(context.Background(), attempt))

		s.Require().NoError(s.store.SetState(context.Background(), attempt.ID, models.AttemptSubmitted, time.Now()))

		submitted, err := s.store.ListSubmitted(context.Background())
		s.Require().NoError(err)
		s.Require().Len(submitted, 1)
		s.Equal(attempt.ID, submitted[0].ID)

		s.Require().NoError(s.store.SetState(context.Background(), attempt.ID, models.AttemptCommitted, time.Now()))

		submitted, err = s.store.ListSubmitted(context.Background())
		s.Require().NoError(err)
		s.Empty(submitted)
	})

	s.Run("rejects transitions on unknown attempts", func() {
		err := s.store.SetState(context.Background(), id.NewAttemptID(), models.AttemptSubmitted, time.Now())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *AttemptStoreSuite) TestRetarget() {
	s.Run("rewrites the digest and ordinal of a pending attempt", func() {
		attempt := s.newAttempt(id.NewVoterID(), id.NewElectionID())
		s.Require().NoError(s.store.Create(context.Background(), attempt))

		s.Require().NoError(s.store.Retarget(context.Background(), attempt.ID, "ef56ab78", 2, time.Now()))

		stored, err := s.store.FindByID(context.Background(), attempt.ID)
		s.Require().NoError(err)
		s.Equal("ef56ab78", stored.DigestHex)
		s.Equal(uint64(2), stored.Ordinal)
		s.Equal(models.AttemptPending, stored.State)
	})

	s.Run("refuses once the attempt left the pending state", func() {
		attempt := s.newAttempt(id.NewVoterID(), id.NewElectionID())
		s.Require().NoError(s.store.Create(context.Background(), attempt))
		s.Require().NoError(s.store.SetState(context.Background(), attempt.ID, models.AttemptSubmitted, time.Now()))

		err := s.store.Retarget(context.Background(), attempt.ID, "ef56ab78", 2, time.Now())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		stored, err := s.store.FindByID(context.Background(), attempt.ID)
		s.Require().NoError(err)
		s.Equal("ab12cd34", stored.DigestHex)
	})

	s.Run("rejects unknown attempts", func() {
		err := s.store.Retarget(context.Background(), id.NewAttemptID(), "ef56ab78", 2, time.Now())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}
