package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "facevote/pkg/domain"
	"facevote/pkg/platform/sentinel"
)

type SessionStoreSuite struct {
	suite.Suite
	store *InMemory
}

func (s *SessionStoreSuite) SetupTest() {
	s.store = NewInMemory()
}

func TestSessionStoreSuite(t *testing.T) {
	suite.Run(t, new(SessionStoreSuite))
}

func (s *SessionStoreSuite) TestLookup() {
	s.Run("returns stored session when found", func() {
		sess := New(id.NewAdminID(), time.Now(), time.Hour)
		s.Require().NoError(s.store.Create(context.Background(), sess))

		found, err := s.store.Find(context.Background(), sess.ID)
		s.Require().NoError(err)
		s.Equal(sess.AdminID, found.AdminID)

		exists, err := s.store.Exists(context.Background(), sess.ID)
		s.Require().NoError(err)
		s.True(exists)
	})

	s.Run("returns ErrNotFound for unknown session", func() {
		_, err := s.store.Find(context.Background(), id.NewSessionID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		exists, err := s.store.Exists(context.Background(), id.NewSessionID())
		s.Require().NoError(err)
		s.False(exists)
	})

	s.Run("treats expired session as absent", func() {
		sess := New(id.NewAdminID(), time.Now(), time.Hour)
		s.Require().NoError(s.store.Create(context.Background(), sess))

		s.store.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

		_, err := s.store.Find(context.Background(), sess.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *SessionStoreSuite) TestDelete() {
	s.Run("deleting a session revokes it", func() {
		sess := New(id.NewAdminID(), time.Now(), time.Hour)
		s.Require().NoError(s.store.Create(context.Background(), sess))

		s.Require().NoError(s.store.Delete(context.Background(), sess.ID))

		exists, err := s.store.Exists(context.Background(), sess.ID)
		s.Require().NoError(err)
		s.False(exists)
	})

	s.Run("deleting a non-existent session returns ErrNotFound", func() {
		err := s.store.Delete(context.Background(), id.NewSessionID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}
