//go:build integration

package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"facevote/internal/admin/session"
	id "facevote/pkg/domain"
	"facevote/pkg/platform/sentinel"
	"facevote/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *session.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = session.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	sess := session.New(id.NewAdminID(), time.Now(), time.Hour)
	sess.ClientIP = "203.0.113.9"

	s.Require().NoError(s.store.Create(ctx, sess))

	found, err := s.store.Find(ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(sess.AdminID, found.AdminID)
	s.Equal("203.0.113.9", found.ClientIP)

	exists, err := s.store.Exists(ctx, sess.ID)
	s.Require().NoError(err)
	s.True(exists)
}

func (s *RedisStoreSuite) TestTTLExpiry() {
	ctx := context.Background()
	sess := session.New(id.NewAdminID(), time.Now(), time.Second)

	s.Require().NoError(s.store.Create(ctx, sess))

	s.Require().Eventually(func() bool {
		exists, err := s.store.Exists(ctx, sess.ID)
		return err == nil && !exists
	}, 5*time.Second, 100*time.Millisecond, "session should expire with its TTL")
}

func (s *RedisStoreSuite) TestDeleteRevokes() {
	ctx := context.Background()
	sess := session.New(id.NewAdminID(), time.Now(), time.Hour)

	s.Require().NoError(s.store.Create(ctx, sess))
	s.Require().NoError(s.store.Delete(ctx, sess.ID))

	_, err := s.store.Find(ctx, sess.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	err = s.store.Delete(ctx, sess.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestRejectsAlreadyExpired() {
	ctx := context.Background()
	sess := session.New(id.NewAdminID(), time.Now().Add(-2*time.Hour), time.Hour)

	err := s.store.Create(ctx, sess)
	s.Require().Error(err)
}
