package session

import (
	"context"
	"errors"
	"sync"
	"time"

	id "facevote/pkg/domain"
	"facevote/pkg/platform/sentinel"
)

// InMemory is a map-backed session store for tests and single-node runs.
type InMemory struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*Session
	now      func() time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{
		sessions: make(map[id.SessionID]*Session),
		now:      time.Now,
	}
}

func (s *InMemory) Create(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *sess
	s.sessions[sess.ID] = &clone
	return nil
}

func (s *InMemory) Find(_ context.Context, sessionID id.SessionID) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok || sess.Expired(s.now()) {
		return nil, sentinel.ErrNotFound
	}
	clone := *sess
	return &clone, nil
}

func (s *InMemory) Exists(ctx context.Context, sessionID id.SessionID) (bool, error) {
	_, err := s.Find(ctx, sessionID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	return false, err
}

func (s *InMemory) Delete(_ context.Context, sessionID id.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}
