package session

import (
	"context"

	id "facevote/pkg/domain"
)

// Store persists admin sessions. Expired sessions behave as absent:
// Find returns sentinel.ErrNotFound and Exists returns false.
type Store interface {
	Create(ctx context.Context, sess *Session) error
	Find(ctx context.Context, sessionID id.SessionID) (*Session, error)
	Exists(ctx context.Context, sessionID id.SessionID) (bool, error)
	Delete(ctx context.Context, sessionID id.SessionID) error
}
