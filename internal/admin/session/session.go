package session

import (
	"time"

	id "facevote/pkg/domain"
)

// Session is a server-side record of an admin login. Tokens carry the
// session ID as their jti, so deleting the session revokes every token
// minted for it.
type Session struct {
	ID        id.SessionID `json:"id"`
	AdminID   id.AdminID   `json:"admin_id"`
	ClientIP  string       `json:"client_ip,omitempty"`
	UserAgent string       `json:"user_agent,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// New builds a session for adminID valid for ttl from now.
func New(adminID id.AdminID, now time.Time, ttl time.Duration) *Session {
	return &Session{
		ID:        id.NewSessionID(),
		AdminID:   adminID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Expired reports whether the session has passed its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
