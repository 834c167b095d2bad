package jwttoken

import (
	"context"

	"facevote/internal/platform/middleware"
	id "facevote/pkg/domain"
	dErrors "facevote/pkg/domain-errors"
)

// SessionChecker reports whether a session is still live. Deleting the
// session revokes every token minted for it.
type SessionChecker interface {
	Exists(ctx context.Context, sessionID id.SessionID) (bool, error)
}

func ToMiddlewareClaims(claims *Claims) *middleware.AdminClaims {
	return &middleware.AdminClaims{
		AdminID:   claims.AdminID,
		SessionID: claims.SessionID,
	}
}

// JWTServiceAdapter bridges the JWT service to the middleware's validator
// interface, rejecting tokens whose backing session is gone.
type JWTServiceAdapter struct {
	service  *JWTService
	sessions SessionChecker
}

func NewJWTServiceAdapter(service *JWTService, sessions SessionChecker) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service, sessions: sessions}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*middleware.AdminClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if a.sessions != nil {
		sessionID, err := id.ParseSessionID(claims.SessionID)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
		}
		alive, err := a.sessions.Exists(context.Background(), sessionID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check session")
		}
		if !alive {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "session revoked")
		}
	}
	return ToMiddlewareClaims(claims), nil
}
