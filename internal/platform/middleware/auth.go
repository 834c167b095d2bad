package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	id "facevote/pkg/domain"
	"facevote/pkg/requestcontext"
)

// JWTValidator defines the interface for validating admin JWT tokens
type JWTValidator interface {
	ValidateToken(tokenString string) (*AdminClaims, error)
}

// AdminClaims represents the claims we expect from the JWT validator
type AdminClaims struct {
	AdminID   string
	SessionID string
}

type contextKeySessionID struct{}

// ContextKeySessionID is exported for use in handlers
var ContextKeySessionID = contextKeySessionID{}

// GetSessionID retrieves the session ID from the context
func GetSessionID(ctx context.Context) string {
	sessionID, ok := ctx.Value(ContextKeySessionID).(string)
	if !ok {
		return ""
	}
	return sessionID
}

// GetRequestID retrieves the request ID from the context
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}

// RequireAdmin guards admin-only routes with a bearer token check.
func RequireAdmin(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			if token, ok := strings.CutPrefix(authHeader, bearerPrefix); ok {
				claims, err := validator.ValidateToken(token)
				if err != nil {
					unauthorized(w, r, logger, "invalid token", err,
						"Invalid or expired token")
					return
				}
				adminID, err := id.ParseAdminID(claims.AdminID)
				if err != nil {
					unauthorized(w, r, logger, "malformed admin claim", err,
						"Invalid or expired token")
					return
				}

				ctx := r.Context()
				ctx = requestcontext.WithAdminID(ctx, adminID)
				ctx = context.WithValue(ctx, ContextKeySessionID, claims.SessionID)

				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			// No Authorization header or invalid format
			unauthorized(w, r, logger, "missing token", nil,
				"Missing or invalid Authorization header")
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, logger *slog.Logger, reason string, cause error, description string) {
	ctx := r.Context()
	requestID := GetRequestID(ctx)
	if logger != nil {
		logger.WarnContext(ctx, "unauthorized access - "+reason,
			"error", cause,
			"request_id", requestID,
		)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, err := w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
	if err != nil && logger != nil {
		logger.ErrorContext(ctx, "failed to write unauthorized response",
			"error", err,
			"request_id", requestID,
		)
	}
}
