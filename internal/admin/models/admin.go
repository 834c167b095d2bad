package models

import (
	"strings"
	"time"

	id "facevote/pkg/domain"
	dErrors "facevote/pkg/domain-errors"
)

// Admin is an election official. The deployment is single-admin: setup
// refuses to run twice.
//
// PasswordHash is a bcrypt hash; Embeddings optionally hold face encodings
// for a second login factor and stay empty when face login is not enrolled.
type Admin struct {
	ID           id.AdminID
	Username     string
	PasswordHash []byte
	Embeddings   [][]byte
	CreatedAt    time.Time
}

// NewAdmin validates and constructs an Admin.
func NewAdmin(adminID id.AdminID, username string, passwordHash []byte, embeddings [][]byte, createdAt time.Time) (*Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "username is required")
	}
	if len(passwordHash) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "admin requires a password hash")
	}
	return &Admin{
		ID:           adminID,
		Username:     username,
		PasswordHash: passwordHash,
		Embeddings:   embeddings,
		CreatedAt:    createdAt,
	}, nil
}

// HasFaceFactor reports whether face verification is enrolled for login.
func (a *Admin) HasFaceFactor() bool {
	return len(a.Embeddings) > 0
}

// Clone returns a deep copy safe to hand outside the store.
func (a *Admin) Clone() *Admin {
	clone := *a
	clone.PasswordHash = append([]byte(nil), a.PasswordHash...)
	clone.Embeddings = make([][]byte, len(a.Embeddings))
	for i, e := range a.Embeddings {
		clone.Embeddings[i] = append([]byte(nil), e...)
	}
	return &clone
}
