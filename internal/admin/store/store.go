package store

import (
	"context"

	"facevote/internal/admin/models"
	id "facevote/pkg/domain"
)

// Store persists admin accounts.
//
// Implementations return pkg/platform/sentinel errors; services translate
// them into domain errors.
type Store interface {
	// CreateIfNone inserts the admin only when no admin exists yet.
	// Returns sentinel.ErrConflict otherwise.
	CreateIfNone(ctx context.Context, admin *models.Admin) error

	FindByID(ctx context.Context, adminID id.AdminID) (*models.Admin, error)
	FindByUsername(ctx context.Context, username string) (*models.Admin, error)
	Count(ctx context.Context) (int, error)
}
