package store

import (
	"context"
	"strings"
	"sync"

	"facevote/internal/admin/models"
	id "facevote/pkg/domain"
	"facevote/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded in-memory Store for tests and local runs.
type InMemory struct {
	mu     sync.RWMutex
	admins map[id.AdminID]*models.Admin
}

func NewInMemory() *InMemory {
	return &InMemory{admins: make(map[id.AdminID]*models.Admin)}
}

func (s *InMemory) CreateIfNone(ctx context.Context, admin *models.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.admins) > 0 {
		return sentinel.ErrConflict
	}
	s.admins[admin.ID] = admin.Clone()
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, adminID id.AdminID) (*models.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	admin, ok := s.admins[adminID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return admin.Clone(), nil
}

func (s *InMemory) FindByUsername(ctx context.Context, username string) (*models.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, admin := range s.admins {
		if strings.EqualFold(admin.Username, username) {
			return admin.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.admins), nil
}
