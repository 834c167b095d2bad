//go:build integration

package containers

import (
	"context"
	"sync"
	"testing"

	adminstore "facevote/internal/admin/store"
	electionstore "facevote/internal/election/store"
	voterstore "facevote/internal/voter/store"
	votingstore "facevote/internal/voting/store"
)

// Manager hands out shared containers so every suite in a package run reuses
// the same Postgres and Redis instead of paying startup cost per suite.
type Manager struct {
	pgOnce    sync.Once
	postgres  *PostgresContainer
	redisOnce sync.Once
	redis     *RedisContainer
	rpOnce    sync.Once
	redpanda  *RedpandaContainer
}

var (
	managerOnce sync.Once
	manager     *Manager
)

// GetManager returns the process-wide container manager.
func GetManager() *Manager {
	managerOnce.Do(func() {
		manager = &Manager{}
	})
	return manager
}

// GetPostgres returns the shared Postgres container, starting it and applying
// the schema on first use.
func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	m.pgOnce.Do(func() {
		m.postgres = NewPostgresContainer(t)
		if err := m.postgres.ApplySchema(context.Background(), allSchemas()...); err != nil {
			t.Fatalf("failed to apply schema: %v", err)
		}
	})
	return m.postgres
}

// GetRedis returns the shared Redis container, starting it on first use.
func (m *Manager) GetRedis(t *testing.T) *RedisContainer {
	t.Helper()
	m.redisOnce.Do(func() {
		m.redis = NewRedisContainer(t)
	})
	return m.redis
}

// GetRedpanda returns the shared Redpanda container, starting it on first use.
func (m *Manager) GetRedpanda(t *testing.T) *RedpandaContainer {
	t.Helper()
	m.rpOnce.Do(func() {
		m.redpanda = NewRedpandaContainer(t)
	})
	return m.redpanda
}

func allSchemas() []string {
	return []string{
		voterstore.Schema,
		electionstore.Schema,
		adminstore.Schema,
		votingstore.Schema,
	}
}
