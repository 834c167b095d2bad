package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"facevote/internal/admin/models"
	id "facevote/pkg/domain"
	"facevote/pkg/platform/sentinel"
)

// Postgres persists admin accounts in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Schema is applied by migrations; kept here so tests can create the table.
const Schema = `
CREATE TABLE IF NOT EXISTS admins (
	id            UUID PRIMARY KEY,
	username      TEXT NOT NULL,
	password_hash BYTEA NOT NULL,
	embeddings    BYTEA[] NOT NULL DEFAULT '{}',
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS admins_username_unique ON admins (lower(username));`

// CreateIfNone inserts the admin inside a transaction that first locks the
// table and checks emptiness, so two setup calls cannot both succeed.
func (s *Postgres) CreateIfNone(ctx context.Context, admin *models.Admin) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin setup tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `LOCK TABLE admins IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return fmt.Errorf("lock admins: %w", err)
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&count); err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return sentinel.ErrConflict
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO admins (id, username, password_hash, embeddings, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(admin.ID), admin.Username, admin.PasswordHash,
		pq.ByteaArray(admin.Embeddings), admin.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert admin: %w", err)
	}
	return tx.Commit()
}

func (s *Postgres) FindByID(ctx context.Context, adminID id.AdminID) (*models.Admin, error) {
	return scanAdmin(s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, embeddings, created_at
		FROM admins WHERE id = $1`, uuid.UUID(adminID)))
}

func (s *Postgres) FindByUsername(ctx context.Context, username string) (*models.Admin, error) {
	return scanAdmin(s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, embeddings, created_at
		FROM admins WHERE lower(username) = lower($1)`, username))
}

func (s *Postgres) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAdmin(row rowScanner) (*models.Admin, error) {
	var (
		admin      models.Admin
		rawID      uuid.UUID
		embeddings pq.ByteaArray
	)
	err := row.Scan(&rawID, &admin.Username, &admin.PasswordHash, &embeddings, &admin.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan admin: %w", err)
	}
	admin.ID = id.AdminID(rawID)
	admin.Embeddings = embeddings
	return &admin, nil
}
