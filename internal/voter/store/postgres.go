package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"facevote/internal/voter/models"
	id "facevote/pkg/domain"
	"facevote/pkg/platform/sentinel"
)

// uniqueViolation is the postgres error code for a unique constraint breach.
const uniqueViolation = "23505"

// Postgres persists voters in PostgreSQL. Embeddings live in a bytea[]
// column in their canonical serialization; the store never interprets them.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Schema is applied by migrations; kept here so tests can create the table.
const Schema = `
CREATE TABLE IF NOT EXISTS voters (
	id          UUID PRIMARY KEY,
	name        TEXT NOT NULL,
	enrollment  TEXT NOT NULL,
	embeddings  BYTEA[] NOT NULL,
	has_voted   BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL,
	CONSTRAINT voters_enrollment_unique UNIQUE (enrollment)
);`

func (s *Postgres) Create(ctx context.Context, voter *models.Voter) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO voters (id, name, enrollment, embeddings, has_voted, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(voter.ID), voter.Name, voter.Enrollment,
		pq.ByteaArray(voter.Embeddings), voter.HasVoted, voter.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert voter: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, voterID id.VoterID) (*models.Voter, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		SELECT id, name, enrollment, embeddings, has_voted, created_at
		FROM voters WHERE id = $1`, uuid.UUID(voterID)))
}

func (s *Postgres) FindByEnrollment(ctx context.Context, enrollment string) (*models.Voter, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		SELECT id, name, enrollment, embeddings, has_voted, created_at
		FROM voters WHERE lower(enrollment) = lower($1)`, enrollment))
}

func (s *Postgres) List(ctx context.Context) ([]*models.Voter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, enrollment, embeddings, has_voted, created_at
		FROM voters ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list voters: %w", err)
	}
	defer rows.Close()

	var out []*models.Voter
	for rows.Next() {
		voter, err := scanVoter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, voter)
	}
	return out, rows.Err()
}

// Execute runs validate and mutate inside one transaction holding the row
// lock, so check-then-flip sequences cannot interleave across callers.
func (s *Postgres) Execute(ctx context.Context, voterID id.VoterID,
	validate func(*models.Voter) error,
	mutate func(*models.Voter)) (*models.Voter, error) {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin voter tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	voter, err := s.scanOne(tx.QueryRowContext(ctx, `
		SELECT id, name, enrollment, embeddings, has_voted, created_at
		FROM voters WHERE id = $1 FOR UPDATE`, uuid.UUID(voterID)))
	if err != nil {
		return nil, err
	}
	if err := validate(voter); err != nil {
		return nil, err
	}
	mutate(voter)

	_, err = tx.ExecContext(ctx, `
		UPDATE voters SET name = $2, embeddings = $3, has_voted = $4 WHERE id = $1`,
		uuid.UUID(voter.ID), voter.Name, pq.ByteaArray(voter.Embeddings), voter.HasVoted,
	)
	if err != nil {
		return nil, fmt.Errorf("update voter: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit voter tx: %w", err)
	}
	return voter, nil
}

func (s *Postgres) Delete(ctx context.Context, voterID id.VoterID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM voters WHERE id = $1`, uuid.UUID(voterID))
	if err != nil {
		return fmt.Errorf("delete voter: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete voter rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ResetAllVoted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE voters SET has_voted = FALSE WHERE has_voted`)
	if err != nil {
		return 0, fmt.Errorf("reset voters: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Postgres) scanOne(row rowScanner) (*models.Voter, error) {
	voter, err := scanVoter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return voter, err
}

func scanVoter(row rowScanner) (*models.Voter, error) {
	var (
		voter      models.Voter
		rawID      uuid.UUID
		embeddings pq.ByteaArray
	)
	if err := row.Scan(&rawID, &voter.Name, &voter.Enrollment, &embeddings, &voter.HasVoted, &voter.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan voter: %w", err)
	}
	voter.ID = id.VoterID(rawID)
	voter.Embeddings = embeddings
	return &voter, nil
}
