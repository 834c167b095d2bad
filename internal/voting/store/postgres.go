package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"facevote/internal/voting/models"
	id "facevote/pkg/domain"
	"facevote/pkg/platform/sentinel"
)

// Postgres persists the attempt journal in PostgreSQL. The partial unique
// index enforces the single-open-attempt invariant at the database, so two
// processes cannot both journal a pending vote for the same voter.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const Schema = `
CREATE TABLE IF NOT EXISTS vote_attempts (
	id          UUID PRIMARY KEY,
	voter_id    UUID NOT NULL,
	election_id UUID NOT NULL,
	digest_hex  TEXT NOT NULL,
	ordinal     BIGINT NOT NULL CHECK (ordinal > 0),
	state       TEXT NOT NULL CHECK (state IN ('pending', 'submitted', 'committed')),
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS vote_attempts_open_unique
	ON vote_attempts (voter_id, election_id) WHERE state <> 'committed';
CREATE INDEX IF NOT EXISTS vote_attempts_submitted
	ON vote_attempts (state) WHERE state = 'submitted';`

const uniqueViolation = "23505"

func (s *Postgres) Create(ctx context.Context, attempt *models.Attempt) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vote_attempts (id, voter_id, election_id, digest_hex, ordinal, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.UUID(attempt.ID), uuid.UUID(attempt.VoterID), uuid.UUID(attempt.ElectionID),
		attempt.DigestHex, int64(attempt.Ordinal), string(attempt.State),
		attempt.CreatedAt, attempt.UpdatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, attemptID id.AttemptID) (*models.Attempt, error) {
	return scanAttempt(s.db.QueryRowContext(ctx, `
		SELECT id, voter_id, election_id, digest_hex, ordinal, state, created_at, updated_at
		FROM vote_attempts WHERE id = $1`, uuid.UUID(attemptID)))
}

func (s *Postgres) FindOpen(ctx context.Context, voterID id.VoterID, electionID id.ElectionID) (*models.Attempt, error) {
	return scanAttempt(s.db.QueryRowContext(ctx, `
		SELECT id, voter_id, election_id, digest_hex, ordinal, state, created_at, updated_at
		FROM vote_attempts
		WHERE voter_id = $1 AND election_id = $2 AND state <> 'committed'`,
		uuid.UUID(voterID), uuid.UUID(electionID)))
}

func (s *Postgres) SetState(ctx context.Context, attemptID id.AttemptID, state models.AttemptState, now time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE vote_attempts SET state = $2, updated_at = $3 WHERE id = $1`,
		uuid.UUID(attemptID), string(state), now,
	)
	if err != nil {
		return fmt.Errorf("update attempt state: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update attempt state: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) Retarget(ctx context.Context, attemptID id.AttemptID, digestHex string, ordinal uint64, now time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE vote_attempts SET digest_hex = $2, ordinal = $3, updated_at = $4
		WHERE id = $1 AND state = 'pending'`,
		uuid.UUID(attemptID), digestHex, int64(ordinal), now,
	)
	if err != nil {
		return fmt.Errorf("retarget attempt: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("retarget attempt: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ListSubmitted(ctx context.Context) ([]*models.Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, voter_id, election_id, digest_hex, ordinal, state, created_at, updated_at
		FROM vote_attempts WHERE state = 'submitted' ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list submitted attempts: %w", err)
	}
	defer rows.Close()

	var out []*models.Attempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, attempt)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (*models.Attempt, error) {
	var (
		attempt    models.Attempt
		attemptID  uuid.UUID
		voterID    uuid.UUID
		electionID uuid.UUID
		ordinal    int64
		state      string
	)
	err := row.Scan(&attemptID, &voterID, &electionID, &attempt.DigestHex,
		&ordinal, &state, &attempt.CreatedAt, &attempt.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan attempt: %w", err)
	}
	attempt.ID = id.AttemptID(attemptID)
	attempt.VoterID = id.VoterID(voterID)
	attempt.ElectionID = id.ElectionID(electionID)
	attempt.Ordinal = uint64(ordinal)
	attempt.State = models.AttemptState(state)
	return &attempt, nil
}
