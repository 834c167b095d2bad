package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"facevote/internal/election/models"
	id "facevote/pkg/domain"
	"facevote/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// Postgres persists elections and candidates in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Schema is applied by migrations; kept here so tests can create the tables.
const Schema = `
CREATE TABLE IF NOT EXISTS elections (
	id               UUID PRIMARY KEY,
	name             TEXT NOT NULL,
	contract_address TEXT NOT NULL,
	is_active        BOOLEAN NOT NULL DEFAULT FALSE,
	created_at       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS candidates (
	id          UUID PRIMARY KEY,
	election_id UUID NOT NULL REFERENCES elections(id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	party       TEXT NOT NULL DEFAULT '',
	on_chain_id BIGINT NOT NULL,
	active      BOOLEAN NOT NULL DEFAULT TRUE,
	created_at  TIMESTAMPTZ NOT NULL,
	CONSTRAINT candidates_ordinal_unique UNIQUE (election_id, on_chain_id)
);`

// CreateIfAbsent inserts the election only while the registry is empty. The
// table lock serializes concurrent creates so exactly one wins; the rest get
// the row that won.
func (s *Postgres) CreateIfAbsent(ctx context.Context, election *models.Election) (*models.Election, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin create election tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `LOCK TABLE elections IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return nil, false, fmt.Errorf("lock elections: %w", err)
	}

	existing, err := scanElection(tx.QueryRowContext(ctx, `
		SELECT id, name, contract_address, is_active, created_at
		FROM elections ORDER BY created_at LIMIT 1`))
	if err == nil {
		if cerr := tx.Commit(); cerr != nil {
			return nil, false, fmt.Errorf("commit create election tx: %w", cerr)
		}
		return existing, false, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, false, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO elections (id, name, contract_address, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(election.ID), election.Name, election.ContractAddress,
		election.IsActive, election.CreatedAt,
	); err != nil {
		return nil, false, fmt.Errorf("insert election: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit create election tx: %w", err)
	}
	return cloneElection(election), true, nil
}

func (s *Postgres) FindByID(ctx context.Context, electionID id.ElectionID) (*models.Election, error) {
	return scanElection(s.db.QueryRowContext(ctx, `
		SELECT id, name, contract_address, is_active, created_at
		FROM elections WHERE id = $1`, uuid.UUID(electionID)))
}

func (s *Postgres) FindActive(ctx context.Context) (*models.Election, error) {
	return scanElection(s.db.QueryRowContext(ctx, `
		SELECT id, name, contract_address, is_active, created_at
		FROM elections WHERE is_active LIMIT 1`))
}

func (s *Postgres) List(ctx context.Context) ([]*models.Election, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, contract_address, is_active, created_at
		FROM elections ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list elections: %w", err)
	}
	defer rows.Close()

	var out []*models.Election
	for rows.Next() {
		election, err := scanElection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, election)
	}
	return out, rows.Err()
}

// Activate flips the single active election inside one transaction so two
// concurrent activations cannot leave two elections active.
func (s *Postgres) Activate(ctx context.Context, electionID id.ElectionID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin activate tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `UPDATE elections SET is_active = FALSE WHERE is_active`); err != nil {
		return fmt.Errorf("deactivate elections: %w", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE elections SET is_active = TRUE WHERE id = $1`, uuid.UUID(electionID))
	if err != nil {
		return fmt.Errorf("activate election: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("activate election rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return tx.Commit()
}

func (s *Postgres) Delete(ctx context.Context, electionID id.ElectionID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM elections WHERE id = $1`, uuid.UUID(electionID))
	if err != nil {
		return fmt.Errorf("delete election: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete election rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) AddCandidate(ctx context.Context, candidate *models.Candidate) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO candidates (id, election_id, name, party, on_chain_id, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.UUID(candidate.ID), uuid.UUID(candidate.ElectionID), candidate.Name,
		candidate.Party, int64(candidate.OnChainID), candidate.Active, candidate.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case uniqueViolation:
				return sentinel.ErrConflict
			case "23503": // foreign key: election vanished
				return sentinel.ErrNotFound
			}
		}
		return fmt.Errorf("insert candidate: %w", err)
	}
	return nil
}

func (s *Postgres) ListCandidates(ctx context.Context, electionID id.ElectionID) ([]*models.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, election_id, name, party, on_chain_id, active, created_at
		FROM candidates WHERE election_id = $1 ORDER BY on_chain_id`, uuid.UUID(electionID))
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var out []*models.Candidate
	for rows.Next() {
		candidate, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, candidate)
	}
	return out, rows.Err()
}

func (s *Postgres) FindCandidateByOrdinal(ctx context.Context, electionID id.ElectionID, ordinal uint64) (*models.Candidate, error) {
	return scanCandidate(s.db.QueryRowContext(ctx, `
		SELECT id, election_id, name, party, on_chain_id, active, created_at
		FROM candidates WHERE election_id = $1 AND on_chain_id = $2`,
		uuid.UUID(electionID), int64(ordinal)))
}

func (s *Postgres) DeactivateCandidate(ctx context.Context, candidateID id.CandidateID) error {
	res, err := s.db.ExecContext(ctx, `UPDATE candidates SET active = FALSE WHERE id = $1`, uuid.UUID(candidateID))
	if err != nil {
		return fmt.Errorf("deactivate candidate: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate candidate rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanElection(row rowScanner) (*models.Election, error) {
	var (
		election models.Election
		rawID    uuid.UUID
	)
	err := row.Scan(&rawID, &election.Name, &election.ContractAddress, &election.IsActive, &election.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan election: %w", err)
	}
	election.ID = id.ElectionID(rawID)
	return &election, nil
}

func scanCandidate(row rowScanner) (*models.Candidate, error) {
	var (
		candidate  models.Candidate
		rawID      uuid.UUID
		electionID uuid.UUID
		ordinal    int64
	)
	err := row.Scan(&rawID, &electionID, &candidate.Name, &candidate.Party, &ordinal, &candidate.Active, &candidate.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan candidate: %w", err)
	}
	candidate.ID = id.CandidateID(rawID)
	candidate.ElectionID = id.ElectionID(electionID)
	candidate.OnChainID = uint64(ordinal)
	return &candidate, nil
}
