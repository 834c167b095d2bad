package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"facevote/internal/audit"
	"facevote/internal/election/models"
	"facevote/internal/ledger"
	"facevote/internal/platform/metrics"
	id "facevote/pkg/domain"
	dErrors "facevote/pkg/domain-errors"
	"facevote/pkg/platform/sentinel"
	"facevote/pkg/requestcontext"
)

type ElectionStore interface {
	CreateIfAbsent(ctx context.Context, election *models.Election) (*models.Election, bool, error)
	FindByID(ctx context.Context, electionID id.ElectionID) (*models.Election, error)
	FindActive(ctx context.Context) (*models.Election, error)
	List(ctx context.Context) ([]*models.Election, error)
	Activate(ctx context.Context, electionID id.ElectionID) error
	Delete(ctx context.Context, electionID id.ElectionID) error
	AddCandidate(ctx context.Context, candidate *models.Candidate) error
	ListCandidates(ctx context.Context, electionID id.ElectionID) ([]*models.Candidate, error)
	FindCandidateByOrdinal(ctx context.Context, electionID id.ElectionID, ordinal uint64) (*models.Candidate, error)
	DeactivateCandidate(ctx context.Context, candidateID id.CandidateID) error
}

// VoterResetter clears every voter's cast flag when an election is torn down.
type VoterResetter interface {
	ResetAllVoted(ctx context.Context) (int64, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// CandidateResult pairs a local candidate row with its on-chain tally.
type CandidateResult struct {
	Candidate *models.Candidate
	Votes     uint64
}

// Results is the tally of one election, in ordinal order.
type Results struct {
	Election   *models.Election
	Candidates []CandidateResult
}

// Service manages elections and their candidates against the ledger.
// Ledger writes always run before local rows so the contract stays the
// source of truth: a ledger failure leaves no local record behind.
type Service struct {
	elections      ElectionStore
	bridge         ledger.Bridge
	voters         VoterResetter
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(elections ElectionStore, bridge ledger.Bridge, voters VoterResetter, opts ...Option) *Service {
	s := &Service{elections: elections, bridge: bridge, voters: voters}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create records the single election, deploying its ballot contract first.
// Creation is idempotent: while an election exists, it is returned unchanged
// and nothing touches the ledger. Only the very first call deploys.
func (s *Service) Create(ctx context.Context, name string) (*models.Election, bool, error) {
	existing, err := s.elections.List(ctx)
	if err != nil {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check for an election")
	}
	if len(existing) > 0 {
		return existing[0], false, nil
	}

	contractAddress, err := s.bridge.Deploy(ctx)
	if err != nil {
		s.incrementLedgerFailure("deploy")
		return nil, false, err
	}

	election, err := models.NewElection(id.NewElectionID(), name, contractAddress, requestcontext.Now(ctx))
	if err != nil {
		return nil, false, err
	}

	stored, created, err := s.elections.CreateIfAbsent(ctx, election)
	if err != nil {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create election")
	}
	if !created {
		// Another create won the race between the emptiness check and the
		// insert. The freshly deployed contract is orphaned on chain.
		if s.logger != nil {
			s.logger.WarnContext(ctx, "concurrent election create, deployed contract unused",
				"name", name, "orphaned_contract", contractAddress)
		}
		return stored, false, nil
	}

	s.logAudit(ctx, audit.Event{
		Action:     string(audit.EventElectionCreated),
		ElectionID: stored.ID.String(),
		Detail:     stored.ContractAddress,
	})
	return stored, true, nil
}

// Activate makes the election the single active one.
func (s *Service) Activate(ctx context.Context, electionID id.ElectionID) error {
	if err := s.elections.Activate(ctx, electionID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "election not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to activate election")
	}
	s.logAudit(ctx, audit.Event{
		Action:     string(audit.EventElectionActivated),
		ElectionID: electionID.String(),
	})
	return nil
}

// Get returns an election by id.
func (s *Service) Get(ctx context.Context, electionID id.ElectionID) (*models.Election, error) {
	election, err := s.elections.FindByID(ctx, electionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "election not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load election")
	}
	return election, nil
}

// Active returns the currently active election.
func (s *Service) Active(ctx context.Context) (*models.Election, error) {
	election, err := s.elections.FindActive(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no active election")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load active election")
	}
	return election, nil
}

// List returns all elections.
func (s *Service) List(ctx context.Context) ([]*models.Election, error) {
	elections, err := s.elections.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list elections")
	}
	return elections, nil
}

// AddCandidate registers a candidate on the election's contract first, then
// records the ordinal the contract assigned. A ledger failure leaves no row.
func (s *Service) AddCandidate(ctx context.Context, electionID id.ElectionID, name, party string) (*models.Candidate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "candidate name is required")
	}

	election, err := s.Get(ctx, electionID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.elections.ListCandidates(ctx, electionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list candidates")
	}
	for _, existing := range candidates {
		if existing.Active && existing.Name == name {
			return nil, dErrors.New(dErrors.CodeConflict, "candidate name already on the ballot")
		}
	}

	ordinal, err := s.bridge.AddCandidate(ctx, election.ContractAddress, name)
	if err != nil {
		s.incrementLedgerFailure("add_candidate")
		return nil, err
	}

	candidate, err := models.NewCandidate(id.NewCandidateID(), electionID, name, party, ordinal, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.elections.AddCandidate(ctx, candidate); err != nil {
		// The contract row exists but the local one failed; surface loudly,
		// an operator must re-add or reconcile the candidate list.
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "candidate on ledger but local insert failed",
				"election_id", electionID, "ordinal", ordinal, "error", err.Error())
		}
		return nil, dErrors.Wrap(err, dErrors.CodeExternalCommitted, "candidate registered on ledger but not recorded")
	}

	s.logAudit(ctx, audit.Event{
		Action:     string(audit.EventCandidateAdded),
		ElectionID: electionID.String(),
		Ordinal:    ordinal,
		Detail:     name,
	})
	return candidate, nil
}

// DeactivateCandidate disables a ballot option on the ledger, then mirrors
// the flag locally.
func (s *Service) DeactivateCandidate(ctx context.Context, electionID id.ElectionID, candidateID id.CandidateID) error {
	election, err := s.Get(ctx, electionID)
	if err != nil {
		return err
	}
	candidates, err := s.elections.ListCandidates(ctx, electionID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list candidates")
	}
	var target *models.Candidate
	for _, candidate := range candidates {
		if candidate.ID == candidateID {
			target = candidate
			break
		}
	}
	if target == nil {
		return dErrors.New(dErrors.CodeNotFound, "candidate not found")
	}

	if err := s.bridge.DeactivateCandidate(ctx, election.ContractAddress, target.OnChainID); err != nil {
		s.incrementLedgerFailure("deactivate_candidate")
		return err
	}
	if err := s.elections.DeactivateCandidate(ctx, candidateID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeExternalCommitted, "candidate deactivated on ledger but not recorded")
	}

	s.logAudit(ctx, audit.Event{
		Action:     string(audit.EventCandidateDeactivate),
		ElectionID: electionID.String(),
		Ordinal:    target.OnChainID,
	})
	return nil
}

// Candidates lists an election's candidates in ordinal order.
func (s *Service) Candidates(ctx context.Context, electionID id.ElectionID) ([]*models.Candidate, error) {
	if _, err := s.Get(ctx, electionID); err != nil {
		return nil, err
	}
	candidates, err := s.elections.ListCandidates(ctx, electionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list candidates")
	}
	return candidates, nil
}

// CandidateByOrdinal resolves a ledger ordinal to the election's off-chain
// candidate record.
func (s *Service) CandidateByOrdinal(ctx context.Context, electionID id.ElectionID, ordinal uint64) (*models.Candidate, error) {
	candidate, err := s.elections.FindCandidateByOrdinal(ctx, electionID, ordinal)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "no candidate with ordinal %d", ordinal)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load candidate")
	}
	return candidate, nil
}

// Delete tears an election down and clears every voter's cast flag, so the
// electorate can vote in the next one. The contract itself stays on chain;
// only the local registry forgets it.
func (s *Service) Delete(ctx context.Context, electionID id.ElectionID) error {
	if _, err := s.Get(ctx, electionID); err != nil {
		return err
	}

	reset, err := s.voters.ResetAllVoted(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset voters")
	}

	if err := s.elections.Delete(ctx, electionID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "election not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete election")
	}

	s.logAudit(ctx, audit.Event{
		Action:     string(audit.EventElectionDeleted),
		ElectionID: electionID.String(),
	})
	if s.logger != nil {
		s.logger.InfoContext(ctx, "election deleted, voters reset",
			"election_id", electionID, "voters_reset", reset)
	}
	return nil
}

// Results reads the on-chain tally and joins it with the local candidate
// rows. The ledger's counts win; local rows only contribute party labels.
func (s *Service) Results(ctx context.Context, electionID id.ElectionID) (*Results, error) {
	election, err := s.Get(ctx, electionID)
	if err != nil {
		return nil, err
	}

	tally, err := s.bridge.ReadTally(ctx, election.ContractAddress)
	if err != nil {
		s.incrementLedgerFailure("read_tally")
		return nil, err
	}

	candidates, err := s.elections.ListCandidates(ctx, electionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list candidates")
	}
	byOrdinal := make(map[uint64]*models.Candidate, len(candidates))
	for _, candidate := range candidates {
		byOrdinal[candidate.OnChainID] = candidate
	}

	results := &Results{Election: election}
	for _, row := range tally {
		candidate, ok := byOrdinal[row.Ordinal]
		if !ok {
			// On chain but unknown locally: synthesize a row so the tally
			// still adds up.
			candidate = &models.Candidate{
				ElectionID: electionID,
				Name:       row.Name,
				OnChainID:  row.Ordinal,
				Active:     row.Active,
			}
		}
		results.Candidates = append(results.Candidates, CandidateResult{
			Candidate: candidate,
			Votes:     row.Votes,
		})
	}
	return results, nil
}

func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, event.Action,
			"election_id", event.ElectionID,
			"request_id", requestcontext.RequestID(ctx),
			"log_type", "audit",
		)
	}
	if s.auditPublisher != nil {
		_ = s.auditPublisher.Emit(ctx, event)
	}
}

func (s *Service) incrementLedgerFailure(operation string) {
	if s.metrics != nil {
		s.metrics.LedgerFailures.WithLabelValues(operation).Inc()
	}
}
