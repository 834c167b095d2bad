// Package service sequences a vote across the ledger and the local store.
// The ledger write and the voter status flip live in different systems with
// no shared transaction, so the orchestrator journals every attempt and
// holds a per-voter lock for the whole sequence.
package service

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"facevote/internal/audit"
	"facevote/internal/biometric"
	electionModel "facevote/internal/election/models"
	"facevote/internal/ledger"
	"facevote/internal/platform/metrics"
	voterModel "facevote/internal/voter/models"
	"facevote/internal/voting/models"
	id "facevote/pkg/domain"
	dErrors "facevote/pkg/domain-errors"
	"facevote/pkg/platform/sentinel"
	"facevote/pkg/requestcontext"
)

type VoterStore interface {
	FindByID(ctx context.Context, voterID id.VoterID) (*voterModel.Voter, error)
	FindByEnrollment(ctx context.Context, enrollment string) (*voterModel.Voter, error)
	Execute(ctx context.Context, voterID id.VoterID,
		validate func(*voterModel.Voter) error,
		mutate func(*voterModel.Voter)) (*voterModel.Voter, error)
}

// Authenticator verifies a voter's face against their enrollment record.
type Authenticator interface {
	Authenticate(ctx context.Context, enrollment string, frames []biometric.Frame) (*voterModel.Voter, error)
}

// ElectionRegistry resolves the active election and its candidates.
type ElectionRegistry interface {
	Active(ctx context.Context) (*electionModel.Election, error)
	CandidateByOrdinal(ctx context.Context, electionID id.ElectionID, ordinal uint64) (*electionModel.Candidate, error)
}

// AttemptStore is the idempotency journal.
type AttemptStore interface {
	Create(ctx context.Context, attempt *models.Attempt) error
	FindOpen(ctx context.Context, voterID id.VoterID, electionID id.ElectionID) (*models.Attempt, error)
	SetState(ctx context.Context, attemptID id.AttemptID, state models.AttemptState, now time.Time) error
	Retarget(ctx context.Context, attemptID id.AttemptID, digestHex string, ordinal uint64, now time.Time) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Receipt reports a successfully committed vote back to the caller.
type Receipt struct {
	VoterID     id.VoterID
	ElectionID  id.ElectionID
	CandidateID id.CandidateID
	Ordinal     uint64
	DigestHex   string
	CastAt      time.Time
}

// Orchestrator drives the cast-vote state machine.
type Orchestrator struct {
	voters         VoterStore
	auth           Authenticator
	elections      ElectionRegistry
	attempts       AttemptStore
	bridge         ledger.Bridge
	locks          *voterLocks
	tracer         trace.Tracer
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(o *Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(o *Orchestrator) {
		o.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// New constructs an Orchestrator.
func New(voters VoterStore, auth Authenticator, elections ElectionRegistry,
	attempts AttemptStore, bridge ledger.Bridge, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		voters:    voters,
		auth:      auth,
		elections: elections,
		attempts:  attempts,
		bridge:    bridge,
		locks:     newVoterLocks(),
		tracer:    otel.Tracer("facevote/voting"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CastVote moves a voter from NotVoted to Voted, strictly in order: verify
// the voter, resolve the active election and candidate, journal the
// attempt, submit to the ledger, then flip the local flag. The ledger
// write comes first so a crash between the two can never lose an on-chain
// vote; the inverse gap is journaled and repaired by the reconciler.
// Ledger errors propagate verbatim and are never retried here, because a
// blind retry could double-submit.
func (o *Orchestrator) CastVote(ctx context.Context, enrollment string, frames []biometric.Frame, ordinal uint64) (*Receipt, error) {
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "vote.cast")
	defer span.End()

	enrollment = strings.TrimSpace(enrollment)
	if enrollment == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "enrollment number is required")
	}
	if ordinal == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "candidate ordinal must be positive")
	}

	// Resolve the voter first so the lock can be keyed before any check
	// whose answer could go stale.
	known, err := o.voters.FindByEnrollment(ctx, enrollment)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "voter not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load voter")
	}

	unlock := o.locks.Lock(known.ID.String())
	defer unlock()

	// Authenticate re-reads the voter under the lock, so the voted check
	// it performs cannot be answered by a row another cast is flipping.
	voter, err := o.auth.Authenticate(ctx, enrollment, frames)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	election, err := o.elections.Active(ctx)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "no election is currently active")
		}
		return nil, err
	}
	span.SetAttributes(
		attribute.String("election.id", election.ID.String()),
		attribute.Int64("candidate.ordinal", int64(ordinal)),
	)

	candidate, err := o.elections.CandidateByOrdinal(ctx, election.ID, ordinal)
	if err != nil {
		return nil, err
	}
	if !candidate.Active {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "candidate is deactivated")
	}

	digest, err := voterDigest(voter)
	if err != nil {
		return nil, err
	}
	digestHex := hex.EncodeToString(digest[:])

	attempt, err := o.openAttempt(ctx, voter.ID, election.ID, digestHex, ordinal)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := o.bridge.Vote(ctx, election.ContractAddress, digest, ordinal); err != nil {
		// The attempt stays pending: no on-chain side effect happened, so
		// the voter can simply try again.
		span.RecordError(err)
		o.incrementLedgerFailure("vote")
		return nil, err
	}

	now := requestcontext.Now(ctx)
	if err := o.attempts.SetState(ctx, attempt.ID, models.AttemptSubmitted, now); err != nil {
		o.logError(ctx, "ledger vote confirmed but journal update failed",
			"attempt_id", attempt.ID, "error", err.Error())
	}
	o.logAudit(ctx, audit.Event{
		Action:     string(audit.EventVoteSubmitted),
		VoterID:    voter.ID.String(),
		ElectionID: election.ID.String(),
		DigestHex:  digestHex,
		Ordinal:    ordinal,
	})

	if _, err := o.voters.Execute(ctx, voter.ID,
		func(v *voterModel.Voter) error { return v.CanVote() },
		func(v *voterModel.Voter) { v.ApplyVote() },
	); err != nil {
		span.RecordError(err)
		o.logError(ctx, "ledger vote confirmed but voter status flip failed",
			"voter_id", voter.ID, "attempt_id", attempt.ID, "error", err.Error())
		return nil, dErrors.Wrap(err, dErrors.CodeExternalCommitted,
			"vote recorded on ledger but local status update failed")
	}

	if err := o.attempts.SetState(ctx, attempt.ID, models.AttemptCommitted, now); err != nil {
		// Voter is flipped, attempt stays submitted: harmless, the
		// reconciler finds the flag already set and closes it out.
		if o.logger != nil {
			o.logger.WarnContext(ctx, "vote committed but journal close failed",
				"attempt_id", attempt.ID, "error", err.Error())
		}
	}

	o.logAudit(ctx, audit.Event{
		Action:     string(audit.EventVoteCommitted),
		VoterID:    voter.ID.String(),
		ElectionID: election.ID.String(),
		DigestHex:  digestHex,
		Ordinal:    ordinal,
	})
	if o.metrics != nil {
		o.metrics.VotesCast.Inc()
		o.metrics.VoteLatency.Observe(time.Since(start).Seconds())
	}

	return &Receipt{
		VoterID:     voter.ID,
		ElectionID:  election.ID,
		CandidateID: candidate.ID,
		Ordinal:     ordinal,
		DigestHex:   digestHex,
		CastAt:      now,
	}, nil
}

// Status reports a voter's cast state for the polling client.
func (o *Orchestrator) Status(ctx context.Context, voterID id.VoterID) (*voterModel.Voter, error) {
	voter, err := o.voters.FindByID(ctx, voterID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "voter not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load voter")
	}
	return voter, nil
}

// openAttempt returns the journal entry to submit under. A submitted
// attempt means a previous ledger write confirmed without the local flip;
// casting again would double-vote on chain, so the caller gets the
// committed-variant error and the reconciler repairs the divergence. A
// stale pending attempt carries no side effect and is reused, retargeted
// to the current choice when the voter picked a different candidate.
func (o *Orchestrator) openAttempt(ctx context.Context, voterID id.VoterID, electionID id.ElectionID,
	digestHex string, ordinal uint64) (*models.Attempt, error) {
	existing, err := o.attempts.FindOpen(ctx, voterID, electionID)
	if err == nil {
		if existing.State == models.AttemptSubmitted {
			return nil, dErrors.New(dErrors.CodeExternalCommitted,
				"a confirmed ledger vote for this voter awaits reconciliation")
		}
		if existing.DigestHex != digestHex || existing.Ordinal != ordinal {
			if err := o.attempts.Retarget(ctx, existing.ID, digestHex, ordinal,
				requestcontext.Now(ctx)); err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update vote journal")
			}
			existing.DigestHex = digestHex
			existing.Ordinal = ordinal
		}
		if o.logger != nil {
			o.logger.WarnContext(ctx, "reusing stale pending vote attempt",
				"attempt_id", existing.ID, "voter_id", voterID)
		}
		return existing, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check vote journal")
	}

	attempt, err := models.NewAttempt(id.NewAttemptID(), voterID, electionID,
		digestHex, ordinal, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := o.attempts.Create(ctx, attempt); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to journal vote attempt")
	}
	return attempt, nil
}

// voterDigest derives the anonymized ledger identifier from the first
// decodable stored embedding. Deterministic per voter, so retries always
// submit the same digest.
func voterDigest(voter *voterModel.Voter) ([32]byte, error) {
	for _, raw := range voter.Embeddings {
		embedding, err := biometric.Decode(raw)
		if err != nil {
			continue
		}
		return biometric.Digest(embedding), nil
	}
	var zero [32]byte
	return zero, dErrors.New(dErrors.CodeDataCorruption, "no usable embedding stored for voter")
}

func (o *Orchestrator) logAudit(ctx context.Context, event audit.Event) {
	event.Timestamp = requestcontext.Now(ctx)
	if o.logger != nil {
		o.logger.InfoContext(ctx, event.Action,
			"voter_id", event.VoterID,
			"election_id", event.ElectionID,
			"ordinal", event.Ordinal,
			"request_id", requestcontext.RequestID(ctx),
			"event", event.Action,
			"log_type", "audit")
	}
	if o.auditPublisher == nil {
		return
	}
	_ = o.auditPublisher.Emit(ctx, event)
}

func (o *Orchestrator) logError(ctx context.Context, msg string, attributes ...any) {
	if o.logger != nil {
		o.logger.ErrorContext(ctx, msg, attributes...)
	}
}

func (o *Orchestrator) incrementLedgerFailure(operation string) {
	if o.metrics != nil {
		o.metrics.LedgerFailures.WithLabelValues(operation).Inc()
	}
}
