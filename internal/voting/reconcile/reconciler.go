// Package reconcile repairs the one divergence the cast-vote ordering
// accepts: a ledger-confirmed vote whose local status flip never landed.
package reconcile

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"facevote/internal/audit"
	"facevote/internal/platform/metrics"
	voterModel "facevote/internal/voter/models"
	"facevote/internal/voting/models"
	id "facevote/pkg/domain"
	dErrors "facevote/pkg/domain-errors"
	"facevote/pkg/requestcontext"
)

const defaultConcurrency = 4

type AttemptStore interface {
	ListSubmitted(ctx context.Context) ([]*models.Attempt, error)
	SetState(ctx context.Context, attemptID id.AttemptID, state models.AttemptState, now time.Time) error
}

type VoterStore interface {
	Execute(ctx context.Context, voterID id.VoterID,
		validate func(*voterModel.Voter) error,
		mutate func(*voterModel.Voter)) (*voterModel.Voter, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Report summarizes one reconciliation run.
type Report struct {
	Scanned  int `json:"scanned"`
	Repaired int `json:"repaired"`
	Failed   int `json:"failed"`
}

// Reconciler closes out submitted-uncommitted attempts: it flips the
// voter's flag if the crash beat the flip, then marks the attempt
// committed. Runs on demand from the admin endpoint, never on a schedule.
type Reconciler struct {
	attempts       AttemptStore
	voters         VoterStore
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	concurrency    int
}

type Option func(r *Reconciler)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(r *Reconciler) {
		r.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

func WithConcurrency(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// New constructs a Reconciler.
func New(attempts AttemptStore, voters VoterStore, opts ...Option) *Reconciler {
	r := &Reconciler{
		attempts:    attempts,
		voters:      voters,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run scans the journal and repairs every submitted-uncommitted attempt.
// Individual repair failures are counted, logged, and left in the journal
// for the next run; only the initial scan can fail the whole call.
func (r *Reconciler) Run(ctx context.Context) (*Report, error) {
	submitted, err := r.attempts.ListSubmitted(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to scan vote journal")
	}

	var repaired, failed atomic.Int64
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.concurrency)

	for _, attempt := range submitted {
		group.Go(func() error {
			if err := r.repair(groupCtx, attempt); err != nil {
				failed.Add(1)
				if r.logger != nil {
					r.logger.ErrorContext(groupCtx, "failed to repair vote attempt",
						"attempt_id", attempt.ID, "voter_id", attempt.VoterID, "error", err.Error())
				}
				return nil
			}
			repaired.Add(1)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	report := &Report{
		Scanned:  len(submitted),
		Repaired: int(repaired.Load()),
		Failed:   int(failed.Load()),
	}
	if r.logger != nil {
		r.logger.InfoContext(ctx, "vote reconciliation finished",
			"scanned", report.Scanned, "repaired", report.Repaired, "failed", report.Failed)
	}
	return report, nil
}

// repair flips the voter if needed and closes the attempt. ApplyVote on an
// already-voted row is a no-op, so the flip is idempotent.
func (r *Reconciler) repair(ctx context.Context, attempt *models.Attempt) error {
	if _, err := r.voters.Execute(ctx, attempt.VoterID,
		func(*voterModel.Voter) error { return nil },
		func(v *voterModel.Voter) { v.ApplyVote() },
	); err != nil {
		return err
	}

	if err := r.attempts.SetState(ctx, attempt.ID, models.AttemptCommitted, requestcontext.Now(ctx)); err != nil {
		return err
	}

	if r.auditPublisher != nil {
		_ = r.auditPublisher.Emit(ctx, audit.Event{
			Timestamp:  requestcontext.Now(ctx),
			Action:     string(audit.EventVoteRepaired),
			VoterID:    attempt.VoterID.String(),
			ElectionID: attempt.ElectionID.String(),
			DigestHex:  attempt.DigestHex,
			Ordinal:    attempt.Ordinal,
		})
	}
	if r.metrics != nil {
		r.metrics.VotesRepaired.Inc()
	}
	return nil
}
