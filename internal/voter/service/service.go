package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"facevote/internal/audit"
	"facevote/internal/biometric"
	"facevote/internal/platform/metrics"
	"facevote/internal/voter/models"
	id "facevote/pkg/domain"
	dErrors "facevote/pkg/domain-errors"
	"facevote/pkg/platform/sentinel"
	"facevote/pkg/requestcontext"
)

type VoterStore interface {
	Create(ctx context.Context, voter *models.Voter) error
	FindByID(ctx context.Context, voterID id.VoterID) (*models.Voter, error)
	FindByEnrollment(ctx context.Context, enrollment string) (*models.Voter, error)
	List(ctx context.Context) ([]*models.Voter, error)
	Delete(ctx context.Context, voterID id.VoterID) error
}

type FrameEncoder interface {
	Encode(ctx context.Context, frames []biometric.Frame) (biometric.Embedding, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service manages voter registration and face authentication.
type Service struct {
	voters         VoterStore
	encoder        FrameEncoder
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
func New(voters VoterStore, encoder FrameEncoder, opts ...Option) *Service {
	s := &Service{voters: voters, encoder: encoder}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register enrolls a new voter. The enrollment number is checked before any
// face work so a taken number is reported even when the frames are unusable,
// and the captured face must not match anyone already registered.
func (s *Service) Register(ctx context.Context, name, enrollment string, frames []biometric.Frame) (*models.Voter, error) {
	name = strings.TrimSpace(name)
	enrollment = strings.TrimSpace(enrollment)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	if enrollment == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "enrollment number is required")
	}

	if _, err := s.voters.FindByEnrollment(ctx, enrollment); err == nil {
		s.incrementDuplicateEnrollment()
		return nil, dErrors.New(dErrors.CodeConflict, "enrollment number already registered")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check enrollment")
	}

	embedding, err := s.encoder.Encode(ctx, frames)
	if err != nil {
		return nil, err
	}

	if match, err := s.findFaceMatch(ctx, embedding, biometric.ToleranceDuplicate); err != nil {
		return nil, err
	} else if match != nil {
		s.incrementDuplicateFace()
		s.logAudit(ctx, string(audit.EventDuplicateFace),
			"enrollment", enrollment,
			"matched_voter_id", match.ID)
		return nil, dErrors.New(dErrors.CodeConflict, "face already registered to another voter")
	}

	voter, err := models.NewVoter(id.NewVoterID(), name, enrollment,
		[][]byte{embedding.Bytes()}, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.voters.Create(ctx, voter); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.incrementDuplicateEnrollment()
			return nil, dErrors.New(dErrors.CodeConflict, "enrollment number already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create voter")
	}

	s.logAudit(ctx, string(audit.EventVoterRegistered), "voter_id", voter.ID)
	if s.metrics != nil {
		s.metrics.VotersRegistered.Inc()
	}
	return voter, nil
}

// Authenticate verifies a voter by enrollment number and live frames.
// A voter who has already cast a ballot is rejected before any face work.
func (s *Service) Authenticate(ctx context.Context, enrollment string, frames []biometric.Frame) (*models.Voter, error) {
	enrollment = strings.TrimSpace(enrollment)
	if enrollment == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "enrollment number is required")
	}

	voter, err := s.voters.FindByEnrollment(ctx, enrollment)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "voter not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load voter")
	}
	if voter.HasVoted {
		return nil, dErrors.New(dErrors.CodeConflict, "voter has already cast a ballot")
	}

	candidate, err := s.encoder.Encode(ctx, frames)
	if err != nil {
		return nil, err
	}

	known, err := s.decodeStored(ctx, voter)
	if err != nil {
		return nil, err
	}
	if !biometric.Matches(candidate, known, biometric.ToleranceAuthentication) {
		s.incrementAuthFailure()
		s.logAudit(ctx, string(audit.EventAuthFailed), "voter_id", voter.ID)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "face does not match registered voter")
	}

	return voter, nil
}

// Delete removes a voter. Voters who have voted are immutable so the cast
// ballot stays attributable to a registration record.
func (s *Service) Delete(ctx context.Context, voterID id.VoterID) error {
	voter, err := s.voters.FindByID(ctx, voterID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "voter not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load voter")
	}
	if err := voter.CanDelete(); err != nil {
		return err
	}
	if err := s.voters.Delete(ctx, voterID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "voter not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete voter")
	}
	s.logAudit(ctx, string(audit.EventVoterDeleted), "voter_id", voterID)
	return nil
}

// Get returns a voter by id.
func (s *Service) Get(ctx context.Context, voterID id.VoterID) (*models.Voter, error) {
	voter, err := s.voters.FindByID(ctx, voterID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "voter not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load voter")
	}
	return voter, nil
}

// List returns all registered voters.
func (s *Service) List(ctx context.Context) ([]*models.Voter, error) {
	voters, err := s.voters.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list voters")
	}
	return voters, nil
}

// findFaceMatch scans every registered voter for a stored embedding within
// tolerance of the candidate. Corrupt stored embeddings are skipped and
// logged rather than failing the whole scan.
func (s *Service) findFaceMatch(ctx context.Context, candidate biometric.Embedding, tolerance float64) (*models.Voter, error) {
	voters, err := s.voters.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to scan registered faces")
	}
	for _, voter := range voters {
		known, skipped := biometric.DecodeAll(voter.Embeddings)
		if skipped > 0 && s.logger != nil {
			s.logger.WarnContext(ctx, "skipping corrupt stored embeddings",
				"voter_id", voter.ID, "skipped", skipped)
		}
		if biometric.Matches(candidate, known, tolerance) {
			return voter, nil
		}
	}
	return nil, nil
}

// decodeStored decodes a voter's stored embeddings, failing only when none
// of them decode.
func (s *Service) decodeStored(ctx context.Context, voter *models.Voter) ([]biometric.Embedding, error) {
	known, skipped := biometric.DecodeAll(voter.Embeddings)
	if skipped > 0 && s.logger != nil {
		s.logger.WarnContext(ctx, "skipping corrupt stored embeddings",
			"voter_id", voter.ID, "skipped", skipped)
	}
	if len(known) == 0 {
		return nil, dErrors.New(dErrors.CodeDataCorruption, "no usable embedding stored for voter")
	}
	return known, nil
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, event, args...)
	}
	if s.auditPublisher == nil {
		return
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{Action: event})
}

func (s *Service) incrementDuplicateEnrollment() {
	if s.metrics != nil {
		s.metrics.DuplicateEnrollment.Inc()
	}
}

func (s *Service) incrementDuplicateFace() {
	if s.metrics != nil {
		s.metrics.DuplicateFace.Inc()
	}
}

func (s *Service) incrementAuthFailure() {
	if s.metrics != nil {
		s.metrics.AuthFailures.Inc()
	}
}
