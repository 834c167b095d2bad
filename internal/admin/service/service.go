package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"facevote/internal/admin/models"
	"facevote/internal/admin/session"
	"facevote/internal/audit"
	"facevote/internal/biometric"
	id "facevote/pkg/domain"
	dErrors "facevote/pkg/domain-errors"
	"facevote/pkg/platform/sentinel"
	"facevote/pkg/requestcontext"
)

const (
	minPasswordLength = 8

	// DefaultSessionTTL bounds how long an admin session stays valid.
	DefaultSessionTTL = 8 * time.Hour
)

type AdminStore interface {
	CreateIfNone(ctx context.Context, admin *models.Admin) error
	FindByID(ctx context.Context, adminID id.AdminID) (*models.Admin, error)
	FindByUsername(ctx context.Context, username string) (*models.Admin, error)
	Count(ctx context.Context) (int, error)
}

type TokenIssuer interface {
	GenerateAccessToken(adminID uuid.UUID, sessionID uuid.UUID, expiresIn time.Duration) (string, error)
}

type FrameEncoder interface {
	Encode(ctx context.Context, frames []biometric.Frame) (biometric.Embedding, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service manages the single administrator account: one-time setup,
// password (plus optional face) login, and session revocation.
type Service struct {
	admins         AdminStore
	sessions       session.Store
	tokens         TokenIssuer
	encoder        FrameEncoder
	logger         *slog.Logger
	auditPublisher AuditPublisher
	sessionTTL     time.Duration
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

func WithEncoder(encoder FrameEncoder) Option {
	return func(s *Service) {
		s.encoder = encoder
	}
}

func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.sessionTTL = ttl
	}
}

// New constructs a Service.
func New(admins AdminStore, sessions session.Store, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{
		admins:     admins,
		sessions:   sessions,
		tokens:     tokens,
		sessionTTL: DefaultSessionTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoginResult carries the signed token and its session back to the handler.
type LoginResult struct {
	Token     string
	SessionID id.SessionID
	ExpiresAt time.Time
	Admin     *models.Admin
}

// Setup creates the administrator account. It succeeds exactly once per
// deployment; every later call returns a conflict. Face frames are
// optional and, when supplied, enable the second login factor.
func (s *Service) Setup(ctx context.Context, username, password string, frames []biometric.Frame) (*models.Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "username is required")
	}
	if len(password) < minPasswordLength {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "password must be at least %d characters", minPasswordLength)
	}

	count, err := s.admins.Count(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check for existing administrator")
	}
	if count > 0 {
		return nil, dErrors.New(dErrors.CodeConflict, "administrator already configured")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	var embeddings [][]byte
	if len(frames) > 0 {
		if s.encoder == nil {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "face enrollment is not available")
		}
		embedding, err := s.encoder.Encode(ctx, frames)
		if err != nil {
			return nil, err
		}
		embeddings = [][]byte{embedding.Bytes()}
	}

	admin, err := models.NewAdmin(id.NewAdminID(), username, hash, embeddings, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.admins.CreateIfNone(ctx, admin); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "administrator already configured")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create administrator")
	}

	s.logAudit(ctx, string(audit.EventAdminSetup),
		"admin_id", admin.ID,
		"face_factor", admin.HasFaceFactor())
	return admin, nil
}

// Login verifies the password and, when the account enrolled a face at
// setup, the supplied frames. Every failure mode reads the same to the
// caller so the response does not reveal which factor failed.
func (s *Service) Login(ctx context.Context, username, password string, frames []biometric.Frame) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "username and password are required")
	}

	admin, err := s.admins.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, s.loginRejected(ctx, "unknown_username", username)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load administrator")
	}

	if err := bcrypt.CompareHashAndPassword(admin.PasswordHash, []byte(password)); err != nil {
		return nil, s.loginRejected(ctx, "bad_password", username)
	}

	if admin.HasFaceFactor() {
		if err := s.verifyFace(ctx, admin, frames); err != nil {
			return nil, err
		}
	}

	now := requestcontext.Now(ctx)
	sess := session.New(admin.ID, now, s.sessionTTL)
	sess.ClientIP = requestcontext.ClientIP(ctx)
	sess.UserAgent = requestcontext.UserAgent(ctx)
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}

	token, err := s.tokens.GenerateAccessToken(uuid.UUID(admin.ID), uuid.UUID(sess.ID), s.sessionTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	s.logAudit(ctx, string(audit.EventAdminLogin),
		"admin_id", admin.ID,
		"session_id", sess.ID,
		"client_ip", sess.ClientIP)
	return &LoginResult{
		Token:     token,
		SessionID: sess.ID,
		ExpiresAt: sess.ExpiresAt,
		Admin:     admin,
	}, nil
}

// Logout deletes the session, which revokes every token carrying its ID.
func (s *Service) Logout(ctx context.Context, sessionID id.SessionID) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "session not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete session")
	}
	s.logAudit(ctx, string(audit.EventAdminLogout), "session_id", sessionID)
	return nil
}

// Configured reports whether setup has already run.
func (s *Service) Configured(ctx context.Context) (bool, error) {
	count, err := s.admins.Count(ctx)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check for existing administrator")
	}
	return count > 0, nil
}

func (s *Service) verifyFace(ctx context.Context, admin *models.Admin, frames []biometric.Frame) error {
	if len(frames) == 0 {
		return s.loginRejected(ctx, "missing_face_frames", admin.Username)
	}
	if s.encoder == nil {
		return dErrors.New(dErrors.CodeInternal, "face verification is not available")
	}

	candidate, err := s.encoder.Encode(ctx, frames)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidInput) {
			return s.loginRejected(ctx, "undecodable_face_frames", admin.Username)
		}
		return err
	}

	known, skipped := biometric.DecodeAll(admin.Embeddings)
	if skipped > 0 && s.logger != nil {
		s.logger.WarnContext(ctx, "skipping corrupt stored embeddings",
			"admin_id", admin.ID, "skipped", skipped)
	}
	if len(known) == 0 {
		return dErrors.New(dErrors.CodeDataCorruption, "no usable embedding stored for administrator")
	}
	if !biometric.Matches(candidate, known, biometric.ToleranceAuthentication) {
		return s.loginRejected(ctx, "face_mismatch", admin.Username)
	}
	return nil
}

func (s *Service) loginRejected(ctx context.Context, reason, username string) error {
	s.logAudit(ctx, string(audit.EventAuthFailed),
		"username", username,
		"reason", reason,
		"client_ip", requestcontext.ClientIP(ctx))
	return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
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
