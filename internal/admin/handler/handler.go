package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	adminModel "facevote/internal/admin/models"
	"facevote/internal/admin/service"
	"facevote/internal/audit"
	"facevote/internal/biometric"
	"facevote/internal/platform/metrics"
	"facevote/internal/platform/middleware"
	id "facevote/pkg/domain"
	dErrors "facevote/pkg/domain-errors"
	"facevote/pkg/platform/httputil"
)

// Service defines the interface for administrator operations.
type Service interface {
	Setup(ctx context.Context, username, password string, frames []biometric.Frame) (*adminModel.Admin, error)
	Login(ctx context.Context, username, password string, frames []biometric.Frame) (*service.LoginResult, error)
	Logout(ctx context.Context, sessionID id.SessionID) error
	Configured(ctx context.Context) (bool, error)
}

// ActivityLog exposes recent audit events for the admin activity view.
type ActivityLog interface {
	Recent(limit int) []audit.Event
}

// Handler handles administrator account endpoints.
type Handler struct {
	logger       *slog.Logger
	admins       Service
	activity     ActivityLog
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new admin Handler.
func New(
	admins Service,
	activity ActivityLog,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		admins:       admins,
		activity:     activity,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the admin account routes. Setup and login are public:
// setup only ever succeeds once, and login is the gate itself.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.LatencyMiddleware(h.metrics))
		r.Use(middleware.ClientMetadata(h.logger))
		r.Post("/admin/setup", h.handleSetup)
		r.Post("/admin/login", h.handleLogin)
		r.Get("/admin/status", h.handleStatus)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.LatencyMiddleware(h.metrics))
		r.Use(middleware.RequireAdmin(h.jwtValidator, h.logger))
		r.Post("/admin/logout", h.handleLogout)
		r.Get("/admin/activity", h.handleActivity)
	})
}

type setupRequest struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	Frames   []string `json:"frames,omitempty"`
}

type loginRequest struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	Frames   []string `json:"frames,omitempty"`
}

type adminResponse struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	FaceFactor bool   `json:"face_factor"`
	CreatedAt  string `json:"created_at"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

type statusResponse struct {
	Configured bool `json:"configured"`
}

const defaultActivityLimit = 50

type activityResponse struct {
	Events []audit.Event `json:"events"`
}

func toAdminResponse(a *adminModel.Admin) adminResponse {
	return adminResponse{
		ID:         a.ID.String(),
		Username:   a.Username,
		FaceFactor: a.HasFaceFactor(),
		CreatedAt:  a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// parseOptionalFrames decodes face frames when present. An empty list is
// fine here: the face factor is optional for admins.
func parseOptionalFrames(raw []string) ([]biometric.Frame, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	return biometric.ParseDataURLs(raw)
}

func (h *Handler) handleSetup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[setupRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	frames, err := parseOptionalFrames(req.Frames)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	admin, err := h.admins.Setup(ctx, req.Username, req.Password, frames)
	if err != nil {
		h.writeServiceError(w, r, "setup failed", err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toAdminResponse(admin))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[loginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	frames, err := parseOptionalFrames(req.Frames)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.admins.Login(ctx, req.Username, req.Password, frames)
	if err != nil {
		h.writeServiceError(w, r, "login failed", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, loginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID, err := id.ParseSessionID(middleware.GetSessionID(ctx))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid session"))
		return
	}

	if err := h.admins.Logout(ctx, sessionID); err != nil {
		h.writeServiceError(w, r, "logout failed", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit := defaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	events := h.activity.Recent(limit)
	if events == nil {
		events = []audit.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, activityResponse{Events: events})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	configured, err := h.admins.Configured(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "failed to check setup status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, statusResponse{Configured: configured})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	if dErrors.Is(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg,
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
	} else {
		h.logger.WarnContext(ctx, msg,
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, err)
}
