package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"facevote/internal/biometric"
	"facevote/internal/platform/metrics"
	"facevote/internal/platform/middleware"
	voterModel "facevote/internal/voter/models"
	id "facevote/pkg/domain"
	dErrors "facevote/pkg/domain-errors"
	"facevote/pkg/platform/httputil"
)

// Service defines the interface for voter operations.
type Service interface {
	Register(ctx context.Context, name, enrollment string, frames []biometric.Frame) (*voterModel.Voter, error)
	Authenticate(ctx context.Context, enrollment string, frames []biometric.Frame) (*voterModel.Voter, error)
	Delete(ctx context.Context, voterID id.VoterID) error
	Get(ctx context.Context, voterID id.VoterID) (*voterModel.Voter, error)
	List(ctx context.Context) ([]*voterModel.Voter, error)
}

// Handler handles voter-related endpoints.
type Handler struct {
	logger       *slog.Logger
	voters       Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new voter Handler.
func New(
	voters Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		voters:       voters,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the voter routes with the chi router. The server wires
// the common middleware stack; only route-specific guards live here.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.LatencyMiddleware(h.metrics))
		r.Use(middleware.RequireAdmin(h.jwtValidator, h.logger))
		r.Post("/admin/voters", h.handleRegisterVoter)
		r.Get("/admin/voters", h.handleListVoters)
		r.Get("/admin/voters/{voterID}", h.handleGetVoter)
		r.Delete("/admin/voters/{voterID}", h.handleDeleteVoter)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.LatencyMiddleware(h.metrics))
		r.Use(middleware.ClientMetadata(h.logger))
		r.Post("/voters/authenticate", h.handleAuthenticate)
	})
}

type registerVoterRequest struct {
	Name       string   `json:"name"`
	Enrollment string   `json:"enrollment"`
	Frames     []string `json:"frames"`
}

type authenticateRequest struct {
	Enrollment string   `json:"enrollment"`
	Frames     []string `json:"frames"`
}

type voterResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Enrollment string `json:"enrollment"`
	HasVoted   bool   `json:"has_voted"`
	CreatedAt  string `json:"created_at"`
}

func toVoterResponse(v *voterModel.Voter) voterResponse {
	return voterResponse{
		ID:         v.ID.String(),
		Name:       v.Name,
		Enrollment: v.Enrollment,
		HasVoted:   v.HasVoted,
		CreatedAt:  v.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *Handler) handleRegisterVoter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[registerVoterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	frames, err := biometric.ParseDataURLs(req.Frames)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	voter, err := h.voters.Register(ctx, req.Name, req.Enrollment, frames)
	if err != nil {
		h.writeServiceError(w, r, "failed to register voter", err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toVoterResponse(voter))
}

func (h *Handler) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[authenticateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	frames, err := biometric.ParseDataURLs(req.Frames)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	voter, err := h.voters.Authenticate(ctx, req.Enrollment, frames)
	if err != nil {
		h.writeServiceError(w, r, "authentication failed", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toVoterResponse(voter))
}

func (h *Handler) handleListVoters(w http.ResponseWriter, r *http.Request) {
	voters, err := h.voters.List(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "failed to list voters", err)
		return
	}

	out := make([]voterResponse, 0, len(voters))
	for _, v := range voters {
		out = append(out, toVoterResponse(v))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetVoter(w http.ResponseWriter, r *http.Request) {
	voterID, err := id.ParseVoterID(chi.URLParam(r, "voterID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	voter, err := h.voters.Get(r.Context(), voterID)
	if err != nil {
		h.writeServiceError(w, r, "failed to load voter", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toVoterResponse(voter))
}

func (h *Handler) handleDeleteVoter(w http.ResponseWriter, r *http.Request) {
	voterID, err := id.ParseVoterID(chi.URLParam(r, "voterID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.voters.Delete(r.Context(), voterID); err != nil {
		h.writeServiceError(w, r, "failed to delete voter", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeServiceError logs unexpected failures and passes domain errors through
// unchanged so the client sees the right status.
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
