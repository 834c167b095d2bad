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
	"facevote/internal/voting/reconcile"
	"facevote/internal/voting/service"
	id "facevote/pkg/domain"
	dErrors "facevote/pkg/domain-errors"
	"facevote/pkg/platform/httputil"
)

// Service defines the interface for vote casting.
type Service interface {
	CastVote(ctx context.Context, enrollment string, frames []biometric.Frame, ordinal uint64) (*service.Receipt, error)
	Status(ctx context.Context, voterID id.VoterID) (*voterModel.Voter, error)
}

// Reconciler repairs ledger-confirmed votes missing their local flip.
type Reconciler interface {
	Run(ctx context.Context) (*reconcile.Report, error)
}

// Handler handles vote casting and reconciliation endpoints.
type Handler struct {
	logger       *slog.Logger
	votes        Service
	reconciler   Reconciler
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new voting Handler.
func New(
	votes Service,
	reconciler Reconciler,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		votes:        votes,
		reconciler:   reconciler,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the voting routes. Casting is public (the face is the
// credential); reconciliation is an admin repair action.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.LatencyMiddleware(h.metrics))
		r.Use(middleware.ClientMetadata(h.logger))
		r.Post("/voters/vote", h.handleCastVote)
		r.Get("/voters/{voterID}/status", h.handleStatus)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.LatencyMiddleware(h.metrics))
		r.Use(middleware.RequireAdmin(h.jwtValidator, h.logger))
		r.Post("/admin/reconcile", h.handleReconcile)
	})
}

type castVoteRequest struct {
	Enrollment string   `json:"enrollment"`
	Frames     []string `json:"frames"`
	Ordinal    uint64   `json:"ordinal"`
}

type receiptResponse struct {
	VoterID     string `json:"voter_id"`
	ElectionID  string `json:"election_id"`
	CandidateID string `json:"candidate_id"`
	Ordinal     uint64 `json:"ordinal"`
	Digest      string `json:"digest"`
	CastAt      string `json:"cast_at"`
}

type statusResponse struct {
	VoterID  string `json:"voter_id"`
	HasVoted bool   `json:"has_voted"`
}

func (h *Handler) handleCastVote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[castVoteRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	frames, err := biometric.ParseDataURLs(req.Frames)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	receipt, err := h.votes.CastVote(ctx, req.Enrollment, frames, req.Ordinal)
	if err != nil {
		h.writeServiceError(w, r, "failed to cast vote", err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, receiptResponse{
		VoterID:     receipt.VoterID.String(),
		ElectionID:  receipt.ElectionID.String(),
		CandidateID: receipt.CandidateID.String(),
		Ordinal:     receipt.Ordinal,
		Digest:      receipt.DigestHex,
		CastAt:      receipt.CastAt.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	voterID, err := id.ParseVoterID(chi.URLParam(r, "voterID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	voter, err := h.votes.Status(r.Context(), voterID)
	if err != nil {
		h.writeServiceError(w, r, "failed to load voter status", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, statusResponse{
		VoterID:  voter.ID.String(),
		HasVoted: voter.HasVoted,
	})
}

func (h *Handler) handleReconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciler.Run(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "reconciliation failed", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	if dErrors.Is(err, dErrors.CodeInternal) || dErrors.Is(err, dErrors.CodeExternalCommitted) {
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
