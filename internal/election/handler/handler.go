package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	electionModel "facevote/internal/election/models"
	"facevote/internal/election/service"
	"facevote/internal/platform/metrics"
	"facevote/internal/platform/middleware"
	id "facevote/pkg/domain"
	dErrors "facevote/pkg/domain-errors"
	"facevote/pkg/platform/httputil"
)

// Service defines the interface for election operations.
type Service interface {
	Create(ctx context.Context, name string) (*electionModel.Election, bool, error)
	Activate(ctx context.Context, electionID id.ElectionID) error
	Get(ctx context.Context, electionID id.ElectionID) (*electionModel.Election, error)
	Active(ctx context.Context) (*electionModel.Election, error)
	List(ctx context.Context) ([]*electionModel.Election, error)
	AddCandidate(ctx context.Context, electionID id.ElectionID, name, party string) (*electionModel.Candidate, error)
	DeactivateCandidate(ctx context.Context, electionID id.ElectionID, candidateID id.CandidateID) error
	Candidates(ctx context.Context, electionID id.ElectionID) ([]*electionModel.Candidate, error)
	Delete(ctx context.Context, electionID id.ElectionID) error
	Results(ctx context.Context, electionID id.ElectionID) (*service.Results, error)
}

// Handler handles election-related endpoints.
type Handler struct {
	logger       *slog.Logger
	elections    Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new election Handler.
func New(
	elections Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		elections:    elections,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the election routes with the chi router. The server
// wires the common middleware stack; only route-specific guards live here.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.LatencyMiddleware(h.metrics))
		r.Use(middleware.RequireAdmin(h.jwtValidator, h.logger))
		r.Post("/admin/elections", h.handleCreateElection)
		r.Get("/admin/elections", h.handleListElections)
		r.Get("/admin/elections/{electionID}", h.handleGetElection)
		r.Post("/admin/elections/{electionID}/activate", h.handleActivateElection)
		r.Delete("/admin/elections/{electionID}", h.handleDeleteElection)
		r.Post("/admin/elections/{electionID}/candidates", h.handleAddCandidate)
		r.Get("/admin/elections/{electionID}/candidates", h.handleListCandidates)
		r.Delete("/admin/elections/{electionID}/candidates/{candidateID}", h.handleDeactivateCandidate)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.LatencyMiddleware(h.metrics))
		r.Get("/elections/active", h.handleActiveElection)
		r.Get("/elections/{electionID}/results", h.handleResults)
		r.Get("/elections/{electionID}/candidates", h.handlePublicCandidates)
	})
}

type createElectionRequest struct {
	Name string `json:"name"`
}

type addCandidateRequest struct {
	Name  string `json:"name"`
	Party string `json:"party"`
}

type electionResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	ContractAddress string `json:"contract_address"`
	IsActive        bool   `json:"is_active"`
	CreatedAt       string `json:"created_at"`
}

type candidateResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Party     string `json:"party,omitempty"`
	OnChainID uint64 `json:"on_chain_id"`
	Active    bool   `json:"active"`
}

type resultRow struct {
	candidateResponse
	Votes uint64 `json:"votes"`
}

type resultsResponse struct {
	Election   electionResponse `json:"election"`
	Candidates []resultRow      `json:"candidates"`
}

func toElectionResponse(e *electionModel.Election) electionResponse {
	return electionResponse{
		ID:              e.ID.String(),
		Name:            e.Name,
		ContractAddress: e.ContractAddress,
		IsActive:        e.IsActive,
		CreatedAt:       e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toCandidateResponse(c *electionModel.Candidate) candidateResponse {
	return candidateResponse{
		ID:        c.ID.String(),
		Name:      c.Name,
		Party:     c.Party,
		OnChainID: c.OnChainID,
		Active:    c.Active,
	}
}

func (h *Handler) handleCreateElection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[createElectionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	election, created, err := h.elections.Create(ctx, req.Name)
	if err != nil {
		h.writeServiceError(w, r, "failed to create election", err)
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, toElectionResponse(election))
}

func (h *Handler) handleListElections(w http.ResponseWriter, r *http.Request) {
	elections, err := h.elections.List(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "failed to list elections", err)
		return
	}
	out := make([]electionResponse, 0, len(elections))
	for _, e := range elections {
		out = append(out, toElectionResponse(e))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetElection(w http.ResponseWriter, r *http.Request) {
	electionID, err := id.ParseElectionID(chi.URLParam(r, "electionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	election, err := h.elections.Get(r.Context(), electionID)
	if err != nil {
		h.writeServiceError(w, r, "failed to load election", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toElectionResponse(election))
}

func (h *Handler) handleActivateElection(w http.ResponseWriter, r *http.Request) {
	electionID, err := id.ParseElectionID(chi.URLParam(r, "electionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.elections.Activate(r.Context(), electionID); err != nil {
		h.writeServiceError(w, r, "failed to activate election", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteElection(w http.ResponseWriter, r *http.Request) {
	electionID, err := id.ParseElectionID(chi.URLParam(r, "electionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.elections.Delete(r.Context(), electionID); err != nil {
		h.writeServiceError(w, r, "failed to delete election", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAddCandidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	electionID, err := id.ParseElectionID(chi.URLParam(r, "electionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[addCandidateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	candidate, err := h.elections.AddCandidate(ctx, electionID, req.Name, req.Party)
	if err != nil {
		h.writeServiceError(w, r, "failed to add candidate", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toCandidateResponse(candidate))
}

func (h *Handler) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	h.listCandidates(w, r)
}

func (h *Handler) handlePublicCandidates(w http.ResponseWriter, r *http.Request) {
	h.listCandidates(w, r)
}

func (h *Handler) listCandidates(w http.ResponseWriter, r *http.Request) {
	electionID, err := id.ParseElectionID(chi.URLParam(r, "electionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	candidates, err := h.elections.Candidates(r.Context(), electionID)
	if err != nil {
		h.writeServiceError(w, r, "failed to list candidates", err)
		return
	}
	out := make([]candidateResponse, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, toCandidateResponse(c))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleDeactivateCandidate(w http.ResponseWriter, r *http.Request) {
	electionID, err := id.ParseElectionID(chi.URLParam(r, "electionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	candidateID, err := id.ParseCandidateID(chi.URLParam(r, "candidateID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.elections.DeactivateCandidate(r.Context(), electionID, candidateID); err != nil {
		h.writeServiceError(w, r, "failed to deactivate candidate", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleActiveElection(w http.ResponseWriter, r *http.Request) {
	election, err := h.elections.Active(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "failed to load active election", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toElectionResponse(election))
}

func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	electionID, err := id.ParseElectionID(chi.URLParam(r, "electionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	results, err := h.elections.Results(r.Context(), electionID)
	if err != nil {
		h.writeServiceError(w, r, "failed to read results", err)
		return
	}

	resp := resultsResponse{
		Election:   toElectionResponse(results.Election),
		Candidates: make([]resultRow, 0, len(results.Candidates)),
	}
	for _, row := range results.Candidates {
		resp.Candidates = append(resp.Candidates, resultRow{
			candidateResponse: toCandidateResponse(row.Candidate),
			Votes:             row.Votes,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
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
