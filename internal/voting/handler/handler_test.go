package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"facevote/internal/biometric"
	"facevote/internal/platform/middleware"
	voterModel "facevote/internal/voter/models"
	"facevote/internal/voting/reconcile"
	"facevote/internal/voting/service"
	id "facevote/pkg/domain"
	dErrors "facevote/pkg/domain-errors"
)

const adminToken = "valid-token"

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*middleware.AdminClaims, error) {
	if token != adminToken {
		return nil, errors.New("bad token")
	}
	return &middleware.AdminClaims{
		AdminID:   id.NewAdminID().String(),
		SessionID: id.NewSessionID().String(),
	}, nil
}

type stubService struct {
	castErr    error
	hasVoted   bool
	frameCount int
	ordinal    uint64
}

func (s *stubService) CastVote(_ context.Context, _ string, frames []biometric.Frame, ordinal uint64) (*service.Receipt, error) {
	s.frameCount = len(frames)
	s.ordinal = ordinal
	if s.castErr != nil {
		return nil, s.castErr
	}
	return &service.Receipt{
		VoterID:     id.NewVoterID(),
		ElectionID:  id.NewElectionID(),
		CandidateID: id.NewCandidateID(),
		Ordinal:     ordinal,
		DigestHex:   "ab12cd34",
		CastAt:      time.Now(),
	}, nil
}

func (s *stubService) Status(_ context.Context, voterID id.VoterID) (*voterModel.Voter, error) {
	return &voterModel.Voter{ID: voterID, HasVoted: s.hasVoted}, nil
}

type stubReconciler struct {
	report *reconcile.Report
}

func (s *stubReconciler) Run(context.Context) (*reconcile.Report, error) {
	return s.report, nil
}

func newVotingRouter(t *testing.T, svc Service, rec Reconciler) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := New(svc, rec, logger, nil, stubValidator{})
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func pngDataURL(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestCastVoteIsPublic(t *testing.T) {
	svc := &stubService{}
	router := newVotingRouter(t, svc, &stubReconciler{})

	payload := map[string]any{
		"enrollment": "EN-1001",
		"frames":     []string{pngDataURL(t)},
		"ordinal":    3,
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/voters/vote", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 casting vote, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.ordinal != 3 || svc.frameCount != 1 {
		t.Fatalf("unexpected service call: ordinal=%d frames=%d", svc.ordinal, svc.frameCount)
	}

	var resp struct {
		Digest string `json:"digest"`
		CastAt string `json:"cast_at"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Digest != "ab12cd34" || resp.CastAt == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestCastVoteMapsCommittedDivergenceTo500(t *testing.T) {
	svc := &stubService{castErr: dErrors.New(dErrors.CodeExternalCommitted,
		"vote recorded on ledger but local status update failed")}
	router := newVotingRouter(t, svc, &stubReconciler{})

	payload := map[string]any{
		"enrollment": "EN-1001",
		"frames":     []string{pngDataURL(t)},
		"ordinal":    1,
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/voters/vote", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for committed divergence, got %d", rec.Code)
	}
}

func TestCastVoteMapsLedgerTimeoutTo504(t *testing.T) {
	svc := &stubService{castErr: dErrors.New(dErrors.CodeExternalTimeout, "ledger confirmation timed out")}
	router := newVotingRouter(t, svc, &stubReconciler{})

	payload := map[string]any{
		"enrollment": "EN-1001",
		"frames":     []string{pngDataURL(t)},
		"ordinal":    1,
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/voters/vote", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504 for ledger timeout, got %d", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	router := newVotingRouter(t, &stubService{hasVoted: true}, &stubReconciler{})

	req := httptest.NewRequest(http.MethodGet, "/voters/"+id.NewVoterID().String()+"/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from status, got %d", rec.Code)
	}

	var resp struct {
		HasVoted bool `json:"has_voted"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.HasVoted {
		t.Fatalf("expected has_voted=true")
	}
}

func TestReconcileRequiresAdmin(t *testing.T) {
	router := newVotingRouter(t, &stubService{}, &stubReconciler{})

	req := httptest.NewRequest(http.MethodPost, "/admin/reconcile", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without admin token, got %d", rec.Code)
	}
}

func TestReconcileReportsRepairs(t *testing.T) {
	router := newVotingRouter(t, &stubService{},
		&stubReconciler{report: &reconcile.Report{Scanned: 2, Repaired: 2}})

	req := httptest.NewRequest(http.MethodPost, "/admin/reconcile", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from reconcile, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp reconcile.Report
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Repaired != 2 {
		t.Fatalf("expected 2 repaired, got %d", resp.Repaired)
	}
}
