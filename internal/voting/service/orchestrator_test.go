package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"facevote/internal/audit"
	"facevote/internal/biometric"
	electionservice "facevote/internal/election/service"
	electionstore "facevote/internal/election/store"
	"facevote/internal/ledger/mocks"
	voterModel "facevote/internal/voter/models"
	voterservice "facevote/internal/voter/service"
	voterstore "facevote/internal/voter/store"
	"facevote/internal/voting/models"
	"facevote/internal/voting/store"
	id "facevote/pkg/domain"
	dErrors "facevote/pkg/domain-errors"
	"facevote/pkg/platform/sentinel"
)

const testContract = "0x00000000000000000000000000000000000000aa"

// stubEncoder returns queued embeddings in order, or a fixed embedding for
// tests that encode concurrently.
type stubEncoder struct {
	mu    sync.Mutex
	queue []biometric.Embedding
	fixed biometric.Embedding
}

func (e *stubEncoder) Encode(context.Context, []biometric.Frame) (biometric.Embedding, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fixed != nil {
		return e.fixed, nil
	}
	if len(e.queue) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "no face detected in any frame")
	}
	next := e.queue[0]
	e.queue = e.queue[1:]
	return next, nil
}

func (e *stubEncoder) push(embeddings ...biometric.Embedding) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue = append(e.queue, embeddings...)
}

// flakyVoterStore fails a scripted number of Execute calls so tests can
// open the gap between ledger confirmation and the local flip.
type flakyVoterStore struct {
	*voterstore.InMemory
	failFlips int
	mu        sync.Mutex
}

func (f *flakyVoterStore) Execute(ctx context.Context, voterID id.VoterID,
	validate func(*voterModel.Voter) error,
	mutate func(*voterModel.Voter)) (*voterModel.Voter, error) {
	f.mu.Lock()
	shouldFail := f.failFlips > 0
	if shouldFail {
		f.failFlips--
	}
	f.mu.Unlock()
	if shouldFail {
		return nil, errors.New("connection reset by peer")
	}
	return f.InMemory.Execute(ctx, voterID, validate, mutate)
}

func faceAt(base float64) biometric.Embedding {
	e := make(biometric.Embedding, biometric.Dim)
	for i := range e {
		e[i] = base
	}
	return e
}

func frames(n int) []biometric.Frame {
	out := make([]biometric.Frame, n)
	for i := range out {
		out[i] = biometric.Frame{Width: 1, Height: 1, RGB: []byte{0, 0, 0}}
	}
	return out
}

type OrchestratorSuite struct {
	suite.Suite
	ctrl         *gomock.Controller
	bridge       *mocks.MockBridge
	voters       *flakyVoterStore
	encoder      *stubEncoder
	voterSvc     *voterservice.Service
	electionSvc  *electionservice.Service
	attempts     *store.InMemory
	audits       *audit.Recorder
	orchestrator *Orchestrator
	ctx          context.Context
}

func TestOrchestratorSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorSuite))
}

func (s *OrchestratorSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.bridge = mocks.NewMockBridge(s.ctrl)
	s.voters = &flakyVoterStore{InMemory: voterstore.NewInMemory()}
	s.encoder = &stubEncoder{}
	s.voterSvc = voterservice.New(s.voters.InMemory, s.encoder)
	s.electionSvc = electionservice.New(electionstore.NewInMemory(), s.bridge, s.voters.InMemory)
	s.attempts = store.NewInMemory()
	s.audits = audit.NewRecorder(64)
	s.orchestrator = New(s.voters, s.voterSvc, s.electionSvc, s.attempts, s.bridge,
		WithAuditPublisher(s.audits))
	s.ctx = context.Background()
}

// SetupSubTest gives every subtest its own stores and mock controller, since
// voters and elections registered in one subtest would leak into the next.
func (s *OrchestratorSuite) SetupSubTest() {
	s.SetupTest()
}

func (s *OrchestratorSuite) registerVoter(name, enrollment string, face biometric.Embedding) id.VoterID {
	s.T().Helper()
	s.encoder.push(face)
	voter, err := s.voterSvc.Register(s.ctx, name, enrollment, frames(1))
	s.Require().NoError(err)
	return voter.ID
}

// activeElection deploys and activates an election with one candidate at
// ordinal 1.
func (s *OrchestratorSuite) activeElection() id.ElectionID {
	s.T().Helper()
	s.bridge.EXPECT().Deploy(gomock.Any()).Return(testContract, nil)
	election, _, err := s.electionSvc.Create(s.ctx, "General 2026")
	s.Require().NoError(err)
	s.Require().NoError(s.electionSvc.Activate(s.ctx, election.ID))

	s.bridge.EXPECT().AddCandidate(gomock.Any(), testContract, "Grace Hopper").Return(uint64(1), nil)
	_, err = s.electionSvc.AddCandidate(s.ctx, election.ID, "Grace Hopper", "Compilers")
	s.Require().NoError(err)
	return election.ID
}

func (s *OrchestratorSuite) auditActions() []string {
	var actions []string
	for _, event := range s.audits.Recent(0) {
		actions = append(actions, event.Action)
	}
	return actions
}

func (s *OrchestratorSuite) TestCastVote() {
	s.Run("casts a vote and flips the voter exactly once", func() {
		voterID := s.registerVoter("Ada Lovelace", "EN-1001", faceAt(0.1))
		electionID := s.activeElection()

		s.bridge.EXPECT().Vote(gomock.Any(), testContract, gomock.Any(), uint64(1)).Return(nil)
		s.encoder.push(faceAt(0.11))
		receipt, err := s.orchestrator.CastVote(s.ctx, "EN-1001", frames(1), 1)
		s.Require().NoError(err)
		s.Equal(voterID, receipt.VoterID)
		s.Equal(electionID, receipt.ElectionID)
		s.Equal(uint64(1), receipt.Ordinal)
		s.NotEmpty(receipt.DigestHex)

		voter, err := s.voters.FindByID(s.ctx, voterID)
		s.Require().NoError(err)
		s.True(voter.HasVoted)

		_, err = s.attempts.FindOpen(s.ctx, voterID, electionID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound, "committed attempt must close the journal slot")

		s.Contains(s.auditActions(), string(audit.EventVoteSubmitted))
		s.Contains(s.auditActions(), string(audit.EventVoteCommitted))
	})

	s.Run("rejects a second vote without touching the ledger", func() {
		s.registerVoter("Ada Lovelace", "EN-1001", faceAt(0.1))
		s.activeElection()

		s.bridge.EXPECT().Vote(gomock.Any(), testContract, gomock.Any(), uint64(1)).Return(nil)
		s.encoder.push(faceAt(0.11))
		_, err := s.orchestrator.CastVote(s.ctx, "EN-1001", frames(1), 1)
		s.Require().NoError(err)

		s.encoder.push(faceAt(0.11))
		_, err = s.orchestrator.CastVote(s.ctx, "EN-1001", frames(1), 1)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeConflict),
			"expected conflict for repeat vote, got %v", err)
	})

	s.Run("rejects a face mismatch before any ledger work", func() {
		s.registerVoter("Ada Lovelace", "EN-1001", faceAt(0.1))
		s.activeElection()

		s.encoder.push(faceAt(0.9))
		_, err := s.orchestrator.CastVote(s.ctx, "EN-1001", frames(1), 1)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("requires an active election", func() {
		s.registerVoter("Ada Lovelace", "EN-1001", faceAt(0.1))

		s.encoder.push(faceAt(0.11))
		_, err := s.orchestrator.CastVote(s.ctx, "EN-1001", frames(1), 1)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejects an unknown candidate ordinal", func() {
		s.registerVoter("Ada Lovelace", "EN-1001", faceAt(0.1))
		s.activeElection()

		s.encoder.push(faceAt(0.11))
		_, err := s.orchestrator.CastVote(s.ctx, "EN-1001", frames(1), 99)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("rejects an unknown voter", func() {
		s.activeElection()

		_, err := s.orchestrator.CastVote(s.ctx, "EN-9999", frames(1), 1)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *OrchestratorSuite) TestLedgerFailure() {
	s.Run("a failed ledger write leaves the voter able to retry", func() {
		voterID := s.registerVoter("Ada Lovelace", "EN-1001", faceAt(0.1))
		electionID := s.activeElection()

		ledgerDown := dErrors.New(dErrors.CodeExternal, "ledger vote failed: connection refused")
		s.bridge.EXPECT().Vote(gomock.Any(), testContract, gomock.Any(), uint64(1)).Return(ledgerDown)
		s.encoder.push(faceAt(0.11))
		_, err := s.orchestrator.CastVote(s.ctx, "EN-1001", frames(1), 1)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeExternal))

		voter, err := s.voters.FindByID(s.ctx, voterID)
		s.Require().NoError(err)
		s.False(voter.HasVoted, "no flip without ledger confirmation")

		open, err := s.attempts.FindOpen(s.ctx, voterID, electionID)
		s.Require().NoError(err)
		s.Equal(models.AttemptPending, open.State, "pending attempt carries no side effect")

		// The retry reuses the pending attempt and succeeds.
		s.bridge.EXPECT().Vote(gomock.Any(), testContract, gomock.Any(), uint64(1)).Return(nil)
		s.encoder.push(faceAt(0.11))
		_, err = s.orchestrator.CastVote(s.ctx, "EN-1001", frames(1), 1)
		s.Require().NoError(err)

		voter, err = s.voters.FindByID(s.ctx, voterID)
		s.Require().NoError(err)
		s.True(voter.HasVoted)
	})

	s.Run("a reused pending attempt follows the voter's new choice", func() {
		voterID := s.registerVoter("Ada Lovelace", "EN-1001", faceAt(0.1))
		electionID := s.activeElection()
		s.bridge.EXPECT().AddCandidate(gomock.Any(), testContract, "Alan Turing").Return(uint64(2), nil)
		_, err := s.electionSvc.AddCandidate(s.ctx, electionID, "Alan Turing", "Machines")
		s.Require().NoError(err)

		ledgerDown := dErrors.New(dErrors.CodeExternal, "ledger vote failed: connection refused")
		s.bridge.EXPECT().Vote(gomock.Any(), testContract, gomock.Any(), uint64(1)).Return(ledgerDown)
		s.encoder.push(faceAt(0.11))
		_, err = s.orchestrator.CastVote(s.ctx, "EN-1001", frames(1), 1)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeExternal))

		open, err := s.attempts.FindOpen(s.ctx, voterID, electionID)
		s.Require().NoError(err)
		s.Equal(uint64(1), open.Ordinal)

		// The retry picks the other candidate; both the ledger submission
		// and the journal entry must carry the new ordinal.
		s.bridge.EXPECT().Vote(gomock.Any(), testContract, gomock.Any(), uint64(2)).Return(nil)
		s.encoder.push(faceAt(0.11))
		receipt, err := s.orchestrator.CastVote(s.ctx, "EN-1001", frames(1), 2)
		s.Require().NoError(err)
		s.Equal(uint64(2), receipt.Ordinal)

		closed, err := s.attempts.FindByID(s.ctx, open.ID)
		s.Require().NoError(err)
		s.Equal(models.AttemptCommitted, closed.State)
		s.Equal(uint64(2), closed.Ordinal)
		s.Equal(receipt.DigestHex, closed.DigestHex)
	})
}

func (s *OrchestratorSuite) TestCommittedDivergence() {
	s.Run("a flip failure after ledger confirmation is journaled, not retried", func() {
		voterID := s.registerVoter("Ada Lovelace", "EN-1001", faceAt(0.1))
		electionID := s.activeElection()

		s.bridge.EXPECT().Vote(gomock.Any(), testContract, gomock.Any(), uint64(1)).Return(nil)
		s.voters.failFlips = 1
		s.encoder.push(faceAt(0.11))
		_, err := s.orchestrator.CastVote(s.ctx, "EN-1001", frames(1), 1)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeExternalCommitted),
			"expected committed-variant error, got %v", err)

		voter, err := s.voters.FindByID(s.ctx, voterID)
		s.Require().NoError(err)
		s.False(voter.HasVoted, "flip failed, flag must be untouched")

		open, err := s.attempts.FindOpen(s.ctx, voterID, electionID)
		s.Require().NoError(err)
		s.Equal(models.AttemptSubmitted, open.State)

		// A repeat cast must not reach the ledger again.
		s.encoder.push(faceAt(0.11))
		_, err = s.orchestrator.CastVote(s.ctx, "EN-1001", frames(1), 1)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeExternalCommitted))
	})
}

func (s *OrchestratorSuite) TestConcurrentCasts() {
	s.Run("two concurrent casts for one voter submit at most once", func() {
		s.encoder.fixed = faceAt(0.1)
		s.registerVoter("Ada Lovelace", "EN-1001", faceAt(0.1))
		s.activeElection()

		s.bridge.EXPECT().Vote(gomock.Any(), testContract, gomock.Any(), uint64(1)).Return(nil).Times(1)

		var wg sync.WaitGroup
		results := make([]error, 2)
		for i := range results {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, results[i] = s.orchestrator.CastVote(s.ctx, "EN-1001", frames(1), 1)
			}()
		}
		wg.Wait()

		var succeeded, conflicted int
		for _, err := range results {
			switch {
			case err == nil:
				succeeded++
			case dErrors.HasCode(err, dErrors.CodeConflict):
				conflicted++
			default:
				s.Failf("unexpected error", "%v", err)
			}
		}
		s.Equal(1, succeeded)
		s.Equal(1, conflicted)
	})
}

func (s *OrchestratorSuite) TestStatus() {
	s.Run("reports the cast flag", func() {
		voterID := s.registerVoter("Ada Lovelace", "EN-1001", faceAt(0.1))

		voter, err := s.orchestrator.Status(s.ctx, voterID)
		s.Require().NoError(err)
		s.False(voter.HasVoted)
	})

	s.Run("returns not found for unknown voters", func() {
		_, err := s.orchestrator.Status(s.ctx, id.NewVoterID())
		s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
