package audit

import "time"

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out. Events carry the anonymized
// ballot digest at most, never raw biometric data.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	Action     string    `json:"action"`
	VoterID    string    `json:"voter_id,omitempty"`
	ElectionID string    `json:"election_id,omitempty"`
	DigestHex  string    `json:"digest_hex,omitempty"`
	Ordinal    uint64    `json:"ordinal,omitempty"`
	Detail     string    `json:"detail,omitempty"`
}

// EventName identifies an auditable action.
type EventName string

const (
	EventVoterRegistered EventName = "voter.registered"
	EventVoterDeleted    EventName = "voter.deleted"
	EventDuplicateFace   EventName = "voter.duplicate_face"
	EventAuthFailed      EventName = "voter.auth_failed"

	EventElectionCreated     EventName = "election.created"
	EventElectionActivated   EventName = "election.activated"
	EventElectionDeleted     EventName = "election.deleted"
	EventCandidateAdded      EventName = "candidate.added"
	EventCandidateDeactivate EventName = "candidate.deactivated"

	EventVoteSubmitted EventName = "vote.submitted"
	EventVoteCommitted EventName = "vote.committed"
	EventVoteRepaired  EventName = "vote.repaired"

	EventAdminSetup  EventName = "admin.setup"
	EventAdminLogin  EventName = "admin.login"
	EventAdminLogout EventName = "admin.logout"
)
