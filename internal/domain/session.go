package domain

import "time"

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
)

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionActive, SessionCompleted, SessionAbandoned:
		return true
	}
	return false
}

// Terminal reports whether s is an end state.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionAbandoned
}

// Session is one conversation instance. It belongs to exactly one agent and
// therefore to exactly one workspace; WorkspaceID is denormalized onto the
// session and must always equal the agent's workspace (enforced at write
// time, not just by reference).
type Session struct {
	ID          string        `json:"id"`
	WorkspaceID string        `json:"workspaceId"`
	AgentID     string        `json:"agentId"`
	CustomerID  string        `json:"customerId,omitempty"`
	Initiator   Participant   `json:"initiator"`
	Status      SessionStatus `json:"status"`

	// CurrentJourneyID/CurrentStateID point at the journey execution in
	// progress. Both nil means no journey is active (either none has been
	// entered yet, or the last one reached a final state).
	CurrentJourneyID *string `json:"currentJourneyId,omitempty"`
	CurrentStateID   *string `json:"currentStateId,omitempty"`

	// Monotonic counters, updated in the same transaction as the event
	// inserts they account for.
	EventCount   int64 `json:"eventCount"`
	MessageCount int64 `json:"messageCount"`
	TokensUsed   int64 `json:"tokensUsed"`

	// DecisionAttempts counts consecutive unmatched evaluations while parked
	// on a decision state; reset on every transition.
	DecisionAttempts int `json:"decisionAttempts,omitempty"`

	// NeedsAttention is set when a decision state exhausts its attempt
	// budget and the session requires manual intervention.
	NeedsAttention bool `json:"needsAttention,omitempty"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
}

// InJourney reports whether the session has an active journey execution.
func (s *Session) InJourney() bool {
	return s.CurrentJourneyID != nil && s.CurrentStateID != nil
}
