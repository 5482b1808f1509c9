// Package domain defines the core entities of the conversation store:
// agents, sessions, the append-only event log, journeys, and scoped
// variables. All entities are workspace-scoped; the workspace id is the
// tenant boundary and is carried explicitly on every type that persists.
package domain

import "time"

// Participant identifies who initiated an activity.
type Participant string

const (
	ParticipantCustomer Participant = "customer"
	ParticipantAgent    Participant = "agent"
	ParticipantSystem   Participant = "system"
)

// Agent is a configured AI agent. Identity is immutable once created;
// configuration fields may change. Agents are soft-deleted so sessions that
// reference them stay resolvable.
type Agent struct {
	ID          string     `json:"id"`
	WorkspaceID string     `json:"workspaceId"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

// Deleted reports whether the agent has been soft-deleted.
func (a *Agent) Deleted() bool { return a.DeletedAt != nil }

// Guideline is a condition/action pair owned by an agent. The core persists
// guidelines; the agent runtime interprets them.
type Guideline struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agentId"`
	Condition string    `json:"condition"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"createdAt"`
}

// Tool is a workspace-owned tool definition. Agents reference tools
// (many-to-many); deleting an agent never deletes a tool. A public tool is
// readable from any workspace but writable only from its own — the one
// deliberate exception to strict isolation.
type Tool struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsPublic    bool      `json:"isPublic,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
