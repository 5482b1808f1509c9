package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType classifies events in a session's log.
type EventType string

const (
	EventCustomerMessage   EventType = "customer_message"
	EventAgentMessage      EventType = "agent_message"
	EventToolCall          EventType = "tool_call"
	EventToolResult        EventType = "tool_result"
	EventStatusUpdate      EventType = "status_update"
	EventJourneyTransition EventType = "journey_transition"
	EventVariableUpdate    EventType = "variable_update"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventCustomerMessage, EventAgentMessage, EventToolCall, EventToolResult,
		EventStatusUpdate, EventJourneyTransition, EventVariableUpdate:
		return true
	}
	return false
}

// IsMessage reports whether events of this type count toward a session's
// message counter.
func (t EventType) IsMessage() bool {
	return t == EventCustomerMessage || t == EventAgentMessage
}

// Event is an immutable fact appended to a session's log. Offsets are
// 0-based, strictly increasing and gap-free within a session. Events are
// never updated or deleted in normal operation; status changes are recorded
// as new status_update events.
type Event struct {
	ID        string       `json:"id"`
	SessionID string       `json:"sessionId"`
	Offset    int64        `json:"offset"`
	Type      EventType    `json:"type"`
	Content   EventContent `json:"content"`
	CreatedAt time.Time    `json:"createdAt"`
}

// EventContent is the type-specific payload of an event. It is a closed sum:
// each variant carries only the fields valid for its event type, so a
// mismatched type/payload pair is unrepresentable once decoded.
type EventContent interface {
	// EventType returns the event type this payload belongs to.
	EventType() EventType

	// Validate checks the payload's required fields.
	Validate() error
}

// TokenUsage records token consumption attached to an agent message.
type TokenUsage struct {
	Input  int64 `json:"input,omitempty"`
	Output int64 `json:"output,omitempty"`
}

// Total returns input + output tokens.
func (u TokenUsage) Total() int64 { return u.Input + u.Output }

// CustomerMessage is an inbound message from the customer.
type CustomerMessage struct {
	Text       string `json:"text"`
	CustomerID string `json:"customerId,omitempty"`
}

func (CustomerMessage) EventType() EventType { return EventCustomerMessage }

func (c CustomerMessage) Validate() error {
	if c.Text == "" {
		return &ValidationError{Field: "content.text", Reason: "customer message text is required"}
	}
	return nil
}

// AgentMessage is a message produced by the agent runtime.
type AgentMessage struct {
	Text  string     `json:"text"`
	Usage TokenUsage `json:"usage,omitempty"`
}

func (AgentMessage) EventType() EventType { return EventAgentMessage }

func (a AgentMessage) Validate() error {
	if a.Text == "" {
		return &ValidationError{Field: "content.text", Reason: "agent message text is required"}
	}
	if a.Usage.Input < 0 || a.Usage.Output < 0 {
		return &ValidationError{Field: "content.usage", Reason: "token counts must be non-negative"}
	}
	return nil
}

// ToolCall schedules a tool invocation for the external tool-execution
// collaborator. The core records the call; it never executes it.
type ToolCall struct {
	CallID    string          `json:"callId"`
	ToolID    string          `json:"toolId"`
	StateID   string          `json:"stateId,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

func (ToolCall) EventType() EventType { return EventToolCall }

func (c ToolCall) Validate() error {
	if c.CallID == "" {
		return &ValidationError{Field: "content.callId", Reason: "call id is required"}
	}
	if c.ToolID == "" {
		return &ValidationError{Field: "content.toolId", Reason: "tool id is required"}
	}
	return nil
}

// ToolResultStatus is the outcome of a tool invocation.
type ToolResultStatus string

const (
	ToolResultSuccess ToolResultStatus = "success"
	ToolResultError   ToolResultStatus = "error"
	ToolResultTimeout ToolResultStatus = "timeout"
)

// ToolResult is the outcome of a previously recorded tool_call.
type ToolResult struct {
	CallID string           `json:"callId"`
	Status ToolResultStatus `json:"status"`
	Output json.RawMessage  `json:"output,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func (ToolResult) EventType() EventType { return EventToolResult }

func (r ToolResult) Validate() error {
	if r.CallID == "" {
		return &ValidationError{Field: "content.callId", Reason: "call id is required"}
	}
	switch r.Status {
	case ToolResultSuccess, ToolResultError, ToolResultTimeout:
	default:
		return &ValidationError{Field: "content.status", Reason: fmt.Sprintf("unknown tool result status %q", r.Status)}
	}
	return nil
}

// StatusUpdate records an out-of-band status change: delivery acknowledgements,
// condition-evaluation failures, manual-intervention flags. Status changes are
// events, never in-place edits, to preserve replay.
type StatusUpdate struct {
	Status      string      `json:"status"`
	Reason      string      `json:"reason,omitempty"`
	TriggeredBy Participant `json:"triggeredBy"`
}

func (StatusUpdate) EventType() EventType { return EventStatusUpdate }

func (s StatusUpdate) Validate() error {
	if s.Status == "" {
		return &ValidationError{Field: "content.status", Reason: "status is required"}
	}
	if s.TriggeredBy == "" {
		return &ValidationError{Field: "content.triggeredBy", Reason: "triggeredBy is required"}
	}
	return nil
}

// TransitionRecord documents a journey state change. FromStateID is empty
// when the record marks journey entry.
type TransitionRecord struct {
	JourneyID    string `json:"journeyId"`
	TransitionID string `json:"transitionId,omitempty"`
	FromStateID  string `json:"fromStateId,omitempty"`
	ToStateID    string `json:"toStateId"`
	Condition    string `json:"condition,omitempty"`
	Automatic    bool   `json:"automatic"`
}

func (TransitionRecord) EventType() EventType { return EventJourneyTransition }

func (t TransitionRecord) Validate() error {
	if t.JourneyID == "" {
		return &ValidationError{Field: "content.journeyId", Reason: "journey id is required"}
	}
	if t.ToStateID == "" {
		return &ValidationError{Field: "content.toStateId", Reason: "destination state id is required"}
	}
	return nil
}

// VariableUpdate records that a variable was written, without duplicating the
// value into the log.
type VariableUpdate struct {
	Scope VariableScope `json:"scope"`
	Key   string        `json:"key"`
	Type  ValueType     `json:"valueType"`
}

func (VariableUpdate) EventType() EventType { return EventVariableUpdate }

func (v VariableUpdate) Validate() error {
	if !v.Scope.Valid() {
		return &ValidationError{Field: "content.scope", Reason: fmt.Sprintf("unknown scope %q", v.Scope)}
	}
	if v.Key == "" {
		return &ValidationError{Field: "content.key", Reason: "key is required"}
	}
	if !v.Type.Valid() {
		return &ValidationError{Field: "content.valueType", Reason: fmt.Sprintf("unknown value type %q", v.Type)}
	}
	return nil
}

// CheckContent verifies that content is present, structurally matches the
// declared event type, and passes its own validation.
func CheckContent(t EventType, content EventContent) error {
	if !t.Valid() {
		return &ValidationError{Field: "eventType", Reason: fmt.Sprintf("unknown event type %q", t)}
	}
	if content == nil {
		return &ValidationError{Field: "content", Reason: "content is required"}
	}
	if content.EventType() != t {
		return &ValidationError{
			Field:  "content",
			Reason: fmt.Sprintf("content is %s, event type is %s", content.EventType(), t),
		}
	}
	return content.Validate()
}

// EncodeContent marshals an event payload for storage.
func EncodeContent(content EventContent) ([]byte, error) {
	data, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("encoding event content: %w", err)
	}
	return data, nil
}

// DecodeContent unmarshals a stored payload into the variant matching the
// event type.
func DecodeContent(t EventType, data []byte) (EventContent, error) {
	var (
		content EventContent
		err     error
	)
	switch t {
	case EventCustomerMessage:
		var c CustomerMessage
		err = json.Unmarshal(data, &c)
		content = c
	case EventAgentMessage:
		var c AgentMessage
		err = json.Unmarshal(data, &c)
		content = c
	case EventToolCall:
		var c ToolCall
		err = json.Unmarshal(data, &c)
		content = c
	case EventToolResult:
		var c ToolResult
		err = json.Unmarshal(data, &c)
		content = c
	case EventStatusUpdate:
		var c StatusUpdate
		err = json.Unmarshal(data, &c)
		content = c
	case EventJourneyTransition:
		var c TransitionRecord
		err = json.Unmarshal(data, &c)
		content = c
	case EventVariableUpdate:
		var c VariableUpdate
		err = json.Unmarshal(data, &c)
		content = c
	default:
		return nil, &ValidationError{Field: "eventType", Reason: fmt.Sprintf("unknown event type %q", t)}
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s content: %w", t, err)
	}
	return content, nil
}

// MessageText returns the human-readable text of a message event, or "" for
// non-message events. Guard conditions match against this.
func (e *Event) MessageText() string {
	switch c := e.Content.(type) {
	case CustomerMessage:
		return c.Text
	case AgentMessage:
		return c.Text
	}
	return ""
}
