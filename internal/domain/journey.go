package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Journey is a named state-machine template owned by one agent. Entry
// conditions decide when the journey becomes applicable to a session.
type Journey struct {
	ID          string      `json:"id"`
	AgentID     string      `json:"agentId"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Conditions  []Condition `json:"conditions,omitempty"`

	AllowSkipping   bool `json:"allowSkipping,omitempty"`
	AllowRevisiting bool `json:"allowRevisiting,omitempty"`

	// CompletionCount counts sessions that reached a final state.
	CompletionCount int64 `json:"completionCount,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// StateType classifies journey states.
type StateType string

const (
	StateChat     StateType = "chat"
	StateTool     StateType = "tool"
	StateDecision StateType = "decision"
	StateFinal    StateType = "final"
)

// Valid reports whether t is a known state type.
func (t StateType) Valid() bool {
	switch t {
	case StateChat, StateTool, StateDecision, StateFinal:
		return true
	}
	return false
}

// DefaultDecisionAttempts bounds unmatched evaluations on a decision state
// before the session is flagged for manual intervention.
const DefaultDecisionAttempts = 3

// StateConfig is the type-specific configuration of a journey state: a chat
// state carries a prompt, a tool state a tool reference, a decision state an
// attempt budget, a final state nothing. Closed sum, mirroring EventContent.
type StateConfig interface {
	StateType() StateType
	Validate() error
}

// ChatConfig configures a chat state.
type ChatConfig struct {
	Prompt string `json:"prompt"`
}

func (ChatConfig) StateType() StateType { return StateChat }

func (c ChatConfig) Validate() error {
	if c.Prompt == "" {
		return &ValidationError{Field: "config.prompt", Reason: "chat state requires a prompt"}
	}
	return nil
}

// ToolConfig configures a tool state. Timeout bounds the external execution;
// ErrorTransitionID, when set, names the transition taken on a failed or
// timed-out result.
type ToolConfig struct {
	ToolID            string          `json:"toolId"`
	Arguments         json.RawMessage `json:"arguments,omitempty"`
	TimeoutSeconds    int             `json:"timeoutSeconds,omitempty"`
	ErrorTransitionID string          `json:"errorTransitionId,omitempty"`
}

func (ToolConfig) StateType() StateType { return StateTool }

func (c ToolConfig) Validate() error {
	if c.ToolID == "" {
		return &ValidationError{Field: "config.toolId", Reason: "tool state requires a tool reference"}
	}
	if c.TimeoutSeconds < 0 {
		return &ValidationError{Field: "config.timeoutSeconds", Reason: "timeout must be non-negative"}
	}
	return nil
}

// Timeout returns the configured execution timeout, or 0 when unset.
func (c ToolConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DecisionConfig configures a decision state. When no outgoing transition
// matches, the session stays put; after MaxAttempts unmatched evaluations it
// is flagged for manual intervention rather than guessing a branch.
type DecisionConfig struct {
	Prompt      string `json:"prompt,omitempty"`
	MaxAttempts int    `json:"maxAttempts,omitempty"`
}

func (DecisionConfig) StateType() StateType { return StateDecision }

func (c DecisionConfig) Validate() error {
	if c.MaxAttempts < 0 {
		return &ValidationError{Field: "config.maxAttempts", Reason: "max attempts must be non-negative"}
	}
	return nil
}

// Attempts returns the configured attempt budget, defaulted when unset.
func (c DecisionConfig) Attempts() int {
	if c.MaxAttempts > 0 {
		return c.MaxAttempts
	}
	return DefaultDecisionAttempts
}

// FinalConfig configures a final state. Final states carry no payload.
type FinalConfig struct{}

func (FinalConfig) StateType() StateType { return StateFinal }

func (FinalConfig) Validate() error { return nil }

// JourneyState is a node in a journey's graph. Exactly one state per journey
// is initial; final-typed states are terminal.
type JourneyState struct {
	ID        string      `json:"id"`
	JourneyID string      `json:"journeyId"`
	Name      string      `json:"name"`
	Type      StateType   `json:"type"`
	IsInitial bool        `json:"isInitial,omitempty"`
	IsFinal   bool        `json:"isFinal,omitempty"`
	Config    StateConfig `json:"config"`
}

// Validate checks the state's type/config pairing and flag consistency.
func (s *JourneyState) Validate() error {
	if s.Name == "" {
		return &ValidationError{Field: "state.name", Reason: "state name is required"}
	}
	if !s.Type.Valid() {
		return &ValidationError{Field: "state.type", Reason: fmt.Sprintf("unknown state type %q", s.Type)}
	}
	if s.Config == nil {
		return &ValidationError{Field: "state.config", Reason: "state config is required"}
	}
	if s.Config.StateType() != s.Type {
		return &ValidationError{
			Field:  "state.config",
			Reason: fmt.Sprintf("config is for %s, state is %s", s.Config.StateType(), s.Type),
		}
	}
	if s.Type == StateFinal && !s.IsFinal {
		return &ValidationError{Field: "state.isFinal", Reason: "final-typed states must be marked final"}
	}
	if s.Type != StateFinal && s.IsFinal {
		return &ValidationError{Field: "state.isFinal", Reason: fmt.Sprintf("%s states cannot be marked final", s.Type)}
	}
	return s.Config.Validate()
}

// EncodeStateConfig marshals a state configuration for storage.
func EncodeStateConfig(c StateConfig) ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding state config: %w", err)
	}
	return data, nil
}

// DecodeStateConfig unmarshals a stored configuration into the variant
// matching the state type.
func DecodeStateConfig(t StateType, data []byte) (StateConfig, error) {
	var (
		cfg StateConfig
		err error
	)
	switch t {
	case StateChat:
		var c ChatConfig
		err = json.Unmarshal(data, &c)
		cfg = c
	case StateTool:
		var c ToolConfig
		err = json.Unmarshal(data, &c)
		cfg = c
	case StateDecision:
		var c DecisionConfig
		err = json.Unmarshal(data, &c)
		cfg = c
	case StateFinal:
		var c FinalConfig
		err = json.Unmarshal(data, &c)
		cfg = c
	default:
		return nil, &ValidationError{Field: "state.type", Reason: fmt.Sprintf("unknown state type %q", t)}
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s state config: %w", t, err)
	}
	return cfg, nil
}

// JourneyTransition is a directed edge between two states of one journey.
// Outgoing transitions are evaluated in ascending Priority order (ties broken
// by id); the first whose condition holds wins. A nil condition always
// matches.
type JourneyTransition struct {
	ID          string     `json:"id"`
	JourneyID   string     `json:"journeyId"`
	FromStateID string     `json:"fromStateId"`
	ToStateID   string     `json:"toStateId"`
	Priority    int        `json:"priority"`
	Condition   *Condition `json:"condition,omitempty"`
}

// Validate checks the transition's endpoints and condition.
func (t *JourneyTransition) Validate() error {
	if t.FromStateID == "" {
		return &ValidationError{Field: "transition.fromStateId", Reason: "source state is required"}
	}
	if t.ToStateID == "" {
		return &ValidationError{Field: "transition.toStateId", Reason: "destination state is required"}
	}
	if t.Condition != nil {
		return t.Condition.Validate()
	}
	return nil
}

// ConditionLabel returns a compact description of the transition's guard for
// inclusion in journey_transition events.
func (t *JourneyTransition) ConditionLabel() string {
	if t.Condition == nil {
		return "always"
	}
	return t.Condition.String()
}

// ValidateJourneyGraph checks a journey definition as a whole: exactly one
// initial state, at least one final state, and transitions whose endpoints
// exist within the journey.
func ValidateJourneyGraph(states []JourneyState, transitions []JourneyTransition) error {
	byID := make(map[string]*JourneyState, len(states))
	initial := 0
	finals := 0
	for i := range states {
		s := &states[i]
		if err := s.Validate(); err != nil {
			return err
		}
		if _, dup := byID[s.ID]; dup {
			return &ValidationError{Field: "states", Reason: fmt.Sprintf("duplicate state id %q", s.ID)}
		}
		byID[s.ID] = s
		if s.IsInitial {
			initial++
		}
		if s.IsFinal {
			finals++
		}
	}
	if initial != 1 {
		return &ValidationError{Field: "states", Reason: fmt.Sprintf("journey must have exactly one initial state, has %d", initial)}
	}
	if finals == 0 {
		return &ValidationError{Field: "states", Reason: "journey must have at least one final state"}
	}
	for i := range transitions {
		tr := &transitions[i]
		if err := tr.Validate(); err != nil {
			return err
		}
		from, ok := byID[tr.FromStateID]
		if !ok {
			return &ValidationError{Field: "transitions", Reason: fmt.Sprintf("transition %s leaves unknown state %q", tr.ID, tr.FromStateID)}
		}
		if _, ok := byID[tr.ToStateID]; !ok {
			return &ValidationError{Field: "transitions", Reason: fmt.Sprintf("transition %s enters unknown state %q", tr.ID, tr.ToStateID)}
		}
		if from.IsFinal {
			return &ValidationError{Field: "transitions", Reason: fmt.Sprintf("transition %s leaves final state %q", tr.ID, from.Name)}
		}
	}
	return nil
}
