package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// ConditionKind enumerates the closed set of guard condition forms. A
// structured union rather than an expression string: definitions validate at
// seed time and evaluate deterministically.
type ConditionKind string

const (
	// CondAlways matches unconditionally.
	CondAlways ConditionKind = "always"
	// CondEventTypeIs matches when the triggering event has the given type.
	CondEventTypeIs ConditionKind = "event_type_is"
	// CondEventTextMatches matches the triggering message text against a
	// case-insensitive regular expression.
	CondEventTextMatches ConditionKind = "event_text_matches"
	// CondVariableEquals compares a variable to a literal value. Referencing
	// an absent variable is an evaluation error, not false.
	CondVariableEquals ConditionKind = "variable_equals"
	// CondVariableExists matches when the variable is present.
	CondVariableExists ConditionKind = "variable_exists"
	// CondVariableTruthy matches when the variable is present and truthy
	// (non-empty string, non-zero number, true, non-empty object/array).
	CondVariableTruthy ConditionKind = "variable_truthy"
	// CondNot negates its single sub-condition.
	CondNot ConditionKind = "not"
	// CondAll matches when every sub-condition matches.
	CondAll ConditionKind = "all"
	// CondAny matches when at least one sub-condition matches.
	CondAny ConditionKind = "any"
)

// Condition is a guard evaluated against the triggering event and the
// session's variable snapshot.
type Condition struct {
	Kind ConditionKind `json:"kind" yaml:"kind"`

	// EventTypeIs fields.
	EventType EventType `json:"eventType,omitempty" yaml:"eventType,omitempty"`

	// EventTextMatches fields.
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty"`

	// Variable* fields. Scope defaults to session when empty.
	Scope    VariableScope `json:"scope,omitempty" yaml:"scope,omitempty"`
	Variable string        `json:"variable,omitempty" yaml:"variable,omitempty"`
	Value    any           `json:"value,omitempty" yaml:"value,omitempty"`

	// Combinator fields.
	Conditions []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// Validate checks the condition's structure, including sub-conditions and
// pattern compilability, so evaluation can only fail on data (an absent
// variable), never on the definition.
func (c *Condition) Validate() error {
	switch c.Kind {
	case CondAlways:
		return nil
	case CondEventTypeIs:
		if !c.EventType.Valid() {
			return &ValidationError{Field: "condition.eventType", Reason: fmt.Sprintf("unknown event type %q", c.EventType)}
		}
	case CondEventTextMatches:
		if c.Pattern == "" {
			return &ValidationError{Field: "condition.pattern", Reason: "pattern is required"}
		}
		if _, err := regexp.Compile("(?i)" + c.Pattern); err != nil {
			return &ValidationError{Field: "condition.pattern", Reason: fmt.Sprintf("invalid pattern: %v", err)}
		}
	case CondVariableEquals, CondVariableExists, CondVariableTruthy:
		if c.Variable == "" {
			return &ValidationError{Field: "condition.variable", Reason: "variable name is required"}
		}
		if c.Scope != "" && !c.Scope.Valid() {
			return &ValidationError{Field: "condition.scope", Reason: fmt.Sprintf("unknown scope %q", c.Scope)}
		}
	case CondNot:
		if len(c.Conditions) != 1 {
			return &ValidationError{Field: "condition.conditions", Reason: "not requires exactly one sub-condition"}
		}
	case CondAll, CondAny:
		if len(c.Conditions) == 0 {
			return &ValidationError{Field: "condition.conditions", Reason: fmt.Sprintf("%s requires at least one sub-condition", c.Kind)}
		}
	default:
		return &ValidationError{Field: "condition.kind", Reason: fmt.Sprintf("unknown condition kind %q", c.Kind)}
	}
	for i := range c.Conditions {
		if err := c.Conditions[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// VariableScopeOrDefault returns the condition's scope, defaulting to
// session scope.
func (c *Condition) VariableScopeOrDefault() VariableScope {
	if c.Scope == "" {
		return ScopeSession
	}
	return c.Scope
}

// String renders a compact human-readable form, recorded on transition
// events.
func (c *Condition) String() string {
	switch c.Kind {
	case CondAlways:
		return "always"
	case CondEventTypeIs:
		return fmt.Sprintf("event is %s", c.EventType)
	case CondEventTextMatches:
		return fmt.Sprintf("text matches %q", c.Pattern)
	case CondVariableEquals:
		return fmt.Sprintf("%s.%s == %v", c.VariableScopeOrDefault(), c.Variable, c.Value)
	case CondVariableExists:
		return fmt.Sprintf("%s.%s exists", c.VariableScopeOrDefault(), c.Variable)
	case CondVariableTruthy:
		return fmt.Sprintf("%s.%s is truthy", c.VariableScopeOrDefault(), c.Variable)
	case CondNot:
		return "not (" + c.Conditions[0].String() + ")"
	case CondAll, CondAny:
		parts := make([]string, len(c.Conditions))
		for i := range c.Conditions {
			parts[i] = c.Conditions[i].String()
		}
		sep := " and "
		if c.Kind == CondAny {
			sep = " or "
		}
		return "(" + strings.Join(parts, sep) + ")"
	}
	return string(c.Kind)
}
