package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// VariableScope determines a variable's lifetime and visibility.
type VariableScope string

const (
	// ScopeSession variables live and die with one session.
	ScopeSession VariableScope = "session"
	// ScopeCustomer variables persist across all of one customer's sessions.
	ScopeCustomer VariableScope = "customer"
	// ScopeGlobal variables are shared by every session in the workspace.
	ScopeGlobal VariableScope = "global"
)

// Valid reports whether s is a known scope.
func (s VariableScope) Valid() bool {
	switch s {
	case ScopeSession, ScopeCustomer, ScopeGlobal:
		return true
	}
	return false
}

// ValueType declares the runtime shape a variable's value must have.
type ValueType string

const (
	TypeString  ValueType = "string"
	TypeNumber  ValueType = "number"
	TypeBoolean ValueType = "boolean"
	TypeObject  ValueType = "object"
	TypeArray   ValueType = "array"
)

// Valid reports whether t is a known value type.
func (t ValueType) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeBoolean, TypeObject, TypeArray:
		return true
	}
	return false
}

// Variable is a scoped, typed value read by journey guard conditions and
// written by tool results. ScopeRef is the session id for session scope, the
// customer id for customer scope, and empty for global scope.
type Variable struct {
	ID          string        `json:"id"`
	WorkspaceID string        `json:"workspaceId"`
	Scope       VariableScope `json:"scope"`
	ScopeRef    string        `json:"scopeRef,omitempty"`
	Key         string        `json:"key"`
	Type        ValueType     `json:"valueType"`
	Value       any           `json:"value"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// CheckValueType verifies that v's runtime shape matches the declared type.
// Values follow encoding/json conventions: numbers are float64 (or
// json.Number), objects are map[string]any, arrays are []any. A mismatch is
// a validation error, never a silent coercion.
func CheckValueType(v any, t ValueType) error {
	ok := false
	switch t {
	case TypeString:
		_, ok = v.(string)
	case TypeNumber:
		switch v.(type) {
		case float64, float32, int, int32, int64, json.Number:
			ok = true
		}
	case TypeBoolean:
		_, ok = v.(bool)
	case TypeObject:
		_, ok = v.(map[string]any)
	case TypeArray:
		_, ok = v.([]any)
	default:
		return &ValidationError{Field: "valueType", Reason: fmt.Sprintf("unknown value type %q", t)}
	}
	if !ok {
		return &ValidationError{
			Field:  "value",
			Reason: fmt.Sprintf("value of type %T does not match declared type %q", v, t),
		}
	}
	return nil
}
