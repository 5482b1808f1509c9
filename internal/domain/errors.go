package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the core taxonomy. Callers match with errors.Is and
// use errors.As to reach the typed variants below.
var (
	// ErrNotFound indicates the requested entity does not exist (or is
	// soft-deleted).
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates malformed input: event content that does not
	// match its declared type, a variable value that does not match its
	// declared value type, or an ill-formed journey definition.
	ErrValidation = errors.New("validation failed")

	// ErrAccessDenied indicates a workspace mismatch. Never retried.
	ErrAccessDenied = errors.New("access denied")

	// ErrSessionClosed indicates an append or transition was attempted on a
	// session that is no longer active.
	ErrSessionClosed = errors.New("session closed")

	// ErrOffsetConflict indicates a concurrent append raced past the
	// per-session serialization guard. Retried internally a small number of
	// times before surfacing as ErrInternal.
	ErrOffsetConflict = errors.New("offset conflict")

	// ErrConditionEvaluation indicates a transition guard could not be
	// evaluated (e.g. it references an undefined variable). Non-fatal to the
	// session.
	ErrConditionEvaluation = errors.New("condition evaluation failed")

	// ErrInternal indicates a transient internal failure.
	ErrInternal = errors.New("internal error")
)

// ValidationError reports malformed input for a specific field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// AccessDeniedError reports a workspace isolation violation.
type AccessDeniedError struct {
	WorkspaceID string // the workspace the caller claimed
	Entity      string // entity kind, e.g. "session"
	EntityID    string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied: %s %s is not in workspace %s", e.Entity, e.EntityID, e.WorkspaceID)
}

func (e *AccessDeniedError) Unwrap() error { return ErrAccessDenied }

// SessionClosedError reports an operation against a non-active session.
type SessionClosedError struct {
	SessionID string
	Status    SessionStatus
}

func (e *SessionClosedError) Error() string {
	return fmt.Sprintf("session %s is %s", e.SessionID, e.Status)
}

func (e *SessionClosedError) Unwrap() error { return ErrSessionClosed }

// OffsetConflictError reports a lost race on offset assignment.
type OffsetConflictError struct {
	SessionID string
	Offset    int64
}

func (e *OffsetConflictError) Error() string {
	return fmt.Sprintf("offset conflict: session %s offset %d already exists", e.SessionID, e.Offset)
}

func (e *OffsetConflictError) Unwrap() error { return ErrOffsetConflict }

// ConditionError reports a guard condition that could not be evaluated.
type ConditionError struct {
	TransitionID string
	Reason       string
}

func (e *ConditionError) Error() string {
	if e.TransitionID == "" {
		return fmt.Sprintf("condition evaluation failed: %s", e.Reason)
	}
	return fmt.Sprintf("condition evaluation failed on transition %s: %s", e.TransitionID, e.Reason)
}

func (e *ConditionError) Unwrap() error { return ErrConditionEvaluation }
