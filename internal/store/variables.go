package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/seamlane/journeyd/internal/domain"
)

// VariableStore persists scoped key/value variables. Values are stored as
// JSON; the declared value type is checked against the value's runtime shape
// on every write — a mismatch is a validation error, never a coercion.
type VariableStore struct {
	db *DB
}

// NewVariableStore creates a variable store using the given database.
func NewVariableStore(db *DB) *VariableStore {
	return &VariableStore{db: db}
}

// Set writes a variable, last-writer-wins on an existing key. Same-session
// write/read interleaving is prevented above this layer by the session's
// exclusive token.
func (s *VariableStore) Set(ctx context.Context, v *domain.Variable) error {
	if v.WorkspaceID == "" {
		return &domain.ValidationError{Field: "workspaceId", Reason: "workspace id is required"}
	}
	if !v.Scope.Valid() {
		return &domain.ValidationError{Field: "scope", Reason: fmt.Sprintf("unknown scope %q", v.Scope)}
	}
	if v.Scope != domain.ScopeGlobal && v.ScopeRef == "" {
		return &domain.ValidationError{Field: "scopeRef", Reason: fmt.Sprintf("%s scope requires a scope reference", v.Scope)}
	}
	if v.Scope == domain.ScopeGlobal && v.ScopeRef != "" {
		return &domain.ValidationError{Field: "scopeRef", Reason: "global scope takes no scope reference"}
	}
	if v.Key == "" {
		return &domain.ValidationError{Field: "key", Reason: "key is required"}
	}
	if err := domain.CheckValueType(v.Value, v.Type); err != nil {
		return err
	}

	valueJSON, err := json.Marshal(v.Value)
	if err != nil {
		return fmt.Errorf("encoding variable value: %w", err)
	}
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	now := time.Now()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now

	_, err = s.db.sql.ExecContext(ctx,
		`INSERT INTO variables (id, workspace_id, scope, scope_ref, key, value_type, value, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (workspace_id, scope, scope_ref, key)
		 DO UPDATE SET value_type = excluded.value_type, value = excluded.value, updated_at = excluded.updated_at`,
		v.ID, v.WorkspaceID, string(v.Scope), v.ScopeRef, v.Key, string(v.Type),
		string(valueJSON), fmtTime(v.CreatedAt), fmtTime(v.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("writing variable %s/%s: %w", v.Scope, v.Key, err)
	}
	return nil
}

// Get returns a variable, or ErrNotFound when absent.
func (s *VariableStore) Get(ctx context.Context, workspaceID string, scope domain.VariableScope, scopeRef, key string) (*domain.Variable, error) {
	var (
		v          domain.Variable
		scopeStr   string
		valueType  string
		valueJSON  string
		createdAt  string
		updatedAt  string
	)
	err := s.db.sql.QueryRowContext(ctx,
		`SELECT id, workspace_id, scope, scope_ref, key, value_type, value, created_at, updated_at
		 FROM variables WHERE workspace_id = ? AND scope = ? AND scope_ref = ? AND key = ?`,
		workspaceID, string(scope), scopeRef, key,
	).Scan(&v.ID, &v.WorkspaceID, &scopeStr, &v.ScopeRef, &v.Key, &valueType, &valueJSON, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading variable %s/%s: %w", scope, key, err)
	}
	v.Scope = domain.VariableScope(scopeStr)
	v.Type = domain.ValueType(valueType)
	v.CreatedAt = parseTime(createdAt)
	v.UpdatedAt = parseTime(updatedAt)
	if err := json.Unmarshal([]byte(valueJSON), &v.Value); err != nil {
		return nil, fmt.Errorf("decoding variable value: %w", err)
	}
	return &v, nil
}

// Snapshot returns all variables visible to a session: its session-scope
// variables, the customer's variables, and the workspace's globals. The
// journey engine evaluates guard conditions against one snapshot so a single
// activity sees a consistent view.
func (s *VariableStore) Snapshot(ctx context.Context, workspaceID, sessionID, customerID string) ([]domain.Variable, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT id, workspace_id, scope, scope_ref, key, value_type, value, created_at, updated_at
		 FROM variables
		 WHERE workspace_id = ?
		   AND ((scope = ? AND scope_ref = ?) OR (scope = ? AND scope_ref = ?) OR scope = ?)`,
		workspaceID,
		string(domain.ScopeSession), sessionID,
		string(domain.ScopeCustomer), customerID,
		string(domain.ScopeGlobal),
	)
	if err != nil {
		return nil, fmt.Errorf("snapshotting variables: %w", err)
	}
	defer rows.Close()

	var vars []domain.Variable
	for rows.Next() {
		var (
			v         domain.Variable
			scopeStr  string
			valueType string
			valueJSON string
			createdAt string
			updatedAt string
		)
		if err := rows.Scan(&v.ID, &v.WorkspaceID, &scopeStr, &v.ScopeRef, &v.Key, &valueType, &valueJSON, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning variable: %w", err)
		}
		v.Scope = domain.VariableScope(scopeStr)
		v.Type = domain.ValueType(valueType)
		v.CreatedAt = parseTime(createdAt)
		v.UpdatedAt = parseTime(updatedAt)
		if err := json.Unmarshal([]byte(valueJSON), &v.Value); err != nil {
			return nil, fmt.Errorf("decoding variable %s: %w", v.Key, err)
		}
		vars = append(vars, v)
	}
	return vars, rows.Err()
}

// DeleteSessionScope removes all session-scope variables of one session.
// Called when the session ends (configurable) and by the retention sweep.
func (s *VariableStore) DeleteSessionScope(ctx context.Context, workspaceID, sessionID string) (int64, error) {
	res, err := s.db.sql.ExecContext(ctx,
		`DELETE FROM variables WHERE workspace_id = ? AND scope = ? AND scope_ref = ?`,
		workspaceID, string(domain.ScopeSession), sessionID,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting session variables: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
