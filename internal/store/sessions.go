package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/seamlane/journeyd/internal/domain"
)

// SessionStore persists sessions. Counter updates happen inside the event
// append transaction (see EventStore); this store covers creation, pointer
// and lifecycle updates, and reads.
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a session store using the given database.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// Create inserts a new active session. WorkspaceID must already equal the
// agent's workspace; the tenant guard checks that before this is called.
func (s *SessionStore) Create(ctx context.Context, sess *domain.Session) error {
	if sess.WorkspaceID == "" {
		return &domain.ValidationError{Field: "workspaceId", Reason: "workspace id is required"}
	}
	if sess.AgentID == "" {
		return &domain.ValidationError{Field: "agentId", Reason: "agent id is required"}
	}
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	if sess.Initiator == "" {
		sess.Initiator = domain.ParticipantCustomer
	}
	if sess.Status == "" {
		sess.Status = domain.SessionActive
	}
	now := time.Now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = sess.CreatedAt

	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO sessions (id, workspace_id, agent_id, customer_id, initiator, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.WorkspaceID, sess.AgentID, sess.CustomerID, string(sess.Initiator),
		string(sess.Status), fmtTime(sess.CreatedAt), fmtTime(sess.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

const sessionColumns = `id, workspace_id, agent_id, customer_id, initiator, status,
	current_journey_id, current_state_id, event_count, message_count, tokens_used,
	decision_attempts, needs_attention, created_at, updated_at, ended_at`

// Get returns a session by id.
func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	row := s.db.sql.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id,
	)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	return sess, nil
}

// List returns a workspace's sessions, most recently updated first.
func (s *SessionStore) List(ctx context.Context, workspaceID string) ([]domain.Session, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE workspace_id = ?
		 ORDER BY updated_at DESC, id`, workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

// ListEndedBefore returns ids of sessions that ended before the cutoff.
func (s *SessionStore) ListEndedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT id FROM sessions WHERE status != ? AND ended_at IS NOT NULL AND ended_at < ?`,
		string(domain.SessionActive), fmtTime(cutoff),
	)
	if err != nil {
		return nil, fmt.Errorf("listing ended sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetJourneyPointer updates the session's current journey/state pointers and
// resets the decision attempt counter. Nil pointers clear the pointer (the
// journey completed).
func (s *SessionStore) SetJourneyPointer(ctx context.Context, sessionID string, journeyID, stateID *string) error {
	_, err := s.db.sql.ExecContext(ctx,
		`UPDATE sessions
		 SET current_journey_id = ?, current_state_id = ?, decision_attempts = 0, updated_at = ?
		 WHERE id = ?`,
		nullStr(journeyID), nullStr(stateID), fmtTime(time.Now()), sessionID,
	)
	if err != nil {
		return fmt.Errorf("updating journey pointer for session %s: %w", sessionID, err)
	}
	return nil
}

// IncrementDecisionAttempts bumps the unmatched-evaluation counter for a
// session parked on a decision state and returns the new value.
func (s *SessionStore) IncrementDecisionAttempts(ctx context.Context, sessionID string) (int, error) {
	var attempts int
	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE sessions SET decision_attempts = decision_attempts + 1, updated_at = ? WHERE id = ?`,
			fmtTime(time.Now()), sessionID,
		); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx,
			`SELECT decision_attempts FROM sessions WHERE id = ?`, sessionID,
		).Scan(&attempts)
	})
	if err != nil {
		return 0, fmt.Errorf("incrementing decision attempts for session %s: %w", sessionID, err)
	}
	return attempts, nil
}

// SetNeedsAttention flags the session for manual intervention.
func (s *SessionStore) SetNeedsAttention(ctx context.Context, sessionID string, needs bool) error {
	_, err := s.db.sql.ExecContext(ctx,
		`UPDATE sessions SET needs_attention = ?, updated_at = ? WHERE id = ?`,
		boolInt(needs), fmtTime(time.Now()), sessionID,
	)
	if err != nil {
		return fmt.Errorf("flagging session %s: %w", sessionID, err)
	}
	return nil
}

// End moves an active session to a terminal status. Ending a session that is
// already ended returns a SessionClosedError.
func (s *SessionStore) End(ctx context.Context, sessionID string, status domain.SessionStatus) error {
	if !status.Terminal() {
		return &domain.ValidationError{Field: "status", Reason: fmt.Sprintf("%q is not a terminal status", status)}
	}
	now := time.Now()
	res, err := s.db.sql.ExecContext(ctx,
		`UPDATE sessions SET status = ?, ended_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(status), fmtTime(now), fmtTime(now), sessionID, string(domain.SessionActive),
	)
	if err != nil {
		return fmt.Errorf("ending session %s: %w", sessionID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		sess, getErr := s.Get(ctx, sessionID)
		if getErr != nil {
			return getErr
		}
		return &domain.SessionClosedError{SessionID: sessionID, Status: sess.Status}
	}
	return nil
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var (
		sess               domain.Session
		initiator, status  string
		journeyID, stateID sql.NullString
		needsAttention     int
		createdAt          string
		updatedAt          string
		endedAt            sql.NullString
	)
	err := row.Scan(
		&sess.ID, &sess.WorkspaceID, &sess.AgentID, &sess.CustomerID, &initiator, &status,
		&journeyID, &stateID, &sess.EventCount, &sess.MessageCount, &sess.TokensUsed,
		&sess.DecisionAttempts, &needsAttention, &createdAt, &updatedAt, &endedAt,
	)
	if err != nil {
		return nil, err
	}
	sess.Initiator = domain.Participant(initiator)
	sess.Status = domain.SessionStatus(status)
	sess.CurrentJourneyID = strPtr(journeyID)
	sess.CurrentStateID = strPtr(stateID)
	sess.NeedsAttention = needsAttention != 0
	sess.CreatedAt = parseTime(createdAt)
	sess.UpdatedAt = parseTime(updatedAt)
	sess.EndedAt = parseTimePtr(endedAt)
	return &sess, nil
}
