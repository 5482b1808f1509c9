package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/seamlane/journeyd/internal/domain"
)

// EventStore persists the append-only per-session event log. Offsets are
// assigned inside the append transaction: next = 1 + max(offset) for the
// session, 0 when empty. The unique (session_id, offset) index backstops the
// per-session serialization above this layer; a lost race surfaces as an
// OffsetConflictError and is retried by the coordinator.
type EventStore struct {
	db *DB
}

// NewEventStore creates an event store using the given database.
func NewEventStore(db *DB) *EventStore {
	return &EventStore{db: db}
}

// Append validates, assigns the next offset, and persists one event. The
// session's counters are updated in the same transaction as the insert.
// Events are immutable once appended; a failed append assigns no offset.
func (s *EventStore) Append(ctx context.Context, sessionID string, t domain.EventType, content domain.EventContent) (*domain.Event, error) {
	if err := domain.CheckContent(t, content); err != nil {
		return nil, err
	}
	payload, err := domain.EncodeContent(content)
	if err != nil {
		return nil, err
	}

	ev := &domain.Event{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Type:      t,
		Content:   content,
		CreatedAt: time.Now(),
	}

	messageDelta := 0
	if t.IsMessage() {
		messageDelta = 1
	}
	var tokenDelta int64
	if msg, ok := content.(domain.AgentMessage); ok {
		tokenDelta = msg.Usage.Total()
	}

	err = s.db.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX("offset"), -1) + 1 FROM events WHERE session_id = ?`,
			sessionID,
		).Scan(&ev.Offset); err != nil {
			return fmt.Errorf("computing next offset: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO events (id, session_id, "offset", event_type, content, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			ev.ID, sessionID, ev.Offset, string(t), string(payload), fmtTime(ev.CreatedAt),
		); err != nil {
			if isUniqueViolation(err) {
				return &domain.OffsetConflictError{SessionID: sessionID, Offset: ev.Offset}
			}
			return fmt.Errorf("inserting event: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE sessions
			 SET event_count = event_count + 1,
			     message_count = message_count + ?,
			     tokens_used = tokens_used + ?,
			     updated_at = ?
			 WHERE id = ?`,
			messageDelta, tokenDelta, fmtTime(ev.CreatedAt), sessionID,
		)
		if err != nil {
			return fmt.Errorf("updating session counters: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// ReadRange returns up to limit events with offset >= fromOffset, in offset
// order. A limit <= 0 means no limit. The result is finite and restartable:
// pass the last offset + 1 to continue.
func (s *EventStore) ReadRange(ctx context.Context, sessionID string, fromOffset int64, limit int) ([]domain.Event, error) {
	q := `SELECT id, session_id, "offset", event_type, content, created_at
	      FROM events WHERE session_id = ? AND "offset" >= ?
	      ORDER BY "offset"`
	args := []any{sessionID, fromOffset}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("reading events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var (
			ev        domain.Event
			eventType string
			payload   string
			createdAt string
		)
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.Offset, &eventType, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		ev.Type = domain.EventType(eventType)
		ev.CreatedAt = parseTime(createdAt)
		ev.Content, err = domain.DecodeContent(ev.Type, []byte(payload))
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", ev.ID, err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Last returns the most recent event of a session, or ErrNotFound when the
// log is empty.
func (s *EventStore) Last(ctx context.Context, sessionID string) (*domain.Event, error) {
	events, err := s.lastN(ctx, sessionID, 1)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, domain.ErrNotFound
	}
	return &events[0], nil
}

func (s *EventStore) lastN(ctx context.Context, sessionID string, n int) ([]domain.Event, error) {
	var offset int64
	err := s.db.sql.QueryRowContext(ctx,
		`SELECT COALESCE(MAX("offset"), -1) FROM events WHERE session_id = ?`, sessionID,
	).Scan(&offset)
	if err != nil {
		return nil, fmt.Errorf("finding last offset: %w", err)
	}
	if offset < 0 {
		return nil, nil
	}
	from := offset - int64(n) + 1
	if from < 0 {
		from = 0
	}
	return s.ReadRange(ctx, sessionID, from, n)
}

// Count returns the number of events in a session's log.
func (s *EventStore) Count(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	err := s.db.sql.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE session_id = ?`, sessionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting events: %w", err)
	}
	return count, nil
}

// PurgeSession deletes a session's events. Only the explicit data-retention
// sweep calls this; nothing else deletes events.
func (s *EventStore) PurgeSession(ctx context.Context, sessionID string) (int64, error) {
	res, err := s.db.sql.ExecContext(ctx,
		`DELETE FROM events WHERE session_id = ?`, sessionID,
	)
	if err != nil {
		return 0, fmt.Errorf("purging events for session %s: %w", sessionID, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
