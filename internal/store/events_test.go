package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seamlane/journeyd/internal/domain"
)

func TestAppendAssignsGaplessOffsets(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	sess := makeSession(t, db, "ws-a")
	events := NewEventStore(db)

	for i := 0; i < 5; i++ {
		ev, err := events.Append(ctx, sess.ID, domain.EventCustomerMessage,
			domain.CustomerMessage{Text: "msg"})
		require.NoError(t, err)
		assert.Equal(t, int64(i), ev.Offset)
	}

	all, err := events.ReadRange(ctx, sess.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, ev := range all {
		assert.Equal(t, int64(i), ev.Offset)
	}
}

func TestAppendOffsetsIndependentPerSession(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	s1 := makeSession(t, db, "ws-a")
	s2 := makeSession(t, db, "ws-b")
	events := NewEventStore(db)

	ev1, err := events.Append(ctx, s1.ID, domain.EventCustomerMessage, domain.CustomerMessage{Text: "a"})
	require.NoError(t, err)
	ev2, err := events.Append(ctx, s2.ID, domain.EventCustomerMessage, domain.CustomerMessage{Text: "b"})
	require.NoError(t, err)

	assert.Equal(t, int64(0), ev1.Offset)
	assert.Equal(t, int64(0), ev2.Offset)
}

func TestAppendUpdatesCounters(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	sess := makeSession(t, db, "ws-a")
	events := NewEventStore(db)
	sessions := NewSessionStore(db)

	_, err := events.Append(ctx, sess.ID, domain.EventCustomerMessage, domain.CustomerMessage{Text: "hi"})
	require.NoError(t, err)
	_, err = events.Append(ctx, sess.ID, domain.EventAgentMessage,
		domain.AgentMessage{Text: "hello", Usage: domain.TokenUsage{Input: 12, Output: 30}})
	require.NoError(t, err)
	_, err = events.Append(ctx, sess.ID, domain.EventStatusUpdate,
		domain.StatusUpdate{Status: "delivered", TriggeredBy: domain.ParticipantSystem})
	require.NoError(t, err)

	got, err := sessions.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.EventCount)
	assert.Equal(t, int64(2), got.MessageCount)
	assert.Equal(t, int64(42), got.TokensUsed)
}

func TestAppendRejectsMismatchedContent(t *testing.T) {
	db := testDB(t)
	sess := makeSession(t, db, "ws-a")
	events := NewEventStore(db)

	_, err := events.Append(context.Background(), sess.ID, domain.EventToolCall,
		domain.CustomerMessage{Text: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)

	// A rejected append assigns no offset.
	count, err := events.Count(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAppendUnknownSession(t *testing.T) {
	db := testDB(t)
	events := NewEventStore(db)

	_, err := events.Append(context.Background(), "no-such-session", domain.EventCustomerMessage,
		domain.CustomerMessage{Text: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReadRangeFromAndLimit(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	sess := makeSession(t, db, "ws-a")
	events := NewEventStore(db)

	for i := 0; i < 10; i++ {
		_, err := events.Append(ctx, sess.ID, domain.EventCustomerMessage, domain.CustomerMessage{Text: "m"})
		require.NoError(t, err)
	}

	page, err := events.ReadRange(ctx, sess.ID, 4, 3)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, int64(4), page[0].Offset)
	assert.Equal(t, int64(6), page[2].Offset)

	// Restart from last offset + 1.
	next, err := events.ReadRange(ctx, sess.ID, page[2].Offset+1, 0)
	require.NoError(t, err)
	require.Len(t, next, 3)
	assert.Equal(t, int64(7), next[0].Offset)
}

func TestReadRangeDecodesContent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	sess := makeSession(t, db, "ws-a")
	events := NewEventStore(db)

	_, err := events.Append(ctx, sess.ID, domain.EventToolResult,
		domain.ToolResult{CallID: "c1", Status: domain.ToolResultTimeout, Error: "deadline exceeded"})
	require.NoError(t, err)

	all, err := events.ReadRange(ctx, sess.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)

	result, ok := all[0].Content.(domain.ToolResult)
	require.True(t, ok)
	assert.Equal(t, domain.ToolResultTimeout, result.Status)
	assert.Equal(t, "deadline exceeded", result.Error)
}

func TestLast(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	sess := makeSession(t, db, "ws-a")
	events := NewEventStore(db)

	_, err := events.Last(ctx, sess.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = events.Append(ctx, sess.ID, domain.EventCustomerMessage, domain.CustomerMessage{Text: "first"})
	require.NoError(t, err)
	_, err = events.Append(ctx, sess.ID, domain.EventCustomerMessage, domain.CustomerMessage{Text: "second"})
	require.NoError(t, err)

	last, err := events.Last(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), last.Offset)
	assert.Equal(t, "second", last.MessageText())
}

func TestPurgeSession(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	sess := makeSession(t, db, "ws-a")
	events := NewEventStore(db)

	for i := 0; i < 4; i++ {
		_, err := events.Append(ctx, sess.ID, domain.EventCustomerMessage, domain.CustomerMessage{Text: "m"})
		require.NoError(t, err)
	}

	n, err := events.PurgeSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	count, err := events.Count(ctx, sess.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
