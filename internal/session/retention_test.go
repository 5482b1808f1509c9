package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seamlane/journeyd/internal/config"
	"github.com/seamlane/journeyd/internal/domain"
	"github.com/seamlane/journeyd/internal/logging"
)

func (f *fixture) sweeper(cfg config.SessionConfig) *Sweeper {
	return NewSweeper(cfg, f.sessions, f.events, f.vars, logging.Nop())
}

// backdateEnd pushes a session's end timestamp into the past so retention
// windows can be exercised without waiting.
func (f *fixture) backdateEnd(t *testing.T, sessionID string, age time.Duration) {
	t.Helper()
	ended := time.Now().UTC().Add(-age).Format(time.DateTime)
	_, err := f.db.SQL().Exec(`UPDATE sessions SET ended_at = ? WHERE id = ?`, ended, sessionID)
	require.NoError(t, err)
}

func TestSweepDeletesLeftoverSessionVariables(t *testing.T) {
	keep := false
	f := newFixture(t, config.SessionConfig{ClearVariablesOnEnd: &keep}, nil)
	sess := f.newSession(t)
	ctx := context.Background()

	require.NoError(t, f.coord.SetVariable(ctx, "ws-a", domain.ScopeSession, sess.ID,
		"order_id", "ORD-1", domain.TypeString))
	require.NoError(t, f.coord.EndSession(ctx, sess.ID, "ws-a", domain.SessionCompleted))

	stats, err := f.sweeper(config.SessionConfig{}).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.SessionsVisited)
	assert.Equal(t, int64(1), stats.VariablesDeleted)

	_, err = f.vars.Get(ctx, "ws-a", domain.ScopeSession, sess.ID, "order_id")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Zero retention keeps events forever.
	assert.Zero(t, stats.EventsPurged)
	count, err := f.events.Count(ctx, sess.ID)
	require.NoError(t, err)
	assert.NotZero(t, count)
}

func TestSweepPurgesEventsPastRetention(t *testing.T) {
	f := newFixture(t, config.SessionConfig{}, nil)
	sess := f.newSession(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := f.coord.AppendEvent(ctx, sess.ID, "ws-a", domain.EventCustomerMessage,
			domain.CustomerMessage{Text: "m"})
		require.NoError(t, err)
	}
	require.NoError(t, f.coord.EndSession(ctx, sess.ID, "ws-a", domain.SessionCompleted))
	f.backdateEnd(t, sess.ID, 48*time.Hour)

	stats, err := f.sweeper(config.SessionConfig{RetainEventsForDays: 1}).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.EventsPurged) // 3 messages + the end marker

	count, err := f.events.Count(ctx, sess.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSweepKeepsEventsWithinRetention(t *testing.T) {
	f := newFixture(t, config.SessionConfig{}, nil)
	sess := f.newSession(t)
	ctx := context.Background()

	require.NoError(t, f.coord.EndSession(ctx, sess.ID, "ws-a", domain.SessionCompleted))

	stats, err := f.sweeper(config.SessionConfig{RetainEventsForDays: 1}).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.SessionsVisited)
	assert.Zero(t, stats.EventsPurged)

	count, err := f.events.Count(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSweepIgnoresActiveSessions(t *testing.T) {
	f := newFixture(t, config.SessionConfig{}, nil)
	sess := f.newSession(t)
	ctx := context.Background()

	require.NoError(t, f.coord.SetVariable(ctx, "ws-a", domain.ScopeSession, sess.ID,
		"draft", "x", domain.TypeString))

	stats, err := f.sweeper(config.SessionConfig{}).Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.SessionsVisited)

	v, err := f.vars.Get(ctx, "ws-a", domain.ScopeSession, sess.ID, "draft")
	require.NoError(t, err)
	assert.Equal(t, "x", v.Value)
}
