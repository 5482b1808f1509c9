package session

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seamlane/journeyd/internal/config"
	"github.com/seamlane/journeyd/internal/logging"
	"github.com/seamlane/journeyd/internal/store"
)

// Sweeper is the explicit data-retention job. Nothing else ever deletes
// events or cascades session data; purges happen only here, driven by
// configuration.
type Sweeper struct {
	cfg      config.SessionConfig
	sessions *store.SessionStore
	events   *store.EventStore
	vars     *store.VariableStore
	log      *logging.Logger
}

// NewSweeper creates a retention sweeper over the given stores.
func NewSweeper(cfg config.SessionConfig, sessions *store.SessionStore, events *store.EventStore, vars *store.VariableStore, log *logging.Logger) *Sweeper {
	return &Sweeper{cfg: cfg, sessions: sessions, events: events, vars: vars, log: log.Sub("retention")}
}

// SweepStats reports what one sweep removed.
type SweepStats struct {
	SessionsVisited  int64
	EventsPurged     int64
	VariablesDeleted int64
}

// sweepParallelism bounds concurrent per-session purges.
const sweepParallelism = 4

// Sweep visits every ended session: leftover session-scope variables are
// always deleted, and events are purged once the session has been ended
// longer than the configured retention window (a zero window keeps events
// forever). Sessions are processed in parallel; they share no locks.
func (s *Sweeper) Sweep(ctx context.Context) (SweepStats, error) {
	ids, err := s.sessions.ListEndedBefore(ctx, time.Now())
	if err != nil {
		return SweepStats{}, err
	}

	retention := s.cfg.EventRetention()
	var cutoff time.Time
	if retention > 0 {
		cutoff = time.Now().Add(-retention)
	}

	var stats SweepStats
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepParallelism)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			sess, err := s.sessions.Get(ctx, id)
			if err != nil {
				return err
			}
			atomic.AddInt64(&stats.SessionsVisited, 1)

			deleted, err := s.vars.DeleteSessionScope(ctx, sess.WorkspaceID, sess.ID)
			if err != nil {
				return err
			}
			atomic.AddInt64(&stats.VariablesDeleted, deleted)

			if retention > 0 && sess.EndedAt != nil && sess.EndedAt.Before(cutoff) {
				purged, err := s.events.PurgeSession(ctx, sess.ID)
				if err != nil {
					return err
				}
				atomic.AddInt64(&stats.EventsPurged, purged)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	s.log.Info().
		Int64("sessions", stats.SessionsVisited).
		Int64("events", stats.EventsPurged).
		Int64("variables", stats.VariablesDeleted).
		Msg("retention sweep complete")
	return stats, nil
}
