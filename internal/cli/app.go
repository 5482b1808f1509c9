package cli

import (
	"github.com/seamlane/journeyd/internal/config"
	"github.com/seamlane/journeyd/internal/journey"
	"github.com/seamlane/journeyd/internal/session"
	"github.com/seamlane/journeyd/internal/store"
	"github.com/seamlane/journeyd/internal/tenant"
)

// app bundles the wired components a command needs. Commands build one per
// invocation and close it when done.
type app struct {
	cfg      config.Config
	db       *store.DB
	agents   *store.AgentStore
	tools    *store.ToolStore
	journeys *store.JourneyStore
	sessions *store.SessionStore
	events   *store.EventStore
	vars     *store.VariableStore
	coord    *session.Coordinator
}

// openApp loads the config and opens the database with all stores wired. No
// tool runner is attached; tool states scheduled from the CLI stay pending.
func openApp() (*app, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return nil, err
	}

	db, err := store.Open(paths.DatabasePath(cfg), log)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		db:       db,
		agents:   store.NewAgentStore(db),
		tools:    store.NewToolStore(db),
		journeys: store.NewJourneyStore(db),
		sessions: store.NewSessionStore(db),
		events:   store.NewEventStore(db),
		vars:     store.NewVariableStore(db),
	}

	guard := tenant.NewGuard(log)
	engine := journey.NewEngine(a.journeys, a.sessions, a.events, a.vars, log)
	a.coord = session.NewCoordinator(cfg.Session, a.agents, a.sessions, a.events, a.vars, guard, engine, nil, log)
	return a, nil
}

func (a *app) close() {
	a.coord.Wait()
	a.db.Close()
}
