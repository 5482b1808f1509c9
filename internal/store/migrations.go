package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create agents, tools and guidelines",
		SQL: `
			CREATE TABLE agents (
				id           TEXT PRIMARY KEY,
				workspace_id TEXT NOT NULL,
				name         TEXT NOT NULL,
				description  TEXT NOT NULL DEFAULT '',
				created_at   TEXT NOT NULL DEFAULT (datetime('now')),
				deleted_at   TEXT
			);

			CREATE INDEX idx_agents_workspace ON agents (workspace_id);

			CREATE TABLE guidelines (
				id         TEXT PRIMARY KEY,
				agent_id   TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
				condition  TEXT NOT NULL,
				action     TEXT NOT NULL,
				created_at TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_guidelines_agent ON guidelines (agent_id);

			CREATE TABLE tools (
				id           TEXT PRIMARY KEY,
				workspace_id TEXT NOT NULL,
				name         TEXT NOT NULL,
				description  TEXT NOT NULL DEFAULT '',
				is_public    INTEGER NOT NULL DEFAULT 0,
				created_at   TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_tools_workspace ON tools (workspace_id);
			CREATE UNIQUE INDEX idx_tools_workspace_name ON tools (workspace_id, name);

			CREATE TABLE agent_tools (
				agent_id TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
				tool_id  TEXT NOT NULL REFERENCES tools(id),
				PRIMARY KEY (agent_id, tool_id)
			);
		`,
	},
	{
		Version: 2,
		Name:    "create journeys, states and transitions",
		SQL: `
			CREATE TABLE journeys (
				id               TEXT PRIMARY KEY,
				agent_id         TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
				title            TEXT NOT NULL,
				description      TEXT NOT NULL DEFAULT '',
				conditions       TEXT,
				allow_skipping   INTEGER NOT NULL DEFAULT 0,
				allow_revisiting INTEGER NOT NULL DEFAULT 0,
				completion_count INTEGER NOT NULL DEFAULT 0,
				created_at       TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_journeys_agent ON journeys (agent_id);

			CREATE TABLE journey_states (
				id         TEXT PRIMARY KEY,
				journey_id TEXT NOT NULL REFERENCES journeys(id) ON DELETE CASCADE,
				name       TEXT NOT NULL,
				state_type TEXT NOT NULL,
				is_initial INTEGER NOT NULL DEFAULT 0,
				is_final   INTEGER NOT NULL DEFAULT 0,
				config     TEXT NOT NULL
			);

			CREATE INDEX idx_journey_states_journey ON journey_states (journey_id);

			CREATE TABLE journey_transitions (
				id            TEXT PRIMARY KEY,
				journey_id    TEXT NOT NULL REFERENCES journeys(id) ON DELETE CASCADE,
				from_state_id TEXT NOT NULL REFERENCES journey_states(id),
				to_state_id   TEXT NOT NULL REFERENCES journey_states(id),
				priority      INTEGER NOT NULL,
				condition     TEXT
			);

			CREATE INDEX idx_journey_transitions_from
				ON journey_transitions (journey_id, from_state_id, priority, id);
		`,
	},
	{
		Version: 3,
		Name:    "create sessions, events and variables",
		SQL: `
			CREATE TABLE sessions (
				id                 TEXT PRIMARY KEY,
				workspace_id       TEXT NOT NULL,
				agent_id           TEXT NOT NULL REFERENCES agents(id),
				customer_id        TEXT NOT NULL DEFAULT '',
				initiator          TEXT NOT NULL DEFAULT 'customer',
				status             TEXT NOT NULL DEFAULT 'active',
				current_journey_id TEXT,
				current_state_id   TEXT,
				event_count        INTEGER NOT NULL DEFAULT 0,
				message_count      INTEGER NOT NULL DEFAULT 0,
				tokens_used        INTEGER NOT NULL DEFAULT 0,
				decision_attempts  INTEGER NOT NULL DEFAULT 0,
				needs_attention    INTEGER NOT NULL DEFAULT 0,
				created_at         TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at         TEXT NOT NULL DEFAULT (datetime('now')),
				ended_at           TEXT
			);

			CREATE INDEX idx_sessions_workspace ON sessions (workspace_id);
			CREATE INDEX idx_sessions_agent ON sessions (agent_id);
			CREATE INDEX idx_sessions_status ON sessions (status, ended_at);

			CREATE TABLE events (
				id         TEXT PRIMARY KEY,
				session_id TEXT NOT NULL REFERENCES sessions(id),
				"offset"   INTEGER NOT NULL,
				event_type TEXT NOT NULL,
				content    TEXT NOT NULL,
				created_at TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE UNIQUE INDEX idx_events_session_offset ON events (session_id, "offset");

			CREATE TABLE variables (
				id           TEXT PRIMARY KEY,
				workspace_id TEXT NOT NULL,
				scope        TEXT NOT NULL,
				scope_ref    TEXT NOT NULL DEFAULT '',
				key          TEXT NOT NULL,
				value_type   TEXT NOT NULL,
				value        TEXT NOT NULL,
				created_at   TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at   TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE UNIQUE INDEX idx_variables_key
				ON variables (workspace_id, scope, scope_ref, key);
		`,
	},
}
