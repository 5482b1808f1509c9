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

// AgentStore persists agents, their guidelines and their tool assignments.
type AgentStore struct {
	db *DB
}

// NewAgentStore creates an agent store using the given database.
func NewAgentStore(db *DB) *AgentStore {
	return &AgentStore{db: db}
}

// Create inserts a new agent. A missing ID is generated.
func (s *AgentStore) Create(ctx context.Context, agent *domain.Agent) error {
	if agent.WorkspaceID == "" {
		return &domain.ValidationError{Field: "workspaceId", Reason: "workspace id is required"}
	}
	if agent.Name == "" {
		return &domain.ValidationError{Field: "name", Reason: "agent name is required"}
	}
	if agent.ID == "" {
		agent.ID = uuid.New().String()
	}
	if agent.CreatedAt.IsZero() {
		agent.CreatedAt = time.Now()
	}

	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO agents (id, workspace_id, name, description, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		agent.ID, agent.WorkspaceID, agent.Name, agent.Description, fmtTime(agent.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting agent: %w", err)
	}
	return nil
}

// Get returns an agent by id, including soft-deleted agents: sessions keep
// referencing deleted agents and the tenant guard still needs their
// workspace. Callers that want live agents only check Deleted().
func (s *AgentStore) Get(ctx context.Context, id string) (*domain.Agent, error) {
	var (
		agent     domain.Agent
		createdAt string
		deletedAt sql.NullString
	)
	err := s.db.sql.QueryRowContext(ctx,
		`SELECT id, workspace_id, name, description, created_at, deleted_at
		 FROM agents WHERE id = ?`, id,
	).Scan(&agent.ID, &agent.WorkspaceID, &agent.Name, &agent.Description, &createdAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading agent %s: %w", id, err)
	}
	agent.CreatedAt = parseTime(createdAt)
	agent.DeletedAt = parseTimePtr(deletedAt)
	return &agent, nil
}

// List returns all live agents in a workspace.
func (s *AgentStore) List(ctx context.Context, workspaceID string) ([]domain.Agent, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT id, workspace_id, name, description, created_at
		 FROM agents WHERE workspace_id = ? AND deleted_at IS NULL
		 ORDER BY created_at, id`, workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing agents: %w", err)
	}
	defer rows.Close()

	var agents []domain.Agent
	for rows.Next() {
		var (
			agent     domain.Agent
			createdAt string
		)
		if err := rows.Scan(&agent.ID, &agent.WorkspaceID, &agent.Name, &agent.Description, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning agent: %w", err)
		}
		agent.CreatedAt = parseTime(createdAt)
		agents = append(agents, agent)
	}
	return agents, rows.Err()
}

// SoftDelete marks an agent deleted. Sessions referencing it stay intact,
// and its tools are untouched.
func (s *AgentStore) SoftDelete(ctx context.Context, id string) error {
	res, err := s.db.sql.ExecContext(ctx,
		`UPDATE agents SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		fmtTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("soft-deleting agent %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AddGuideline attaches a guideline to an agent.
func (s *AgentStore) AddGuideline(ctx context.Context, g *domain.Guideline) error {
	if g.AgentID == "" {
		return &domain.ValidationError{Field: "agentId", Reason: "agent id is required"}
	}
	if g.Condition == "" || g.Action == "" {
		return &domain.ValidationError{Field: "guideline", Reason: "condition and action are required"}
	}
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}

	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO guidelines (id, agent_id, condition, action, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		g.ID, g.AgentID, g.Condition, g.Action, fmtTime(g.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting guideline: %w", err)
	}
	return nil
}

// Guidelines returns an agent's guidelines in creation order.
func (s *AgentStore) Guidelines(ctx context.Context, agentID string) ([]domain.Guideline, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT id, agent_id, condition, action, created_at
		 FROM guidelines WHERE agent_id = ? ORDER BY created_at, id`, agentID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing guidelines: %w", err)
	}
	defer rows.Close()

	var out []domain.Guideline
	for rows.Next() {
		var (
			g         domain.Guideline
			createdAt string
		)
		if err := rows.Scan(&g.ID, &g.AgentID, &g.Condition, &g.Action, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning guideline: %w", err)
		}
		g.CreatedAt = parseTime(createdAt)
		out = append(out, g)
	}
	return out, rows.Err()
}

// AssignTool associates a tool with an agent. The tool must live in the
// agent's workspace or be public; a foreign private tool is rejected with
// AccessDenied before anything is written.
func (s *AgentStore) AssignTool(ctx context.Context, agentID, toolID string) error {
	agent, err := s.Get(ctx, agentID)
	if err != nil {
		return err
	}

	var (
		toolWorkspace string
		isPublic      int
	)
	err = s.db.sql.QueryRowContext(ctx,
		`SELECT workspace_id, is_public FROM tools WHERE id = ?`, toolID,
	).Scan(&toolWorkspace, &isPublic)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("loading tool %s: %w", toolID, err)
	}
	if toolWorkspace != agent.WorkspaceID && isPublic == 0 {
		return &domain.AccessDeniedError{WorkspaceID: agent.WorkspaceID, Entity: "tool", EntityID: toolID}
	}

	_, err = s.db.sql.ExecContext(ctx,
		`INSERT OR IGNORE INTO agent_tools (agent_id, tool_id) VALUES (?, ?)`,
		agentID, toolID,
	)
	if err != nil {
		return fmt.Errorf("assigning tool %s to agent %s: %w", toolID, agentID, err)
	}
	return nil
}

// Tools returns the tools assigned to an agent.
func (s *AgentStore) Tools(ctx context.Context, agentID string) ([]domain.Tool, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT t.id, t.workspace_id, t.name, t.description, t.is_public, t.created_at
		 FROM tools t JOIN agent_tools at ON at.tool_id = t.id
		 WHERE at.agent_id = ? ORDER BY t.name`, agentID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing agent tools: %w", err)
	}
	defer rows.Close()
	return scanTools(rows)
}
