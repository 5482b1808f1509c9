// Package tenant enforces the workspace isolation invariant. Every
// operation names its workspace explicitly; the guard compares that argument
// against the entity's stored workspace (and, for derived entities, the
// parent's) and fails loudly on any mismatch. Denials are errors, never
// silent filtering — filtering would mask caller bugs and leak cross-tenant
// row counts through pagination totals.
package tenant

import (
	"github.com/seamlane/journeyd/internal/domain"
	"github.com/seamlane/journeyd/internal/logging"
)

// Guard validates workspace identity on every read and write. It carries no
// state beyond its logger; all checks run against already-fetched entities.
type Guard struct {
	log *logging.Logger
}

// NewGuard creates a tenant guard.
func NewGuard(log *logging.Logger) *Guard {
	return &Guard{log: log.Sub("tenant")}
}

// CheckWorkspace rejects an absent workspace argument. The workspace id is
// supplied by the authentication layer; it is never inferred from ambient
// state.
func (g *Guard) CheckWorkspace(workspaceID string) error {
	if workspaceID == "" {
		return &domain.ValidationError{Field: "workspaceId", Reason: "workspace id is required"}
	}
	return nil
}

// CheckAgent verifies the agent belongs to the claimed workspace.
func (g *Guard) CheckAgent(workspaceID string, agent *domain.Agent) error {
	if err := g.CheckWorkspace(workspaceID); err != nil {
		return err
	}
	if agent.WorkspaceID != workspaceID {
		return g.deny(workspaceID, "agent", agent.ID)
	}
	return nil
}

// CheckSession verifies the session against the claimed workspace with a
// double check: the session's own stored workspace and the owning agent's
// workspace must both match. The agent side catches corruption where
// session.workspace_id drifted from agent.workspace_id.
func (g *Guard) CheckSession(workspaceID string, sess *domain.Session, agent *domain.Agent) error {
	if err := g.CheckWorkspace(workspaceID); err != nil {
		return err
	}
	if sess.WorkspaceID != workspaceID {
		return g.deny(workspaceID, "session", sess.ID)
	}
	if agent != nil && agent.WorkspaceID != workspaceID {
		return g.deny(workspaceID, "session", sess.ID)
	}
	return nil
}

// CheckSessionAgent verifies at session creation that the session's
// workspace equals the agent's. This is the application-level assertion of
// the invariant session.workspace_id == agent.workspace_id, enforced before
// any storage write.
func (g *Guard) CheckSessionAgent(workspaceID string, agent *domain.Agent) error {
	return g.CheckAgent(workspaceID, agent)
}

// CheckToolRead verifies read access to a tool. Public tools are readable
// from any workspace — the one deliberate exception to strict isolation.
func (g *Guard) CheckToolRead(workspaceID string, tool *domain.Tool) error {
	if err := g.CheckWorkspace(workspaceID); err != nil {
		return err
	}
	if tool.WorkspaceID == workspaceID || tool.IsPublic {
		return nil
	}
	return g.deny(workspaceID, "tool", tool.ID)
}

// CheckToolWrite verifies write access to a tool. Public tools are never
// writable across workspaces.
func (g *Guard) CheckToolWrite(workspaceID string, tool *domain.Tool) error {
	if err := g.CheckWorkspace(workspaceID); err != nil {
		return err
	}
	if tool.WorkspaceID != workspaceID {
		return g.deny(workspaceID, "tool", tool.ID)
	}
	return nil
}

// CheckToolAssignment verifies an agent may be assigned a tool: the tool
// must come from the agent's own workspace or be public.
func (g *Guard) CheckToolAssignment(agent *domain.Agent, tool *domain.Tool) error {
	if tool.WorkspaceID == agent.WorkspaceID || tool.IsPublic {
		return nil
	}
	return g.deny(agent.WorkspaceID, "tool", tool.ID)
}

// CheckVariable verifies a variable row belongs to the claimed workspace.
func (g *Guard) CheckVariable(workspaceID string, v *domain.Variable) error {
	if err := g.CheckWorkspace(workspaceID); err != nil {
		return err
	}
	if v.WorkspaceID != workspaceID {
		return g.deny(workspaceID, "variable", v.ID)
	}
	return nil
}

// deny logs the violation as security-relevant and returns AccessDenied.
func (g *Guard) deny(workspaceID, entity, entityID string) error {
	g.log.Warn().
		Str("workspace", workspaceID).
		Str("entity", entity).
		Str("entityId", entityID).
		Msg("workspace isolation violation")
	return &domain.AccessDeniedError{WorkspaceID: workspaceID, Entity: entity, EntityID: entityID}
}
