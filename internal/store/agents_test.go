package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seamlane/journeyd/internal/domain"
)

func TestAgentSoftDelete(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	agents := NewAgentStore(db)

	agent := &domain.Agent{WorkspaceID: "ws-a", Name: "support"}
	require.NoError(t, agents.Create(ctx, agent))
	require.NoError(t, agents.SoftDelete(ctx, agent.ID))

	// Get still returns the row so existing sessions keep resolving their
	// agent's workspace.
	got, err := agents.Get(ctx, agent.ID)
	require.NoError(t, err)
	assert.True(t, got.Deleted())

	// List hides it.
	list, err := agents.List(ctx, "ws-a")
	require.NoError(t, err)
	assert.Empty(t, list)

	// Deleting again reports not found.
	assert.ErrorIs(t, agents.SoftDelete(ctx, agent.ID), domain.ErrNotFound)
}

func TestAgentGuidelines(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	agents := NewAgentStore(db)

	agent := &domain.Agent{WorkspaceID: "ws-a", Name: "support"}
	require.NoError(t, agents.Create(ctx, agent))

	require.NoError(t, agents.AddGuideline(ctx, &domain.Guideline{
		AgentID:   agent.ID,
		Condition: "customer asks for a refund",
		Action:    "explain the refund policy",
	}))

	err := agents.AddGuideline(ctx, &domain.Guideline{AgentID: agent.ID, Condition: "x"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	list, err := agents.Guidelines(ctx, agent.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "explain the refund policy", list[0].Action)
}

func TestAgentToolAssignment(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	agents := NewAgentStore(db)
	tools := NewToolStore(db)

	agent := &domain.Agent{WorkspaceID: "ws-a", Name: "support"}
	require.NoError(t, agents.Create(ctx, agent))
	tool := &domain.Tool{WorkspaceID: "ws-a", Name: "order_lookup"}
	require.NoError(t, tools.Create(ctx, tool))

	require.NoError(t, agents.AssignTool(ctx, agent.ID, tool.ID))
	// Re-assignment is a no-op.
	require.NoError(t, agents.AssignTool(ctx, agent.ID, tool.ID))

	assigned, err := agents.Tools(ctx, agent.ID)
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, "order_lookup", assigned[0].Name)
}

func TestAssignToolWorkspaceRule(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	agents := NewAgentStore(db)
	tools := NewToolStore(db)

	agent := &domain.Agent{WorkspaceID: "ws-a", Name: "support"}
	require.NoError(t, agents.Create(ctx, agent))
	foreignPrivate := &domain.Tool{WorkspaceID: "ws-b", Name: "secret"}
	require.NoError(t, tools.Create(ctx, foreignPrivate))
	foreignPublic := &domain.Tool{WorkspaceID: "ws-b", Name: "weather", IsPublic: true}
	require.NoError(t, tools.Create(ctx, foreignPublic))

	// A private tool from another workspace is never assignable.
	err := agents.AssignTool(ctx, agent.ID, foreignPrivate.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	assigned, err := agents.Tools(ctx, agent.ID)
	require.NoError(t, err)
	assert.Empty(t, assigned)

	// A public one is.
	require.NoError(t, agents.AssignTool(ctx, agent.ID, foreignPublic.ID))

	// Unknown ids report not found, not a silent insert.
	assert.ErrorIs(t, agents.AssignTool(ctx, agent.ID, "no-such-tool"), domain.ErrNotFound)
	assert.ErrorIs(t, agents.AssignTool(ctx, "no-such-agent", foreignPublic.ID), domain.ErrNotFound)
}

func TestToolNameUniquePerWorkspace(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	tools := NewToolStore(db)

	require.NoError(t, tools.Create(ctx, &domain.Tool{WorkspaceID: "ws-a", Name: "lookup"}))

	err := tools.Create(ctx, &domain.Tool{WorkspaceID: "ws-a", Name: "lookup"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)

	// Same name in another workspace is fine.
	require.NoError(t, tools.Create(ctx, &domain.Tool{WorkspaceID: "ws-b", Name: "lookup"}))
}

func TestToolListIncludesForeignPublic(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	tools := NewToolStore(db)

	require.NoError(t, tools.Create(ctx, &domain.Tool{WorkspaceID: "ws-a", Name: "own"}))
	require.NoError(t, tools.Create(ctx, &domain.Tool{WorkspaceID: "ws-b", Name: "shared", IsPublic: true}))
	require.NoError(t, tools.Create(ctx, &domain.Tool{WorkspaceID: "ws-b", Name: "private"}))

	list, err := tools.List(ctx, "ws-a")
	require.NoError(t, err)

	names := make([]string, 0, len(list))
	for _, tool := range list {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"own", "shared"}, names)
}
