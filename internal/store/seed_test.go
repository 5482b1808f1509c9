package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seamlane/journeyd/internal/config"
	"github.com/seamlane/journeyd/internal/domain"
	"github.com/seamlane/journeyd/internal/logging"
	"github.com/seamlane/journeyd/internal/tenant"
)

func seedFixture() config.SeedConfig {
	return config.SeedConfig{Workspaces: []config.WorkspaceSeed{{
		ID:    "ws-a",
		Tools: []config.ToolSeed{{Name: "order_lookup"}},
		Agents: []config.AgentSeed{{
			Name:       "support",
			Tools:      []string{"order_lookup"},
			Guidelines: []config.GuidelineSeed{{Condition: "refund request", Action: "explain policy"}},
			Journeys: []config.JourneySeed{{
				Title: "Order help",
				States: []config.StateSeed{
					{Name: "greet", Type: "chat", Initial: true, Prompt: "hi"},
					{Name: "lookup", Type: "tool", Tool: "order_lookup", TimeoutSeconds: 5},
					{Name: "done", Type: "final"},
				},
				Transitions: []config.TransitionSeed{
					{From: "greet", To: "lookup", Priority: 0},
					{From: "lookup", To: "done", Priority: 0},
					{From: "lookup", To: "greet", Priority: 1, OnError: true},
				},
			}},
		}},
	}}}
}

func newSeeder(db *DB) *Seeder {
	return NewSeeder(NewAgentStore(db), NewToolStore(db), NewJourneyStore(db), tenant.NewGuard(logging.Nop()), logging.Nop())
}

func TestSeedApply(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	require.NoError(t, newSeeder(db).Apply(ctx, seedFixture()))

	agents, err := NewAgentStore(db).List(ctx, "ws-a")
	require.NoError(t, err)
	require.Len(t, agents, 1)

	tools, err := NewAgentStore(db).Tools(ctx, agents[0].ID)
	require.NoError(t, err)
	require.Len(t, tools, 1)

	journeys, err := NewJourneyStore(db).ListByAgent(ctx, agents[0].ID)
	require.NoError(t, err)
	require.Len(t, journeys, 1)

	states, err := NewJourneyStore(db).States(ctx, journeys[0].ID)
	require.NoError(t, err)
	require.Len(t, states, 3)

	// The onError transition was wired into the tool state's config, and the
	// tool name resolved to its id.
	for _, s := range states {
		if s.Type != domain.StateTool {
			continue
		}
		cfg, ok := s.Config.(domain.ToolConfig)
		require.True(t, ok)
		assert.Equal(t, tools[0].ID, cfg.ToolID)
		assert.NotEmpty(t, cfg.ErrorTransitionID)

		tr, err := NewJourneyStore(db).GetTransition(ctx, cfg.ErrorTransitionID)
		require.NoError(t, err)
		assert.Equal(t, s.ID, tr.FromStateID)
	}
}

func TestSeedApplyIdempotent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seeder := newSeeder(db)

	require.NoError(t, seeder.Apply(ctx, seedFixture()))
	require.NoError(t, seeder.Apply(ctx, seedFixture()))

	agents, err := NewAgentStore(db).List(ctx, "ws-a")
	require.NoError(t, err)
	assert.Len(t, agents, 1)

	tools, err := NewToolStore(db).List(ctx, "ws-a")
	require.NoError(t, err)
	assert.Len(t, tools, 1)
}
