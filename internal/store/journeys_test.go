package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seamlane/journeyd/internal/domain"
)

// makeJourney creates an agent with a chat -> decision -> tool -> final graph
// and returns the journey with its states keyed by name.
func makeJourney(t *testing.T, db *DB, workspaceID string) (*domain.Journey, map[string]domain.JourneyState) {
	t.Helper()
	ctx := context.Background()

	agent := &domain.Agent{WorkspaceID: workspaceID, Name: "support-" + uuid.New().String()}
	require.NoError(t, NewAgentStore(db).Create(ctx, agent))

	ids := map[string]string{}
	for _, name := range []string{"greet", "collect", "resolve", "done"} {
		ids[name] = uuid.New().String()
	}
	states := []domain.JourneyState{
		{ID: ids["greet"], Name: "greet", Type: domain.StateChat, IsInitial: true, Config: domain.ChatConfig{Prompt: "greet the customer"}},
		{ID: ids["collect"], Name: "collect", Type: domain.StateDecision, Config: domain.DecisionConfig{MaxAttempts: 2}},
		{ID: ids["resolve"], Name: "resolve", Type: domain.StateTool, Config: domain.ToolConfig{ToolID: "tool-1", TimeoutSeconds: 5}},
		{ID: ids["done"], Name: "done", Type: domain.StateFinal, IsFinal: true, Config: domain.FinalConfig{}},
	}
	transitions := []domain.JourneyTransition{
		{ID: uuid.New().String(), FromStateID: ids["greet"], ToStateID: ids["collect"], Priority: 0},
		{ID: uuid.New().String(), FromStateID: ids["collect"], ToStateID: ids["resolve"], Priority: 0,
			Condition: &domain.Condition{Kind: domain.CondEventTextMatches, Pattern: "order"}},
		{ID: uuid.New().String(), FromStateID: ids["resolve"], ToStateID: ids["done"], Priority: 0,
			Condition: &domain.Condition{Kind: domain.CondEventTypeIs, EventType: domain.EventToolResult}},
	}

	journey := &domain.Journey{
		AgentID: agent.ID,
		Title:   "Order help",
		Conditions: []domain.Condition{
			{Kind: domain.CondEventTextMatches, Pattern: "order"},
		},
	}
	require.NoError(t, NewJourneyStore(db).Create(ctx, journey, states, transitions))

	byName := map[string]domain.JourneyState{}
	for _, s := range states {
		byName[s.Name] = s
	}
	return journey, byName
}

func TestJourneyCreateAndGet(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	journey, states := makeJourney(t, db, "ws-a")
	journeys := NewJourneyStore(db)

	got, err := journeys.Get(ctx, journey.ID)
	require.NoError(t, err)
	assert.Equal(t, "Order help", got.Title)
	require.Len(t, got.Conditions, 1)
	assert.Equal(t, domain.CondEventTextMatches, got.Conditions[0].Kind)

	all, err := journeys.States(ctx, journey.ID)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	state, err := journeys.GetState(ctx, states["resolve"].ID)
	require.NoError(t, err)
	cfg, ok := state.Config.(domain.ToolConfig)
	require.True(t, ok)
	assert.Equal(t, "tool-1", cfg.ToolID)
	assert.Equal(t, 5, cfg.TimeoutSeconds)
}

func TestJourneyCreateRejectsBadGraph(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	agent := &domain.Agent{WorkspaceID: "ws-a", Name: "support"}
	require.NoError(t, NewAgentStore(db).Create(ctx, agent))

	// Two initial states.
	states := []domain.JourneyState{
		{ID: "a", Name: "a", Type: domain.StateChat, IsInitial: true, Config: domain.ChatConfig{Prompt: "p"}},
		{ID: "b", Name: "b", Type: domain.StateChat, IsInitial: true, Config: domain.ChatConfig{Prompt: "p"}},
		{ID: "c", Name: "c", Type: domain.StateFinal, IsFinal: true, Config: domain.FinalConfig{}},
	}
	err := NewJourneyStore(db).Create(ctx, &domain.Journey{AgentID: agent.ID, Title: "bad"}, states, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)

	// Nothing was stored.
	list, err := NewJourneyStore(db).ListByAgent(ctx, agent.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestInitialState(t *testing.T) {
	db := testDB(t)
	journey, states := makeJourney(t, db, "ws-a")

	initial, err := NewJourneyStore(db).InitialState(context.Background(), journey.ID)
	require.NoError(t, err)
	assert.Equal(t, states["greet"].ID, initial.ID)
	assert.True(t, initial.IsInitial)
}

func TestTransitionsFromOrdering(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	agent := &domain.Agent{WorkspaceID: "ws-a", Name: "support"}
	require.NoError(t, NewAgentStore(db).Create(ctx, agent))

	states := []domain.JourneyState{
		{ID: "start", Name: "start", Type: domain.StateDecision, IsInitial: true, Config: domain.DecisionConfig{}},
		{ID: "a", Name: "a", Type: domain.StateFinal, IsFinal: true, Config: domain.FinalConfig{}},
		{ID: "b", Name: "b", Type: domain.StateFinal, IsFinal: true, Config: domain.FinalConfig{}},
	}
	// Insert out of priority order; ties break by id.
	transitions := []domain.JourneyTransition{
		{ID: "tr-z", FromStateID: "start", ToStateID: "a", Priority: 10},
		{ID: "tr-b", FromStateID: "start", ToStateID: "b", Priority: 5},
		{ID: "tr-a", FromStateID: "start", ToStateID: "a", Priority: 5},
	}
	journey := &domain.Journey{AgentID: agent.ID, Title: "ordering"}
	require.NoError(t, NewJourneyStore(db).Create(ctx, journey, states, transitions))

	got, err := NewJourneyStore(db).TransitionsFrom(ctx, journey.ID, "start")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "tr-a", got[0].ID)
	assert.Equal(t, "tr-b", got[1].ID)
	assert.Equal(t, "tr-z", got[2].ID)
}

func TestIncrementCompletion(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	journey, _ := makeJourney(t, db, "ws-a")
	journeys := NewJourneyStore(db)

	require.NoError(t, journeys.IncrementCompletion(ctx, journey.ID))
	require.NoError(t, journeys.IncrementCompletion(ctx, journey.ID))

	got, err := journeys.Get(ctx, journey.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.CompletionCount)
}
