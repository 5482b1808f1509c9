package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/seamlane/journeyd/internal/config"
	"github.com/seamlane/journeyd/internal/domain"
	"github.com/seamlane/journeyd/internal/logging"
	"github.com/seamlane/journeyd/internal/tenant"
)

// Seeder applies declarative workspace/agent/journey definitions from the
// configuration to the store. Applying is idempotent at the entity-name
// level: existing tools and agents (matched by name within their workspace)
// are left alone.
type Seeder struct {
	agents   *AgentStore
	tools    *ToolStore
	journeys *JourneyStore
	guard    *tenant.Guard
	log      *logging.Logger
}

// NewSeeder creates a seeder over the given stores. Tool reads, writes and
// assignments route through the guard before touching storage.
func NewSeeder(agents *AgentStore, tools *ToolStore, journeys *JourneyStore, guard *tenant.Guard, log *logging.Logger) *Seeder {
	return &Seeder{agents: agents, tools: tools, journeys: journeys, guard: guard, log: log.Sub("seed")}
}

// Apply provisions everything declared in the seed config. The config must
// already have passed config.Validate.
func (s *Seeder) Apply(ctx context.Context, seed config.SeedConfig) error {
	for _, ws := range seed.Workspaces {
		if err := s.applyWorkspace(ctx, ws); err != nil {
			return fmt.Errorf("workspace %s: %w", ws.ID, err)
		}
	}
	return nil
}

func (s *Seeder) applyWorkspace(ctx context.Context, ws config.WorkspaceSeed) error {
	toolIDs := make(map[string]string, len(ws.Tools))
	for _, seed := range ws.Tools {
		existing, err := s.tools.GetByName(ctx, ws.ID, seed.Name)
		if err == nil {
			toolIDs[seed.Name] = existing.ID
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		tool := &domain.Tool{
			WorkspaceID: ws.ID,
			Name:        seed.Name,
			Description: seed.Description,
			IsPublic:    seed.Public,
		}
		if err := s.guard.CheckToolWrite(ws.ID, tool); err != nil {
			return err
		}
		if err := s.tools.Create(ctx, tool); err != nil {
			return err
		}
		toolIDs[seed.Name] = tool.ID
		s.log.Info().Str("workspace", ws.ID).Str("tool", tool.Name).Msg("tool created")
	}

	existing, err := s.agents.List(ctx, ws.ID)
	if err != nil {
		return err
	}
	byName := make(map[string]bool, len(existing))
	for _, a := range existing {
		byName[a.Name] = true
	}

	for _, seed := range ws.Agents {
		if byName[seed.Name] {
			s.log.Debug().Str("workspace", ws.ID).Str("agent", seed.Name).Msg("agent exists, skipping")
			continue
		}
		if err := s.applyAgent(ctx, ws.ID, seed, toolIDs); err != nil {
			return fmt.Errorf("agent %s: %w", seed.Name, err)
		}
	}
	return nil
}

func (s *Seeder) applyAgent(ctx context.Context, workspaceID string, seed config.AgentSeed, toolIDs map[string]string) error {
	agent := &domain.Agent{
		WorkspaceID: workspaceID,
		Name:        seed.Name,
		Description: seed.Description,
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		return err
	}
	s.log.Info().Str("workspace", workspaceID).Str("agent", agent.Name).Msg("agent created")

	for _, name := range seed.Tools {
		tool, err := s.tools.Get(ctx, toolIDs[name])
		if err != nil {
			return err
		}
		if err := s.guard.CheckToolRead(workspaceID, tool); err != nil {
			return err
		}
		if err := s.guard.CheckToolAssignment(agent, tool); err != nil {
			return err
		}
		if err := s.agents.AssignTool(ctx, agent.ID, tool.ID); err != nil {
			return err
		}
	}
	for _, g := range seed.Guidelines {
		if err := s.agents.AddGuideline(ctx, &domain.Guideline{
			AgentID:   agent.ID,
			Condition: g.Condition,
			Action:    g.Action,
		}); err != nil {
			return err
		}
	}
	for _, j := range seed.Journeys {
		if err := s.applyJourney(ctx, agent.ID, j, toolIDs); err != nil {
			return fmt.Errorf("journey %s: %w", j.Title, err)
		}
	}
	return nil
}

// applyJourney builds the graph from the seed: states get generated ids,
// transitions resolve state names to those ids, and a transition marked
// onError becomes its tool state's error transition.
func (s *Seeder) applyJourney(ctx context.Context, agentID string, seed config.JourneySeed, toolIDs map[string]string) error {
	journey := &domain.Journey{
		AgentID:         agentID,
		Title:           seed.Title,
		Description:     seed.Description,
		Conditions:      seed.Conditions,
		AllowSkipping:   seed.AllowSkipping,
		AllowRevisiting: seed.AllowRevisiting,
	}

	stateIDs := make(map[string]string, len(seed.States))
	states := make([]domain.JourneyState, 0, len(seed.States))
	for _, ss := range seed.States {
		id := uuid.New().String()
		stateIDs[ss.Name] = id
		st := domain.JourneyState{
			ID:        id,
			Name:      ss.Name,
			Type:      domain.StateType(ss.Type),
			IsInitial: ss.Initial,
			IsFinal:   domain.StateType(ss.Type) == domain.StateFinal,
		}
		switch st.Type {
		case domain.StateChat:
			st.Config = domain.ChatConfig{Prompt: ss.Prompt}
		case domain.StateTool:
			st.Config = domain.ToolConfig{ToolID: toolIDs[ss.Tool], TimeoutSeconds: ss.TimeoutSeconds}
		case domain.StateDecision:
			st.Config = domain.DecisionConfig{Prompt: ss.Prompt, MaxAttempts: ss.MaxAttempts}
		case domain.StateFinal:
			st.Config = domain.FinalConfig{}
		}
		states = append(states, st)
	}

	transitions := make([]domain.JourneyTransition, 0, len(seed.Transitions))
	errorTransitions := make(map[string]string) // from-state id -> transition id
	for _, ts := range seed.Transitions {
		tr := domain.JourneyTransition{
			ID:          uuid.New().String(),
			FromStateID: stateIDs[ts.From],
			ToStateID:   stateIDs[ts.To],
			Priority:    ts.Priority,
			Condition:   ts.Condition,
		}
		if ts.OnError {
			errorTransitions[tr.FromStateID] = tr.ID
		}
		transitions = append(transitions, tr)
	}

	for i := range states {
		if cfg, ok := states[i].Config.(domain.ToolConfig); ok {
			if trID, found := errorTransitions[states[i].ID]; found {
				cfg.ErrorTransitionID = trID
				states[i].Config = cfg
			}
		}
	}

	if err := s.journeys.Create(ctx, journey, states, transitions); err != nil {
		return err
	}
	s.log.Info().Str("agent", agentID).Str("journey", journey.Title).
		Int("states", len(states)).Int("transitions", len(transitions)).
		Msg("journey created")
	return nil
}
