package journey

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/seamlane/journeyd/internal/domain"
	"github.com/seamlane/journeyd/internal/logging"
	"github.com/seamlane/journeyd/internal/store"
)

// completedMarkerPrefix keys the session-scope bookkeeping variable written
// when a journey completes, so non-revisitable journeys are not re-entered.
const completedMarkerPrefix = "journeyd.completed."

// Result describes what one advance step did.
type Result struct {
	// Transitioned is true when the state pointer moved (including journey
	// activation).
	Transitioned bool

	// Activated is true when a journey was entered from the idle state.
	Activated bool

	FromStateID string
	ToStateID   string

	// ToState is the state that was entered, when Transitioned.
	ToState *domain.JourneyState

	// Completed is true when the destination was a final state: the
	// session's pointers were cleared and completion statistics incremented.
	Completed bool

	// Escalated is true when a decision state exhausted its attempt budget
	// and the session was flagged for manual intervention.
	Escalated bool

	// PendingTool is the tool_call scheduled on entering a tool state. The
	// caller hands it to the tool-execution collaborator; the engine never
	// executes tools.
	PendingTool *domain.ToolCall

	// PendingToolConfig carries the entered tool state's configuration
	// (timeout, error transition) alongside PendingTool.
	PendingToolConfig *domain.ToolConfig
}

// Engine evaluates journey transitions for sessions. It must only be invoked
// while holding the session's exclusive token; it performs no locking of its
// own.
type Engine struct {
	journeys *store.JourneyStore
	sessions *store.SessionStore
	events   *store.EventStore
	vars     *store.VariableStore
	log      *logging.Logger
}

// NewEngine creates a state-machine engine over the given stores.
func NewEngine(journeys *store.JourneyStore, sessions *store.SessionStore, events *store.EventStore, vars *store.VariableStore, log *logging.Logger) *Engine {
	return &Engine{
		journeys: journeys,
		sessions: sessions,
		events:   events,
		vars:     vars,
		log:      log.Sub("journey"),
	}
}

// Advance runs one evaluation step for the session after trigger was
// appended. With no active journey it tries to enter one whose entry
// conditions hold; otherwise it evaluates the current state's outgoing
// transitions in priority order and takes the first match.
//
// A condition-evaluation failure is absorbed: it is recorded as a
// status_update event and the session stays in its current state, available
// for retry on the next event.
func (e *Engine) Advance(ctx context.Context, sess *domain.Session, trigger *domain.Event) (*Result, error) {
	snapshot, err := e.snapshot(ctx, sess)
	if err != nil {
		return nil, err
	}

	if !sess.InJourney() {
		return e.tryActivate(ctx, sess, trigger, snapshot)
	}

	state, err := e.journeys.GetState(ctx, *sess.CurrentStateID)
	if err != nil {
		return nil, fmt.Errorf("loading current state: %w", err)
	}
	// Terminal idempotence: a pointer should never rest on a final state,
	// but if it does, advancing is a no-op.
	if state.IsFinal {
		return &Result{}, nil
	}

	// A failed or timed-out tool result takes the tool state's error
	// transition when one is configured.
	if tr := e.errorTransition(ctx, state, trigger); tr != nil {
		return e.take(ctx, sess, state, tr)
	}

	transitions, err := e.journeys.TransitionsFrom(ctx, state.JourneyID, state.ID)
	if err != nil {
		return nil, err
	}

	for i := range transitions {
		tr := &transitions[i]
		if tr.Condition == nil {
			return e.take(ctx, sess, state, tr)
		}
		ok, evalErr := evaluate(tr.Condition, trigger, snapshot)
		if evalErr != nil {
			return e.absorbEvalError(ctx, sess, tr, evalErr)
		}
		if ok {
			return e.take(ctx, sess, state, tr)
		}
	}

	if state.Type == domain.StateDecision {
		return e.decisionFallback(ctx, sess, state)
	}
	return &Result{}, nil
}

// snapshot loads the variables visible to the session once per step.
func (e *Engine) snapshot(ctx context.Context, sess *domain.Session) (Snapshot, error) {
	vars, err := e.vars.Snapshot(ctx, sess.WorkspaceID, sess.ID, sess.CustomerID)
	if err != nil {
		return Snapshot{}, err
	}
	return NewSnapshot(vars), nil
}

// tryActivate enters the first journey (by creation order) whose entry
// conditions all hold for the trigger. Journeys already completed by this
// session are skipped unless they allow revisiting.
func (e *Engine) tryActivate(ctx context.Context, sess *domain.Session, trigger *domain.Event, snapshot Snapshot) (*Result, error) {
	journeys, err := e.journeys.ListByAgent(ctx, sess.AgentID)
	if err != nil {
		return nil, err
	}

	for i := range journeys {
		j := &journeys[i]
		if !j.AllowRevisiting {
			if _, done := snapshot.Lookup(domain.ScopeSession, completedMarkerPrefix+j.ID); done {
				continue
			}
		}
		applicable := true
		for ci := range j.Conditions {
			ok, evalErr := evaluate(&j.Conditions[ci], trigger, snapshot)
			if evalErr != nil {
				return e.absorbEvalError(ctx, sess, nil, evalErr)
			}
			if !ok {
				applicable = false
				break
			}
		}
		if !applicable {
			continue
		}

		initial, err := e.journeys.InitialState(ctx, j.ID)
		if err != nil {
			return nil, fmt.Errorf("journey %s: %w", j.ID, err)
		}
		res, err := e.enter(ctx, sess, j.ID, "", nil, initial)
		if err != nil {
			return nil, err
		}
		res.Activated = true
		e.log.Info().Str("session", sess.ID).Str("journey", j.Title).Str("state", initial.Name).
			Msg("journey activated")
		return res, nil
	}
	return &Result{}, nil
}

// errorTransition returns the configured recovery edge when the trigger is a
// failed tool result on a tool state.
func (e *Engine) errorTransition(ctx context.Context, state *domain.JourneyState, trigger *domain.Event) *domain.JourneyTransition {
	if trigger == nil || state.Type != domain.StateTool {
		return nil
	}
	result, ok := trigger.Content.(domain.ToolResult)
	if !ok || result.Status == domain.ToolResultSuccess {
		return nil
	}
	cfg, ok := state.Config.(domain.ToolConfig)
	if !ok || cfg.ErrorTransitionID == "" {
		return nil
	}
	tr, err := e.journeys.GetTransition(ctx, cfg.ErrorTransitionID)
	if err != nil {
		e.log.Error().Err(err).Str("transition", cfg.ErrorTransitionID).
			Msg("configured error transition not found")
		return nil
	}
	return tr
}

// take moves the pointer across tr and records the move.
func (e *Engine) take(ctx context.Context, sess *domain.Session, from *domain.JourneyState, tr *domain.JourneyTransition) (*Result, error) {
	to, err := e.journeys.GetState(ctx, tr.ToStateID)
	if err != nil {
		return nil, fmt.Errorf("loading destination state: %w", err)
	}
	return e.enter(ctx, sess, tr.JourneyID, from.ID, tr, to)
}

// enter writes the new pointer, appends the journey_transition event, and
// applies destination-type effects: a tool state schedules a tool_call
// event; a final state clears the pointers and marks completion.
func (e *Engine) enter(ctx context.Context, sess *domain.Session, journeyID, fromStateID string, tr *domain.JourneyTransition, to *domain.JourneyState) (*Result, error) {
	res := &Result{
		Transitioned: true,
		FromStateID:  fromStateID,
		ToStateID:    to.ID,
		ToState:      to,
	}

	jID, sID := journeyID, to.ID
	sess.CurrentJourneyID = &jID
	sess.CurrentStateID = &sID
	sess.DecisionAttempts = 0
	if err := e.sessions.SetJourneyPointer(ctx, sess.ID, &jID, &sID); err != nil {
		return nil, err
	}

	record := domain.TransitionRecord{
		JourneyID:   journeyID,
		FromStateID: fromStateID,
		ToStateID:   to.ID,
		Automatic:   true,
	}
	if tr != nil {
		record.TransitionID = tr.ID
		record.Condition = tr.ConditionLabel()
	}
	if _, err := e.events.Append(ctx, sess.ID, domain.EventJourneyTransition, record); err != nil {
		return nil, fmt.Errorf("recording transition: %w", err)
	}

	switch to.Type {
	case domain.StateTool:
		cfg := to.Config.(domain.ToolConfig)
		call := domain.ToolCall{
			CallID:    uuid.New().String(),
			ToolID:    cfg.ToolID,
			StateID:   to.ID,
			Arguments: cfg.Arguments,
		}
		if _, err := e.events.Append(ctx, sess.ID, domain.EventToolCall, call); err != nil {
			return nil, fmt.Errorf("scheduling tool call: %w", err)
		}
		res.PendingTool = &call
		res.PendingToolConfig = &cfg

	case domain.StateFinal:
		if err := e.complete(ctx, sess, journeyID); err != nil {
			return nil, err
		}
		res.Completed = true
	}

	e.log.Debug().Str("session", sess.ID).Str("from", fromStateID).Str("to", to.Name).
		Bool("completed", res.Completed).Msg("transition taken")
	return res, nil
}

// complete clears the session's pointers and increments the journey's
// completion statistics exactly once.
func (e *Engine) complete(ctx context.Context, sess *domain.Session, journeyID string) error {
	sess.CurrentJourneyID = nil
	sess.CurrentStateID = nil
	if err := e.sessions.SetJourneyPointer(ctx, sess.ID, nil, nil); err != nil {
		return err
	}
	if err := e.journeys.IncrementCompletion(ctx, journeyID); err != nil {
		return err
	}
	marker := &domain.Variable{
		WorkspaceID: sess.WorkspaceID,
		Scope:       domain.ScopeSession,
		ScopeRef:    sess.ID,
		Key:         completedMarkerPrefix + journeyID,
		Type:        domain.TypeBoolean,
		Value:       true,
	}
	return e.vars.Set(ctx, marker)
}

// decisionFallback applies the bounded stay-and-clarify policy: the session
// remains on the decision state until max_attempts unmatched evaluations,
// then it is flagged for manual intervention. It never guesses a branch and
// never loops silently.
func (e *Engine) decisionFallback(ctx context.Context, sess *domain.Session, state *domain.JourneyState) (*Result, error) {
	cfg := state.Config.(domain.DecisionConfig)
	attempts, err := e.sessions.IncrementDecisionAttempts(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	sess.DecisionAttempts = attempts
	if attempts < cfg.Attempts() {
		return &Result{}, nil
	}

	if err := e.sessions.SetNeedsAttention(ctx, sess.ID, true); err != nil {
		return nil, err
	}
	sess.NeedsAttention = true
	update := domain.StatusUpdate{
		Status:      "manual_intervention_required",
		Reason:      fmt.Sprintf("decision state %q unmatched after %d attempts", state.Name, attempts),
		TriggeredBy: domain.ParticipantSystem,
	}
	if _, err := e.events.Append(ctx, sess.ID, domain.EventStatusUpdate, update); err != nil {
		return nil, err
	}
	e.log.Warn().Str("session", sess.ID).Str("state", state.Name).Int("attempts", attempts).
		Msg("decision attempts exhausted, session flagged")
	return &Result{Escalated: true}, nil
}

// absorbEvalError records a condition failure in the event stream and leaves
// the session where it is. Only ConditionError is absorbed; anything else is
// a real fault and propagates.
func (e *Engine) absorbEvalError(ctx context.Context, sess *domain.Session, tr *domain.JourneyTransition, evalErr error) (*Result, error) {
	var condErr *domain.ConditionError
	if !errors.As(evalErr, &condErr) {
		return nil, evalErr
	}
	if tr != nil && condErr.TransitionID == "" {
		condErr.TransitionID = tr.ID
	}
	update := domain.StatusUpdate{
		Status:      "condition_evaluation_failed",
		Reason:      condErr.Error(),
		TriggeredBy: domain.ParticipantSystem,
	}
	if _, err := e.events.Append(ctx, sess.ID, domain.EventStatusUpdate, update); err != nil {
		return nil, err
	}
	e.log.Warn().Str("session", sess.ID).Err(condErr).Msg("condition evaluation failed")
	return &Result{}, nil
}
