// Package session owns the session lifecycle and serializes all mutation of
// one session behind a per-session exclusive token. Different sessions
// process fully in parallel; within a session, event append, journey
// evaluation and variable writes triggered by one activity form one atomic
// step.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/seamlane/journeyd/internal/config"
	"github.com/seamlane/journeyd/internal/domain"
	"github.com/seamlane/journeyd/internal/journey"
	"github.com/seamlane/journeyd/internal/logging"
	"github.com/seamlane/journeyd/internal/store"
	"github.com/seamlane/journeyd/internal/tenant"
)

// Coordinator is the storage-backed API the agent runtime consumes. Every
// operation takes the caller's verified workspace id and routes it through
// the tenant guard before touching anything.
type Coordinator struct {
	cfg      config.SessionConfig
	agents   *store.AgentStore
	sessions *store.SessionStore
	events   *store.EventStore
	vars     *store.VariableStore
	guard    *tenant.Guard
	engine   *journey.Engine
	runner   ToolRunner

	locks *lockTable
	wg    sync.WaitGroup
	log   *logging.Logger
}

// NewCoordinator wires the coordinator. runner may be nil when no tool
// execution collaborator is attached; tool states then stay pending until
// the runtime appends the tool_result itself.
func NewCoordinator(
	cfg config.SessionConfig,
	agents *store.AgentStore,
	sessions *store.SessionStore,
	events *store.EventStore,
	vars *store.VariableStore,
	guard *tenant.Guard,
	engine *journey.Engine,
	runner ToolRunner,
	log *logging.Logger,
) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		agents:   agents,
		sessions: sessions,
		events:   events,
		vars:     vars,
		guard:    guard,
		engine:   engine,
		runner:   runner,
		locks:    newLockTable(),
		log:      log.Sub("session"),
	}
}

// CreateSession opens a new active session for an agent. The session's
// workspace is asserted equal to the agent's before the insert.
func (c *Coordinator) CreateSession(ctx context.Context, agentID, workspaceID, customerID string, initiator domain.Participant) (*domain.Session, error) {
	if err := c.guard.CheckWorkspace(workspaceID); err != nil {
		return nil, err
	}
	agent, err := c.agents.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if agent.Deleted() {
		return nil, domain.ErrNotFound
	}
	if err := c.guard.CheckSessionAgent(workspaceID, agent); err != nil {
		return nil, err
	}

	sess := &domain.Session{
		WorkspaceID: workspaceID,
		AgentID:     agentID,
		CustomerID:  customerID,
		Initiator:   initiator,
	}
	if err := c.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	c.log.Info().Str("session", sess.ID).Str("agent", agentID).Str("workspace", workspaceID).
		Msg("session created")
	return sess, nil
}

// AppendEvent validates and appends one event under the session's exclusive
// token, then runs a journey evaluation step with the new event as trigger.
// Returns SessionClosed for non-active sessions and AccessDenied on any
// workspace mismatch; neither leaves a trace in the log.
func (c *Coordinator) AppendEvent(ctx context.Context, sessionID, workspaceID string, t domain.EventType, content domain.EventContent) (*domain.Event, *journey.Result, error) {
	lock := c.locks.get(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := c.checkedSession(ctx, sessionID, workspaceID)
	if err != nil {
		return nil, nil, err
	}
	if sess.Status != domain.SessionActive {
		return nil, nil, &domain.SessionClosedError{SessionID: sessionID, Status: sess.Status}
	}

	ev, err := c.appendWithRetry(ctx, sessionID, t, content)
	if err != nil {
		return nil, nil, err
	}

	res, err := c.engine.Advance(ctx, sess, ev)
	if err != nil {
		return ev, nil, err
	}
	c.maybeDispatchTool(sess, res)
	return ev, res, nil
}

// ReadEvents returns up to limit events starting at fromOffset, in offset
// order. Restart with the last offset + 1 to continue.
func (c *Coordinator) ReadEvents(ctx context.Context, sessionID, workspaceID string, fromOffset int64, limit int) ([]domain.Event, error) {
	if _, err := c.checkedSession(ctx, sessionID, workspaceID); err != nil {
		return nil, err
	}
	return c.events.ReadRange(ctx, sessionID, fromOffset, limit)
}

// AdvanceJourney re-runs a journey evaluation step using the session's last
// event as trigger. The runtime calls this to re-drive a session; the same
// step also runs automatically after every append.
func (c *Coordinator) AdvanceJourney(ctx context.Context, sessionID, workspaceID string) (*journey.Result, error) {
	lock := c.locks.get(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := c.checkedSession(ctx, sessionID, workspaceID)
	if err != nil {
		return nil, err
	}
	if sess.Status != domain.SessionActive {
		return nil, &domain.SessionClosedError{SessionID: sessionID, Status: sess.Status}
	}

	trigger, err := c.events.Last(ctx, sessionID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	res, err := c.engine.Advance(ctx, sess, trigger)
	if err != nil {
		return nil, err
	}
	c.maybeDispatchTool(sess, res)
	return res, nil
}

// SetVariable writes a scoped variable. Session-scope writes run under the
// session's token, are recorded as variable_update events, and trigger a
// journey evaluation step, since a fresh value may satisfy a pending
// decision.
func (c *Coordinator) SetVariable(ctx context.Context, workspaceID string, scope domain.VariableScope, scopeRef, key string, value any, valueType domain.ValueType) error {
	if err := c.guard.CheckWorkspace(workspaceID); err != nil {
		return err
	}

	v := &domain.Variable{
		WorkspaceID: workspaceID,
		Scope:       scope,
		ScopeRef:    scopeRef,
		Key:         key,
		Type:        valueType,
		Value:       value,
	}

	if scope != domain.ScopeSession {
		return c.vars.Set(ctx, v)
	}

	lock := c.locks.get(scopeRef)
	lock.Lock()
	defer lock.Unlock()

	sess, err := c.checkedSession(ctx, scopeRef, workspaceID)
	if err != nil {
		return err
	}
	if sess.Status != domain.SessionActive {
		return &domain.SessionClosedError{SessionID: scopeRef, Status: sess.Status}
	}
	if err := c.vars.Set(ctx, v); err != nil {
		return err
	}

	ev, err := c.appendWithRetry(ctx, sess.ID, domain.EventVariableUpdate,
		domain.VariableUpdate{Scope: scope, Key: key, Type: valueType})
	if err != nil {
		return err
	}
	res, err := c.engine.Advance(ctx, sess, ev)
	if err != nil {
		return err
	}
	c.maybeDispatchTool(sess, res)
	return nil
}

// GetVariable reads a scoped variable, or ErrNotFound when absent.
func (c *Coordinator) GetVariable(ctx context.Context, workspaceID string, scope domain.VariableScope, scopeRef, key string) (*domain.Variable, error) {
	if err := c.guard.CheckWorkspace(workspaceID); err != nil {
		return nil, err
	}
	if scope == domain.ScopeSession {
		if _, err := c.checkedSession(ctx, scopeRef, workspaceID); err != nil {
			return nil, err
		}
	}
	v, err := c.vars.Get(ctx, workspaceID, scope, scopeRef, key)
	if err != nil {
		return nil, err
	}
	if err := c.guard.CheckVariable(workspaceID, v); err != nil {
		return nil, err
	}
	return v, nil
}

// EndSession moves an active session to completed or abandoned. The end is
// recorded as a final status_update event before the status flips; once
// non-active, every later append is rejected with SessionClosed. Session
// scope variables are destroyed unless retention config says otherwise.
func (c *Coordinator) EndSession(ctx context.Context, sessionID, workspaceID string, reason domain.SessionStatus) error {
	if !reason.Terminal() {
		return &domain.ValidationError{Field: "reason", Reason: fmt.Sprintf("%q is not a terminal status", reason)}
	}

	lock := c.locks.get(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := c.checkedSession(ctx, sessionID, workspaceID)
	if err != nil {
		return err
	}
	if sess.Status != domain.SessionActive {
		return &domain.SessionClosedError{SessionID: sessionID, Status: sess.Status}
	}

	if _, err := c.appendWithRetry(ctx, sessionID, domain.EventStatusUpdate, domain.StatusUpdate{
		Status:      "session_" + string(reason),
		TriggeredBy: domain.ParticipantSystem,
	}); err != nil {
		return err
	}
	if err := c.sessions.End(ctx, sessionID, reason); err != nil {
		return err
	}
	if c.cfg.ClearVariables() {
		if _, err := c.vars.DeleteSessionScope(ctx, workspaceID, sessionID); err != nil {
			return err
		}
	}
	c.log.Info().Str("session", sessionID).Str("reason", string(reason)).Msg("session ended")
	return nil
}

// Wait blocks until in-flight tool dispatches have finished. Used at
// shutdown and in tests.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// checkedSession loads the session and its agent and runs the workspace
// double check.
func (c *Coordinator) checkedSession(ctx context.Context, sessionID, workspaceID string) (*domain.Session, error) {
	if err := c.guard.CheckWorkspace(workspaceID); err != nil {
		return nil, err
	}
	sess, err := c.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	agent, err := c.agents.Get(ctx, sess.AgentID)
	if err != nil {
		return nil, err
	}
	if err := c.guard.CheckSession(workspaceID, sess, agent); err != nil {
		return nil, err
	}
	return sess, nil
}

// appendWithRetry appends one event, retrying offset conflicts a small
// bounded number of times. Conflicts should be structurally impossible while
// holding the session token; the retry is a defensive backstop, and
// exhaustion surfaces as a transient internal error.
func (c *Coordinator) appendWithRetry(ctx context.Context, sessionID string, t domain.EventType, content domain.EventContent) (*domain.Event, error) {
	retries := c.cfg.Retries()
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		ev, err := c.events.Append(ctx, sessionID, t, content)
		if err == nil {
			return ev, nil
		}
		if !errors.Is(err, domain.ErrOffsetConflict) {
			return nil, err
		}
		lastErr = err
		c.log.Warn().Str("session", sessionID).Int("attempt", attempt+1).Err(err).
			Msg("offset conflict, retrying append")
	}
	return nil, fmt.Errorf("%w: append failed after %d offset conflicts: %v", domain.ErrInternal, retries+1, lastErr)
}
