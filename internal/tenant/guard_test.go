package tenant

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seamlane/journeyd/internal/domain"
	"github.com/seamlane/journeyd/internal/logging"
)

func newGuard() *Guard {
	return NewGuard(logging.Nop())
}

func TestCheckWorkspaceRequired(t *testing.T) {
	err := newGuard().CheckWorkspace("")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.NoError(t, newGuard().CheckWorkspace("ws-a"))
}

func TestCheckAgent(t *testing.T) {
	g := newGuard()
	agent := &domain.Agent{ID: "a1", WorkspaceID: "ws-a"}

	assert.NoError(t, g.CheckAgent("ws-a", agent))

	err := g.CheckAgent("ws-b", agent)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	var denied *domain.AccessDeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, "ws-b", denied.WorkspaceID)
	assert.Equal(t, "agent", denied.Entity)
}

func TestCheckSessionDoubleCheck(t *testing.T) {
	g := newGuard()
	sess := &domain.Session{ID: "s1", WorkspaceID: "ws-a"}
	agent := &domain.Agent{ID: "a1", WorkspaceID: "ws-a"}

	assert.NoError(t, g.CheckSession("ws-a", sess, agent))

	// Session mismatch.
	assert.ErrorIs(t, g.CheckSession("ws-b", sess, agent), domain.ErrAccessDenied)

	// The second check catches a session row whose workspace drifted from
	// its agent's.
	drifted := &domain.Agent{ID: "a1", WorkspaceID: "ws-b"}
	assert.ErrorIs(t, g.CheckSession("ws-a", sess, drifted), domain.ErrAccessDenied)
}

func TestCheckToolRead(t *testing.T) {
	g := newGuard()
	private := &domain.Tool{ID: "t1", WorkspaceID: "ws-a"}
	public := &domain.Tool{ID: "t2", WorkspaceID: "ws-a", IsPublic: true}

	assert.NoError(t, g.CheckToolRead("ws-a", private))
	assert.ErrorIs(t, g.CheckToolRead("ws-b", private), domain.ErrAccessDenied)

	// Public tools are readable from any workspace.
	assert.NoError(t, g.CheckToolRead("ws-b", public))
}

func TestCheckToolWriteNeverCrossesWorkspaces(t *testing.T) {
	g := newGuard()
	public := &domain.Tool{ID: "t2", WorkspaceID: "ws-a", IsPublic: true}

	assert.NoError(t, g.CheckToolWrite("ws-a", public))
	assert.ErrorIs(t, g.CheckToolWrite("ws-b", public), domain.ErrAccessDenied)
}

func TestCheckToolAssignment(t *testing.T) {
	g := newGuard()
	agent := &domain.Agent{ID: "a1", WorkspaceID: "ws-a"}

	assert.NoError(t, g.CheckToolAssignment(agent, &domain.Tool{ID: "t1", WorkspaceID: "ws-a"}))
	assert.NoError(t, g.CheckToolAssignment(agent, &domain.Tool{ID: "t2", WorkspaceID: "ws-b", IsPublic: true}))
	assert.ErrorIs(t, g.CheckToolAssignment(agent, &domain.Tool{ID: "t3", WorkspaceID: "ws-b"}), domain.ErrAccessDenied)
}

func TestCheckVariable(t *testing.T) {
	g := newGuard()
	v := &domain.Variable{ID: "v1", WorkspaceID: "ws-a", Key: "k"}

	assert.NoError(t, g.CheckVariable("ws-a", v))
	assert.ErrorIs(t, g.CheckVariable("ws-b", v), domain.ErrAccessDenied)
}
