package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seamlane/journeyd/internal/domain"
)

func TestVariableSetGetRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	vars := NewVariableStore(db)

	v := &domain.Variable{
		WorkspaceID: "ws-a",
		Scope:       domain.ScopeSession,
		ScopeRef:    "sess-1",
		Key:         "order_id",
		Type:        domain.TypeString,
		Value:       "ORD-42",
	}
	require.NoError(t, vars.Set(ctx, v))

	got, err := vars.Get(ctx, "ws-a", domain.ScopeSession, "sess-1", "order_id")
	require.NoError(t, err)
	assert.Equal(t, "ORD-42", got.Value)
	assert.Equal(t, domain.TypeString, got.Type)
}

func TestVariableTypeGuard(t *testing.T) {
	db := testDB(t)
	vars := NewVariableStore(db)

	err := vars.Set(context.Background(), &domain.Variable{
		WorkspaceID: "ws-a",
		Scope:       domain.ScopeGlobal,
		Key:         "retries",
		Type:        domain.TypeNumber,
		Value:       "three",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestVariableScopeRefRules(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	vars := NewVariableStore(db)

	// Session scope needs a reference.
	err := vars.Set(ctx, &domain.Variable{
		WorkspaceID: "ws-a", Scope: domain.ScopeSession, Key: "k",
		Type: domain.TypeString, Value: "v",
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	// Global scope takes none.
	err = vars.Set(ctx, &domain.Variable{
		WorkspaceID: "ws-a", Scope: domain.ScopeGlobal, ScopeRef: "x", Key: "k",
		Type: domain.TypeString, Value: "v",
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestVariableUpsertLastWriterWins(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	vars := NewVariableStore(db)

	write := func(value any, typ domain.ValueType) {
		t.Helper()
		require.NoError(t, vars.Set(ctx, &domain.Variable{
			WorkspaceID: "ws-a", Scope: domain.ScopeCustomer, ScopeRef: "cust-1",
			Key: "tier", Type: typ, Value: value,
		}))
	}
	write("silver", domain.TypeString)
	write("gold", domain.TypeString)

	got, err := vars.Get(ctx, "ws-a", domain.ScopeCustomer, "cust-1", "tier")
	require.NoError(t, err)
	assert.Equal(t, "gold", got.Value)
}

func TestVariableGetNotFound(t *testing.T) {
	db := testDB(t)
	_, err := NewVariableStore(db).Get(context.Background(), "ws-a", domain.ScopeGlobal, "", "absent")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSnapshotVisibility(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	vars := NewVariableStore(db)

	set := func(scope domain.VariableScope, ref, key string) {
		t.Helper()
		require.NoError(t, vars.Set(ctx, &domain.Variable{
			WorkspaceID: "ws-a", Scope: scope, ScopeRef: ref, Key: key,
			Type: domain.TypeBoolean, Value: true,
		}))
	}
	set(domain.ScopeSession, "sess-1", "own")
	set(domain.ScopeSession, "sess-2", "other_session")
	set(domain.ScopeCustomer, "cust-1", "customer")
	set(domain.ScopeCustomer, "cust-2", "other_customer")
	set(domain.ScopeGlobal, "", "global")

	snap, err := vars.Snapshot(ctx, "ws-a", "sess-1", "cust-1")
	require.NoError(t, err)

	keys := make([]string, 0, len(snap))
	for _, v := range snap {
		keys = append(keys, v.Key)
	}
	assert.ElementsMatch(t, []string{"own", "customer", "global"}, keys)
}

func TestDeleteSessionScope(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	vars := NewVariableStore(db)

	for _, key := range []string{"a", "b"} {
		require.NoError(t, vars.Set(ctx, &domain.Variable{
			WorkspaceID: "ws-a", Scope: domain.ScopeSession, ScopeRef: "sess-1",
			Key: key, Type: domain.TypeString, Value: "v",
		}))
	}
	require.NoError(t, vars.Set(ctx, &domain.Variable{
		WorkspaceID: "ws-a", Scope: domain.ScopeCustomer, ScopeRef: "cust-1",
		Key: "keep", Type: domain.TypeString, Value: "v",
	}))

	n, err := vars.DeleteSessionScope(ctx, "ws-a", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = vars.Get(ctx, "ws-a", domain.ScopeSession, "sess-1", "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = vars.Get(ctx, "ws-a", domain.ScopeCustomer, "cust-1", "keep")
	assert.NoError(t, err)
}
