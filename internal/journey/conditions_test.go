package journey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seamlane/journeyd/internal/domain"
)

func snapshotFixture() Snapshot {
	return NewSnapshot([]domain.Variable{
		{Scope: domain.ScopeSession, Key: "order_id", Type: domain.TypeString, Value: "ORD-42"},
		{Scope: domain.ScopeSession, Key: "verified", Type: domain.TypeBoolean, Value: true},
		{Scope: domain.ScopeSession, Key: "attempts", Type: domain.TypeNumber, Value: float64(0)},
		{Scope: domain.ScopeCustomer, Key: "tier", Type: domain.TypeString, Value: "gold"},
		{Scope: domain.ScopeGlobal, Key: "maintenance", Type: domain.TypeBoolean, Value: false},
	})
}

func messageEvent(text string) *domain.Event {
	return &domain.Event{Type: domain.EventCustomerMessage, Content: domain.CustomerMessage{Text: text}}
}

func TestEvaluateAlways(t *testing.T) {
	ok, err := evaluate(&domain.Condition{Kind: domain.CondAlways}, nil, Snapshot{})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateEventTypeIs(t *testing.T) {
	c := &domain.Condition{Kind: domain.CondEventTypeIs, EventType: domain.EventCustomerMessage}

	ok, err := evaluate(c, messageEvent("hi"), Snapshot{})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = evaluate(c, &domain.Event{Type: domain.EventStatusUpdate}, Snapshot{})
	require.NoError(t, err)
	assert.False(t, ok)

	// No trigger, no match.
	ok, err = evaluate(c, nil, Snapshot{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateTextMatchCaseInsensitive(t *testing.T) {
	c := &domain.Condition{Kind: domain.CondEventTextMatches, Pattern: "refund"}

	ok, err := evaluate(c, messageEvent("I want a REFUND now"), Snapshot{})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = evaluate(c, messageEvent("where is my order"), Snapshot{})
	require.NoError(t, err)
	assert.False(t, ok)

	// Non-message events have no text.
	ok, err = evaluate(c, &domain.Event{Type: domain.EventStatusUpdate}, Snapshot{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateVariableEquals(t *testing.T) {
	vars := snapshotFixture()

	ok, err := evaluate(&domain.Condition{
		Kind: domain.CondVariableEquals, Variable: "order_id", Value: "ORD-42",
	}, nil, vars)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = evaluate(&domain.Condition{
		Kind: domain.CondVariableEquals, Scope: domain.ScopeCustomer, Variable: "tier", Value: "silver",
	}, nil, vars)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateVariableEqualsNumericNormalization(t *testing.T) {
	// A YAML int literal must equal the stored float64.
	ok, err := evaluate(&domain.Condition{
		Kind: domain.CondVariableEquals, Variable: "attempts", Value: 0,
	}, nil, snapshotFixture())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateAbsentVariableIsError(t *testing.T) {
	_, err := evaluate(&domain.Condition{
		Kind: domain.CondVariableEquals, Variable: "missing", Value: "x",
	}, nil, snapshotFixture())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConditionEvaluation)
}

func TestEvaluateExistsTreatsAbsenceAsFalse(t *testing.T) {
	vars := snapshotFixture()

	ok, err := evaluate(&domain.Condition{Kind: domain.CondVariableExists, Variable: "order_id"}, nil, vars)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = evaluate(&domain.Condition{Kind: domain.CondVariableExists, Variable: "missing"}, nil, vars)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateTruthy(t *testing.T) {
	vars := snapshotFixture()

	ok, err := evaluate(&domain.Condition{Kind: domain.CondVariableTruthy, Variable: "verified"}, nil, vars)
	require.NoError(t, err)
	assert.True(t, ok)

	// Zero number is falsy.
	ok, err = evaluate(&domain.Condition{Kind: domain.CondVariableTruthy, Variable: "attempts"}, nil, vars)
	require.NoError(t, err)
	assert.False(t, ok)

	// Absent is falsy, not an error.
	ok, err = evaluate(&domain.Condition{Kind: domain.CondVariableTruthy, Variable: "missing"}, nil, vars)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateCombinators(t *testing.T) {
	vars := snapshotFixture()
	trigger := messageEvent("my order is missing")

	all := &domain.Condition{Kind: domain.CondAll, Conditions: []domain.Condition{
		{Kind: domain.CondEventTextMatches, Pattern: "order"},
		{Kind: domain.CondVariableExists, Variable: "order_id"},
	}}
	ok, err := evaluate(all, trigger, vars)
	require.NoError(t, err)
	assert.True(t, ok)

	anyOf := &domain.Condition{Kind: domain.CondAny, Conditions: []domain.Condition{
		{Kind: domain.CondEventTextMatches, Pattern: "refund"},
		{Kind: domain.CondVariableTruthy, Variable: "verified"},
	}}
	ok, err = evaluate(anyOf, trigger, vars)
	require.NoError(t, err)
	assert.True(t, ok)

	not := &domain.Condition{Kind: domain.CondNot, Conditions: []domain.Condition{
		{Kind: domain.CondVariableTruthy, Variable: "maintenance", Scope: domain.ScopeGlobal},
	}}
	ok, err = evaluate(not, trigger, vars)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateCombinatorPropagatesError(t *testing.T) {
	c := &domain.Condition{Kind: domain.CondAll, Conditions: []domain.Condition{
		{Kind: domain.CondAlways},
		{Kind: domain.CondVariableEquals, Variable: "missing", Value: 1},
	}}
	_, err := evaluate(c, nil, snapshotFixture())
	assert.ErrorIs(t, err, domain.ErrConditionEvaluation)
}

func TestEvaluateDeterministic(t *testing.T) {
	c := &domain.Condition{Kind: domain.CondAll, Conditions: []domain.Condition{
		{Kind: domain.CondEventTextMatches, Pattern: `order #\d+`},
		{Kind: domain.CondVariableEquals, Scope: domain.ScopeCustomer, Variable: "tier", Value: "gold"},
	}}
	trigger := messageEvent("about order #7")
	vars := snapshotFixture()

	for i := 0; i < 10; i++ {
		ok, err := evaluate(c, trigger, vars)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestCompilePatternCached(t *testing.T) {
	re1, err := compilePattern(`order #\d+`)
	require.NoError(t, err)
	re2, err := compilePattern(`order #\d+`)
	require.NoError(t, err)
	assert.Same(t, re1, re2)

	// Case-insensitivity is baked into the cached program.
	assert.True(t, re1.MatchString("Order #12"))

	_, err = compilePattern("(")
	require.Error(t, err)
}

func TestTruthySemantics(t *testing.T) {
	assert.False(t, truthy(nil))
	assert.False(t, truthy(false))
	assert.False(t, truthy(""))
	assert.False(t, truthy(float64(0)))
	assert.False(t, truthy(map[string]any{}))
	assert.False(t, truthy([]any{}))
	assert.True(t, truthy(true))
	assert.True(t, truthy("x"))
	assert.True(t, truthy(float64(1)))
	assert.True(t, truthy([]any{1}))
}
