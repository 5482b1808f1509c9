// Package journey implements the state-machine engine that moves a
// session's execution pointer through a journey graph. Transitions are
// evaluated against the triggering event and a consistent variable snapshot,
// in explicit priority order.
package journey

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"

	"github.com/seamlane/journeyd/internal/domain"
)

// patternCache memoizes compiled guard patterns across advance steps. The
// set of patterns is bounded by the seeded journey definitions.
var patternCache sync.Map // pattern -> *regexp.Regexp

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if cached, ok := patternCache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, err
	}
	patternCache.Store(pattern, re)
	return re, nil
}

type varKey struct {
	scope domain.VariableScope
	key   string
}

// Snapshot is the variable view one advance step evaluates against. It is
// taken once per step so every transition of that step sees the same values.
type Snapshot struct {
	vars map[varKey]domain.Variable
}

// NewSnapshot indexes the given variables by scope and key.
func NewSnapshot(vars []domain.Variable) Snapshot {
	m := make(map[varKey]domain.Variable, len(vars))
	for _, v := range vars {
		m[varKey{scope: v.Scope, key: v.Key}] = v
	}
	return Snapshot{vars: m}
}

// Lookup returns the variable for (scope, key) if present.
func (s Snapshot) Lookup(scope domain.VariableScope, key string) (domain.Variable, bool) {
	v, ok := s.vars[varKey{scope: scope, key: key}]
	return v, ok
}

// evaluate decides whether a guard condition holds for the triggering event
// and variable snapshot. Evaluation is deterministic: fixed inputs always
// produce the same outcome. Referencing an absent variable in an equality
// check is an evaluation error; existence and truthiness checks treat
// absence as false.
func evaluate(c *domain.Condition, trigger *domain.Event, vars Snapshot) (bool, error) {
	switch c.Kind {
	case domain.CondAlways:
		return true, nil

	case domain.CondEventTypeIs:
		return trigger != nil && trigger.Type == c.EventType, nil

	case domain.CondEventTextMatches:
		if trigger == nil {
			return false, nil
		}
		text := trigger.MessageText()
		if text == "" {
			return false, nil
		}
		re, err := compilePattern(c.Pattern)
		if err != nil {
			return false, &domain.ConditionError{Reason: fmt.Sprintf("invalid pattern %q: %v", c.Pattern, err)}
		}
		return re.MatchString(text), nil

	case domain.CondVariableEquals:
		v, ok := vars.Lookup(c.VariableScopeOrDefault(), c.Variable)
		if !ok {
			return false, &domain.ConditionError{
				Reason: fmt.Sprintf("variable %s.%s is not defined", c.VariableScopeOrDefault(), c.Variable),
			}
		}
		return valuesEqual(v.Value, c.Value), nil

	case domain.CondVariableExists:
		_, ok := vars.Lookup(c.VariableScopeOrDefault(), c.Variable)
		return ok, nil

	case domain.CondVariableTruthy:
		v, ok := vars.Lookup(c.VariableScopeOrDefault(), c.Variable)
		if !ok {
			return false, nil
		}
		return truthy(v.Value), nil

	case domain.CondNot:
		ok, err := evaluate(&c.Conditions[0], trigger, vars)
		if err != nil {
			return false, err
		}
		return !ok, nil

	case domain.CondAll:
		for i := range c.Conditions {
			ok, err := evaluate(&c.Conditions[i], trigger, vars)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil

	case domain.CondAny:
		for i := range c.Conditions {
			ok, err := evaluate(&c.Conditions[i], trigger, vars)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
	return false, &domain.ConditionError{Reason: fmt.Sprintf("unknown condition kind %q", c.Kind)}
}

// valuesEqual compares two values through their canonical JSON encoding,
// which normalizes numeric representations (int 1 from YAML equals float64 1
// from JSON).
func valuesEqual(a, b any) bool {
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(aj, bj)
}

// truthy follows JSON-value semantics: false, 0, "", null, and empty
// objects/arrays are falsy.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case float64:
		return val != 0
	case int:
		return val != 0
	case int64:
		return val != 0
	case json.Number:
		f, err := val.Float64()
		return err == nil && f != 0
	case map[string]any:
		return len(val) > 0
	case []any:
		return len(val) > 0
	}
	return true
}
