package config

import (
	"fmt"

	"github.com/seamlane/journeyd/internal/domain"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (i ValidationIssue) String() string {
	return i.Path + ": " + i.Message
}

// Validate checks the configuration, most importantly the seed definitions:
// state types, type-matched state fields, exactly one initial state per
// journey, transitions that reference declared states, and tool assignments
// that reference declared tools.
func Validate(cfg Config) []ValidationIssue {
	var issues []ValidationIssue
	add := func(path, format string, args ...any) {
		issues = append(issues, ValidationIssue{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	switch cfg.Logging.Level {
	case "", "trace", "debug", "info", "warn", "error", "fatal", "silent":
	default:
		add("logging.level", "unknown level %q", cfg.Logging.Level)
	}
	if cfg.Session.ToolTimeoutSeconds < 0 {
		add("session.toolTimeoutSeconds", "must be non-negative")
	}
	if cfg.Session.RetainEventsForDays < 0 {
		add("session.retainEventsForDays", "must be non-negative")
	}

	seenWS := map[string]bool{}
	for wi, ws := range cfg.Seed.Workspaces {
		wsPath := fmt.Sprintf("seed.workspaces[%d]", wi)
		if ws.ID == "" {
			add(wsPath+".id", "workspace id is required")
			continue
		}
		if seenWS[ws.ID] {
			add(wsPath+".id", "duplicate workspace id %q", ws.ID)
		}
		seenWS[ws.ID] = true

		toolNames := map[string]bool{}
		for ti, tool := range ws.Tools {
			tPath := fmt.Sprintf("%s.tools[%d]", wsPath, ti)
			if tool.Name == "" {
				add(tPath+".name", "tool name is required")
				continue
			}
			if toolNames[tool.Name] {
				add(tPath+".name", "duplicate tool name %q", tool.Name)
			}
			toolNames[tool.Name] = true
		}

		for ai, agent := range ws.Agents {
			aPath := fmt.Sprintf("%s.agents[%d]", wsPath, ai)
			if agent.Name == "" {
				add(aPath+".name", "agent name is required")
			}
			for _, name := range agent.Tools {
				if !toolNames[name] {
					add(aPath+".tools", "unknown tool %q", name)
				}
			}
			for gi, g := range agent.Guidelines {
				if g.Condition == "" || g.Action == "" {
					add(fmt.Sprintf("%s.guidelines[%d]", aPath, gi), "condition and action are required")
				}
			}
			for ji, j := range agent.Journeys {
				validateJourneySeed(fmt.Sprintf("%s.journeys[%d]", aPath, ji), j, toolNames, add)
			}
		}
	}

	return issues
}

func validateJourneySeed(path string, j JourneySeed, toolNames map[string]bool, add func(string, string, ...any)) {
	if j.Title == "" {
		add(path+".title", "journey title is required")
	}
	for ci := range j.Conditions {
		if err := j.Conditions[ci].Validate(); err != nil {
			add(fmt.Sprintf("%s.conditions[%d]", path, ci), "%v", err)
		}
	}

	stateNames := map[string]string{} // name -> type
	initial := 0
	finals := 0
	for si, s := range j.States {
		sPath := fmt.Sprintf("%s.states[%d]", path, si)
		if s.Name == "" {
			add(sPath+".name", "state name is required")
			continue
		}
		if _, dup := stateNames[s.Name]; dup {
			add(sPath+".name", "duplicate state name %q", s.Name)
		}
		stateNames[s.Name] = s.Type
		if s.Initial {
			initial++
		}

		switch domain.StateType(s.Type) {
		case domain.StateChat:
			if s.Prompt == "" {
				add(sPath+".prompt", "chat state requires a prompt")
			}
		case domain.StateTool:
			if s.Tool == "" {
				add(sPath+".tool", "tool state requires a tool reference")
			} else if !toolNames[s.Tool] {
				add(sPath+".tool", "unknown tool %q", s.Tool)
			}
		case domain.StateDecision:
			if s.MaxAttempts < 0 {
				add(sPath+".maxAttempts", "must be non-negative")
			}
		case domain.StateFinal:
			finals++
		default:
			add(sPath+".type", "unknown state type %q", s.Type)
		}
	}
	if initial != 1 {
		add(path+".states", "journey must have exactly one initial state, has %d", initial)
	}
	if finals == 0 {
		add(path+".states", "journey must have at least one final state")
	}

	for ti, t := range j.Transitions {
		tPath := fmt.Sprintf("%s.transitions[%d]", path, ti)
		if _, ok := stateNames[t.From]; !ok {
			add(tPath+".from", "unknown state %q", t.From)
		}
		if _, ok := stateNames[t.To]; !ok {
			add(tPath+".to", "unknown state %q", t.To)
		}
		if stateNames[t.From] == string(domain.StateFinal) {
			add(tPath+".from", "transition cannot leave a final state")
		}
		if t.OnError && stateNames[t.From] != string(domain.StateTool) {
			add(tPath+".onError", "onError is only valid on transitions leaving a tool state")
		}
		if t.Condition != nil {
			if err := t.Condition.Validate(); err != nil {
				add(tPath+".condition", "%v", err)
			}
		}
	}
}
