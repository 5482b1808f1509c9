package config

import (
	"time"

	"github.com/seamlane/journeyd/internal/domain"
)

// Config is the root configuration for journeyd.
type Config struct {
	Database DatabaseConfig `yaml:"database,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
	Session  SessionConfig  `yaml:"session,omitempty"`
	Seed     SeedConfig     `yaml:"seed,omitempty"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `yaml:"path,omitempty"` // file path, or ":memory:"
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // trace|debug|info|warn|error|fatal|silent
}

// SessionConfig tunes session lifecycle behavior.
type SessionConfig struct {
	// ClearVariablesOnEnd destroys session-scope variables when a session
	// ends. Defaults to true; set false to let the retention sweep handle it.
	ClearVariablesOnEnd *bool `yaml:"clearVariablesOnEnd,omitempty"`

	// RetainEventsForDays keeps events of ended sessions for this many days
	// before the retention sweep purges them. Zero means keep forever.
	RetainEventsForDays int `yaml:"retainEventsForDays,omitempty"`

	// ToolTimeoutSeconds bounds tool executions whose state config does not
	// set its own timeout.
	ToolTimeoutSeconds int `yaml:"toolTimeoutSeconds,omitempty"`

	// AppendRetries caps internal retries on offset conflicts.
	AppendRetries int `yaml:"appendRetries,omitempty"`
}

// ClearVariables resolves the ClearVariablesOnEnd default.
func (s SessionConfig) ClearVariables() bool {
	if s.ClearVariablesOnEnd == nil {
		return true
	}
	return *s.ClearVariablesOnEnd
}

// ToolTimeout resolves the default tool execution timeout.
func (s SessionConfig) ToolTimeout() time.Duration {
	if s.ToolTimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(s.ToolTimeoutSeconds) * time.Second
}

// EventRetention returns the retention window for ended sessions' events, or
// 0 when events are kept forever.
func (s SessionConfig) EventRetention() time.Duration {
	return time.Duration(s.RetainEventsForDays) * 24 * time.Hour
}

// Retries resolves the append retry cap.
func (s SessionConfig) Retries() int {
	if s.AppendRetries <= 0 {
		return 3
	}
	return s.AppendRetries
}

// SeedConfig declares workspaces, agents, tools and journeys to be applied to
// the store with `journeyd apply`.
type SeedConfig struct {
	Workspaces []WorkspaceSeed `yaml:"workspaces,omitempty"`
}

// WorkspaceSeed declares one workspace and its contents.
type WorkspaceSeed struct {
	ID     string      `yaml:"id"`
	Tools  []ToolSeed  `yaml:"tools,omitempty"`
	Agents []AgentSeed `yaml:"agents,omitempty"`
}

// ToolSeed declares a workspace tool.
type ToolSeed struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Public      bool   `yaml:"public,omitempty"`
}

// AgentSeed declares an agent, its guidelines, tool assignments (by tool
// name) and journeys.
type AgentSeed struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description,omitempty"`
	Tools       []string        `yaml:"tools,omitempty"`
	Guidelines  []GuidelineSeed `yaml:"guidelines,omitempty"`
	Journeys    []JourneySeed   `yaml:"journeys,omitempty"`
}

// GuidelineSeed declares a guideline.
type GuidelineSeed struct {
	Condition string `yaml:"condition"`
	Action    string `yaml:"action"`
}

// JourneySeed declares a journey graph. States and transitions reference each
// other by state name; ids are assigned at apply time.
type JourneySeed struct {
	Title           string             `yaml:"title"`
	Description     string             `yaml:"description,omitempty"`
	Conditions      []domain.Condition `yaml:"conditions,omitempty"`
	AllowSkipping   bool               `yaml:"allowSkipping,omitempty"`
	AllowRevisiting bool               `yaml:"allowRevisiting,omitempty"`
	States          []StateSeed        `yaml:"states"`
	Transitions     []TransitionSeed   `yaml:"transitions"`
}

// StateSeed declares a journey state. Exactly the fields for its type are
// meaningful: prompt for chat, tool/timeout for tool, maxAttempts/prompt for
// decision, nothing for final.
type StateSeed struct {
	Name           string `yaml:"name"`
	Type           string `yaml:"type"` // chat|tool|decision|final
	Initial        bool   `yaml:"initial,omitempty"`
	Prompt         string `yaml:"prompt,omitempty"`
	Tool           string `yaml:"tool,omitempty"` // tool name within the workspace
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty"`
	MaxAttempts    int    `yaml:"maxAttempts,omitempty"`
}

// TransitionSeed declares a transition between two named states. OnError
// marks the edge a tool state takes when its execution fails or times out.
type TransitionSeed struct {
	From      string            `yaml:"from"`
	To        string            `yaml:"to"`
	Priority  int               `yaml:"priority"`
	Condition *domain.Condition `yaml:"condition,omitempty"`
	OnError   bool              `yaml:"onError,omitempty"`
}
