// Package agent defines the Agent domain entity.
package agent

import "time"

// Config is the user-authored agent configuration. It is immutable once
// passed into an execution; only the owning UI layer mutates it between runs.
type Config struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Model        string   `json:"model"`
	SystemPrompt string   `json:"system_prompt"`
	Temperature  float64  `json:"temperature"`
	MaxTokens    int      `json:"max_tokens"`
	EnabledTools []string `json:"enabled_tools"`
}

// Agent is a runtime instance holding a config snapshot taken at creation
// time. Agents live for the process lifetime; they are never destroyed.
type Agent struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Config    Config    `json:"config"`
	CreatedAt time.Time `json:"created_at"`
}
