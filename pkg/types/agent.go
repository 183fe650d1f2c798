// Package types defines the shared domain types for the agent bridge:
// agents, messages, file locks, and memories. These types are transport
// neutral — the CLI, the MCP server, and the storage layer all exchange them.
package types

import "time"

// Agent statuses. Status is free text at the storage layer; these are the
// values the bridge itself writes.
const (
	AgentStatusActive = "active"
)

// Agent is a registered coordination participant. Agents are identified by
// name and are never hard-deleted; LastSeen is bumped on every operation the
// agent performs through the bridge.
type Agent struct {
	// Name uniquely identifies the agent (e.g. "claude-1", "opencode-1").
	Name string `json:"name"`

	// Program is the client identity the agent declared at registration
	// (e.g. "claude-code", "opencode").
	Program string `json:"program,omitempty"`

	// Model is the model identity the agent declared at registration.
	Model string `json:"model,omitempty"`

	// Task is a free-text description of what the agent is currently doing.
	Task string `json:"task,omitempty"`

	// Status is a free-text status flag (defaults to "active").
	Status string `json:"status"`

	// LastSeen is updated on registration and on every subsequent call the
	// agent makes.
	LastSeen time.Time `json:"last_seen"`
}
