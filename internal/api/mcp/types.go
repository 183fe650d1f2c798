// Package mcp implements the Model Context Protocol (MCP) server for the
// agent bridge. It exposes the coordination store's operations as JSON-RPC
// 2.0 tools for host agent runtimes.
package mcp

import (
	"github.com/goldbar123467/claude-code-to-open-code-bridge/pkg/types"
)

// RegisterArgs contains arguments for the register tool.
type RegisterArgs struct {
	Name    string `json:"name"`              // Agent name (required)
	Program string `json:"program,omitempty"` // Agent program (claude-code, opencode, ...)
	Model   string `json:"model,omitempty"`   // Model being used
	Task    string `json:"task,omitempty"`    // Current task description
	Status  string `json:"status,omitempty"`  // Status flag (defaults to "active")
}

// RegisterResult contains the result of registering an agent.
type RegisterResult struct {
	Status string       `json:"status"` // Always "registered"
	Agent  *types.Agent `json:"agent"`  // The stored agent row
}

// ListAgentsResult contains the result of listing agents.
type ListAgentsResult struct {
	Agents []*types.Agent `json:"agents"` // All agents, most recently seen first
	Total  int            `json:"total"`  // Number of agents
}

// SendArgs contains arguments for the send tool.
type SendArgs struct {
	Sender    string `json:"sender"`              // Sending agent name (required)
	Recipient string `json:"recipient"`           // Target agent name (required)
	Subject   string `json:"subject"`             // Message subject (required)
	Body      string `json:"body,omitempty"`      // Message body
	ThreadID  string `json:"thread_id,omitempty"` // Thread ID for grouping
}

// SendResult contains the result of sending a message.
type SendResult struct {
	Status string `json:"status"` // Always "sent"
	ID     int64  `json:"id"`     // Assigned message ID
}

// InboxArgs contains arguments for the inbox tool.
type InboxArgs struct {
	Agent string `json:"agent"` // Receiving agent name (required)

	// UnreadOnly filters to unread messages. Defaults to true when omitted,
	// matching how agents poll their inbox between tasks.
	UnreadOnly *bool `json:"unread_only,omitempty"`

	Limit int `json:"limit,omitempty"` // Max messages (default 20)
}

// InboxResult contains the result of fetching an inbox.
type InboxResult struct {
	Messages []*types.Message `json:"messages"` // Oldest first
	Total    int              `json:"total"`    // Number of messages returned
}

// MarkReadArgs contains arguments for the mark_read tool.
type MarkReadArgs struct {
	MessageID int64 `json:"message_id"` // Message ID (required)
}

// MarkReadResult contains the result of marking a message read.
type MarkReadResult struct {
	Status string `json:"status"` // Always "read"
	ID     int64  `json:"id"`     // Message ID
}

// AckArgs contains arguments for the ack tool.
type AckArgs struct {
	MessageID int64 `json:"message_id"` // Message ID (required)
}

// AckResult contains the result of acknowledging a message.
type AckResult struct {
	Status string `json:"status"` // Always "acknowledged"
	ID     int64  `json:"id"`     // Message ID
}

// LockArgs contains arguments for the lock tool.
type LockArgs struct {
	Path       string `json:"path"`                  // File path to lock (required)
	Agent      string `json:"agent"`                 // Acquiring agent name (required)
	Reason     string `json:"reason,omitempty"`      // Why the lock is needed
	TTLSeconds int    `json:"ttl_seconds,omitempty"` // Lock TTL (default from config, 1800s)
}

// LockResult contains the result of acquiring a lock.
type LockResult struct {
	Status string          `json:"status"` // Always "locked"
	Lock   *types.FileLock `json:"lock"`   // The acquired or renewed lock
}

// UnlockArgs contains arguments for the unlock tool.
type UnlockArgs struct {
	Path  string `json:"path"`  // File path to release (required)
	Agent string `json:"agent"` // Releasing agent name (required)
}

// UnlockResult contains the result of releasing a lock.
type UnlockResult struct {
	Status string `json:"status"` // Always "unlocked"
	Path   string `json:"path"`   // The released path
}

// ListLocksArgs contains arguments for the locks tool.
type ListLocksArgs struct {
	Agent          string `json:"agent,omitempty"`           // Filter by holding agent
	IncludeExpired bool   `json:"include_expired,omitempty"` // Include expired lock rows
}

// ListLocksResult contains the result of listing locks.
type ListLocksResult struct {
	Locks []*types.FileLock `json:"locks"` // Lock rows
	Total int               `json:"total"` // Number of locks returned
}

// RememberArgs contains arguments for the remember tool.
type RememberArgs struct {
	Content string `json:"content"`       // What to remember (required)
	Tag     string `json:"tag,omitempty"` // Optional category
}

// RememberResult contains the result of storing a memory.
type RememberResult struct {
	Status string `json:"status"` // Always "stored"
	ID     int64  `json:"id"`     // Assigned memory ID
}

// RecallArgs contains arguments for the recall tool.
type RecallArgs struct {
	Query string `json:"query"`           // Case-insensitive substring; empty matches all
	Limit int    `json:"limit,omitempty"` // Max results (default 5)
}

// RecallResult contains the result of searching memories.
type RecallResult struct {
	Memories []*types.Memory `json:"memories"` // Newest first
	Total    int             `json:"total"`    // Number of memories returned
}

// ForgetArgs contains arguments for the forget tool.
type ForgetArgs struct {
	ID int64 `json:"id"` // Memory ID to delete (required)
}

// ForgetResult contains the result of deleting a memory.
type ForgetResult struct {
	Status string `json:"status"` // Always "forgotten"
	ID     int64  `json:"id"`     // Memory ID
}

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string      `json:"jsonrpc"` // Must be "2.0"
	Method  string      `json:"method"`  // Method name
	Params  interface{} `json:"params"`  // Method parameters
	ID      interface{} `json:"id"`      // Request ID (string, number, or null)
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`          // Must be "2.0"
	Result  interface{}   `json:"result,omitempty"` // Result (if successful)
	Error   *JSONRPCError `json:"error,omitempty"`  // Error (if failed)
	ID      interface{}   `json:"id"`               // Request ID
}

// JSONRPCError represents a JSON-RPC 2.0 error.
type JSONRPCError struct {
	Code    int         `json:"code"`           // Error code
	Message string      `json:"message"`        // Error message
	Data    interface{} `json:"data,omitempty"` // Additional error data
}

// JSON-RPC error codes
const (
	ErrCodeParseError     = -32700 // Invalid JSON
	ErrCodeInvalidRequest = -32600 // Invalid request object
	ErrCodeMethodNotFound = -32601 // Method not found
	ErrCodeInvalidParams  = -32602 // Invalid method parameters
	ErrCodeInternalError  = -32603 // Internal JSON-RPC error
	ErrCodeServerError    = -32000 // Server error
)

// ---------------------------------------------------------------------------
// Standard MCP protocol types (initialize / tools/list / tools/call)
// ---------------------------------------------------------------------------

// MCPInitializeParams holds the parameters sent by an MCP client in the
// initialize request.
type MCPInitializeParams struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities,omitempty"`
	ClientInfo      MCPClientInfo          `json:"clientInfo"`
}

// MCPClientInfo identifies the connecting MCP client.
type MCPClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// MCPServerInfo identifies this MCP server.
type MCPServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// MCPServerCapabilities describes what this server supports.
type MCPServerCapabilities struct {
	Tools *MCPToolsCapability `json:"tools,omitempty"`
}

// MCPToolsCapability signals that the server exposes tools.
type MCPToolsCapability struct{}

// MCPInitializeResult is the response to the initialize request.
type MCPInitializeResult struct {
	ProtocolVersion string                `json:"protocolVersion"`
	Capabilities    MCPServerCapabilities `json:"capabilities"`
	ServerInfo      MCPServerInfo         `json:"serverInfo"`
}

// MCPTool describes a single tool exposed via the MCP tools/list endpoint.
type MCPTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// MCPToolsListResult is the response to the tools/list request.
type MCPToolsListResult struct {
	Tools []MCPTool `json:"tools"`
}

// MCPToolCallParams holds the parameters sent in a tools/call request.
type MCPToolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// MCPToolCallContent is a single content block in a tool call response.
type MCPToolCallContent struct {
	Type string `json:"type"` // always "text" for now
	Text string `json:"text"`
}

// MCPToolCallResult is the response to a tools/call request.
type MCPToolCallResult struct {
	Content []MCPToolCallContent `json:"content"`
	IsError bool                 `json:"isError,omitempty"`
}
