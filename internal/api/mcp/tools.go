package mcp

// buildToolsList returns the canonical list of MCP tool definitions.
func (s *Server) buildToolsList() []MCPTool {
	return []MCPTool{
		{
			Name:        "register",
			Description: "Register this agent with the bridge. Idempotent: re-registering updates the existing row and bumps last_seen.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"name"},
				"properties": map[string]interface{}{
					"name":    map[string]interface{}{"type": "string", "description": "Agent name (e.g. 'claude-1', 'opencode-1')"},
					"program": map[string]interface{}{"type": "string", "description": "Agent program (claude-code, opencode)"},
					"model":   map[string]interface{}{"type": "string", "description": "Model being used"},
					"task":    map[string]interface{}{"type": "string", "description": "Current task description"},
					"status":  map[string]interface{}{"type": "string", "description": "Status flag (default 'active')"},
				},
			},
		},
		{
			Name:        "agents",
			Description: "List all registered agents, most recently active first.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "send",
			Description: "Send a message to another agent. The recipient must be a registered agent. Subject prefixes [TASK], [DONE], [BLOCKED], [QUESTION], [HANDOFF] are a useful convention.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"sender", "recipient", "subject"},
				"properties": map[string]interface{}{
					"sender":    map[string]interface{}{"type": "string", "description": "Your agent name"},
					"recipient": map[string]interface{}{"type": "string", "description": "Target agent name"},
					"subject":   map[string]interface{}{"type": "string", "description": "Message subject (use prefixes: [TASK], [DONE], [BLOCKED])"},
					"body":      map[string]interface{}{"type": "string", "description": "Message body"},
					"thread_id": map[string]interface{}{"type": "string", "description": "Thread ID for grouping"},
				},
			},
		},
		{
			Name:        "inbox",
			Description: "Fetch messages addressed to an agent, oldest first. Defaults to unread messages only.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"agent"},
				"properties": map[string]interface{}{
					"agent":       map[string]interface{}{"type": "string", "description": "Your agent name"},
					"unread_only": map[string]interface{}{"type": "boolean", "description": "Only unread messages (default true)"},
					"limit":       map[string]interface{}{"type": "integer", "description": "Max messages to return (default 20)"},
				},
			},
		},
		{
			Name:        "mark_read",
			Description: "Mark a message as read.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"message_id"},
				"properties": map[string]interface{}{
					"message_id": map[string]interface{}{"type": "integer", "description": "Message ID"},
				},
			},
		},
		{
			Name:        "ack",
			Description: "Acknowledge a message. Independent of the read flag.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"message_id"},
				"properties": map[string]interface{}{
					"message_id": map[string]interface{}{"type": "integer", "description": "Message ID"},
				},
			},
		},
		{
			Name:        "lock",
			Description: "Lock a file for exclusive editing. Fails fast if another agent holds an unexpired lock, reporting the holder and remaining TTL. Re-locking your own path renews the TTL.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"path", "agent"},
				"properties": map[string]interface{}{
					"path":        map[string]interface{}{"type": "string", "description": "File path to lock"},
					"agent":       map[string]interface{}{"type": "string", "description": "Your agent name"},
					"reason":      map[string]interface{}{"type": "string", "description": "Why you need the lock"},
					"ttl_seconds": map[string]interface{}{"type": "integer", "description": "Lock TTL in seconds (default 1800)"},
				},
			},
		},
		{
			Name:        "unlock",
			Description: "Release a file lock you hold. Releasing an unlocked path is a no-op; releasing another agent's lock is forbidden.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"path", "agent"},
				"properties": map[string]interface{}{
					"path":  map[string]interface{}{"type": "string", "description": "File path to release"},
					"agent": map[string]interface{}{"type": "string", "description": "Your agent name"},
				},
			},
		},
		{
			Name:        "locks",
			Description: "List file locks. Expired locks are excluded unless include_expired is set.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"agent":           map[string]interface{}{"type": "string", "description": "Filter by holding agent (optional)"},
					"include_expired": map[string]interface{}{"type": "boolean", "description": "Include expired lock rows (default false)"},
				},
			},
		},
		{
			Name:        "remember",
			Description: "Store a shared memory/note for later.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"content"},
				"properties": map[string]interface{}{
					"content": map[string]interface{}{"type": "string", "description": "What to remember"},
					"tag":     map[string]interface{}{"type": "string", "description": "Optional category tag"},
				},
			},
		},
		{
			Name:        "recall",
			Description: "Search shared memories by case-insensitive substring over content and tag. An empty query returns the most recent memories.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{"type": "string", "description": "Search term"},
					"limit": map[string]interface{}{"type": "integer", "description": "Max results (default 5)"},
				},
			},
		},
		{
			Name:        "forget",
			Description: "Delete a shared memory by ID.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"id"},
				"properties": map[string]interface{}{
					"id": map[string]interface{}{"type": "integer", "description": "Memory ID to delete"},
				},
			},
		},
	}
}
