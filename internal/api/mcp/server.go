package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/goldbar123467/claude-code-to-open-code-bridge/internal/config"
	"github.com/goldbar123467/claude-code-to-open-code-bridge/internal/storage"
	"github.com/goldbar123467/claude-code-to-open-code-bridge/pkg/types"
)

// Fallbacks when no config is injected.
const (
	fallbackLockTTL     = 1800 * time.Second
	fallbackInboxLimit  = 20
	fallbackRecallLimit = 5
)

// Server implements the Model Context Protocol for the agent bridge. It
// exposes the coordination store's operations as JSON-RPC 2.0 tools for AI
// assistants.
type Server struct {
	store     storage.Store
	cfg       *config.Config
	limiter   *rate.Limiter
	sessionID string // unique ID generated once per MCP server lifetime
}

// ServerOption is a functional option for configuring a Server.
type ServerOption func(*Server)

// WithConfig injects a *config.Config into the Server. The config supplies
// the default lock TTL and the default inbox/recall limits.
func WithConfig(cfg *config.Config) ServerOption {
	return func(s *Server) {
		s.cfg = cfg
	}
}

// WithRateLimit replaces the default tool-call rate limiter. The limiter
// guards the shared database file from a runaway agent loop hammering the
// bridge; it smooths bursts rather than rejecting them.
func WithRateLimit(limiter *rate.Limiter) ServerOption {
	return func(s *Server) {
		s.limiter = limiter
	}
}

// NewServer creates a new MCP server instance around a coordination store.
func NewServer(store storage.Store, opts ...ServerOption) *Server {
	s := &Server{
		store:     store,
		limiter:   rate.NewLimiter(rate.Limit(25), 50),
		sessionID: uuid.New().String(),
	}
	for _, opt := range opts {
		opt(s)
	}
	log.Printf("bridge-mcp: session ID: %s", s.sessionID)
	return s
}

// SessionID returns the unique ID generated for this server's lifetime.
func (s *Server) SessionID() string {
	return s.sessionID
}

// HandleRequest processes a JSON-RPC 2.0 request and returns a response.
// This is the main entry point for MCP protocol handling.
func (s *Server) HandleRequest(ctx context.Context, requestJSON []byte) ([]byte, error) {
	var req JSONRPCRequest
	if err := json.Unmarshal(requestJSON, &req); err != nil {
		return s.errorResponse(nil, ErrCodeParseError, "Parse error", err.Error())
	}

	if req.JSONRPC != "2.0" {
		return s.errorResponse(req.ID, ErrCodeInvalidRequest, "Invalid JSON-RPC version", nil)
	}

	var result interface{}
	var err error

	switch req.Method {
	// Standard MCP protocol methods
	case "initialize":
		result, err = s.handleInitialize(ctx, req.Params)
	case "initialized", "notifications/initialized":
		// Notification — no response body required; return empty object.
		result = map[string]interface{}{}
	case "tools/list":
		result, err = s.handleToolsList(ctx, req.Params)
	case "tools/call":
		result, err = s.handleToolsCall(ctx, req.Params)

	// Native JSON-RPC methods (for direct callers that skip the MCP envelope)
	case "register":
		result, err = s.handleRegister(ctx, req.Params)
	case "agents":
		result, err = s.handleListAgents(ctx, req.Params)
	case "send":
		result, err = s.handleSend(ctx, req.Params)
	case "inbox":
		result, err = s.handleInbox(ctx, req.Params)
	case "mark_read":
		result, err = s.handleMarkRead(ctx, req.Params)
	case "ack":
		result, err = s.handleAck(ctx, req.Params)
	case "lock":
		result, err = s.handleLock(ctx, req.Params)
	case "unlock":
		result, err = s.handleUnlock(ctx, req.Params)
	case "locks":
		result, err = s.handleListLocks(ctx, req.Params)
	case "remember":
		result, err = s.handleRemember(ctx, req.Params)
	case "recall":
		result, err = s.handleRecall(ctx, req.Params)
	case "forget":
		result, err = s.handleForget(ctx, req.Params)
	default:
		return s.errorResponse(req.ID, ErrCodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method), nil)
	}

	if err != nil {
		return s.errorResponse(req.ID, ErrCodeServerError, err.Error(), nil)
	}

	return s.successResponse(req.ID, result)
}

// ---------------------------------------------------------------------------
// Typed tool implementations
// ---------------------------------------------------------------------------

// Register upserts an agent registration. Idempotent: re-registering the
// same name updates the row instead of failing.
func (s *Server) Register(ctx context.Context, args RegisterArgs) (*RegisterResult, error) {
	agent, err := s.store.Register(ctx, &types.Agent{
		Name:    args.Name,
		Program: args.Program,
		Model:   args.Model,
		Task:    args.Task,
		Status:  args.Status,
	})
	if err != nil {
		return nil, err
	}
	return &RegisterResult{Status: "registered", Agent: agent}, nil
}

// ListAgents returns all registered agents, most recently active first.
func (s *Server) ListAgents(ctx context.Context) (*ListAgentsResult, error) {
	agents, err := s.store.ListAgents(ctx)
	if err != nil {
		return nil, err
	}
	return &ListAgentsResult{Agents: agents, Total: len(agents)}, nil
}

// Send delivers a message to another agent's inbox.
func (s *Server) Send(ctx context.Context, args SendArgs) (*SendResult, error) {
	msg := &types.Message{
		Sender:    args.Sender,
		Recipient: args.Recipient,
		Subject:   args.Subject,
		Body:      args.Body,
		ThreadID:  args.ThreadID,
	}
	if err := s.store.Send(ctx, msg); err != nil {
		return nil, err
	}
	return &SendResult{Status: "sent", ID: msg.ID}, nil
}

// Inbox fetches messages for an agent, oldest first. UnreadOnly defaults to
// true: agents polling between tasks care about what they have not seen.
func (s *Server) Inbox(ctx context.Context, args InboxArgs) (*InboxResult, error) {
	unreadOnly := true
	if args.UnreadOnly != nil {
		unreadOnly = *args.UnreadOnly
	}

	limit := args.Limit
	if limit == 0 {
		limit = s.inboxLimit()
	}

	messages, err := s.store.Inbox(ctx, args.Agent, storage.InboxOptions{
		UnreadOnly: unreadOnly,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}
	return &InboxResult{Messages: messages, Total: len(messages)}, nil
}

// MarkRead sets the read flag on a message.
func (s *Server) MarkRead(ctx context.Context, args MarkReadArgs) (*MarkReadResult, error) {
	if err := s.store.MarkRead(ctx, args.MessageID); err != nil {
		return nil, err
	}
	return &MarkReadResult{Status: "read", ID: args.MessageID}, nil
}

// Ack sets the acknowledged flag on a message. Independent of the read flag.
func (s *Server) Ack(ctx context.Context, args AckArgs) (*AckResult, error) {
	if err := s.store.Ack(ctx, args.MessageID); err != nil {
		return nil, err
	}
	return &AckResult{Status: "acknowledged", ID: args.MessageID}, nil
}

// Lock acquires or renews an exclusive file lock. A conflict with another
// agent's unexpired lock reports the holder and the remaining TTL.
func (s *Server) Lock(ctx context.Context, args LockArgs) (*LockResult, error) {
	ttl := s.defaultLockTTL()
	if args.TTLSeconds > 0 {
		ttl = time.Duration(args.TTLSeconds) * time.Second
	}

	lock, err := s.store.Lock(ctx, args.Path, args.Agent, args.Reason, ttl)
	if err != nil {
		return nil, err
	}
	return &LockResult{Status: "locked", Lock: lock}, nil
}

// Unlock releases a file lock held by the calling agent.
func (s *Server) Unlock(ctx context.Context, args UnlockArgs) (*UnlockResult, error) {
	if err := s.store.Unlock(ctx, args.Path, args.Agent); err != nil {
		return nil, err
	}
	return &UnlockResult{Status: "unlocked", Path: args.Path}, nil
}

// ListLocks lists lock rows, active-only unless expired rows are requested.
func (s *Server) ListLocks(ctx context.Context, args ListLocksArgs) (*ListLocksResult, error) {
	locks, err := s.store.ListLocks(ctx, storage.ListLocksOptions{
		ActiveOnly: !args.IncludeExpired,
		Agent:      args.Agent,
	})
	if err != nil {
		return nil, err
	}
	return &ListLocksResult{Locks: locks, Total: len(locks)}, nil
}

// Remember stores a shared memory.
func (s *Server) Remember(ctx context.Context, args RememberArgs) (*RememberResult, error) {
	memory, err := s.store.Remember(ctx, args.Content, args.Tag)
	if err != nil {
		return nil, err
	}
	return &RememberResult{Status: "stored", ID: memory.ID}, nil
}

// Recall searches shared memories by case-insensitive substring.
func (s *Server) Recall(ctx context.Context, args RecallArgs) (*RecallResult, error) {
	limit := args.Limit
	if limit == 0 {
		limit = s.recallLimit()
	}

	memories, err := s.store.Recall(ctx, storage.RecallOptions{
		Query: args.Query,
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}
	return &RecallResult{Memories: memories, Total: len(memories)}, nil
}

// Forget deletes a shared memory.
func (s *Server) Forget(ctx context.Context, args ForgetArgs) (*ForgetResult, error) {
	if err := s.store.Forget(ctx, args.ID); err != nil {
		return nil, err
	}
	return &ForgetResult{Status: "forgotten", ID: args.ID}, nil
}

// ---------------------------------------------------------------------------
// JSON-RPC parameter-unmarshalling wrappers
// ---------------------------------------------------------------------------

func (s *Server) handleRegister(ctx context.Context, params interface{}) (interface{}, error) {
	var args RegisterArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.Register(ctx, args)
}

func (s *Server) handleListAgents(ctx context.Context, params interface{}) (interface{}, error) {
	return s.ListAgents(ctx)
}

func (s *Server) handleSend(ctx context.Context, params interface{}) (interface{}, error) {
	var args SendArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.Send(ctx, args)
}

func (s *Server) handleInbox(ctx context.Context, params interface{}) (interface{}, error) {
	var args InboxArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.Inbox(ctx, args)
}

func (s *Server) handleMarkRead(ctx context.Context, params interface{}) (interface{}, error) {
	var args MarkReadArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.MarkRead(ctx, args)
}

func (s *Server) handleAck(ctx context.Context, params interface{}) (interface{}, error) {
	var args AckArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.Ack(ctx, args)
}

func (s *Server) handleLock(ctx context.Context, params interface{}) (interface{}, error) {
	var args LockArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.Lock(ctx, args)
}

func (s *Server) handleUnlock(ctx context.Context, params interface{}) (interface{}, error) {
	var args UnlockArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.Unlock(ctx, args)
}

func (s *Server) handleListLocks(ctx context.Context, params interface{}) (interface{}, error) {
	var args ListLocksArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.ListLocks(ctx, args)
}

func (s *Server) handleRemember(ctx context.Context, params interface{}) (interface{}, error) {
	var args RememberArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.Remember(ctx, args)
}

func (s *Server) handleRecall(ctx context.Context, params interface{}) (interface{}, error) {
	var args RecallArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.Recall(ctx, args)
}

func (s *Server) handleForget(ctx context.Context, params interface{}) (interface{}, error) {
	var args ForgetArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.Forget(ctx, args)
}

// ---------------------------------------------------------------------------
// Standard MCP protocol handlers
// ---------------------------------------------------------------------------

// handleInitialize handles the MCP initialize handshake.
func (s *Server) handleInitialize(ctx context.Context, params interface{}) (interface{}, error) {
	return MCPInitializeResult{
		ProtocolVersion: "2024-11-05",
		Capabilities: MCPServerCapabilities{
			Tools: &MCPToolsCapability{},
		},
		ServerInfo: MCPServerInfo{
			Name:    "agent-bridge",
			Version: "1.0.0",
		},
	}, nil
}

// handleToolsList returns the list of all tools this server exposes.
func (s *Server) handleToolsList(ctx context.Context, params interface{}) (interface{}, error) {
	return MCPToolsListResult{Tools: s.buildToolsList()}, nil
}

// handleToolsCall dispatches a tools/call request to the appropriate handler
// and wraps the result in the MCP content envelope. Handler errors become
// isError tool results, not JSON-RPC protocol errors, so the calling model
// can see and react to them.
func (s *Server) handleToolsCall(ctx context.Context, params interface{}) (interface{}, error) {
	var p MCPToolCallParams
	if err := s.unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	// Smooth runaway call loops before they hit the shared database file.
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	// Re-marshal arguments so they can be passed to the handlers, which
	// expect an interface{} produced by JSON unmarshal.
	argsJSON, err := json.Marshal(p.Arguments)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal arguments: %w", err)
	}
	var rawParams interface{}
	if err := json.Unmarshal(argsJSON, &rawParams); err != nil {
		return nil, fmt.Errorf("failed to unmarshal arguments: %w", err)
	}

	var result interface{}
	var handlerErr error

	switch p.Name {
	case "register":
		result, handlerErr = s.handleRegister(ctx, rawParams)
	case "agents":
		result, handlerErr = s.handleListAgents(ctx, rawParams)
	case "send":
		result, handlerErr = s.handleSend(ctx, rawParams)
	case "inbox":
		result, handlerErr = s.handleInbox(ctx, rawParams)
	case "mark_read":
		result, handlerErr = s.handleMarkRead(ctx, rawParams)
	case "ack":
		result, handlerErr = s.handleAck(ctx, rawParams)
	case "lock":
		result, handlerErr = s.handleLock(ctx, rawParams)
	case "unlock":
		result, handlerErr = s.handleUnlock(ctx, rawParams)
	case "locks":
		result, handlerErr = s.handleListLocks(ctx, rawParams)
	case "remember":
		result, handlerErr = s.handleRemember(ctx, rawParams)
	case "recall":
		result, handlerErr = s.handleRecall(ctx, rawParams)
	case "forget":
		result, handlerErr = s.handleForget(ctx, rawParams)
	default:
		return &MCPToolCallResult{
			Content: []MCPToolCallContent{{Type: "text", Text: fmt.Sprintf("unknown tool: %s", p.Name)}},
			IsError: true,
		}, nil
	}

	if handlerErr != nil {
		return &MCPToolCallResult{
			Content: []MCPToolCallContent{{Type: "text", Text: handlerErr.Error()}},
			IsError: true,
		}, nil
	}

	text, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &MCPToolCallResult{
		Content: []MCPToolCallContent{{Type: "text", Text: string(text)}},
	}, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *Server) defaultLockTTL() time.Duration {
	if s.cfg != nil && s.cfg.Bridge.DefaultLockTTL > 0 {
		return s.cfg.Bridge.DefaultLockTTL
	}
	return fallbackLockTTL
}

func (s *Server) inboxLimit() int {
	if s.cfg != nil && s.cfg.Bridge.InboxLimit > 0 {
		return s.cfg.Bridge.InboxLimit
	}
	return fallbackInboxLimit
}

func (s *Server) recallLimit() int {
	if s.cfg != nil && s.cfg.Bridge.RecallLimit > 0 {
		return s.cfg.Bridge.RecallLimit
	}
	return fallbackRecallLimit
}

// unmarshalParams unmarshals JSON-RPC parameters into a typed struct.
func (s *Server) unmarshalParams(params interface{}, dest interface{}) error {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal params: %w", err)
	}

	return nil
}

// successResponse creates a JSON-RPC success response.
func (s *Server) successResponse(id interface{}, result interface{}) ([]byte, error) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	}
	return json.Marshal(resp)
}

// errorResponse creates a JSON-RPC error response.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) ([]byte, error) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID: id,
	}
	return json.Marshal(resp)
}
