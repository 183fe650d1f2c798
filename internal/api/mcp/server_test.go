package mcp_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goldbar123467/claude-code-to-open-code-bridge/internal/api/mcp"
	"github.com/goldbar123467/claude-code-to-open-code-bridge/internal/config"
	"github.com/goldbar123467/claude-code-to-open-code-bridge/internal/storage/sqlite"
)

// newTestServer creates an MCP server over a fresh in-memory store.
func newTestServer(t *testing.T, opts ...mcp.ServerOption) *mcp.Server {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err, "failed to create test store")
	t.Cleanup(func() { _ = store.Close() })
	return mcp.NewServer(store, opts...)
}

// rpc sends a raw JSON-RPC request and decodes the response envelope.
func rpc(t *testing.T, srv *mcp.Server, request string) map[string]interface{} {
	t.Helper()
	resp, err := srv.HandleRequest(context.Background(), []byte(request))
	require.NoError(t, err)
	require.NotNil(t, resp)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(resp, &decoded))
	return decoded
}

// rpcResult sends a request expected to succeed and returns its result object.
func rpcResult(t *testing.T, srv *mcp.Server, request string) map[string]interface{} {
	t.Helper()
	decoded := rpc(t, srv, request)
	require.Nil(t, decoded["error"], "unexpected JSON-RPC error: %v", decoded["error"])
	result, ok := decoded["result"].(map[string]interface{})
	require.True(t, ok, "result is not an object: %v", decoded["result"])
	return result
}

func registerAgent(t *testing.T, srv *mcp.Server, name string) {
	t.Helper()
	rpcResult(t, srv, fmt.Sprintf(
		`{"jsonrpc":"2.0","method":"register","params":{"name":%q},"id":1}`, name))
}

func TestInitializeHandshake(t *testing.T) {
	srv := newTestServer(t)

	result := rpcResult(t, srv,
		`{"jsonrpc":"2.0","method":"initialize","params":{"protocolVersion":"2024-11-05","clientInfo":{"name":"test","version":"0.1"}},"id":1}`)

	assert.Equal(t, "2024-11-05", result["protocolVersion"])
	serverInfo := result["serverInfo"].(map[string]interface{})
	assert.Equal(t, "agent-bridge", serverInfo["name"])
}

func TestToolsListComplete(t *testing.T) {
	srv := newTestServer(t)

	result := rpcResult(t, srv, `{"jsonrpc":"2.0","method":"tools/list","id":1}`)
	tools := result["tools"].([]interface{})

	names := make(map[string]bool)
	for _, tool := range tools {
		entry := tool.(map[string]interface{})
		names[entry["name"].(string)] = true
		assert.NotEmpty(t, entry["description"], "tool %v has no description", entry["name"])
		assert.NotNil(t, entry["inputSchema"], "tool %v has no input schema", entry["name"])
	}

	want := []string{
		"register", "agents", "send", "inbox", "mark_read", "ack",
		"lock", "unlock", "locks", "remember", "recall", "forget",
	}
	for _, name := range want {
		assert.True(t, names[name], "tools/list missing %q", name)
	}
	assert.Len(t, tools, len(want))
}

func TestRejectsWrongJSONRPCVersion(t *testing.T) {
	srv := newTestServer(t)

	decoded := rpc(t, srv, `{"jsonrpc":"1.0","method":"agents","id":1}`)
	require.NotNil(t, decoded["error"])
	errObj := decoded["error"].(map[string]interface{})
	assert.Equal(t, float64(mcp.ErrCodeInvalidRequest), errObj["code"])
}

func TestParseErrorResponse(t *testing.T) {
	srv := newTestServer(t)

	decoded := rpc(t, srv, `{not valid json`)
	require.NotNil(t, decoded["error"])
	errObj := decoded["error"].(map[string]interface{})
	assert.Equal(t, float64(mcp.ErrCodeParseError), errObj["code"])
}

func TestMethodNotFound(t *testing.T) {
	srv := newTestServer(t)

	decoded := rpc(t, srv, `{"jsonrpc":"2.0","method":"nonexistent","id":7}`)
	require.NotNil(t, decoded["error"])
	errObj := decoded["error"].(map[string]interface{})
	assert.Equal(t, float64(mcp.ErrCodeMethodNotFound), errObj["code"])
}

func TestRegisterAndListAgentsViaRPC(t *testing.T) {
	srv := newTestServer(t)

	result := rpcResult(t, srv,
		`{"jsonrpc":"2.0","method":"register","params":{"name":"claude-main","program":"claude-code","task":"tests"},"id":1}`)
	assert.Equal(t, "registered", result["status"])
	agent := result["agent"].(map[string]interface{})
	assert.Equal(t, "claude-main", agent["name"])
	assert.Equal(t, "active", agent["status"])

	listed := rpcResult(t, srv, `{"jsonrpc":"2.0","method":"agents","id":2}`)
	assert.Equal(t, float64(1), listed["total"])
}

func TestSendAndInboxViaRPC(t *testing.T) {
	srv := newTestServer(t)
	registerAgent(t, srv, "alice")
	registerAgent(t, srv, "bob")

	sent := rpcResult(t, srv,
		`{"jsonrpc":"2.0","method":"send","params":{"sender":"alice","recipient":"bob","subject":"[TASK] build it","body":"details","thread_id":"t-1"},"id":1}`)
	assert.Equal(t, "sent", sent["status"])
	assert.Greater(t, sent["id"].(float64), float64(0))

	inbox := rpcResult(t, srv,
		`{"jsonrpc":"2.0","method":"inbox","params":{"agent":"bob"},"id":2}`)
	require.Equal(t, float64(1), inbox["total"])
	msg := inbox["messages"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "alice", msg["sender"])
	assert.Equal(t, "[TASK] build it", msg["subject"])
	assert.Equal(t, "t-1", msg["thread_id"])
}

func TestSendToUnknownRecipientIsServerError(t *testing.T) {
	srv := newTestServer(t)
	registerAgent(t, srv, "alice")

	decoded := rpc(t, srv,
		`{"jsonrpc":"2.0","method":"send","params":{"sender":"alice","recipient":"ghost","subject":"hi"},"id":1}`)
	require.NotNil(t, decoded["error"])
	errObj := decoded["error"].(map[string]interface{})
	assert.Equal(t, float64(mcp.ErrCodeServerError), errObj["code"])
	assert.Contains(t, errObj["message"], "ghost")
}

// TestInboxUnreadDefault verifies that the inbox tool defaults to unread
// messages when unread_only is omitted.
func TestInboxUnreadDefault(t *testing.T) {
	srv := newTestServer(t)
	registerAgent(t, srv, "alice")
	registerAgent(t, srv, "bob")

	sent := rpcResult(t, srv,
		`{"jsonrpc":"2.0","method":"send","params":{"sender":"alice","recipient":"bob","subject":"one"},"id":1}`)
	msgID := int64(sent["id"].(float64))

	rpcResult(t, srv, fmt.Sprintf(
		`{"jsonrpc":"2.0","method":"mark_read","params":{"message_id":%d},"id":2}`, msgID))

	// Omitted unread_only: the read message is filtered out.
	inbox := rpcResult(t, srv,
		`{"jsonrpc":"2.0","method":"inbox","params":{"agent":"bob"},"id":3}`)
	assert.Equal(t, float64(0), inbox["total"])

	// Explicit unread_only=false brings it back.
	inbox = rpcResult(t, srv,
		`{"jsonrpc":"2.0","method":"inbox","params":{"agent":"bob","unread_only":false},"id":4}`)
	assert.Equal(t, float64(1), inbox["total"])
}

func TestLockLifecycleViaRPC(t *testing.T) {
	srv := newTestServer(t)

	locked := rpcResult(t, srv,
		`{"jsonrpc":"2.0","method":"lock","params":{"path":"src/app.go","agent":"alice","reason":"editing","ttl_seconds":600},"id":1}`)
	assert.Equal(t, "locked", locked["status"])
	lock := locked["lock"].(map[string]interface{})
	assert.Equal(t, "alice", lock["agent"])

	// A competing lock fails as a server error carrying holder details.
	decoded := rpc(t, srv,
		`{"jsonrpc":"2.0","method":"lock","params":{"path":"src/app.go","agent":"bob"},"id":2}`)
	require.NotNil(t, decoded["error"])
	errObj := decoded["error"].(map[string]interface{})
	assert.Contains(t, errObj["message"], "alice")

	locks := rpcResult(t, srv, `{"jsonrpc":"2.0","method":"locks","id":3}`)
	assert.Equal(t, float64(1), locks["total"])

	unlocked := rpcResult(t, srv,
		`{"jsonrpc":"2.0","method":"unlock","params":{"path":"src/app.go","agent":"alice"},"id":4}`)
	assert.Equal(t, "unlocked", unlocked["status"])

	locks = rpcResult(t, srv, `{"jsonrpc":"2.0","method":"locks","id":5}`)
	assert.Equal(t, float64(0), locks["total"])
}

func TestLockUsesConfiguredDefaultTTL(t *testing.T) {
	cfg := &config.Config{}
	cfg.Bridge.DefaultLockTTL = 2 * time.Hour
	srv := newTestServer(t, mcp.WithConfig(cfg))

	locked := rpcResult(t, srv,
		`{"jsonrpc":"2.0","method":"lock","params":{"path":"a.go","agent":"alice"},"id":1}`)
	lock := locked["lock"].(map[string]interface{})

	acquired, err := time.Parse(time.RFC3339Nano, lock["acquired_at"].(string))
	require.NoError(t, err)
	expires, err := time.Parse(time.RFC3339Nano, lock["expires_at"].(string))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, expires.Sub(acquired))
}

func TestMemoryLifecycleViaRPC(t *testing.T) {
	srv := newTestServer(t)

	stored := rpcResult(t, srv,
		`{"jsonrpc":"2.0","method":"remember","params":{"content":"deploys happen from main","tag":"process"},"id":1}`)
	assert.Equal(t, "stored", stored["status"])
	memID := int64(stored["id"].(float64))

	recalled := rpcResult(t, srv,
		`{"jsonrpc":"2.0","method":"recall","params":{"query":"DEPLOYS"},"id":2}`)
	require.Equal(t, float64(1), recalled["total"])
	mem := recalled["memories"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "process", mem["tag"])

	forgotten := rpcResult(t, srv, fmt.Sprintf(
		`{"jsonrpc":"2.0","method":"forget","params":{"id":%d},"id":3}`, memID))
	assert.Equal(t, "forgotten", forgotten["status"])

	decoded := rpc(t, srv, fmt.Sprintf(
		`{"jsonrpc":"2.0","method":"forget","params":{"id":%d},"id":4}`, memID))
	require.NotNil(t, decoded["error"])
}

func TestSessionIDStable(t *testing.T) {
	srv := newTestServer(t)
	require.NotEmpty(t, srv.SessionID())
	assert.Equal(t, srv.SessionID(), srv.SessionID())
}
