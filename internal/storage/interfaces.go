// Package storage provides the storage interfaces for the agent bridge.
//
// The layer is split into small, per-concern interfaces (registry, mailbox,
// locks, memories) that backends implement independently and that the Store
// interface composes. Every operation is a single atomic transaction against
// the backing database; none of them block waiting on another agent.
package storage

import (
	"context"
	"time"

	"github.com/goldbar123467/claude-code-to-open-code-bridge/pkg/types"
)

// AgentRegistry tracks the agents coordinating through the bridge.
type AgentRegistry interface {
	// Register upserts an agent row: inserts if absent, otherwise updates
	// the provided optional fields and bumps last_seen. Idempotent —
	// re-registration is never an error. Empty optional fields on an
	// existing agent leave the stored values untouched.
	Register(ctx context.Context, agent *types.Agent) (*types.Agent, error)

	// ListAgents returns all registered agents ordered by last_seen
	// descending (most recently active first).
	ListAgents(ctx context.Context) ([]*types.Agent, error)
}

// Mailbox provides asynchronous agent-to-agent messaging.
type Mailbox interface {
	// Send inserts a new unread, unacknowledged message and fills in the
	// assigned ID and creation timestamp on msg. Returns ErrNotFound when
	// the recipient is not a registered agent (strict recipient validation;
	// see the sqlite.WithStrictRecipients option).
	Send(ctx context.Context, msg *types.Message) error

	// Inbox returns messages addressed to the named agent, oldest first.
	Inbox(ctx context.Context, agent string, opts InboxOptions) ([]*types.Message, error)

	// MarkRead sets the read flag. A no-op for an already-read message.
	// Returns ErrNotFound if the id does not exist.
	MarkRead(ctx context.Context, id int64) error

	// Ack sets the acknowledged flag without touching the read flag.
	// Returns ErrNotFound if the id does not exist.
	Ack(ctx context.Context, id int64) error
}

// LockManager hands out time-bounded exclusive file locks. Expiry is lazy:
// an expired lock is simply ignored (and overwritten) by the next acquirer,
// never reclaimed by a background process.
type LockManager interface {
	// Lock acquires or renews the lock on path for agent with the given TTL.
	// When another agent holds an unexpired lock, it fails fast with a
	// *LockConflictError (errors.Is ErrConflict) naming the holder and the
	// remaining TTL. A lock whose expiry has passed is treated as absent.
	Lock(ctx context.Context, path, agent, reason string, ttl time.Duration) (*types.FileLock, error)

	// Unlock releases the lock on path if agent holds it. Returns
	// ErrForbidden when a different agent holds it, and succeeds as a no-op
	// when no lock exists for the path.
	Unlock(ctx context.Context, path, agent string) error

	// ListLocks returns lock rows, optionally filtered to unexpired ones.
	ListLocks(ctx context.Context, opts ListLocksOptions) ([]*types.FileLock, error)
}

// MemoryStore is the shared free-text memory of the bridge.
type MemoryStore interface {
	// Remember stores a memory and returns it with its assigned ID and
	// creation timestamp.
	Remember(ctx context.Context, content, tag string) (*types.Memory, error)

	// Recall returns memories matching opts.Query, newest first.
	Recall(ctx context.Context, opts RecallOptions) ([]*types.Memory, error)

	// Forget deletes a memory. Returns ErrNotFound if the id does not exist.
	Forget(ctx context.Context, id int64) error
}

// Store is the full coordination store surface.
type Store interface {
	AgentRegistry
	Mailbox
	LockManager
	MemoryStore

	// Close releases any resources held by the store.
	Close() error
}
