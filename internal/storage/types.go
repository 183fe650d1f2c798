package storage

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound indicates that the referenced agent, message, or memory
	// does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrConflict indicates that a lock is held by another agent.
	ErrConflict = errors.New("lock conflict")

	// ErrForbidden indicates an unlock attempt by a non-holder.
	ErrForbidden = errors.New("operation forbidden")

	// ErrInvalidInput indicates a missing or malformed required parameter.
	ErrInvalidInput = errors.New("invalid input")
)

// LockConflictError reports a failed lock acquisition, including who holds
// the lock and how long it remains valid. It unwraps to ErrConflict so
// callers can match it with errors.Is.
type LockConflictError struct {
	// Path is the contested file path.
	Path string

	// Holder is the agent currently holding the lock.
	Holder string

	// ExpiresAt is when the current lock expires.
	ExpiresAt time.Time

	// Remaining is the lock's remaining TTL at the time of the attempt.
	Remaining time.Duration
}

func (e *LockConflictError) Error() string {
	return fmt.Sprintf("%s is locked by %s for another %s", e.Path, e.Holder, e.Remaining.Round(time.Second))
}

func (e *LockConflictError) Unwrap() error {
	return ErrConflict
}

// AsLockConflict extracts the conflict details from err, if err represents a
// failed lock acquisition.
func AsLockConflict(err error) (*LockConflictError, bool) {
	var conflict *LockConflictError
	if errors.As(err, &conflict) {
		return conflict, true
	}
	return nil, false
}

// InboxOptions controls inbox queries.
type InboxOptions struct {
	// UnreadOnly filters out messages already marked read.
	UnreadOnly bool

	// Limit caps the number of messages returned (default: 20, max: 100).
	Limit int
}

// Normalize applies defaults and bounds to the InboxOptions.
func (o *InboxOptions) Normalize() {
	if o.Limit < 1 {
		o.Limit = 20
	}
	if o.Limit > 100 {
		o.Limit = 100
	}
}

// RecallOptions controls memory searches.
type RecallOptions struct {
	// Query is matched as a case-insensitive substring against memory
	// content and tag. An empty query matches every memory.
	Query string

	// Limit caps the number of memories returned (default: 5, max: 100).
	Limit int
}

// Normalize applies defaults and bounds to the RecallOptions.
func (o *RecallOptions) Normalize() {
	if o.Limit < 1 {
		o.Limit = 5
	}
	if o.Limit > 100 {
		o.Limit = 100
	}
}

// ListLocksOptions controls lock listings.
type ListLocksOptions struct {
	// ActiveOnly excludes locks whose expiry has already passed. Expiry is
	// evaluated against the current time at query time.
	ActiveOnly bool

	// Agent restricts the listing to locks held by the named agent.
	// Empty means no holder filter.
	Agent string
}
