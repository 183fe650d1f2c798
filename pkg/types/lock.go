package types

import "time"

// FileLock is a time-bounded advisory claim on a file path. At most one lock
// row exists per path; whether it is active is derived lazily by comparing
// ExpiresAt to the current time — there is no background sweeper.
type FileLock struct {
	// Path is the locked file path. Paths are opaque strings; the bridge
	// does not resolve or normalize them.
	Path string `json:"path"`

	// Agent is the name of the holding agent.
	Agent string `json:"agent"`

	// Reason optionally records why the lock was taken.
	Reason string `json:"reason,omitempty"`

	// AcquiredAt is when the lock was created or last renewed.
	AcquiredAt time.Time `json:"acquired_at"`

	// ExpiresAt is when the lock stops being honored. An expired lock is
	// reclaimable by any agent.
	ExpiresAt time.Time `json:"expires_at"`
}

// Active reports whether the lock is still honored at the given instant.
func (l *FileLock) Active(now time.Time) bool {
	return l.ExpiresAt.After(now)
}

// Remaining returns the time left until expiry at the given instant.
// It returns zero for an expired lock, never a negative duration.
func (l *FileLock) Remaining(now time.Time) time.Duration {
	if !l.ExpiresAt.After(now) {
		return 0
	}
	return l.ExpiresAt.Sub(now)
}
