package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goldbar123467/claude-code-to-open-code-bridge/internal/storage"
	"github.com/goldbar123467/claude-code-to-open-code-bridge/pkg/types"
)

// Lock acquires or renews the lock on path. The existence check and the
// write share one transaction so two agents racing for the same path cannot
// both succeed. Expired locks are overwritten in place — reclamation is
// lazy, there is no sweeper.
func (s *Store) Lock(ctx context.Context, path, agent, reason string, ttl time.Duration) (*types.FileLock, error) {
	if err := validateRequired("path", path); err != nil {
		return nil, err
	}
	if err := validateRequired("agent", agent); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: ttl must be positive", storage.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	var holder string
	var expiresAt time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT agent, expires_at FROM file_locks WHERE path = ?`, path,
	).Scan(&holder, &expiresAt)
	switch {
	case err == sql.ErrNoRows:
		// Unlocked.
	case err != nil:
		return nil, fmt.Errorf("failed to check lock: %w", err)
	case expiresAt.After(now) && holder != agent:
		return nil, &storage.LockConflictError{
			Path:      path,
			Holder:    holder,
			ExpiresAt: expiresAt,
			Remaining: expiresAt.Sub(now),
		}
	}

	lock := &types.FileLock{
		Path:       path,
		Agent:      agent,
		Reason:     reason,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO file_locks (path, agent, reason, acquired_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			agent       = excluded.agent,
			reason      = excluded.reason,
			acquired_at = excluded.acquired_at,
			expires_at  = excluded.expires_at
	`, lock.Path, lock.Agent, lock.Reason, lock.AcquiredAt, lock.ExpiresAt); err != nil {
		return nil, fmt.Errorf("failed to write lock: %w", err)
	}

	if err := touchAgent(ctx, tx, agent, now); err != nil {
		return nil, fmt.Errorf("failed to update agent presence: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit lock: %w", err)
	}

	return lock, nil
}

// Unlock releases agent's lock on path. Releasing a path that is not locked
// succeeds as a no-op; releasing someone else's lock is ErrForbidden even
// when that lock has already expired (an expired lock is reclaimed by
// locking, not by unlocking).
func (s *Store) Unlock(ctx context.Context, path, agent string) error {
	if err := validateRequired("path", path); err != nil {
		return err
	}
	if err := validateRequired("agent", agent); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var holder string
	err = tx.QueryRowContext(ctx,
		`SELECT agent FROM file_locks WHERE path = ?`, path,
	).Scan(&holder)
	switch {
	case err == sql.ErrNoRows:
		// Already unlocked — still counts as presence.
		if err := touchAgent(ctx, tx, agent, time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to update agent presence: %w", err)
		}
		return tx.Commit()
	case err != nil:
		return fmt.Errorf("failed to check lock: %w", err)
	case holder != agent:
		return fmt.Errorf("%w: %s is locked by %s", storage.ErrForbidden, path, holder)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM file_locks WHERE path = ?`, path); err != nil {
		return fmt.Errorf("failed to delete lock: %w", err)
	}

	if err := touchAgent(ctx, tx, agent, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to update agent presence: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit unlock: %w", err)
	}
	return nil
}

// ListLocks returns lock rows, oldest acquisition first. With ActiveOnly,
// expiry is evaluated against the current time at query time.
func (s *Store) ListLocks(ctx context.Context, opts storage.ListLocksOptions) ([]*types.FileLock, error) {
	query := `
		SELECT path, agent, reason, acquired_at, expires_at
		FROM file_locks
	`
	var conditions []string
	var args []interface{}

	if opts.ActiveOnly {
		conditions = append(conditions, "expires_at > ?")
		args = append(args, time.Now().UTC())
	}
	if opts.Agent != "" {
		conditions = append(conditions, "agent = ?")
		args = append(args, opts.Agent)
	}

	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY acquired_at ASC, path ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list locks: %w", err)
	}
	defer rows.Close()

	var locks []*types.FileLock
	for rows.Next() {
		var l types.FileLock
		if err := rows.Scan(&l.Path, &l.Agent, &l.Reason, &l.AcquiredAt, &l.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan lock: %w", err)
		}
		locks = append(locks, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate locks: %w", err)
	}

	return locks, nil
}
