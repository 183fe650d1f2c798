package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goldbar123467/claude-code-to-open-code-bridge/internal/storage"
)

func TestLockAcquire(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	lock, err := store.Lock(ctx, "src/main.go", "alice", "refactoring", 30*time.Minute)
	if err != nil {
		t.Fatalf("Lock() failed: %v", err)
	}

	if lock.Path != "src/main.go" || lock.Agent != "alice" {
		t.Errorf("lock = %+v, want src/main.go held by alice", lock)
	}
	wantExpiry := lock.AcquiredAt.Add(30 * time.Minute)
	if !lock.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("ExpiresAt = %v, want AcquiredAt+30m = %v", lock.ExpiresAt, wantExpiry)
	}
}

func TestLockConflict(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Lock(ctx, "src/main.go", "alice", "editing", time.Hour); err != nil {
		t.Fatalf("first Lock() failed: %v", err)
	}

	_, err := store.Lock(ctx, "src/main.go", "bob", "also editing", time.Hour)
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("second Lock(): got %v, want ErrConflict", err)
	}

	conflict, ok := storage.AsLockConflict(err)
	if !ok {
		t.Fatalf("error %v does not carry lock conflict details", err)
	}
	if conflict.Holder != "alice" {
		t.Errorf("conflict.Holder = %q, want alice", conflict.Holder)
	}
	if conflict.Remaining <= 0 {
		t.Errorf("conflict.Remaining = %v, want positive", conflict.Remaining)
	}

	// The losing attempt must not disturb the winner's lock.
	locks, err := store.ListLocks(ctx, storage.ListLocksOptions{ActiveOnly: true})
	if err != nil {
		t.Fatalf("ListLocks() failed: %v", err)
	}
	if len(locks) != 1 || locks[0].Agent != "alice" {
		t.Errorf("locks after conflict = %+v, want single lock held by alice", locks)
	}
}

// TestLockRenewal verifies that the holder can re-lock its own path to
// extend the TTL without releasing first.
func TestLockRenewal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Lock(ctx, "cfg.yaml", "alice", "", time.Minute)
	if err != nil {
		t.Fatalf("Lock() failed: %v", err)
	}

	renewed, err := store.Lock(ctx, "cfg.yaml", "alice", "", time.Hour)
	if err != nil {
		t.Fatalf("renewing Lock() failed: %v", err)
	}
	if renewed.ExpiresAt.Before(first.ExpiresAt) {
		t.Errorf("renewal moved expiry backwards: %v -> %v", first.ExpiresAt, renewed.ExpiresAt)
	}
}

// TestExpiredLockReclaim verifies lazy expiry: an expired lock row is still
// present but no longer blocks a new holder.
func TestExpiredLockReclaim(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Lock(ctx, "src/main.go", "alice", "", time.Hour); err != nil {
		t.Fatalf("Lock() failed: %v", err)
	}
	backdateLock(t, store, "src/main.go", time.Now().UTC().Add(-time.Minute))

	lock, err := store.Lock(ctx, "src/main.go", "bob", "taking over", time.Hour)
	if err != nil {
		t.Fatalf("Lock() over expired lock failed: %v", err)
	}
	if lock.Agent != "bob" {
		t.Errorf("reclaimed lock held by %q, want bob", lock.Agent)
	}
}

func TestLockInvalidInput(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Lock(ctx, "", "alice", "", time.Hour); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Lock with empty path: got %v, want ErrInvalidInput", err)
	}
	if _, err := store.Lock(ctx, "p", "", "", time.Hour); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Lock with empty agent: got %v, want ErrInvalidInput", err)
	}
	if _, err := store.Lock(ctx, "p", "alice", "", 0); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Lock with zero TTL: got %v, want ErrInvalidInput", err)
	}
}

func TestUnlockByHolder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Lock(ctx, "src/main.go", "alice", "", time.Hour); err != nil {
		t.Fatalf("Lock() failed: %v", err)
	}
	if err := store.Unlock(ctx, "src/main.go", "alice"); err != nil {
		t.Fatalf("Unlock() failed: %v", err)
	}

	// Path is free again.
	if _, err := store.Lock(ctx, "src/main.go", "bob", "", time.Hour); err != nil {
		t.Errorf("Lock() after Unlock failed: %v", err)
	}
}

func TestUnlockByNonHolderForbidden(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Lock(ctx, "src/main.go", "alice", "", time.Hour); err != nil {
		t.Fatalf("Lock() failed: %v", err)
	}

	if err := store.Unlock(ctx, "src/main.go", "bob"); !errors.Is(err, storage.ErrForbidden) {
		t.Errorf("Unlock by non-holder: got %v, want ErrForbidden", err)
	}
}

// TestUnlockExpiredLockStillForbidden pins the reclamation path: an expired
// lock changes hands via Lock, never via another agent's Unlock.
func TestUnlockExpiredLockStillForbidden(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Lock(ctx, "src/main.go", "alice", "", time.Hour); err != nil {
		t.Fatalf("Lock() failed: %v", err)
	}
	backdateLock(t, store, "src/main.go", time.Now().UTC().Add(-time.Minute))

	if err := store.Unlock(ctx, "src/main.go", "bob"); !errors.Is(err, storage.ErrForbidden) {
		t.Errorf("Unlock of expired lock by non-holder: got %v, want ErrForbidden", err)
	}
}

func TestUnlockAbsentPathIsNoop(t *testing.T) {
	store := newTestStore(t)

	if err := store.Unlock(context.Background(), "never/locked.go", "alice"); err != nil {
		t.Errorf("Unlock of unlocked path: got %v, want nil", err)
	}
}

func TestListLocksFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Lock(ctx, "a.go", "alice", "", time.Hour); err != nil {
		t.Fatalf("Lock(a.go) failed: %v", err)
	}
	if _, err := store.Lock(ctx, "b.go", "bob", "", time.Hour); err != nil {
		t.Fatalf("Lock(b.go) failed: %v", err)
	}
	if _, err := store.Lock(ctx, "c.go", "alice", "", time.Hour); err != nil {
		t.Fatalf("Lock(c.go) failed: %v", err)
	}
	backdateLock(t, store, "c.go", time.Now().UTC().Add(-time.Minute))

	active, err := store.ListLocks(ctx, storage.ListLocksOptions{ActiveOnly: true})
	if err != nil {
		t.Fatalf("ListLocks(active) failed: %v", err)
	}
	if len(active) != 2 {
		t.Errorf("active locks = %d, want 2 (expired c.go excluded)", len(active))
	}

	all, err := store.ListLocks(ctx, storage.ListLocksOptions{})
	if err != nil {
		t.Fatalf("ListLocks(all) failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all locks = %d, want 3", len(all))
	}

	mine, err := store.ListLocks(ctx, storage.ListLocksOptions{Agent: "alice"})
	if err != nil {
		t.Fatalf("ListLocks(agent) failed: %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("alice's locks = %d, want 2", len(mine))
	}
	for _, l := range mine {
		if l.Agent != "alice" {
			t.Errorf("agent filter returned lock held by %q", l.Agent)
		}
	}
}
