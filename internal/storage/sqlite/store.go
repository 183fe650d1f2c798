// Package sqlite implements the bridge storage interfaces on a single
// embedded SQLite database file (via the CGO-free modernc.org/sqlite driver).
//
// The bridge runs as many short-lived processes sharing one database file, so
// the store leans entirely on SQLite's own transaction handling: WAL mode for
// cross-process read concurrency, a busy timeout instead of immediate
// SQLITE_BUSY failures, and a single in-process connection to serialize
// writers within one invocation.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/goldbar123467/claude-code-to-open-code-bridge/internal/storage"
)

// Store implements storage.Store using SQLite.
var _ storage.Store = (*Store)(nil)

// Store is the SQLite-backed coordination store.
type Store struct {
	db *sql.DB

	// strictRecipients rejects Send calls to unregistered agents.
	strictRecipients bool
}

// Option configures a Store.
type Option func(*Store)

// WithStrictRecipients controls recipient validation on Send. When strict
// (the default), sending to an unregistered agent fails with ErrNotFound;
// when permissive, any recipient string is accepted.
func WithStrictRecipients(strict bool) Option {
	return func(s *Store) {
		s.strictRecipients = strict
	}
}

// New opens the bridge database with WAL self-healing. If the initial open
// fails due to stale WAL files (left behind by a crashed agent process), it
// verifies no other process holds them and retries once after removing the
// stale -shm/-wal files.
func New(dsn string, opts ...Option) (*Store, error) {
	store, err := open(dsn, opts...)
	if err == nil {
		return store, nil
	}

	if !isRecoverableWALError(err) {
		return nil, err
	}

	dbPath := dbPathFromDSN(dsn)
	if dbPath == "" {
		return nil, err
	}

	if !isWALStale(dbPath) {
		return nil, err
	}

	removeStaleWAL(dbPath)

	store, retryErr := open(dsn, opts...)
	if retryErr != nil {
		return nil, fmt.Errorf("failed after WAL recovery: %w (original: %v)", retryErr, err)
	}

	log.Printf("sqlite: recovered from stale WAL files for %s", dbPath)
	return store, nil
}

// open opens the database, configures WAL mode, and creates the schema.
func open(dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. A single open connection
	// serializes this process's writes; concurrent agent invocations are
	// separate processes and are serialized by SQLite itself.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL mode lets readers proceed without blocking a writer in another
	// agent process.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Wait briefly for a concurrent writer instead of failing with
	// SQLITE_BUSY; every bridge operation is a short transaction.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	s := &Store{db: db, strictRecipients: true}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// touchAgent bumps last_seen for a known agent inside the caller's
// transaction. Unknown names are ignored: operations performed by an
// unregistered agent still succeed, they just leave no presence trail.
func touchAgent(ctx context.Context, tx *sql.Tx, name string, now time.Time) error {
	if name == "" {
		return nil
	}
	_, err := tx.ExecContext(ctx, `UPDATE agents SET last_seen = ? WHERE name = ?`, now, name)
	return err
}

// likePattern builds a substring LIKE pattern from raw user input, escaping
// the LIKE metacharacters. Use with ESCAPE '\'.
func likePattern(query string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(query) + "%"
}

func validateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", storage.ErrInvalidInput, field)
	}
	return nil
}

// dbPathFromDSN extracts the filesystem path from a SQLite DSN. Returns ""
// for in-memory databases or unparseable DSNs.
func dbPathFromDSN(dsn string) string {
	if dsn == ":memory:" || dsn == "" {
		return ""
	}

	if strings.HasPrefix(dsn, "file:") {
		u, err := url.Parse(dsn)
		if err != nil {
			return ""
		}
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		if path == ":memory:" || path == "" {
			return ""
		}
		return path
	}

	return dsn
}

// isRecoverableWALError returns true if the error matches patterns caused by
// stale WAL files from a crashed process.
func isRecoverableWALError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "disk I/O error") ||
		strings.Contains(msg, "database is locked")
}

// isWALStale checks whether -shm/-wal files exist for the given database
// path and no live process has them open.
func isWALStale(dbPath string) bool {
	shmPath := dbPath + "-shm"
	walPath := dbPath + "-wal"

	if !fileExists(shmPath) && !fileExists(walPath) {
		return false
	}

	lsofPath, err := exec.LookPath("lsof")
	if err != nil {
		// lsof not available — conservative fallback, do not remove.
		return false
	}

	cmd := exec.Command(lsofPath, "-t", dbPath, shmPath, walPath)
	output, err := cmd.Output()
	if err != nil {
		// lsof exits non-zero when no process has the files open — stale.
		return true
	}

	return strings.TrimSpace(string(output)) == ""
}

func removeStaleWAL(dbPath string) {
	for _, suffix := range []string{"-shm", "-wal"} {
		path := dbPath + suffix
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("sqlite: failed to remove stale %s: %v", path, err)
		}
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
