// Package notify watches the bridge database file for changes so that
// `bridge inbox --watch` can re-poll when another agent writes, instead of
// polling on a timer.
package notify

import (
	"log"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// DBWatcher watches the directory containing the database file and signals
// whenever the database (or its WAL sidecar files) is written. Signals are
// coalesced: a burst of writes produces at most one pending notification.
type DBWatcher struct {
	dbPath  string
	watcher *fsnotify.Watcher
	events  chan struct{}
	done    chan struct{}
}

// NewDBWatcher creates a watcher for the given database file path.
func NewDBWatcher(dbPath string) *DBWatcher {
	return &DBWatcher{
		dbPath: dbPath,
		events: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Start begins watching. Call Stop() to clean up.
//
// The watch is on the parent directory, not the file itself: SQLite in WAL
// mode writes to -wal/-shm sidecars and may never touch the main file, and a
// watch on the file would be lost on rename.
func (w *DBWatcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(w.dbPath)); err != nil {
		_ = fw.Close()
		return err
	}
	w.watcher = fw

	go w.loop()
	return nil
}

// Events returns the notification channel. Receives fire after the database
// file changes; multiple changes may coalesce into one receive.
func (w *DBWatcher) Events() <-chan struct{} {
	return w.events
}

// Stop shuts down the watcher. Calling Stop before a successful Start is a
// no-op.
func (w *DBWatcher) Stop() {
	if w.watcher == nil {
		return
	}
	_ = w.watcher.Close()
	<-w.done
}

func (w *DBWatcher) loop() {
	defer close(w.done)
	base := filepath.Base(w.dbPath)
	for {
		select {
		case evt, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			// Match bridge.db plus its -wal and -shm sidecars.
			if !strings.HasPrefix(filepath.Base(evt.Name), base) {
				continue
			}
			select {
			case w.events <- struct{}{}:
			default:
				// A notification is already pending.
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("notify: watcher error: %v", err)
		}
	}
}
