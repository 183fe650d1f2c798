package sqlite

// Schema is the embedded DDL for the bridge database. Every statement is
// idempotent (IF NOT EXISTS) so the schema can be applied unconditionally on
// every open, including concurrent first opens by separate agent processes.
const Schema = `
CREATE TABLE IF NOT EXISTS agents (
	name       TEXT PRIMARY KEY,
	program    TEXT NOT NULL DEFAULT '',
	model      TEXT NOT NULL DEFAULT '',
	task       TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'active',
	last_seen  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	sender     TEXT NOT NULL,
	recipient  TEXT NOT NULL,
	subject    TEXT NOT NULL,
	body       TEXT NOT NULL DEFAULT '',
	thread_id  TEXT,
	created_at TIMESTAMP NOT NULL,
	read       INTEGER NOT NULL DEFAULT 0,
	acked      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_messages_recipient
	ON messages(recipient, read);

CREATE TABLE IF NOT EXISTS file_locks (
	path        TEXT PRIMARY KEY,
	agent       TEXT NOT NULL,
	reason      TEXT NOT NULL DEFAULT '',
	acquired_at TIMESTAMP NOT NULL,
	expires_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS memories (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	content    TEXT NOT NULL,
	tag        TEXT,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_memories_created_at
	ON memories(created_at);
`
