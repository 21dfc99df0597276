// Package sqlitestore provides SQLite-backed store implementations.
package sqlitestore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS moderation_reports (
	id            TEXT PRIMARY KEY,
	reporter_id   TEXT NOT NULL,
	target_type   TEXT NOT NULL,
	target_id     TEXT NOT NULL,
	category      TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	evidence_urls TEXT NOT NULL DEFAULT '[]',
	status        TEXT NOT NULL,
	severity      INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL,
	created_nano  INTEGER NOT NULL,
	updated_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_moderation_reports_created
	ON moderation_reports(created_nano DESC, id DESC);

CREATE TABLE IF NOT EXISTS moderation_actions (
	id         TEXT PRIMARY KEY,
	report_id  TEXT NOT NULL REFERENCES moderation_reports(id),
	action     TEXT NOT NULL,
	reason     TEXT NOT NULL DEFAULT '',
	actor_id   TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_moderation_actions_report
	ON moderation_actions(report_id);

CREATE TABLE IF NOT EXISTS moderation_audit_log (
	id             TEXT PRIMARY KEY,
	actor_id       TEXT NOT NULL,
	report_id      TEXT NOT NULL,
	action         TEXT NOT NULL,
	reason         TEXT NOT NULL DEFAULT '',
	timestamp      TEXT NOT NULL,
	timestamp_nano INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_moderation_audit_log_ts
	ON moderation_audit_log(timestamp_nano DESC);
`

// Store wraps a SQLite database and provides access to specialized stores.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path and applies
// the schema.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "modguard.db"
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// _txlock=immediate takes the write lock at BEGIN, so two concurrent
	// decision transactions serialize instead of the later one failing a
	// deferred snapshot upgrade with SQLITE_BUSY.
	db, err := sql.Open("sqlite", path+"?_txlock=immediate&_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database handle for advanced operations.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ReportStore returns a report store backed by this database.
func (s *Store) ReportStore() *ReportStore {
	return &ReportStore{db: s.db, now: time.Now}
}
