package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// connPragmas are applied once on the single pooled connection.
var connPragmas = []string{
	"journal_mode = WAL",
	"foreign_keys = ON",
	"busy_timeout = 5000",
}

// InitDB opens or creates the SQLite file holding run history, the session log and users.
func InitDB(path string) (_ *sql.DB, err error) {
	conn, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = conn.Close()
		}
	}()

	// One writer; readers share it.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	for _, p := range connPragmas {
		if _, err = conn.Exec("PRAGMA " + p); err != nil {
			return nil, fmt.Errorf("sqlite %s: PRAGMA %s: %w", path, p, err)
		}
	}
	if err = ensureSchema(conn); err != nil {
		return nil, err
	}
	if err = conn.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	return conn, nil
}

const sqliteDriverName = "sqlite"

const schemaScanRuns = `
CREATE TABLE IF NOT EXISTS scan_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_no INTEGER NOT NULL,
    vin TEXT NOT NULL,
    model_code TEXT NOT NULL,
    confirmed_vin TEXT NOT NULL DEFAULT '',
    confirmed_model TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP NOT NULL,
    total_dtcs INTEGER NOT NULL,
    total_ecus INTEGER NOT NULL,
    ecus_with_dtcs INTEGER NOT NULL,
    failures TEXT NOT NULL DEFAULT '[]'
);
`

const schemaSessionEvents = `
CREATE TABLE IF NOT EXISTS session_events (
    id TEXT PRIMARY KEY,
    occurred_at TIMESTAMP NOT NULL,
    kind TEXT NOT NULL,
    message TEXT NOT NULL,
    meta TEXT
);
`

const indexSessionEvents = `
CREATE INDEX IF NOT EXISTS idx_session_events_occurred_at ON session_events (occurred_at);
`

const indexScanRuns = `
CREATE INDEX IF NOT EXISTS idx_scan_runs_finished_at ON scan_runs (finished_at);
`

const schemaUsers = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL
);
`

// schema is applied in order inside one transaction.
var schema = []string{
	schemaScanRuns,
	indexScanRuns,
	schemaSessionEvents,
	indexSessionEvents,
	schemaUsers,
}

func ensureSchema(conn *sql.DB) error {
	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("schema: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for n, ddl := range schema {
		if _, err := tx.Exec(ddl); err != nil {
			return fmt.Errorf("schema: statement %d: %w", n+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("schema: commit: %w", err)
	}
	return nil
}
