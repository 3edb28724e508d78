// Package db opens the controller's SQLite database and applies its schema.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens or creates the SQLite file at path and applies the schema.
// Pass ":memory:" for a throwaway database.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// A single connection serializes the recorder and the HTTP handlers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec("PRAGMA " + p + ";"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set PRAGMA %s: %w", p, err)
		}
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

var pragmas = []string{
	"journal_mode = WAL",
	"synchronous = NORMAL",
	"foreign_keys = ON",
	"busy_timeout = 5000",
}

const sqliteDriverName = "sqlite"

const schemaFurnaceState = `
CREATE TABLE IF NOT EXISTS furnace_state (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    state TEXT NOT NULL,
    program TEXT,
    program_running BOOLEAN NOT NULL,
    segment INTEGER NOT NULL DEFAULT 0,
    segment_elapsed_s REAL NOT NULL DEFAULT 0,
    setpoint_c REAL NOT NULL DEFAULT 0,
    temp_c REAL NOT NULL,
    heater_on BOOLEAN NOT NULL,
    fault TEXT,
    overflow_count INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaFurnaceEvents = `
CREATE TABLE IF NOT EXISTS furnace_events (
    id TEXT PRIMARY KEY,
    occurred_at TIMESTAMP NOT NULL,
    type TEXT NOT NULL,
    message TEXT NOT NULL,
    meta TEXT
);
`

const indexFurnaceEvents = `
CREATE INDEX IF NOT EXISTS idx_furnace_events_occurred_at ON furnace_events (occurred_at);
`

const schemaUsers = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL
);
`

const schemaPrograms = `
CREATE TABLE IF NOT EXISTS programs (
    name TEXT PRIMARY KEY,
    description TEXT NOT NULL DEFAULT '',
    segments TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

func ensureSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range []string{
		schemaFurnaceState,
		schemaFurnaceEvents,
		indexFurnaceEvents,
		schemaUsers,
		schemaPrograms,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
