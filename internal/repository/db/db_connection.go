package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

// InitDB opens/creates a SQLite DB file and ensures tables exist.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// Conservative pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is not great with many writers
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	// Fail fast if the DB cannot be reached
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

const schemaAppliances = `
CREATE TABLE IF NOT EXISTS appliances (
    id TEXT PRIMARY KEY,
    name TEXT UNIQUE NOT NULL,
    power_sensor TEXT NOT NULL,
    energy_sensor TEXT,
    standby_threshold_w REAL NOT NULL,
    running_threshold_w REAL NOT NULL,
    start_delay_s INTEGER NOT NULL,
    finish_delay_s INTEGER NOT NULL,
    debounce_s INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL
);
`

const schemaSnapshots = `
CREATE TABLE IF NOT EXISTS appliance_snapshots (
    appliance_id TEXT PRIMARY KEY REFERENCES appliances(id) ON DELETE CASCADE,
    state TEXT NOT NULL,
    current_power_w REAL NOT NULL,
    last_started TIMESTAMP,
    last_completed TIMESTAMP,
    cycle_duration_s REAL,
    cycles_today INTEGER NOT NULL,
    cycles_today_date TEXT,
    cycle_energy_kwh REAL,
    energy_at_start_kwh REAL,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaEvents = `
CREATE TABLE IF NOT EXISTS cycle_events (
    id TEXT PRIMARY KEY,
    appliance_id TEXT NOT NULL,
    appliance_name TEXT NOT NULL,
    occurred_at TIMESTAMP NOT NULL,
    type TEXT NOT NULL,
    message TEXT NOT NULL,
    meta TEXT
);
`

const schemaEventsIndex = `
CREATE INDEX IF NOT EXISTS idx_cycle_events_occurred_at ON cycle_events (occurred_at);
`

const schemaUsers = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL
);
`

func ensureSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		// In case of panic, rollback to avoid leaving an open transaction
		_ = tx.Rollback()
	}()

	for i, stmt := range []string{
		schemaAppliances,
		schemaSnapshots,
		schemaEvents,
		schemaEventsIndex,
		schemaUsers,
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
