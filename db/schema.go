package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/hojinjeong/escaperace/cliparse"
)

// Open connects to the configured database. The sqlite driver is limited
// to a single connection: the file is locked per writer anyway, and a
// single conn serializes transactions instead of surfacing SQLITE_BUSY.
func Open(cfg cliparse.Config) (*sql.DB, error) {
	driver := "sqlite"
	if cfg.DatabaseType == "postgres" {
		driver = "postgres"
	}

	conn, err := sql.Open(driver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if driver == "sqlite" {
		conn.SetMaxOpenConns(1)
	}

	return conn, nil
}

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
//
// The SQL sticks to the dialect both sqlite and postgres accept: plain
// column types, explicit timestamps bound from Go, and upserts with a
// conflict target.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Participants (one row per browser session)
CREATE TABLE IF NOT EXISTS participant (
    id TEXT PRIMARY KEY,
    frontier INTEGER NOT NULL DEFAULT 1,
    display_name TEXT,
    vote_stage INTEGER,
    vote_group TEXT,
    vote_round BIGINT,
    vote_option TEXT,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_participant_display_name ON participant(display_name);
CREATE INDEX IF NOT EXISTS idx_participant_frontier ON participant(frontier);

-- Per-stage clear counters (the arrival ledger)
CREATE TABLE IF NOT EXISTS stage_clear (
    stage INTEGER PRIMARY KEY,
    cleared_count INTEGER NOT NULL DEFAULT 0
);

-- Clear events for the leaderboard (best-effort, denormalized)
CREATE TABLE IF NOT EXISTS clear_event (
    stage INTEGER NOT NULL,
    participant_id TEXT NOT NULL,
    display_name TEXT,
    rank INTEGER NOT NULL,
    cleared_at TIMESTAMP NOT NULL,
    PRIMARY KEY (stage, participant_id)
);

CREATE INDEX IF NOT EXISTS idx_clear_event_stage_rank ON clear_event(stage, rank);

-- Group-choice voting rounds, keyed by clock-aligned window start
CREATE TABLE IF NOT EXISTS vote_round (
    group_id TEXT NOT NULL,
    stage INTEGER NOT NULL,
    round_id BIGINT NOT NULL,
    window_ms BIGINT NOT NULL,
    mode TEXT NOT NULL,
    resolved INTEGER NOT NULL DEFAULT 0,
    outcome TEXT,
    winning_option TEXT,
    resolved_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (group_id, stage, round_id)
);

-- Per-option tallies, incremented transactionally as votes arrive
CREATE TABLE IF NOT EXISTS vote_count (
    group_id TEXT NOT NULL,
    stage INTEGER NOT NULL,
    round_id BIGINT NOT NULL,
    option_id TEXT NOT NULL,
    votes INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (group_id, stage, round_id, option_id)
);
`
