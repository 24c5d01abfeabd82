package database

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps sql.DB with additional methods
type DB struct {
	*sql.DB
}

// New creates a new database connection
func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("database open failed: %w", err)
	}

	// Enable WAL mode for better concurrent access
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA synchronous=NORMAL")
	db.Exec("PRAGMA busy_timeout=5000")

	return &DB{db}, nil
}

// InitSchema creates all necessary tables
func (db *DB) InitSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS speed_results (
        id TEXT PRIMARY KEY,
        timestamp DATETIME NOT NULL,
        download_mbps REAL NOT NULL,
        upload_mbps REAL NOT NULL,
        raw_download_mbps REAL,
        raw_upload_mbps REAL,
        ping_ms REAL NOT NULL,
        jitter_ms REAL NOT NULL,
        isp TEXT,
        connection_type TEXT,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE INDEX IF NOT EXISTS idx_speed_timestamp ON speed_results(timestamp);

    -- Daily averages survive pruning of individual results
    CREATE TABLE IF NOT EXISTS daily_stats (
        date DATE NOT NULL PRIMARY KEY,
        runs INTEGER,
        avg_download_mbps REAL,
        avg_upload_mbps REAL,
        avg_ping_ms REAL,
        avg_jitter_ms REAL
    );
    `

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("schema creation failed: %w", err)
	}

	return nil
}
