package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Register driver
)

// DB wraps the sql.DB connection.
type DB struct {
	*sql.DB
}

// Init opens the database and runs migrations.
func Init(path string) (*DB, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	// Enable WAL mode for better concurrency and set busy timeout
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000;"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	d := &DB{db}
	// Single writer: bundles and ledger entries arrive from one scheduler goroutine.
	db.SetMaxOpenConns(1)

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return d, nil
}

// PruneBundles removes stored bundles completed before now-olderThan.
// It returns the number of deleted rows.
func (d *DB) PruneBundles(olderThan time.Duration) (int64, error) {
	deadline := time.Now().Add(-olderThan).UTC()
	res, err := d.Exec("DELETE FROM scan_bundles WHERE completed < ?", deadline)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS persistent_state (
			key TEXT PRIMARY KEY,
			value TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS scan_bundles (
			id TEXT PRIMARY KEY,
			sequence INTEGER,
			started DATETIME,
			completed DATETIME,
			mode TEXT,
			detections INTEGER,
			energy_uah INTEGER,
			total_energy_uah INTEGER,
			payload BLOB
		);`,
		`CREATE INDEX IF NOT EXISTS idx_scan_bundles_completed ON scan_bundles(completed);`,
		`CREATE TABLE IF NOT EXISTS energy_ledger (
			scan_id TEXT PRIMARY KEY,
			technology TEXT,
			energy_uah INTEGER,
			recorded_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
	}

	for _, q := range queries {
		if _, err := d.Exec(q); err != nil {
			return fmt.Errorf("exec error: %w query: %s", err, q)
		}
	}

	// Migration: Add detections if missing
	var colCount int
	err := d.QueryRow("SELECT count(*) FROM pragma_table_info('scan_bundles') WHERE name='detections'").Scan(&colCount)
	if err == nil && colCount == 0 {
		if _, err := d.Exec("ALTER TABLE scan_bundles ADD COLUMN detections INTEGER DEFAULT 0"); err != nil {
			return fmt.Errorf("failed to add detections column: %w", err)
		}
	}

	return nil
}
