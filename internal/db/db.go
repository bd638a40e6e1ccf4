package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/versokit/verso/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Init initializes the SQLite database at baseDir/verso.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.verso.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	// Explicit chmod (best-effort, may not work on all platforms)
	_ = os.Chmod(baseDir, 0700)

	// Open database with pragmas in connection string (applies to all connections)
	dbPath := filepath.Join(baseDir, "verso.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify WAL mode is active
	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	// Run migrations (this creates the file if it doesn't exist)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
// Call after Init if you need to tune pool behavior for contention.
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS versions (
		  id            TEXT PRIMARY KEY,
		  owner_raw     TEXT NOT NULL,
		  owner_norm    TEXT NOT NULL,
		  content_hash  TEXT NOT NULL,
		  message       TEXT NOT NULL,
		  author        TEXT NOT NULL,
		  tags_json     TEXT,
		  parent_id     TEXT REFERENCES versions(id),
		  is_current    INTEGER NOT NULL DEFAULT 0,
		  created_at    INTEGER NOT NULL
		);

		-- Invariant: at most one current version per owner, enforced in
		-- storage on top of the transactional flag flip.
		CREATE UNIQUE INDEX IF NOT EXISTS idx_versions_owner_current
		ON versions(owner_norm)
		WHERE is_current = 1;

		CREATE INDEX IF NOT EXISTS idx_versions_owner_created
		ON versions(owner_norm, created_at DESC);

		CREATE TABLE IF NOT EXISTS fields (
		  version_id  TEXT NOT NULL REFERENCES versions(id) ON DELETE CASCADE,
		  field_name  TEXT NOT NULL,
		  field_value TEXT NOT NULL,
		  field_type  TEXT NOT NULL,
		  source      TEXT NOT NULL,
		  updated_at  INTEGER NOT NULL,
		  PRIMARY KEY (version_id, field_name)
		);

		CREATE TABLE IF NOT EXISTS changes (
		  id          INTEGER PRIMARY KEY AUTOINCREMENT,
		  version_id  TEXT NOT NULL REFERENCES versions(id) ON DELETE CASCADE,
		  owner_norm  TEXT NOT NULL,
		  field_name  TEXT NOT NULL,
		  old_value   TEXT,
		  new_value   TEXT,
		  change_type TEXT NOT NULL,
		  source      TEXT NOT NULL,
		  created_at  INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_changes_version
		ON changes(version_id);

		CREATE INDEX IF NOT EXISTS idx_changes_owner_field
		ON changes(owner_norm, field_name, created_at DESC);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
