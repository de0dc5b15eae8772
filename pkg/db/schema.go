package db

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order; migration i brings the schema to
// version i+1. Append only.
var migrations = []string{
	`
CREATE TABLE IF NOT EXISTS schema_version (
    version     INTEGER PRIMARY KEY,
    applied_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Config entries created by the configuration wizard
CREATE TABLE IF NOT EXISTS config_entries (
    entry_id    TEXT PRIMARY KEY,
    unique_id   TEXT NOT NULL UNIQUE,
    title       TEXT NOT NULL,
    data        TEXT NOT NULL DEFAULT '{}',
    options     TEXT,
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Last known entity state, used to restore lights after a restart
CREATE TABLE IF NOT EXISTS entity_states (
    unique_id   TEXT PRIMARY KEY,
    state       TEXT NOT NULL DEFAULT '{}',
    updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_config_entries_title ON config_entries(title);
`,
}

var currentSchemaVersion = len(migrations)

// Migrate applies every migration newer than the stored schema version,
// each in its own transaction.
func (db *DB) Migrate(ctx context.Context) error {
	version, err := db.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for v := version; v < len(migrations); v++ {
		if err := db.applyMigration(ctx, v+1, migrations[v]); err != nil {
			return fmt.Errorf("failed to apply schema v%d: %w", v+1, err)
		}
	}
	return nil
}

// SchemaVersion returns the current schema version, or 0 for an empty
// database.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&count)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	var version int
	err = db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	return version, err
}

func (db *DB) applyMigration(ctx context.Context, version int, stmt string) error {
	return db.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
		return nil
	})
}
