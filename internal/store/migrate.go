package store

import (
	"context"
	"fmt"
)

// Migrations are versioned and strictly additive. Each step is an
// explicit DDL batch; PRAGMA user_version records how far this database
// has been migrated. A database created by an older build is upgraded
// in place without touching existing rows.
//
// Never reorder or edit a shipped step. Append a new one.
var migrations = []string{
	// v1: initial schema.
	`
	CREATE TABLE IF NOT EXISTS session (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS nutrition_log (
		id TEXT PRIMARY KEY,
		owner_user_id TEXT NOT NULL,
		date_key TEXT NOT NULL,
		label TEXT NOT NULL,
		logged_at TEXT NOT NULL,
		protein REAL NOT NULL DEFAULT 0,
		fat REAL NOT NULL DEFAULT 0,
		carbs REAL NOT NULL DEFAULT 0,
		fiber REAL NOT NULL DEFAULT 0,
		dirty INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS daily_survey (
		id TEXT PRIMARY KEY,
		owner_user_id TEXT NOT NULL,
		date_key TEXT NOT NULL,
		weight REAL,
		motivation INTEGER,
		sleep INTEGER,
		stress INTEGER,
		digestion INTEGER,
		water INTEGER,
		hunger INTEGER,
		libido INTEGER,
		comment TEXT,
		dirty INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (owner_user_id, date_key)
	);

	CREATE TABLE IF NOT EXISTS body_measurement (
		id TEXT PRIMARY KEY,
		owner_user_id TEXT NOT NULL,
		date_key TEXT NOT NULL,
		weight REAL,
		waist REAL,
		left_arm REAL,
		right_arm REAL,
		left_leg REAL,
		right_leg REAL,
		dirty INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (owner_user_id, date_key)
	);

	CREATE INDEX IF NOT EXISTS idx_nutrition_owner_day
	    ON nutrition_log(owner_user_id, date_key);
	CREATE INDEX IF NOT EXISTS idx_nutrition_dirty
	    ON nutrition_log(owner_user_id, dirty);
	CREATE INDEX IF NOT EXISTS idx_survey_dirty
	    ON daily_survey(owner_user_id, dirty);
	CREATE INDEX IF NOT EXISTS idx_measurement_dirty
	    ON body_measurement(owner_user_id, dirty);
	`,

	// v2: soft-delete tombstones. Local deletes stopped being hard
	// deletes; tombstoned rows sync like any other mutation.
	`
	ALTER TABLE nutrition_log ADD COLUMN deleted INTEGER NOT NULL DEFAULT 0;
	ALTER TABLE daily_survey ADD COLUMN deleted INTEGER NOT NULL DEFAULT 0;
	ALTER TABLE body_measurement ADD COLUMN deleted INTEGER NOT NULL DEFAULT 0;
	`,

	// v3: progress photo references on body measurements.
	`
	ALTER TABLE body_measurement ADD COLUMN photo_front TEXT;
	ALTER TABLE body_measurement ADD COLUMN photo_side TEXT;
	ALTER TABLE body_measurement ADD COLUMN photo_back TEXT;
	`,
}

// SchemaVersion is the schema version this build expects.
var SchemaVersion = len(migrations)

// Migrate brings the database schema up to SchemaVersion.
//
// Idempotent: a database already at the current version is untouched,
// and a fresh database gets all steps. Each step runs in its own
// transaction so a failure leaves the recorded version consistent with
// the applied DDL.
func (s *Store) Migrate(ctx context.Context) error {
	current, err := s.schemaVersion(ctx)
	if err != nil {
		return err
	}

	if current > SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than this build supports (%d)", current, SchemaVersion)
	}

	for v := current; v < SchemaVersion; v++ {
		tx, err := s.conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migrations[v]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration to v%d failed: %w", v+1, err)
		}

		// PRAGMA does not accept bind parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version=%d", v+1)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record schema version %d: %w", v+1, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration to v%d: %w", v+1, err)
		}
	}

	return nil
}

// schemaVersion reads the recorded schema version.
func (s *Store) schemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}
