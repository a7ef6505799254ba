package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/vitalog/vita/internal/schema"
)

// setupStore creates a migrated temporary database.
func setupStore(t *testing.T) *Store {
	t.Helper()

	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	return st
}

func TestOpen_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "test.db")

	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer st.Close()

	if st.Path() != path {
		t.Errorf("Path() = %q, want %q", st.Path(), path)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	// Migrating an up-to-date database must be a no-op.
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() failed: %v", err)
	}

	v, err := st.schemaVersion(ctx)
	if err != nil {
		t.Fatalf("schemaVersion() failed: %v", err)
	}
	if v != SchemaVersion {
		t.Errorf("schema version = %d, want %d", v, SchemaVersion)
	}
}

func TestMigrate_CreatesTables(t *testing.T) {
	st := setupStore(t)

	tables := []string{"session", "nutrition_log", "daily_survey", "body_measurement"}
	for _, table := range tables {
		var count int
		err := st.conn.QueryRow(
			`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&count)
		if err != nil {
			t.Fatalf("failed to query table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("table %s does not exist", table)
		}
	}
}

func TestMigrate_UpgradesFromV1(t *testing.T) {
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer st.Close()
	ctx := context.Background()

	// Build a v1 database by hand, with a row in it.
	if _, err := st.conn.ExecContext(ctx, migrations[0]); err != nil {
		t.Fatalf("failed to apply v1 schema: %v", err)
	}
	if _, err := st.conn.ExecContext(ctx, "PRAGMA user_version=1"); err != nil {
		t.Fatalf("failed to set user_version: %v", err)
	}
	now := formatTime(time.Now())
	if _, err := st.conn.ExecContext(ctx, `
		INSERT INTO nutrition_log (id, owner_user_id, date_key, label, logged_at, created_at, updated_at)
		VALUES ('e1', 'alice', '2026-01-06', 'oats', ?, ?, ?)`, now, now, now); err != nil {
		t.Fatalf("failed to seed v1 row: %v", err)
	}

	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() from v1 failed: %v", err)
	}

	// The seeded row must survive and be readable through the current
	// schema, with the new deleted column defaulting to 0.
	entries, err := st.GetNutritionByDate(ctx, "alice", "2026-01-06")
	if err != nil {
		t.Fatalf("GetNutritionByDate() failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Label != "oats" {
		t.Fatalf("expected seeded entry to survive migration, got %+v", entries)
	}
}

func TestSession_Lifecycle(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	// No session yet.
	if _, err := st.ActiveUser(ctx); !errors.Is(err, ErrNoSession) {
		t.Errorf("ActiveUser() with no session: err = %v, want ErrNoSession", err)
	}
	if _, err := st.AuthToken(ctx); !errors.Is(err, ErrNoSession) {
		t.Errorf("AuthToken() with no session: err = %v, want ErrNoSession", err)
	}

	if err := st.SetActiveUser(ctx, "alice"); err != nil {
		t.Fatalf("SetActiveUser() failed: %v", err)
	}
	if err := st.SetAuthToken(ctx, "tok-1"); err != nil {
		t.Fatalf("SetAuthToken() failed: %v", err)
	}

	user, err := st.ActiveUser(ctx)
	if err != nil {
		t.Fatalf("ActiveUser() failed: %v", err)
	}
	if user != "alice" {
		t.Errorf("ActiveUser() = %q, want %q", user, "alice")
	}

	token, err := st.AuthToken(ctx)
	if err != nil {
		t.Fatalf("AuthToken() failed: %v", err)
	}
	if token != "tok-1" {
		t.Errorf("AuthToken() = %q, want %q", token, "tok-1")
	}

	// Logout clears both.
	if err := st.ClearActiveUser(ctx); err != nil {
		t.Fatalf("ClearActiveUser() failed: %v", err)
	}
	if _, err := st.ActiveUser(ctx); !errors.Is(err, ErrNoSession) {
		t.Errorf("ActiveUser() after logout: err = %v, want ErrNoSession", err)
	}
	if _, err := st.AuthToken(ctx); !errors.Is(err, ErrNoSession) {
		t.Errorf("AuthToken() after logout: err = %v, want ErrNoSession", err)
	}
}

func TestSession_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	if err := st.SetActiveUser(ctx, "alice"); err != nil {
		t.Fatalf("SetActiveUser() failed: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	st2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer st2.Close()

	user, err := st2.ActiveUser(ctx)
	if err != nil {
		t.Fatalf("ActiveUser() after reopen failed: %v", err)
	}
	if user != "alice" {
		t.Errorf("ActiveUser() after reopen = %q, want %q", user, "alice")
	}
}

func TestScopedOps_RequireSession(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	if _, err := st.GetNutritionByDate(ctx, "", "2026-01-06"); !errors.Is(err, ErrNoSession) {
		t.Errorf("GetNutritionByDate: err = %v, want ErrNoSession", err)
	}
	if err := st.UpsertNutritionLocal(ctx, "", &schema.NutritionEntry{}); !errors.Is(err, ErrNoSession) {
		t.Errorf("UpsertNutritionLocal: err = %v, want ErrNoSession", err)
	}
	if err := st.UpsertSurveyLocal(ctx, "", &schema.DailySurvey{}); !errors.Is(err, ErrNoSession) {
		t.Errorf("UpsertSurveyLocal: err = %v, want ErrNoSession", err)
	}
	if err := st.UpsertMeasurementLocal(ctx, "", &schema.BodyMeasurement{}); !errors.Is(err, ErrNoSession) {
		t.Errorf("UpsertMeasurementLocal: err = %v, want ErrNoSession", err)
	}
}
