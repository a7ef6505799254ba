package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vitalog/vita/internal/schema"
)

const nutritionColumns = `id, owner_user_id, date_key, label, logged_at,
       protein, fat, carbs, fiber, dirty, deleted, created_at, updated_at`

// GetNutritionByDate returns the user's non-deleted nutrition entries
// for one day, ordered by the time they were logged.
func (s *Store) GetNutritionByDate(ctx context.Context, userID, dateKey string) ([]*schema.NutritionEntry, error) {
	if userID == "" {
		return nil, ErrNoSession
	}

	query := `
	SELECT ` + nutritionColumns + `
	FROM nutrition_log
	WHERE owner_user_id = ? AND date_key = ? AND deleted = 0
	ORDER BY logged_at ASC
	`

	rows, err := s.conn.QueryContext(ctx, query, userID, dateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query nutrition entries: %w", err)
	}
	defer rows.Close()

	return scanNutritionEntries(rows)
}

// UpsertNutritionLocal records a user-driven write.
//
// Resolution order: the entry's explicit ID if set, otherwise a new row
// with a freshly generated id (days hold many entries, so there is no
// day-level fallback). Always marks the row dirty and touches
// updated_at.
func (s *Store) UpsertNutritionLocal(ctx context.Context, userID string, e *schema.NutritionEntry) error {
	if userID == "" {
		return ErrNoSession
	}

	e.OwnerUserID = userID
	e.SetDefaults()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.Dirty = true
	e.Touch()

	if err := e.Validate(); err != nil {
		return fmt.Errorf("invalid nutrition entry: %w", err)
	}

	return s.writeNutrition(ctx, e)
}

// UpsertNutritionFromServer reconciles one server record into the local
// table, marked clean. Returns false without writing when the resolved
// local row is dirty: unsynced local work is never clobbered by a pull,
// its reconciliation waits until after the next successful push.
//
// A row with the same id owned by a different user (id collision after
// an account switch) is deleted first; the remote contract guarantees
// globally unique ids.
func (s *Store) UpsertNutritionFromServer(ctx context.Context, userID string, e *schema.NutritionEntry) (bool, error) {
	if userID == "" {
		return false, ErrNoSession
	}

	e.OwnerUserID = userID
	e.SetDefaults()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.Dirty = false

	if err := e.Validate(); err != nil {
		return false, fmt.Errorf("invalid nutrition entry: %w", err)
	}

	var owner string
	var dirty bool
	err := s.conn.QueryRowContext(ctx,
		`SELECT owner_user_id, dirty FROM nutrition_log WHERE id = ?`, e.ID).
		Scan(&owner, &dirty)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// New row, fall through to insert.
	case err != nil:
		return false, fmt.Errorf("failed to resolve nutrition entry %s: %w", e.ID, err)
	case owner != userID:
		if _, err := s.conn.ExecContext(ctx, `DELETE FROM nutrition_log WHERE id = ?`, e.ID); err != nil {
			return false, fmt.Errorf("failed to evict conflicting row %s: %w", e.ID, err)
		}
	case dirty:
		return false, nil
	}

	if err := s.writeNutrition(ctx, e); err != nil {
		return false, err
	}
	return true, nil
}

// ReplaceNutritionDayFromServer reconciles a whole day by deleting the
// user's local rows for that day and bulk-inserting the server's set,
// all clean. An empty items slice therefore empties the day.
//
// The replace is vetoed (returns false) while any row for that day is
// dirty, for the same reason single-row server upserts skip dirty rows.
func (s *Store) ReplaceNutritionDayFromServer(ctx context.Context, userID, dateKey string, items []*schema.NutritionEntry) (bool, error) {
	if userID == "" {
		return false, ErrNoSession
	}

	dirty, err := s.HasDirtyNutrition(ctx, userID, dateKey)
	if err != nil {
		return false, err
	}
	if dirty {
		return false, nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin day replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM nutrition_log WHERE owner_user_id = ? AND date_key = ?`,
		userID, dateKey); err != nil {
		return false, fmt.Errorf("failed to clear day %s: %w", dateKey, err)
	}

	for _, e := range items {
		e.OwnerUserID = userID
		e.DateKey = dateKey
		e.SetDefaults()
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		e.Dirty = false

		if err := e.Validate(); err != nil {
			return false, fmt.Errorf("invalid nutrition entry from server: %w", err)
		}

		if _, err := tx.ExecContext(ctx, upsertNutritionQuery, nutritionArgs(e)...); err != nil {
			return false, fmt.Errorf("failed to insert entry %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit day replace: %w", err)
	}
	return true, nil
}

// MarkNutritionSynced flips dirty to false for all of the user's rows
// on that day without altering payload, then purges tombstones the
// server has now acknowledged. Called after a successful push.
func (s *Store) MarkNutritionSynced(ctx context.Context, userID, dateKey string) error {
	if userID == "" {
		return ErrNoSession
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin mark-synced: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE nutrition_log SET dirty = 0 WHERE owner_user_id = ? AND date_key = ?`,
		userID, dateKey); err != nil {
		return fmt.Errorf("failed to mark day %s synced: %w", dateKey, err)
	}

	// A day push carries the full entry list, so acknowledged
	// tombstones are gone server-side and can be dropped locally.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM nutrition_log WHERE owner_user_id = ? AND date_key = ? AND deleted = 1`,
		userID, dateKey); err != nil {
		return fmt.Errorf("failed to purge tombstones for %s: %w", dateKey, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit mark-synced: %w", err)
	}
	return nil
}

// HasDirtyNutrition reports whether the user has unsynced rows
// (including tombstones) for the given day.
func (s *Store) HasDirtyNutrition(ctx context.Context, userID, dateKey string) (bool, error) {
	if userID == "" {
		return false, ErrNoSession
	}

	var count int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM nutrition_log WHERE owner_user_id = ? AND date_key = ? AND dirty = 1`,
		userID, dateKey).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count dirty nutrition rows: %w", err)
	}
	return count > 0, nil
}

// DirtyNutritionDays returns the distinct day keys with unsynced rows,
// oldest first. The daemon's push tick works through this list.
func (s *Store) DirtyNutritionDays(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, ErrNoSession
	}

	rows, err := s.conn.QueryContext(ctx,
		`SELECT DISTINCT date_key FROM nutrition_log WHERE owner_user_id = ? AND dirty = 1 ORDER BY date_key ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query dirty days: %w", err)
	}
	defer rows.Close()

	var days []string
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("failed to scan dirty day: %w", err)
		}
		days = append(days, day)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dirty days: %w", err)
	}
	return days, nil
}

// DeleteNutrition tombstones one entry: the row stays, marked deleted
// and dirty, and disappears from reads. The deletion reaches the server
// with the next day push. Idempotent for unknown ids.
func (s *Store) DeleteNutrition(ctx context.Context, id, userID string) error {
	if userID == "" {
		return ErrNoSession
	}

	_, err := s.conn.ExecContext(ctx,
		`UPDATE nutrition_log SET deleted = 1, dirty = 1, updated_at = ? WHERE id = ? AND owner_user_id = ?`,
		formatTime(time.Now()), id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete nutrition entry %s: %w", id, err)
	}
	return nil
}

const upsertNutritionQuery = `
INSERT INTO nutrition_log (
	id, owner_user_id, date_key, label, logged_at,
	protein, fat, carbs, fiber, dirty, deleted, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	owner_user_id = excluded.owner_user_id,
	date_key = excluded.date_key,
	label = excluded.label,
	logged_at = excluded.logged_at,
	protein = excluded.protein,
	fat = excluded.fat,
	carbs = excluded.carbs,
	fiber = excluded.fiber,
	dirty = excluded.dirty,
	deleted = excluded.deleted,
	updated_at = excluded.updated_at
`

func nutritionArgs(e *schema.NutritionEntry) []interface{} {
	return []interface{}{
		e.ID,
		e.OwnerUserID,
		e.DateKey,
		e.Label,
		formatTime(e.LoggedAt),
		e.Protein,
		e.Fat,
		e.Carbs,
		e.Fiber,
		e.Dirty,
		e.Deleted,
		formatTime(e.CreatedAt),
		formatTime(e.UpdatedAt),
	}
}

func (s *Store) writeNutrition(ctx context.Context, e *schema.NutritionEntry) error {
	if _, err := s.conn.ExecContext(ctx, upsertNutritionQuery, nutritionArgs(e)...); err != nil {
		return fmt.Errorf("failed to upsert nutrition entry %s: %w", e.ID, err)
	}
	return nil
}

func scanNutritionEntries(rows *sql.Rows) ([]*schema.NutritionEntry, error) {
	var entries []*schema.NutritionEntry

	for rows.Next() {
		var e schema.NutritionEntry
		var loggedAt, createdAt, updatedAt string

		err := rows.Scan(
			&e.ID,
			&e.OwnerUserID,
			&e.DateKey,
			&e.Label,
			&loggedAt,
			&e.Protein,
			&e.Fat,
			&e.Carbs,
			&e.Fiber,
			&e.Dirty,
			&e.Deleted,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan nutrition entry: %w", err)
		}

		e.LoggedAt = parseTime(loggedAt)
		e.CreatedAt = parseTime(createdAt)
		e.UpdatedAt = parseTime(updatedAt)

		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nutrition entries: %w", err)
	}

	return entries, nil
}
