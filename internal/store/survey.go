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

const surveyColumns = `id, owner_user_id, date_key, weight, motivation, sleep,
       stress, digestion, water, hunger, libido, comment,
       dirty, deleted, created_at, updated_at`

// GetSurveyByDate returns the user's survey for one day, or nil when
// none exists (or it is tombstoned).
func (s *Store) GetSurveyByDate(ctx context.Context, userID, dateKey string) (*schema.DailySurvey, error) {
	if userID == "" {
		return nil, ErrNoSession
	}

	query := `
	SELECT ` + surveyColumns + `
	FROM daily_survey
	WHERE owner_user_id = ? AND date_key = ? AND deleted = 0
	`

	row := s.conn.QueryRowContext(ctx, query, userID, dateKey)
	survey, err := scanSurvey(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query survey: %w", err)
	}
	return survey, nil
}

// UpsertSurveyLocal records a user-driven write.
//
// Resolution order: the survey's explicit ID if set, otherwise the
// existing row for (userID, dateKey); a new row with a fresh id is
// inserted when neither resolves. Always marks the row dirty and
// touches updated_at.
func (s *Store) UpsertSurveyLocal(ctx context.Context, userID string, sv *schema.DailySurvey) error {
	if userID == "" {
		return ErrNoSession
	}

	sv.OwnerUserID = userID
	sv.SetDefaults()

	if sv.ID == "" {
		existing, err := s.surveyIDForDay(ctx, userID, sv.DateKey)
		if err != nil {
			return err
		}
		sv.ID = existing
	}
	if sv.ID == "" {
		sv.ID = uuid.NewString()
	}
	sv.Dirty = true
	sv.Touch()

	if err := sv.Validate(); err != nil {
		return fmt.Errorf("invalid survey: %w", err)
	}

	return s.writeSurvey(ctx, sv)
}

// UpsertSurveyFromServer reconciles one server record, marked clean.
// Returns false without writing when the resolved local row is dirty;
// unsynced local work waits for the next push. A same-id row owned by a
// different user is evicted first.
func (s *Store) UpsertSurveyFromServer(ctx context.Context, userID string, sv *schema.DailySurvey) (bool, error) {
	if userID == "" {
		return false, ErrNoSession
	}

	sv.OwnerUserID = userID
	sv.SetDefaults()

	if sv.ID != "" {
		var owner string
		var dirty bool
		err := s.conn.QueryRowContext(ctx,
			`SELECT owner_user_id, dirty FROM daily_survey WHERE id = ?`, sv.ID).
			Scan(&owner, &dirty)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// Fall through to day resolution below.
		case err != nil:
			return false, fmt.Errorf("failed to resolve survey %s: %w", sv.ID, err)
		case owner != userID:
			if _, err := s.conn.ExecContext(ctx, `DELETE FROM daily_survey WHERE id = ?`, sv.ID); err != nil {
				return false, fmt.Errorf("failed to evict conflicting row %s: %w", sv.ID, err)
			}
		case dirty:
			return false, nil
		}
	}

	// Day resolution keeps the (owner, day) uniqueness intact when the
	// server record arrives under a different id.
	existingID, existingDirty, err := s.surveyStateForDay(ctx, userID, sv.DateKey)
	if err != nil {
		return false, err
	}
	if existingID != "" {
		if existingDirty {
			return false, nil
		}
		if sv.ID == "" || sv.ID != existingID {
			if sv.ID != "" && sv.ID != existingID {
				if _, err := s.conn.ExecContext(ctx, `DELETE FROM daily_survey WHERE id = ?`, existingID); err != nil {
					return false, fmt.Errorf("failed to replace survey %s: %w", existingID, err)
				}
			} else {
				sv.ID = existingID
			}
		}
	}
	if sv.ID == "" {
		sv.ID = uuid.NewString()
	}
	sv.Dirty = false

	if err := sv.Validate(); err != nil {
		return false, fmt.Errorf("invalid survey from server: %w", err)
	}

	if err := s.writeSurvey(ctx, sv); err != nil {
		return false, err
	}
	return true, nil
}

// MarkSurveySynced flips dirty to false for the user's row on that day
// and drops an acknowledged tombstone.
func (s *Store) MarkSurveySynced(ctx context.Context, userID, dateKey string) error {
	if userID == "" {
		return ErrNoSession
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin mark-synced: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE daily_survey SET dirty = 0 WHERE owner_user_id = ? AND date_key = ?`,
		userID, dateKey); err != nil {
		return fmt.Errorf("failed to mark survey %s synced: %w", dateKey, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM daily_survey WHERE owner_user_id = ? AND date_key = ? AND deleted = 1`,
		userID, dateKey); err != nil {
		return fmt.Errorf("failed to purge survey tombstone for %s: %w", dateKey, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit mark-synced: %w", err)
	}
	return nil
}

// HasDirtySurvey reports whether the user's survey for the day has
// unsynced changes (including a pending tombstone).
func (s *Store) HasDirtySurvey(ctx context.Context, userID, dateKey string) (bool, error) {
	if userID == "" {
		return false, ErrNoSession
	}

	var count int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM daily_survey WHERE owner_user_id = ? AND date_key = ? AND dirty = 1`,
		userID, dateKey).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count dirty survey rows: %w", err)
	}
	return count > 0, nil
}

// DirtySurveyDays returns the distinct day keys with unsynced surveys,
// oldest first.
func (s *Store) DirtySurveyDays(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, ErrNoSession
	}
	return s.dirtyDays(ctx, "daily_survey", userID)
}

// DeleteSurvey tombstones the survey. Idempotent for unknown ids.
func (s *Store) DeleteSurvey(ctx context.Context, id, userID string) error {
	if userID == "" {
		return ErrNoSession
	}

	_, err := s.conn.ExecContext(ctx,
		`UPDATE daily_survey SET deleted = 1, dirty = 1, updated_at = ? WHERE id = ? AND owner_user_id = ?`,
		formatTime(time.Now()), id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete survey %s: %w", id, err)
	}
	return nil
}

func (s *Store) surveyIDForDay(ctx context.Context, userID, dateKey string) (string, error) {
	id, _, err := s.surveyStateForDay(ctx, userID, dateKey)
	return id, err
}

func (s *Store) surveyStateForDay(ctx context.Context, userID, dateKey string) (string, bool, error) {
	var id string
	var dirty bool
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, dirty FROM daily_survey WHERE owner_user_id = ? AND date_key = ?`,
		userID, dateKey).Scan(&id, &dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve survey for %s: %w", dateKey, err)
	}
	return id, dirty, nil
}

// dirtyDays is shared by the per-day-unique repositories.
func (s *Store) dirtyDays(ctx context.Context, table, userID string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT DISTINCT date_key FROM `+table+` WHERE owner_user_id = ? AND dirty = 1 ORDER BY date_key ASC`,
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

const upsertSurveyQuery = `
INSERT INTO daily_survey (
	id, owner_user_id, date_key, weight, motivation, sleep,
	stress, digestion, water, hunger, libido, comment,
	dirty, deleted, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	owner_user_id = excluded.owner_user_id,
	date_key = excluded.date_key,
	weight = excluded.weight,
	motivation = excluded.motivation,
	sleep = excluded.sleep,
	stress = excluded.stress,
	digestion = excluded.digestion,
	water = excluded.water,
	hunger = excluded.hunger,
	libido = excluded.libido,
	comment = excluded.comment,
	dirty = excluded.dirty,
	deleted = excluded.deleted,
	updated_at = excluded.updated_at
`

func (s *Store) writeSurvey(ctx context.Context, sv *schema.DailySurvey) error {
	_, err := s.conn.ExecContext(ctx, upsertSurveyQuery,
		sv.ID,
		sv.OwnerUserID,
		sv.DateKey,
		floatToNull(sv.Weight),
		intToNull(sv.Motivation),
		intToNull(sv.Sleep),
		intToNull(sv.Stress),
		intToNull(sv.Digestion),
		intToNull(sv.Water),
		intToNull(sv.Hunger),
		intToNull(sv.Libido),
		stringToNull(sv.Comment),
		sv.Dirty,
		sv.Deleted,
		formatTime(sv.CreatedAt),
		formatTime(sv.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert survey %s: %w", sv.ID, err)
	}
	return nil
}

func scanSurvey(row *sql.Row) (*schema.DailySurvey, error) {
	var sv schema.DailySurvey
	var weight sql.NullFloat64
	var motivation, sleep, stress, digestion, water, hunger, libido sql.NullInt64
	var comment sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&sv.ID,
		&sv.OwnerUserID,
		&sv.DateKey,
		&weight,
		&motivation,
		&sleep,
		&stress,
		&digestion,
		&water,
		&hunger,
		&libido,
		&comment,
		&sv.Dirty,
		&sv.Deleted,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	sv.Weight = nullToFloat(weight)
	sv.Motivation = nullToInt(motivation)
	sv.Sleep = nullToInt(sleep)
	sv.Stress = nullToInt(stress)
	sv.Digestion = nullToInt(digestion)
	sv.Water = nullToInt(water)
	sv.Hunger = nullToInt(hunger)
	sv.Libido = nullToInt(libido)
	sv.Comment = nullToString(comment)
	sv.CreatedAt = parseTime(createdAt)
	sv.UpdatedAt = parseTime(updatedAt)

	return &sv, nil
}
