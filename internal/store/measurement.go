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

const measurementColumns = `id, owner_user_id, date_key, weight, waist,
       left_arm, right_arm, left_leg, right_leg,
       photo_front, photo_side, photo_back,
       dirty, deleted, created_at, updated_at`

// GetMeasurementByDate returns the user's body measurement for one day,
// or nil when none exists (or it is tombstoned).
func (s *Store) GetMeasurementByDate(ctx context.Context, userID, dateKey string) (*schema.BodyMeasurement, error) {
	if userID == "" {
		return nil, ErrNoSession
	}

	query := `
	SELECT ` + measurementColumns + `
	FROM body_measurement
	WHERE owner_user_id = ? AND date_key = ? AND deleted = 0
	`

	row := s.conn.QueryRowContext(ctx, query, userID, dateKey)
	m, err := scanMeasurement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query measurement: %w", err)
	}
	return m, nil
}

// UpsertMeasurementLocal records a user-driven write.
//
// Resolution order: the measurement's explicit ID if set, otherwise the
// existing row for (userID, dateKey); a new row with a fresh id is
// inserted when neither resolves. Always marks the row dirty and
// touches updated_at.
func (s *Store) UpsertMeasurementLocal(ctx context.Context, userID string, m *schema.BodyMeasurement) error {
	if userID == "" {
		return ErrNoSession
	}

	m.OwnerUserID = userID
	m.SetDefaults()

	if m.ID == "" {
		existing, _, err := s.measurementStateForDay(ctx, userID, m.DateKey)
		if err != nil {
			return err
		}
		m.ID = existing
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.Dirty = true
	m.Touch()

	if err := m.Validate(); err != nil {
		return fmt.Errorf("invalid measurement: %w", err)
	}

	return s.writeMeasurement(ctx, m)
}

// UpsertMeasurementFromServer reconciles one server record, marked
// clean. Returns false without writing when the resolved local row is
// dirty. A same-id row owned by a different user is evicted first.
func (s *Store) UpsertMeasurementFromServer(ctx context.Context, userID string, m *schema.BodyMeasurement) (bool, error) {
	if userID == "" {
		return false, ErrNoSession
	}

	m.OwnerUserID = userID
	m.SetDefaults()

	if m.ID != "" {
		var owner string
		var dirty bool
		err := s.conn.QueryRowContext(ctx,
			`SELECT owner_user_id, dirty FROM body_measurement WHERE id = ?`, m.ID).
			Scan(&owner, &dirty)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// Fall through to day resolution below.
		case err != nil:
			return false, fmt.Errorf("failed to resolve measurement %s: %w", m.ID, err)
		case owner != userID:
			if _, err := s.conn.ExecContext(ctx, `DELETE FROM body_measurement WHERE id = ?`, m.ID); err != nil {
				return false, fmt.Errorf("failed to evict conflicting row %s: %w", m.ID, err)
			}
		case dirty:
			return false, nil
		}
	}

	existingID, existingDirty, err := s.measurementStateForDay(ctx, userID, m.DateKey)
	if err != nil {
		return false, err
	}
	if existingID != "" {
		if existingDirty {
			return false, nil
		}
		if m.ID != "" && m.ID != existingID {
			if _, err := s.conn.ExecContext(ctx, `DELETE FROM body_measurement WHERE id = ?`, existingID); err != nil {
				return false, fmt.Errorf("failed to replace measurement %s: %w", existingID, err)
			}
		} else if m.ID == "" {
			m.ID = existingID
		}
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.Dirty = false

	if err := m.Validate(); err != nil {
		return false, fmt.Errorf("invalid measurement from server: %w", err)
	}

	if err := s.writeMeasurement(ctx, m); err != nil {
		return false, err
	}
	return true, nil
}

// MarkMeasurementSynced flips dirty to false for the user's row on that
// day and drops an acknowledged tombstone.
func (s *Store) MarkMeasurementSynced(ctx context.Context, userID, dateKey string) error {
	if userID == "" {
		return ErrNoSession
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin mark-synced: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE body_measurement SET dirty = 0 WHERE owner_user_id = ? AND date_key = ?`,
		userID, dateKey); err != nil {
		return fmt.Errorf("failed to mark measurement %s synced: %w", dateKey, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM body_measurement WHERE owner_user_id = ? AND date_key = ? AND deleted = 1`,
		userID, dateKey); err != nil {
		return fmt.Errorf("failed to purge measurement tombstone for %s: %w", dateKey, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit mark-synced: %w", err)
	}
	return nil
}

// HasDirtyMeasurement reports whether the user's measurement for the
// day has unsynced changes (including a pending tombstone).
func (s *Store) HasDirtyMeasurement(ctx context.Context, userID, dateKey string) (bool, error) {
	if userID == "" {
		return false, ErrNoSession
	}

	var count int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM body_measurement WHERE owner_user_id = ? AND date_key = ? AND dirty = 1`,
		userID, dateKey).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count dirty measurement rows: %w", err)
	}
	return count > 0, nil
}

// DirtyMeasurementDays returns the distinct day keys with unsynced
// measurements, oldest first.
func (s *Store) DirtyMeasurementDays(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, ErrNoSession
	}
	return s.dirtyDays(ctx, "body_measurement", userID)
}

// DeleteMeasurement tombstones the measurement. Idempotent for unknown ids.
func (s *Store) DeleteMeasurement(ctx context.Context, id, userID string) error {
	if userID == "" {
		return ErrNoSession
	}

	_, err := s.conn.ExecContext(ctx,
		`UPDATE body_measurement SET deleted = 1, dirty = 1, updated_at = ? WHERE id = ? AND owner_user_id = ?`,
		formatTime(time.Now()), id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete measurement %s: %w", id, err)
	}
	return nil
}

func (s *Store) measurementStateForDay(ctx context.Context, userID, dateKey string) (string, bool, error) {
	var id string
	var dirty bool
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, dirty FROM body_measurement WHERE owner_user_id = ? AND date_key = ?`,
		userID, dateKey).Scan(&id, &dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve measurement for %s: %w", dateKey, err)
	}
	return id, dirty, nil
}

const upsertMeasurementQuery = `
INSERT INTO body_measurement (
	id, owner_user_id, date_key, weight, waist,
	left_arm, right_arm, left_leg, right_leg,
	photo_front, photo_side, photo_back,
	dirty, deleted, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	owner_user_id = excluded.owner_user_id,
	date_key = excluded.date_key,
	weight = excluded.weight,
	waist = excluded.waist,
	left_arm = excluded.left_arm,
	right_arm = excluded.right_arm,
	left_leg = excluded.left_leg,
	right_leg = excluded.right_leg,
	photo_front = excluded.photo_front,
	photo_side = excluded.photo_side,
	photo_back = excluded.photo_back,
	dirty = excluded.dirty,
	deleted = excluded.deleted,
	updated_at = excluded.updated_at
`

func (s *Store) writeMeasurement(ctx context.Context, m *schema.BodyMeasurement) error {
	_, err := s.conn.ExecContext(ctx, upsertMeasurementQuery,
		m.ID,
		m.OwnerUserID,
		m.DateKey,
		floatToNull(m.Weight),
		floatToNull(m.Waist),
		floatToNull(m.LeftArm),
		floatToNull(m.RightArm),
		floatToNull(m.LeftLeg),
		floatToNull(m.RightLeg),
		stringToNull(m.PhotoFront),
		stringToNull(m.PhotoSide),
		stringToNull(m.PhotoBack),
		m.Dirty,
		m.Deleted,
		formatTime(m.CreatedAt),
		formatTime(m.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert measurement %s: %w", m.ID, err)
	}
	return nil
}

func scanMeasurement(row *sql.Row) (*schema.BodyMeasurement, error) {
	var m schema.BodyMeasurement
	var weight, waist, leftArm, rightArm, leftLeg, rightLeg sql.NullFloat64
	var photoFront, photoSide, photoBack sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&m.ID,
		&m.OwnerUserID,
		&m.DateKey,
		&weight,
		&waist,
		&leftArm,
		&rightArm,
		&leftLeg,
		&rightLeg,
		&photoFront,
		&photoSide,
		&photoBack,
		&m.Dirty,
		&m.Deleted,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.Weight = nullToFloat(weight)
	m.Waist = nullToFloat(waist)
	m.LeftArm = nullToFloat(leftArm)
	m.RightArm = nullToFloat(rightArm)
	m.LeftLeg = nullToFloat(leftLeg)
	m.RightLeg = nullToFloat(rightLeg)
	m.PhotoFront = nullToString(photoFront)
	m.PhotoSide = nullToString(photoSide)
	m.PhotoBack = nullToString(photoBack)
	m.CreatedAt = parseTime(createdAt)
	m.UpdatedAt = parseTime(updatedAt)

	return &m, nil
}
