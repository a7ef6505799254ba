package schema

import (
	"fmt"
	"time"
)

// BodyMeasurement is the periodic body check. At most one row exists
// per (OwnerUserID, DateKey).
//
// The server reports a single value for paired limbs (arms, legs); the
// local model keeps left/right separately and duplicates the server
// value into both sides on pull.
type BodyMeasurement struct {
	// ===== Identity & Scoping =====
	ID          string `json:"id"`
	OwnerUserID string `json:"owner_user_id"`
	DateKey     string `json:"date_key"`

	// ===== Payload =====
	Weight *float64 `json:"weight,omitempty"` // kg, optional

	// Circumferences in cm, all optional.
	Waist    *float64 `json:"waist,omitempty"`
	LeftArm  *float64 `json:"left_arm,omitempty"`
	RightArm *float64 `json:"right_arm,omitempty"`
	LeftLeg  *float64 `json:"left_leg,omitempty"`
	RightLeg *float64 `json:"right_leg,omitempty"`

	// Photo references (paths or object keys), all optional.
	PhotoFront *string `json:"photo_front,omitempty"`
	PhotoSide  *string `json:"photo_side,omitempty"`
	PhotoBack  *string `json:"photo_back,omitempty"`

	// ===== Sync Bookkeeping =====
	Dirty     bool      `json:"dirty"`
	Deleted   bool      `json:"deleted,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks field values before the measurement is persisted.
func (m *BodyMeasurement) Validate() error {
	if m.OwnerUserID == "" {
		return fmt.Errorf("owner_user_id is required")
	}
	if err := ValidateDateKey(m.DateKey); err != nil {
		return err
	}
	if m.Weight != nil && (*m.Weight <= 0 || *m.Weight > 500) {
		return fmt.Errorf("weight out of range (got %g)", *m.Weight)
	}
	for name, v := range map[string]*float64{
		"waist": m.Waist, "left_arm": m.LeftArm, "right_arm": m.RightArm,
		"left_leg": m.LeftLeg, "right_leg": m.RightLeg,
	} {
		if v != nil && (*v <= 0 || *v > 300) {
			return fmt.Errorf("%s circumference out of range (got %g)", name, *v)
		}
	}
	return nil
}

// SetDefaults fills optional fields so omitted values behave consistently.
func (m *BodyMeasurement) SetDefaults() {
	now := time.Now()
	if m.DateKey == "" {
		m.DateKey = DateKey(now)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = now
	}
}

// Touch sets UpdatedAt to the current time. Call on every mutation.
func (m *BodyMeasurement) Touch() {
	m.UpdatedAt = time.Now()
}
