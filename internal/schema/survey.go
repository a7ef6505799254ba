package schema

import (
	"fmt"
	"time"
)

// Wellness ratings are on a 1..5 scale. Nil means "not answered".
const (
	RatingMin = 1
	RatingMax = 5
)

// DailySurvey is the once-per-day wellness check-in. At most one row
// exists per (OwnerUserID, DateKey).
type DailySurvey struct {
	// ===== Identity & Scoping =====
	ID          string `json:"id"`
	OwnerUserID string `json:"owner_user_id"`
	DateKey     string `json:"date_key"`

	// ===== Payload =====
	Weight *float64 `json:"weight,omitempty"` // kg, optional

	Motivation *int `json:"motivation,omitempty"`
	Sleep      *int `json:"sleep,omitempty"`
	Stress     *int `json:"stress,omitempty"`
	Digestion  *int `json:"digestion,omitempty"`
	Water      *int `json:"water,omitempty"`
	Hunger     *int `json:"hunger,omitempty"`
	Libido     *int `json:"libido,omitempty"`

	Comment *string `json:"comment,omitempty"`

	// ===== Sync Bookkeeping =====
	Dirty     bool      `json:"dirty"`
	Deleted   bool      `json:"deleted,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks field values before the survey is persisted.
func (s *DailySurvey) Validate() error {
	if s.OwnerUserID == "" {
		return fmt.Errorf("owner_user_id is required")
	}
	if err := ValidateDateKey(s.DateKey); err != nil {
		return err
	}
	if s.Weight != nil && (*s.Weight <= 0 || *s.Weight > 500) {
		return fmt.Errorf("weight out of range (got %g)", *s.Weight)
	}
	for name, v := range map[string]*int{
		"motivation": s.Motivation, "sleep": s.Sleep, "stress": s.Stress,
		"digestion": s.Digestion, "water": s.Water, "hunger": s.Hunger,
		"libido": s.Libido,
	} {
		if v != nil && (*v < RatingMin || *v > RatingMax) {
			return fmt.Errorf("%s rating must be between %d and %d (got %d)", name, RatingMin, RatingMax, *v)
		}
	}
	return nil
}

// SetDefaults fills optional fields so omitted values behave consistently.
func (s *DailySurvey) SetDefaults() {
	now := time.Now()
	if s.DateKey == "" {
		s.DateKey = DateKey(now)
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = now
	}
}

// Touch sets UpdatedAt to the current time. Call on every mutation.
func (s *DailySurvey) Touch() {
	s.UpdatedAt = time.Now()
}
