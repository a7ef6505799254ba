package schema

import (
	"fmt"
	"time"
)

// NutritionEntry is one logged food item. A day holds any number of
// entries; they are grouped, pushed, and replaced as a whole day.
type NutritionEntry struct {
	// ===== Identity & Scoping =====
	ID          string `json:"id"`
	OwnerUserID string `json:"owner_user_id"`
	DateKey     string `json:"date_key"`

	// ===== Payload =====
	Label    string    `json:"label"`
	LoggedAt time.Time `json:"logged_at"` // wall-clock time the food was eaten

	// Portion counters, in configured portion units.
	Protein float64 `json:"protein"`
	Fat     float64 `json:"fat"`
	Carbs   float64 `json:"carbs"`
	Fiber   float64 `json:"fiber"`

	// ===== Sync Bookkeeping =====
	Dirty     bool      `json:"dirty"`
	Deleted   bool      `json:"deleted,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks field values before the entry is persisted.
func (e *NutritionEntry) Validate() error {
	if e.OwnerUserID == "" {
		return fmt.Errorf("owner_user_id is required")
	}
	if err := ValidateDateKey(e.DateKey); err != nil {
		return err
	}
	if e.Label == "" {
		return fmt.Errorf("label is required")
	}
	if len(e.Label) > 500 {
		return fmt.Errorf("label must be 500 characters or less (got %d)", len(e.Label))
	}
	for name, v := range map[string]float64{
		"protein": e.Protein, "fat": e.Fat, "carbs": e.Carbs, "fiber": e.Fiber,
	} {
		if v < 0 {
			return fmt.Errorf("%s portion cannot be negative (got %g)", name, v)
		}
	}
	return nil
}

// SetDefaults fills optional fields so omitted values behave consistently.
func (e *NutritionEntry) SetDefaults() {
	now := time.Now()
	if e.LoggedAt.IsZero() {
		e.LoggedAt = now
	}
	if e.DateKey == "" {
		e.DateKey = DateKey(e.LoggedAt)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = now
	}
}

// Touch sets UpdatedAt to the current time. Call on every mutation.
func (e *NutritionEntry) Touch() {
	e.UpdatedAt = time.Now()
}
