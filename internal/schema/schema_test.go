package schema

import (
	"strings"
	"testing"
	"time"
)

func TestDateKey(t *testing.T) {
	got := DateKey(time.Date(2026, 1, 6, 23, 45, 0, 0, time.UTC))
	if got != "2026-01-06" {
		t.Errorf("DateKey() = %q, want %q", got, "2026-01-06")
	}
}

func TestValidateDateKey(t *testing.T) {
	valid := []string{"2026-01-06", "1999-12-31", "2024-02-29"}
	for _, s := range valid {
		if err := ValidateDateKey(s); err != nil {
			t.Errorf("ValidateDateKey(%q) = %v, want nil", s, err)
		}
	}

	invalid := []string{"", "2026-1-6", "06-01-2026", "2026-13-01", "2025-02-29", "yesterday", "2026-01-06T00:00:00Z"}
	for _, s := range invalid {
		if err := ValidateDateKey(s); err == nil {
			t.Errorf("ValidateDateKey(%q) = nil, want error", s)
		}
	}
}

func TestDaysAgo(t *testing.T) {
	got := DaysAgo(0)
	want := DateKey(time.Now())
	if got != want {
		t.Errorf("DaysAgo(0) = %q, want %q", got, want)
	}

	if err := ValidateDateKey(DaysAgo(90)); err != nil {
		t.Errorf("DaysAgo(90) produced an invalid key: %v", err)
	}
}

func TestNutritionEntry_Validate(t *testing.T) {
	base := func() *NutritionEntry {
		return &NutritionEntry{
			OwnerUserID: "alice",
			DateKey:     "2026-01-06",
			Label:       "oats",
			Protein:     30,
		}
	}

	if err := base().Validate(); err != nil {
		t.Errorf("valid entry rejected: %v", err)
	}

	e := base()
	e.OwnerUserID = ""
	if err := e.Validate(); err == nil {
		t.Error("entry without owner accepted")
	}

	e = base()
	e.Label = ""
	if err := e.Validate(); err == nil {
		t.Error("entry without label accepted")
	}

	e = base()
	e.Label = strings.Repeat("x", 501)
	if err := e.Validate(); err == nil {
		t.Error("oversized label accepted")
	}

	e = base()
	e.Fat = -1
	if err := e.Validate(); err == nil {
		t.Error("negative portion accepted")
	}
}

func TestNutritionEntry_SetDefaults(t *testing.T) {
	e := &NutritionEntry{LoggedAt: time.Date(2026, 1, 6, 9, 0, 0, 0, time.Local)}
	e.SetDefaults()

	if e.DateKey != "2026-01-06" {
		t.Errorf("DateKey = %q, want derived from LoggedAt", e.DateKey)
	}
	if e.CreatedAt.IsZero() || e.UpdatedAt.IsZero() {
		t.Error("timestamps not defaulted")
	}
}

func TestDailySurvey_Validate(t *testing.T) {
	w := 82.4
	rating := 3
	sv := &DailySurvey{OwnerUserID: "alice", DateKey: "2026-01-06", Weight: &w, Sleep: &rating}
	if err := sv.Validate(); err != nil {
		t.Errorf("valid survey rejected: %v", err)
	}

	bad := 6
	sv.Motivation = &bad
	if err := sv.Validate(); err == nil {
		t.Error("rating above max accepted")
	}
	low := 0
	sv.Motivation = &low
	if err := sv.Validate(); err == nil {
		t.Error("rating below min accepted")
	}

	sv.Motivation = nil
	negative := -5.0
	sv.Weight = &negative
	if err := sv.Validate(); err == nil {
		t.Error("non-positive weight accepted")
	}
}

func TestBodyMeasurement_Validate(t *testing.T) {
	waist := 86.5
	m := &BodyMeasurement{OwnerUserID: "alice", DateKey: "2026-01-06", Waist: &waist}
	if err := m.Validate(); err != nil {
		t.Errorf("valid measurement rejected: %v", err)
	}

	bad := -1.0
	m.LeftArm = &bad
	if err := m.Validate(); err == nil {
		t.Error("negative circumference accepted")
	}
}
