package export

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/vitalog/vita/internal/schema"
	"github.com/vitalog/vita/internal/store"
)

func setupStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	if err := st.SetActiveUser(ctx, "alice"); err != nil {
		t.Fatalf("SetActiveUser() failed: %v", err)
	}
	return st
}

func seedDay(t *testing.T, st *store.Store, day string) {
	t.Helper()
	ctx := context.Background()

	e := &schema.NutritionEntry{
		DateKey:  day,
		Label:    "oats",
		LoggedAt: time.Date(2026, 1, 6, 8, 30, 0, 0, time.UTC),
		Protein:  30,
		Carbs:    45,
	}
	if err := st.UpsertNutritionLocal(ctx, "alice", e); err != nil {
		t.Fatalf("UpsertNutritionLocal() failed: %v", err)
	}

	w := 82.4
	sv := &schema.DailySurvey{DateKey: day, Weight: &w}
	if err := st.UpsertSurveyLocal(ctx, "alice", sv); err != nil {
		t.Fatalf("UpsertSurveyLocal() failed: %v", err)
	}

	waist := 86.5
	m := &schema.BodyMeasurement{DateKey: day, Waist: &waist}
	if err := st.UpsertMeasurementLocal(ctx, "alice", m); err != nil {
		t.Fatalf("UpsertMeasurementLocal() failed: %v", err)
	}
}

func TestExport_CollectsOnlyDaysWithData(t *testing.T) {
	st := setupStore(t)
	seedDay(t, st, "2026-01-06")

	snap, err := New(st).Export(context.Background(), "2026-01-01", "2026-01-10")
	if err != nil {
		t.Fatalf("Export() failed: %v", err)
	}

	if len(snap.Days) != 1 {
		t.Fatalf("len(Days) = %d, want 1", len(snap.Days))
	}
	day := snap.Days[0]
	if day.Date != "2026-01-06" {
		t.Errorf("Date = %q", day.Date)
	}
	if len(day.Meals) != 1 || day.Meals[0].Label != "oats" {
		t.Errorf("Meals = %+v", day.Meals)
	}
	if day.Survey == nil || day.Survey.Weight == nil || *day.Survey.Weight != 82.4 {
		t.Errorf("Survey = %+v", day.Survey)
	}
	if day.Measurement == nil || day.Measurement.Waist == nil || *day.Measurement.Waist != 86.5 {
		t.Errorf("Measurement = %+v", day.Measurement)
	}
}

func TestExport_BackwardsRangeRejected(t *testing.T) {
	st := setupStore(t)

	if _, err := New(st).Export(context.Background(), "2026-01-10", "2026-01-01"); err == nil {
		t.Error("backwards range accepted")
	}
}

func TestWriteAndReadFile_JSONAndYAML(t *testing.T) {
	snap := &Snapshot{
		ExportedAt: time.Now().UTC(),
		Days: []DayRecord{{
			Date:  "2026-01-06",
			Meals: []MealRecord{{Label: "oats", LoggedAt: time.Now().UTC(), Protein: 30}},
		}},
	}

	for _, format := range []Format{FormatJSON, FormatYAML} {
		path := filepath.Join(t.TempDir(), "snap."+string(format))
		if err := WriteFile(snap, path, format); err != nil {
			t.Fatalf("WriteFile(%s) failed: %v", format, err)
		}

		got, err := ReadFile(path, format)
		if err != nil {
			t.Fatalf("ReadFile(%s) failed: %v", format, err)
		}
		if len(got.Days) != 1 || got.Days[0].Date != "2026-01-06" {
			t.Errorf("%s round trip lost data: %+v", format, got.Days)
		}
		if len(got.Days[0].Meals) != 1 || got.Days[0].Meals[0].Protein != 30 {
			t.Errorf("%s round trip lost meal data: %+v", format, got.Days[0].Meals)
		}
	}
}

func TestImport_LandsDirty(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	w := 81.0
	snap := &Snapshot{
		Days: []DayRecord{{
			Date:   "2026-01-05",
			Meals:  []MealRecord{{Label: "imported meal", LoggedAt: time.Now(), Protein: 20}},
			Survey: &SurveySnapshot{Weight: &w},
		}},
	}

	res, err := New(st).Import(ctx, snap)
	if err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	if res.Meals != 1 || res.Surveys != 1 || res.Measurements != 0 {
		t.Errorf("result = %+v", res)
	}

	// Imported rows queue for the next push like any local edit.
	if dirty, _ := st.HasDirtyNutrition(ctx, "alice", "2026-01-05"); !dirty {
		t.Error("imported meal not marked dirty")
	}
	if dirty, _ := st.HasDirtySurvey(ctx, "alice", "2026-01-05"); !dirty {
		t.Error("imported survey not marked dirty")
	}
}

func TestImport_InvalidDateRejected(t *testing.T) {
	st := setupStore(t)

	snap := &Snapshot{Days: []DayRecord{{Date: "bogus"}}}
	if _, err := New(st).Import(context.Background(), snap); err == nil {
		t.Error("invalid date accepted")
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("yml"); err != nil || f != FormatYAML {
		t.Errorf("ParseFormat(yml) = %v, %v", f, err)
	}
	if f, err := ParseFormat(""); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(\"\") = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("unknown format accepted")
	}
}
