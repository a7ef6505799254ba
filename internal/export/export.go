// Package export reads and writes vita's local data as portable JSON
// or YAML snapshots. Exports are plain day records with no sync
// bookkeeping; imports land as ordinary local edits and push on the
// next sync cycle.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vitalog/vita/internal/schema"
	"github.com/vitalog/vita/internal/store"
)

// Format selects the snapshot encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat maps a user-supplied format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "json", "":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown export format: %q (want json or yaml)", s)
	}
}

// MealRecord is one logged meal in a snapshot.
type MealRecord struct {
	Label    string    `json:"label" yaml:"label"`
	LoggedAt time.Time `json:"logged_at" yaml:"logged_at"`
	Protein  float64   `json:"protein" yaml:"protein"`
	Fat      float64   `json:"fat" yaml:"fat"`
	Carbs    float64   `json:"carbs" yaml:"carbs"`
	Fiber    float64   `json:"fiber" yaml:"fiber"`
}

// SurveySnapshot is the daily survey in a snapshot. Absent answers are
// omitted.
type SurveySnapshot struct {
	Weight     *float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
	Motivation *int     `json:"motivation,omitempty" yaml:"motivation,omitempty"`
	Sleep      *int     `json:"sleep,omitempty" yaml:"sleep,omitempty"`
	Stress     *int     `json:"stress,omitempty" yaml:"stress,omitempty"`
	Digestion  *int     `json:"digestion,omitempty" yaml:"digestion,omitempty"`
	Water      *int     `json:"water,omitempty" yaml:"water,omitempty"`
	Hunger     *int     `json:"hunger,omitempty" yaml:"hunger,omitempty"`
	Libido     *int     `json:"libido,omitempty" yaml:"libido,omitempty"`
	Comment    *string  `json:"comment,omitempty" yaml:"comment,omitempty"`
}

// MeasurementSnapshot is the body measurement in a snapshot.
type MeasurementSnapshot struct {
	Weight   *float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
	Waist    *float64 `json:"waist,omitempty" yaml:"waist,omitempty"`
	LeftArm  *float64 `json:"left_arm,omitempty" yaml:"left_arm,omitempty"`
	RightArm *float64 `json:"right_arm,omitempty" yaml:"right_arm,omitempty"`
	LeftLeg  *float64 `json:"left_leg,omitempty" yaml:"left_leg,omitempty"`
	RightLeg *float64 `json:"right_leg,omitempty" yaml:"right_leg,omitempty"`
}

// DayRecord bundles everything vita knows about one day.
type DayRecord struct {
	Date        string               `json:"date" yaml:"date"`
	Meals       []MealRecord         `json:"meals,omitempty" yaml:"meals,omitempty"`
	Survey      *SurveySnapshot      `json:"survey,omitempty" yaml:"survey,omitempty"`
	Measurement *MeasurementSnapshot `json:"measurement,omitempty" yaml:"measurement,omitempty"`
}

// Snapshot is the top-level export document.
type Snapshot struct {
	ExportedAt time.Time   `json:"exported_at" yaml:"exported_at"`
	Days       []DayRecord `json:"days" yaml:"days"`
}

// Exporter reads day records out of the local store.
type Exporter struct {
	store *store.Store
}

// New creates an Exporter over the store.
func New(st *store.Store) *Exporter {
	return &Exporter{store: st}
}

// Export collects every day in [fromKey, toKey] that has any data and
// returns the snapshot. Both bounds are inclusive day keys.
func (e *Exporter) Export(ctx context.Context, fromKey, toKey string) (*Snapshot, error) {
	if err := schema.ValidateDateKey(fromKey); err != nil {
		return nil, err
	}
	if err := schema.ValidateDateKey(toKey); err != nil {
		return nil, err
	}

	userID, err := e.store.ActiveUser(ctx)
	if err != nil {
		return nil, err
	}

	from, _ := time.Parse(schema.DateKeyLayout, fromKey)
	to, _ := time.Parse(schema.DateKeyLayout, toKey)
	if to.Before(from) {
		return nil, fmt.Errorf("export range is backwards: %s after %s", fromKey, toKey)
	}

	snap := &Snapshot{ExportedAt: time.Now().UTC()}

	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		rec, err := e.exportDay(ctx, userID, day.Format(schema.DateKeyLayout))
		if err != nil {
			return nil, err
		}
		if rec != nil {
			snap.Days = append(snap.Days, *rec)
		}
	}
	return snap, nil
}

func (e *Exporter) exportDay(ctx context.Context, userID, dateKey string) (*DayRecord, error) {
	entries, err := e.store.GetNutritionByDate(ctx, userID, dateKey)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", dateKey, err)
	}
	sv, err := e.store.GetSurveyByDate(ctx, userID, dateKey)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", dateKey, err)
	}
	m, err := e.store.GetMeasurementByDate(ctx, userID, dateKey)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", dateKey, err)
	}

	if len(entries) == 0 && sv == nil && m == nil {
		return nil, nil
	}

	rec := &DayRecord{Date: dateKey}
	for _, entry := range entries {
		rec.Meals = append(rec.Meals, MealRecord{
			Label:    entry.Label,
			LoggedAt: entry.LoggedAt,
			Protein:  entry.Protein,
			Fat:      entry.Fat,
			Carbs:    entry.Carbs,
			Fiber:    entry.Fiber,
		})
	}
	if sv != nil {
		rec.Survey = &SurveySnapshot{
			Weight:     sv.Weight,
			Motivation: sv.Motivation,
			Sleep:      sv.Sleep,
			Stress:     sv.Stress,
			Digestion:  sv.Digestion,
			Water:      sv.Water,
			Hunger:     sv.Hunger,
			Libido:     sv.Libido,
			Comment:    sv.Comment,
		}
	}
	if m != nil {
		rec.Measurement = &MeasurementSnapshot{
			Weight:   m.Weight,
			Waist:    m.Waist,
			LeftArm:  m.LeftArm,
			RightArm: m.RightArm,
			LeftLeg:  m.LeftLeg,
			RightLeg: m.RightLeg,
		}
	}
	return rec, nil
}

// WriteFile encodes the snapshot and writes it atomically via a temp
// file.
func WriteFile(snap *Snapshot, path string, format Format) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatYAML:
		data, err = yaml.Marshal(snap)
	default:
		data, err = json.MarshalIndent(snap, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize export: %w", err)
	}
	return nil
}

// ReadFile decodes a snapshot from disk. The format is inferred from
// the extension unless forced.
func ReadFile(path string, format Format) (*Snapshot, error) {
	// #nosec G304 - controlled path from CLI
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	if format == "" {
		switch filepath.Ext(path) {
		case ".yaml", ".yml":
			format = FormatYAML
		default:
			format = FormatJSON
		}
	}

	var snap Snapshot
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &snap)
	default:
		err = json.Unmarshal(data, &snap)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}
	return &snap, nil
}

// ImportResult summarizes what Import changed.
type ImportResult struct {
	Meals        int
	Surveys      int
	Measurements int
}

// Import applies a snapshot as local edits for the active user. Every
// imported row lands dirty and pushes on the next sync cycle. Meals
// are appended, never deduplicated; surveys and measurements replace
// the day's record field by field.
func (e *Exporter) Import(ctx context.Context, snap *Snapshot) (*ImportResult, error) {
	userID, err := e.store.ActiveUser(ctx)
	if err != nil {
		return nil, err
	}

	res := &ImportResult{}
	for _, day := range snap.Days {
		if err := schema.ValidateDateKey(day.Date); err != nil {
			return res, fmt.Errorf("import: %w", err)
		}

		for _, meal := range day.Meals {
			entry := &schema.NutritionEntry{
				DateKey:  day.Date,
				Label:    meal.Label,
				LoggedAt: meal.LoggedAt,
				Protein:  meal.Protein,
				Fat:      meal.Fat,
				Carbs:    meal.Carbs,
				Fiber:    meal.Fiber,
			}
			if err := e.store.UpsertNutritionLocal(ctx, userID, entry); err != nil {
				return res, fmt.Errorf("import meal on %s: %w", day.Date, err)
			}
			res.Meals++
		}

		if day.Survey != nil {
			sv := &schema.DailySurvey{
				DateKey:    day.Date,
				Weight:     day.Survey.Weight,
				Motivation: day.Survey.Motivation,
				Sleep:      day.Survey.Sleep,
				Stress:     day.Survey.Stress,
				Digestion:  day.Survey.Digestion,
				Water:      day.Survey.Water,
				Hunger:     day.Survey.Hunger,
				Libido:     day.Survey.Libido,
				Comment:    day.Survey.Comment,
			}
			if err := e.store.UpsertSurveyLocal(ctx, userID, sv); err != nil {
				return res, fmt.Errorf("import survey on %s: %w", day.Date, err)
			}
			res.Surveys++
		}

		if day.Measurement != nil {
			m := &schema.BodyMeasurement{
				DateKey:  day.Date,
				Weight:   day.Measurement.Weight,
				Waist:    day.Measurement.Waist,
				LeftArm:  day.Measurement.LeftArm,
				RightArm: day.Measurement.RightArm,
				LeftLeg:  day.Measurement.LeftLeg,
				RightLeg: day.Measurement.RightLeg,
			}
			if err := e.store.UpsertMeasurementLocal(ctx, userID, m); err != nil {
				return res, fmt.Errorf("import measurement on %s: %w", day.Date, err)
			}
			res.Measurements++
		}
	}
	return res, nil
}
