package remote

import (
	"time"

	"github.com/vitalog/vita/internal/schema"
)

// Wire types mirror the remote service's JSON contract. Field names are
// the server's, not the local schema's; converters below bridge the two.

// DiaryDay is one day's full nutrition log on the wire. Pushing a day
// replaces its entire meal list server-side.
type DiaryDay struct {
	Date  string `json:"date"`
	Meals []Meal `json:"meals"`
}

// Meal is a single logged item inside a DiaryDay.
type Meal struct {
	ID      string  `json:"id,omitempty"`
	Name    string  `json:"name"`
	Time    string  `json:"time"` // RFC 3339
	Protein float64 `json:"protein"`
	Fat     float64 `json:"fat"`
	Carbs   float64 `json:"carbs"`
	Fiber   float64 `json:"fiber"`
}

// SurveyRecord is one daily survey on the wire.
type SurveyRecord struct {
	ID         string   `json:"id,omitempty"`
	Date       string   `json:"date"`
	Weight     *float64 `json:"weight,omitempty"`
	Motivation *int     `json:"motivation,omitempty"`
	Sleep      *int     `json:"sleep,omitempty"`
	Stress     *int     `json:"stress,omitempty"`
	Digestion  *int     `json:"digestion,omitempty"`
	Water      *int     `json:"water,omitempty"`
	Hunger     *int     `json:"hunger,omitempty"`
	Libido     *int     `json:"libido,omitempty"`
	Comment    *string  `json:"comment,omitempty"`
}

// MeasurementRecord is one body measurement on the wire. The server
// keeps a single value per limb pair (arms, legs).
type MeasurementRecord struct {
	ID         string   `json:"id,omitempty"`
	Date       string   `json:"date"`
	Weight     *float64 `json:"weight,omitempty"`
	Waist      *float64 `json:"waist,omitempty"`
	Arms       *float64 `json:"arms,omitempty"`
	Legs       *float64 `json:"legs,omitempty"`
	PhotoFront *string  `json:"photo_front,omitempty"`
	PhotoSide  *string  `json:"photo_side,omitempty"`
	PhotoBack  *string  `json:"photo_back,omitempty"`
}

// DiaryDayFromEntries builds the push payload for one day.
// Tombstoned entries are omitted; since a day push replaces the whole
// list server-side, omission is how local deletes propagate.
func DiaryDayFromEntries(dateKey string, entries []*schema.NutritionEntry) DiaryDay {
	day := DiaryDay{Date: dateKey, Meals: []Meal{}}
	for _, e := range entries {
		if e.Deleted {
			continue
		}
		day.Meals = append(day.Meals, Meal{
			ID:      e.ID,
			Name:    e.Label,
			Time:    e.LoggedAt.Format(time.RFC3339),
			Protein: e.Protein,
			Fat:     e.Fat,
			Carbs:   e.Carbs,
			Fiber:   e.Fiber,
		})
	}
	return day
}

// Entries converts a pulled day back into local entries.
func (d DiaryDay) Entries() []*schema.NutritionEntry {
	entries := make([]*schema.NutritionEntry, 0, len(d.Meals))
	for _, m := range d.Meals {
		loggedAt, err := time.Parse(time.RFC3339, m.Time)
		if err != nil {
			loggedAt = time.Time{}
		}
		entries = append(entries, &schema.NutritionEntry{
			ID:       m.ID,
			DateKey:  d.Date,
			Label:    m.Name,
			LoggedAt: loggedAt,
			Protein:  m.Protein,
			Fat:      m.Fat,
			Carbs:    m.Carbs,
			Fiber:    m.Fiber,
		})
	}
	return entries
}

// SurveyRecordFromLocal builds the push payload for one survey.
func SurveyRecordFromLocal(sv *schema.DailySurvey) SurveyRecord {
	return SurveyRecord{
		ID:         sv.ID,
		Date:       sv.DateKey,
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

// Survey converts a pulled record back into a local survey.
func (r SurveyRecord) Survey() *schema.DailySurvey {
	return &schema.DailySurvey{
		ID:         r.ID,
		DateKey:    r.Date,
		Weight:     r.Weight,
		Motivation: r.Motivation,
		Sleep:      r.Sleep,
		Stress:     r.Stress,
		Digestion:  r.Digestion,
		Water:      r.Water,
		Hunger:     r.Hunger,
		Libido:     r.Libido,
		Comment:    r.Comment,
	}
}

// MeasurementRecordFromLocal builds the push payload for one
// measurement. Limb pairs collapse to the server's single field; the
// left side wins when both are recorded, matching what the server
// round-trips back.
func MeasurementRecordFromLocal(m *schema.BodyMeasurement) MeasurementRecord {
	return MeasurementRecord{
		ID:         m.ID,
		Date:       m.DateKey,
		Weight:     m.Weight,
		Waist:      m.Waist,
		Arms:       collapsePair(m.LeftArm, m.RightArm),
		Legs:       collapsePair(m.LeftLeg, m.RightLeg),
		PhotoFront: m.PhotoFront,
		PhotoSide:  m.PhotoSide,
		PhotoBack:  m.PhotoBack,
	}
}

// Measurement converts a pulled record back into a local measurement.
// The server's single arms/legs value is duplicated into both sides.
func (r MeasurementRecord) Measurement() *schema.BodyMeasurement {
	return &schema.BodyMeasurement{
		ID:         r.ID,
		DateKey:    r.Date,
		Weight:     r.Weight,
		Waist:      r.Waist,
		LeftArm:    copyFloat(r.Arms),
		RightArm:   copyFloat(r.Arms),
		LeftLeg:    copyFloat(r.Legs),
		RightLeg:   copyFloat(r.Legs),
		PhotoFront: r.PhotoFront,
		PhotoSide:  r.PhotoSide,
		PhotoBack:  r.PhotoBack,
	}
}

func collapsePair(left, right *float64) *float64 {
	if left != nil {
		return copyFloat(left)
	}
	return copyFloat(right)
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
