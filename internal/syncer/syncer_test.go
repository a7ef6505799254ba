package syncer

import (
	"context"
	"errors"
	"io"
	"log"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/vitalog/vita/internal/remote"
	"github.com/vitalog/vita/internal/schema"
	"github.com/vitalog/vita/internal/store"
)

const testDay = "2026-01-06"

// fakeClient records pushes and serves canned pull responses.
type fakeClient struct {
	mu sync.Mutex

	pushedDays         []remote.DiaryDay
	pushedSurveys      []remote.SurveyRecord
	pushedMeasurements []remote.MeasurementRecord

	diaryDays    []remote.DiaryDay
	surveys      []remote.SurveyRecord
	measurements []remote.MeasurementRecord

	err error
}

func (f *fakeClient) PushDiaryDay(ctx context.Context, day remote.DiaryDay) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.pushedDays = append(f.pushedDays, day)
	return nil
}

func (f *fakeClient) FetchDiaryDays(ctx context.Context, from string) ([]remote.DiaryDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.diaryDays, f.err
}

func (f *fakeClient) PushSurvey(ctx context.Context, rec remote.SurveyRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.pushedSurveys = append(f.pushedSurveys, rec)
	return nil
}

func (f *fakeClient) FetchSurveys(ctx context.Context, from string) ([]remote.SurveyRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.surveys, f.err
}

func (f *fakeClient) PushMeasurement(ctx context.Context, rec remote.MeasurementRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.pushedMeasurements = append(f.pushedMeasurements, rec)
	return nil
}

func (f *fakeClient) FetchMeasurements(ctx context.Context, from string) ([]remote.MeasurementRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.measurements, f.err
}

func (f *fakeClient) pushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushedDays) + len(f.pushedSurveys) + len(f.pushedMeasurements)
}

// fakeCreds is a CredentialChecker with a fixed answer.
type fakeCreds struct {
	ok bool
}

func (f *fakeCreds) Available(ctx context.Context) bool { return f.ok }

func setupStore(t *testing.T, user string) *store.Store {
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
	if user != "" {
		if err := st.SetActiveUser(ctx, user); err != nil {
			t.Fatalf("SetActiveUser() failed: %v", err)
		}
	}
	return st
}

func quietConfig(clock *fakeClock) *Config {
	return &Config{
		Now:    clock.now,
		Logger: log.New(io.Discard, "", 0),
	}
}

func addMeal(t *testing.T, st *store.Store, user, day, label string) *schema.NutritionEntry {
	t.Helper()
	e := &schema.NutritionEntry{
		DateKey:  day,
		Label:    label,
		LoggedAt: time.Now(),
		Protein:  25,
	}
	if err := st.UpsertNutritionLocal(context.Background(), user, e); err != nil {
		t.Fatalf("UpsertNutritionLocal() failed: %v", err)
	}
	return e
}

func TestNutritionPush_MarksDaySynced(t *testing.T) {
	st := setupStore(t, "alice")
	client := &fakeClient{}
	clock := &fakeClock{t: time.Date(2026, 1, 6, 8, 0, 0, 0, time.UTC)}
	c := NewNutrition(st, client, &fakeCreds{ok: true}, quietConfig(clock))
	ctx := context.Background()

	addMeal(t, st, "alice", testDay, "oats")
	addMeal(t, st, "alice", testDay, "eggs")

	if got := c.Push(ctx, testDay, false); got != StatusSynced {
		t.Fatalf("Push() = %v, want %v", got, StatusSynced)
	}

	if len(client.pushedDays) != 1 {
		t.Fatalf("pushed %d days, want 1", len(client.pushedDays))
	}
	if len(client.pushedDays[0].Meals) != 2 {
		t.Errorf("pushed %d meals, want 2", len(client.pushedDays[0].Meals))
	}
	if client.pushedDays[0].Date != testDay {
		t.Errorf("pushed date %q, want %q", client.pushedDays[0].Date, testDay)
	}

	if got := c.Status(ctx, testDay); got != StatusSynced {
		t.Errorf("Status() after push = %v, want %v", got, StatusSynced)
	}
}

func TestNutritionPush_CleanDayIsNoop(t *testing.T) {
	st := setupStore(t, "alice")
	client := &fakeClient{}
	clock := &fakeClock{t: time.Date(2026, 1, 6, 8, 0, 0, 0, time.UTC)}
	c := NewNutrition(st, client, &fakeCreds{ok: true}, quietConfig(clock))

	if got := c.Push(context.Background(), testDay, false); got != StatusSynced {
		t.Fatalf("Push() on clean day = %v, want %v", got, StatusSynced)
	}
	if client.pushCount() != 0 {
		t.Error("clean day still hit the network")
	}
}

func TestNutritionPush_NoSession(t *testing.T) {
	st := setupStore(t, "")
	client := &fakeClient{}
	clock := &fakeClock{t: time.Date(2026, 1, 6, 8, 0, 0, 0, time.UTC)}
	c := NewNutrition(st, client, &fakeCreds{ok: true}, quietConfig(clock))

	if got := c.Push(context.Background(), testDay, false); got != StatusLocal {
		t.Errorf("Push() with no session = %v, want %v", got, StatusLocal)
	}
	if client.pushCount() != 0 {
		t.Error("push without a session hit the network")
	}
}

func TestNutritionPush_MissingCredentialsStaysLocal(t *testing.T) {
	st := setupStore(t, "alice")
	client := &fakeClient{}
	clock := &fakeClock{t: time.Date(2026, 1, 6, 8, 0, 0, 0, time.UTC)}
	c := NewNutrition(st, client, &fakeCreds{ok: false}, quietConfig(clock))
	ctx := context.Background()

	addMeal(t, st, "alice", testDay, "oats")

	if got := c.Push(ctx, testDay, false); got != StatusLocal {
		t.Errorf("Push() without credentials = %v, want %v", got, StatusLocal)
	}
	if client.pushCount() != 0 {
		t.Error("push without credentials hit the network")
	}

	// The edit stays queued for later.
	if got := c.Status(ctx, testDay); got != StatusLocal {
		t.Errorf("Status() = %v, want %v", got, StatusLocal)
	}
}

func TestNutritionPush_RemoteFailureKeepsDirty(t *testing.T) {
	st := setupStore(t, "alice")
	client := &fakeClient{err: errors.New("server down")}
	clock := &fakeClock{t: time.Date(2026, 1, 6, 8, 0, 0, 0, time.UTC)}
	c := NewNutrition(st, client, &fakeCreds{ok: true}, quietConfig(clock))
	ctx := context.Background()

	addMeal(t, st, "alice", testDay, "oats")

	if got := c.Push(ctx, testDay, true); got != StatusLocal {
		t.Errorf("Push() with remote failure = %v, want %v", got, StatusLocal)
	}

	dirty, err := st.HasDirtyNutrition(ctx, "alice", testDay)
	if err != nil {
		t.Fatalf("HasDirtyNutrition() failed: %v", err)
	}
	if !dirty {
		t.Error("failed push cleared the dirty flag")
	}
}

func TestNutritionPush_ThrottleSuppressesRetry(t *testing.T) {
	st := setupStore(t, "alice")
	client := &fakeClient{}
	clock := &fakeClock{t: time.Date(2026, 1, 6, 8, 0, 0, 0, time.UTC)}
	c := NewNutrition(st, client, &fakeCreds{ok: true}, quietConfig(clock))
	ctx := context.Background()

	addMeal(t, st, "alice", testDay, "oats")
	if got := c.Push(ctx, testDay, false); got != StatusSynced {
		t.Fatalf("first Push() = %v, want %v", got, StatusSynced)
	}

	// New edit right away: the day cooldown suppresses the next
	// automatic push without touching the network.
	addMeal(t, st, "alice", testDay, "eggs")
	if got := c.Push(ctx, testDay, false); got != StatusLocal {
		t.Errorf("throttled Push() = %v, want %v", got, StatusLocal)
	}
	if len(client.pushedDays) != 1 {
		t.Errorf("throttled push hit the network: %d pushes", len(client.pushedDays))
	}

	// force bypasses the cooldown.
	if got := c.Push(ctx, testDay, true); got != StatusSynced {
		t.Errorf("forced Push() = %v, want %v", got, StatusSynced)
	}
	if len(client.pushedDays) != 2 {
		t.Errorf("forced push did not hit the network: %d pushes", len(client.pushedDays))
	}
}

func TestNutritionPull_ReplacesCleanDays(t *testing.T) {
	st := setupStore(t, "alice")
	client := &fakeClient{
		diaryDays: []remote.DiaryDay{{
			Date: testDay,
			Meals: []remote.Meal{
				{ID: "m1", Name: "server oats", Time: time.Now().UTC().Format(time.RFC3339), Protein: 30},
			},
		}},
	}
	clock := &fakeClock{t: time.Date(2026, 1, 6, 8, 0, 0, 0, time.UTC)}
	c := NewNutrition(st, client, &fakeCreds{ok: true}, quietConfig(clock))
	ctx := context.Background()

	c.Pull(ctx, false)

	entries, err := st.GetNutritionByDate(ctx, "alice", testDay)
	if err != nil {
		t.Fatalf("GetNutritionByDate() failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Label != "server oats" {
		t.Errorf("pull did not apply server day: %+v", entries)
	}
	if got := c.Status(ctx, testDay); got != StatusSynced {
		t.Errorf("Status() after pull = %v, want %v", got, StatusSynced)
	}
}

func TestNutritionPull_DefersDirtyDays(t *testing.T) {
	st := setupStore(t, "alice")
	client := &fakeClient{
		diaryDays: []remote.DiaryDay{{
			Date: testDay,
			Meals: []remote.Meal{
				{ID: "m1", Name: "server oats", Time: time.Now().UTC().Format(time.RFC3339)},
			},
		}},
	}
	clock := &fakeClock{t: time.Date(2026, 1, 6, 8, 0, 0, 0, time.UTC)}
	c := NewNutrition(st, client, &fakeCreds{ok: true}, quietConfig(clock))
	ctx := context.Background()

	addMeal(t, st, "alice", testDay, "local edit")

	c.Pull(ctx, false)

	entries, err := st.GetNutritionByDate(ctx, "alice", testDay)
	if err != nil {
		t.Fatalf("GetNutritionByDate() failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Label != "local edit" {
		t.Errorf("pull clobbered dirty local rows: %+v", entries)
	}
}

func TestNutritionPull_ThrottleSuppressesSecondPull(t *testing.T) {
	st := setupStore(t, "alice")
	client := &fakeClient{}
	clock := &fakeClock{t: time.Date(2026, 1, 6, 8, 0, 0, 0, time.UTC)}
	c := NewNutrition(st, client, &fakeCreds{ok: true}, quietConfig(clock))
	ctx := context.Background()

	c.Pull(ctx, false)

	// The limiter recorded the first pull; only the cooldown's expiry
	// (or force) lets another one through.
	if c.pullLimiter.Allow("pull") {
		t.Error("pull cooldown not recorded")
	}
	clock.advance(31 * time.Second)
	if !c.pullLimiter.Allow("pull") {
		t.Error("pull still suppressed after cooldown")
	}
}

func TestNutritionPushPending_PushesAllDirtyDays(t *testing.T) {
	st := setupStore(t, "alice")
	client := &fakeClient{}
	clock := &fakeClock{t: time.Date(2026, 1, 6, 8, 0, 0, 0, time.UTC)}
	c := NewNutrition(st, client, &fakeCreds{ok: true}, quietConfig(clock))

	addMeal(t, st, "alice", "2026-01-04", "old meal")
	addMeal(t, st, "alice", "2026-01-06", "new meal")

	c.PushPending(context.Background(), true)

	if len(client.pushedDays) != 2 {
		t.Fatalf("pushed %d days, want 2", len(client.pushedDays))
	}
	if client.pushedDays[0].Date != "2026-01-04" {
		t.Errorf("days pushed out of order: %q first", client.pushedDays[0].Date)
	}
}

func TestNutritionPush_TombstonePropagatesAsOmission(t *testing.T) {
	st := setupStore(t, "alice")
	client := &fakeClient{}
	clock := &fakeClock{t: time.Date(2026, 1, 6, 8, 0, 0, 0, time.UTC)}
	c := NewNutrition(st, client, &fakeCreds{ok: true}, quietConfig(clock))
	ctx := context.Background()

	addMeal(t, st, "alice", testDay, "keep")
	drop := addMeal(t, st, "alice", testDay, "drop")
	if err := st.DeleteNutrition(ctx, drop.ID, "alice"); err != nil {
		t.Fatalf("DeleteNutrition() failed: %v", err)
	}

	if got := c.Push(ctx, testDay, true); got != StatusSynced {
		t.Fatalf("Push() = %v, want %v", got, StatusSynced)
	}

	// The day push carries only the surviving entry; the omission is
	// the deletion.
	if len(client.pushedDays) != 1 {
		t.Fatalf("pushed %d days, want 1", len(client.pushedDays))
	}
	meals := client.pushedDays[0].Meals
	if len(meals) != 1 || meals[0].Name != "keep" {
		t.Errorf("pushed meals = %+v, want only the kept entry", meals)
	}
}

func TestSurveyCoordinator_PushAndStatus(t *testing.T) {
	st := setupStore(t, "alice")
	client := &fakeClient{}
	clock := &fakeClock{t: time.Date(2026, 1, 6, 8, 0, 0, 0, time.UTC)}
	c := NewSurvey(st, client, &fakeCreds{ok: true}, quietConfig(clock))
	ctx := context.Background()

	w := 82.4
	sv := &schema.DailySurvey{DateKey: testDay, Weight: &w}
	if err := st.UpsertSurveyLocal(ctx, "alice", sv); err != nil {
		t.Fatalf("UpsertSurveyLocal() failed: %v", err)
	}

	if got := c.Status(ctx, testDay); got != StatusLocal {
		t.Errorf("Status() before push = %v, want %v", got, StatusLocal)
	}
	if got := c.Push(ctx, testDay, true); got != StatusSynced {
		t.Fatalf("Push() = %v, want %v", got, StatusSynced)
	}
	if len(client.pushedSurveys) != 1 {
		t.Fatalf("pushed %d surveys, want 1", len(client.pushedSurveys))
	}
	if client.pushedSurveys[0].Weight == nil || *client.pushedSurveys[0].Weight != 82.4 {
		t.Errorf("pushed weight = %v, want 82.4", client.pushedSurveys[0].Weight)
	}
	if got := c.Status(ctx, testDay); got != StatusSynced {
		t.Errorf("Status() after push = %v, want %v", got, StatusSynced)
	}
}

func TestSurveyPush_TombstoneStaysLocal(t *testing.T) {
	st := setupStore(t, "alice")
	client := &fakeClient{}
	clock := &fakeClock{t: time.Date(2026, 1, 6, 8, 0, 0, 0, time.UTC)}
	c := NewSurvey(st, client, &fakeCreds{ok: true}, quietConfig(clock))
	ctx := context.Background()

	sv := &schema.DailySurvey{DateKey: testDay}
	if err := st.UpsertSurveyLocal(ctx, "alice", sv); err != nil {
		t.Fatalf("UpsertSurveyLocal() failed: %v", err)
	}
	if err := st.DeleteSurvey(ctx, sv.ID, "alice"); err != nil {
		t.Fatalf("DeleteSurvey() failed: %v", err)
	}

	// Nothing to send for a tombstoned day, but the day settles.
	if got := c.Push(ctx, testDay, true); got != StatusSynced {
		t.Fatalf("Push() = %v, want %v", got, StatusSynced)
	}
	if len(client.pushedSurveys) != 0 {
		t.Errorf("tombstone push hit the network: %+v", client.pushedSurveys)
	}
	if got := c.Status(ctx, testDay); got != StatusSynced {
		t.Errorf("Status() = %v, want %v", got, StatusSynced)
	}
}

func TestMeasurementEnrichment_BorrowsSurveyWeight(t *testing.T) {
	st := setupStore(t, "alice")
	client := &fakeClient{}
	clock := &fakeClock{t: time.Date(2026, 1, 6, 8, 0, 0, 0, time.UTC)}
	c := NewMeasurement(st, client, &fakeCreds{ok: true}, quietConfig(clock))
	ctx := context.Background()

	waist := 86.5
	m := &schema.BodyMeasurement{DateKey: testDay, Waist: &waist}
	if err := st.UpsertMeasurementLocal(ctx, "alice", m); err != nil {
		t.Fatalf("UpsertMeasurementLocal() failed: %v", err)
	}
	w := 82.4
	sv := &schema.DailySurvey{DateKey: testDay, Weight: &w}
	if err := st.UpsertSurveyLocal(ctx, "alice", sv); err != nil {
		t.Fatalf("UpsertSurveyLocal() failed: %v", err)
	}

	got, err := c.EnrichedByDate(ctx, testDay)
	if err != nil {
		t.Fatalf("EnrichedByDate() failed: %v", err)
	}
	if got.Weight == nil || *got.Weight != 82.4 {
		t.Errorf("enriched weight = %v, want 82.4 from survey", got.Weight)
	}

	// The substitution is display-only.
	stored, err := st.GetMeasurementByDate(ctx, "alice", testDay)
	if err != nil {
		t.Fatalf("GetMeasurementByDate() failed: %v", err)
	}
	if stored.Weight != nil {
		t.Errorf("enrichment wrote the borrowed weight back: %v", stored.Weight)
	}
}

func TestMeasurementEnrichment_OwnWeightWins(t *testing.T) {
	st := setupStore(t, "alice")
	client := &fakeClient{}
	clock := &fakeClock{t: time.Date(2026, 1, 6, 8, 0, 0, 0, time.UTC)}
	c := NewMeasurement(st, client, &fakeCreds{ok: true}, quietConfig(clock))
	ctx := context.Background()

	own := 81.0
	m := &schema.BodyMeasurement{DateKey: testDay, Weight: &own}
	if err := st.UpsertMeasurementLocal(ctx, "alice", m); err != nil {
		t.Fatalf("UpsertMeasurementLocal() failed: %v", err)
	}
	surveyW := 99.0
	sv := &schema.DailySurvey{DateKey: testDay, Weight: &surveyW}
	if err := st.UpsertSurveyLocal(ctx, "alice", sv); err != nil {
		t.Fatalf("UpsertSurveyLocal() failed: %v", err)
	}

	got, err := c.EnrichedByDate(ctx, testDay)
	if err != nil {
		t.Fatalf("EnrichedByDate() failed: %v", err)
	}
	if got.Weight == nil || *got.Weight != 81.0 {
		t.Errorf("enriched weight = %v, want the measurement's own 81.0", got.Weight)
	}
}

func TestCoordinator_NotifyEvents(t *testing.T) {
	st := setupStore(t, "alice")
	client := &fakeClient{}
	clock := &fakeClock{t: time.Date(2026, 1, 6, 8, 0, 0, 0, time.UTC)}

	var mu sync.Mutex
	var events []Event
	cfg := quietConfig(clock)
	cfg.Notify = func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	}
	c := NewNutrition(st, client, &fakeCreds{ok: true}, cfg)
	ctx := context.Background()

	addMeal(t, st, "alice", testDay, "oats")
	c.Push(ctx, testDay, true)
	c.Pull(ctx, true)

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}
	if events[0].Kind != EventPushComplete || events[0].DateKey != testDay {
		t.Errorf("first event = %+v, want push_complete for %s", events[0], testDay)
	}
	if events[1].Kind != EventPullComplete {
		t.Errorf("second event = %+v, want pull_complete", events[1])
	}
	if events[1].Status != StatusSynced {
		t.Errorf("pull event status = %v, want %v", events[1].Status, StatusSynced)
	}
}

func TestPull_RemoteFailureReportsPullFailed(t *testing.T) {
	st := setupStore(t, "alice")
	client := &fakeClient{err: errors.New("server down")}
	clock := &fakeClock{t: time.Date(2026, 1, 6, 8, 0, 0, 0, time.UTC)}

	var mu sync.Mutex
	var events []Event
	cfg := quietConfig(clock)
	cfg.Notify = func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	}
	ctx := context.Background()

	NewNutrition(st, client, &fakeCreds{ok: true}, cfg).Pull(ctx, true)
	NewSurvey(st, client, &fakeCreds{ok: true}, cfg).Pull(ctx, true)
	NewMeasurement(st, client, &fakeCreds{ok: true}, cfg).Pull(ctx, true)

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3: %+v", len(events), events)
	}
	for _, ev := range events {
		if ev.Kind != EventPullFailed {
			t.Errorf("%s event = %v, want %v", ev.Feature, ev.Kind, EventPullFailed)
		}
		// A failed pull must never read as settled.
		if ev.Status != StatusLocal {
			t.Errorf("%s event status = %v, want %v", ev.Feature, ev.Status, StatusLocal)
		}
	}
}
