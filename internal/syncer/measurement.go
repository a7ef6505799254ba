package syncer

import (
	"context"
	"sync/atomic"

	"github.com/vitalog/vita/internal/remote"
	"github.com/vitalog/vita/internal/schema"
	"github.com/vitalog/vita/internal/store"
)

const featureMeasurement = "measurement"

// MeasurementCoordinator reconciles body measurements, one record per
// day. It also owns the read-time weight enrichment: a measurement
// without a recorded weight borrows that day's survey weight for
// display, and the borrowed value is never written back.
type MeasurementCoordinator struct {
	store  *store.Store
	client remote.Client
	creds  CredentialChecker
	cfg    *Config

	pushLimiter *RateLimiter
	pullLimiter *RateLimiter

	pushing atomic.Bool
	pulling atomic.Bool
}

// NewMeasurement creates the body-measurement coordinator.
func NewMeasurement(st *store.Store, client remote.Client, creds CredentialChecker, cfg *Config) *MeasurementCoordinator {
	cfg = cfg.normalize()
	return &MeasurementCoordinator{
		store:       st,
		client:      client,
		creds:       creds,
		cfg:         cfg,
		pushLimiter: NewRateLimiter(cfg.PushCooldown, cfg.Now),
		pullLimiter: NewRateLimiter(cfg.PullCooldown, cfg.Now),
	}
}

// Push sends the day's measurement to the server if it is dirty.
// Tombstones behave as in the survey coordinator: nothing to send,
// marked synced and purged locally.
func (c *MeasurementCoordinator) Push(ctx context.Context, dateKey string, force bool) Status {
	if !c.pushing.CompareAndSwap(false, true) {
		return StatusSyncing
	}
	defer c.pushing.Store(false)

	userID, err := c.store.ActiveUser(ctx)
	if err != nil {
		return StatusLocal
	}

	if !c.creds.Available(ctx) {
		return StatusLocal
	}

	dirty, err := c.store.HasDirtyMeasurement(ctx, userID, dateKey)
	if err != nil {
		c.cfg.Logger.Printf("measurement push %s: dirty check failed: %v", dateKey, err)
		return StatusLocal
	}
	if !dirty {
		return StatusSynced
	}

	if !force && !c.pushLimiter.Allow("push:"+dateKey) {
		pushesTotal.WithLabelValues(featureMeasurement, resultSuppressed).Inc()
		return StatusLocal
	}

	m, err := c.store.GetMeasurementByDate(ctx, userID, dateKey)
	if err != nil {
		c.cfg.Logger.Printf("measurement push %s: read failed: %v", dateKey, err)
		return StatusLocal
	}

	if m != nil {
		rec := remote.MeasurementRecordFromLocal(m)
		if err := c.client.PushMeasurement(ctx, rec); err != nil {
			c.cfg.Logger.Printf("measurement push %s: %v", dateKey, err)
			pushesTotal.WithLabelValues(featureMeasurement, resultError).Inc()
			c.cfg.notify(Event{Kind: EventPushFailed, Feature: featureMeasurement, DateKey: dateKey, Status: StatusLocal})
			return StatusLocal
		}
	}

	if err := c.store.MarkMeasurementSynced(ctx, userID, dateKey); err != nil {
		c.cfg.Logger.Printf("measurement push %s: mark synced failed: %v", dateKey, err)
		return StatusLocal
	}

	pushesTotal.WithLabelValues(featureMeasurement, resultOK).Inc()
	c.cfg.notify(Event{Kind: EventPushComplete, Feature: featureMeasurement, DateKey: dateKey, Status: StatusSynced})
	return StatusSynced
}

// PushPending pushes every day with an unsynced measurement, oldest first.
func (c *MeasurementCoordinator) PushPending(ctx context.Context, force bool) {
	userID, err := c.store.ActiveUser(ctx)
	if err != nil {
		return
	}

	days, err := c.store.DirtyMeasurementDays(ctx, userID)
	if err != nil {
		c.cfg.Logger.Printf("measurement push scan failed: %v", err)
		return
	}
	for _, day := range days {
		c.Push(ctx, day, force)
	}
}

// Pull fetches the bounded recent window of measurements and reconciles
// each via the store's server upsert. Observers are notified either
// way: a completed pull as pull_complete, a failed fetch as
// pull_failed.
func (c *MeasurementCoordinator) Pull(ctx context.Context, force bool) {
	if !c.pulling.CompareAndSwap(false, true) {
		return
	}
	defer c.pulling.Store(false)

	userID, err := c.store.ActiveUser(ctx)
	if err != nil {
		return
	}

	if !force && !c.pullLimiter.Allow("pull") {
		pullsTotal.WithLabelValues(featureMeasurement, resultSuppressed).Inc()
		return
	}

	from := schema.DaysAgo(c.cfg.PullWindowDays)
	recs, err := c.client.FetchMeasurements(ctx, from)
	if err != nil {
		c.cfg.Logger.Printf("measurement pull from %s: %v", from, err)
		pullsTotal.WithLabelValues(featureMeasurement, resultError).Inc()
		c.cfg.notify(Event{Kind: EventPullFailed, Feature: featureMeasurement, Status: StatusLocal})
		return
	}

	for _, rec := range recs {
		applied, err := c.store.UpsertMeasurementFromServer(ctx, userID, rec.Measurement())
		if err != nil {
			c.cfg.Logger.Printf("measurement pull: day %s failed: %v", rec.Date, err)
			continue
		}
		if !applied {
			c.cfg.Logger.Printf("measurement pull: day %s deferred (dirty local row)", rec.Date)
		}
	}

	pullsTotal.WithLabelValues(featureMeasurement, resultOK).Inc()
	c.cfg.notify(Event{Kind: EventPullComplete, Feature: featureMeasurement, Status: StatusSynced})
}

// Status derives the day's tri-state condition without touching the
// network.
func (c *MeasurementCoordinator) Status(ctx context.Context, dateKey string) Status {
	if c.pushing.Load() || c.pulling.Load() {
		return StatusSyncing
	}

	userID, err := c.store.ActiveUser(ctx)
	if err != nil {
		return StatusLocal
	}

	dirty, err := c.store.HasDirtyMeasurement(ctx, userID, dateKey)
	if err != nil || dirty {
		return StatusLocal
	}
	return StatusSynced
}

// EnrichedByDate returns the day's measurement with the survey weight
// substituted when the measurement has none recorded. The substitution
// is display-only; the stored row is untouched. Returns nil when no
// measurement exists for the day.
func (c *MeasurementCoordinator) EnrichedByDate(ctx context.Context, dateKey string) (*schema.BodyMeasurement, error) {
	userID, err := c.store.ActiveUser(ctx)
	if err != nil {
		return nil, err
	}

	m, err := c.store.GetMeasurementByDate(ctx, userID, dateKey)
	if err != nil || m == nil {
		return m, err
	}

	if m.Weight == nil {
		sv, err := c.store.GetSurveyByDate(ctx, userID, dateKey)
		if err != nil {
			return nil, err
		}
		if sv != nil && sv.Weight != nil {
			w := *sv.Weight
			enriched := *m
			enriched.Weight = &w
			return &enriched, nil
		}
	}

	return m, nil
}
