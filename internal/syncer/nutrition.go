package syncer

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/vitalog/vita/internal/remote"
	"github.com/vitalog/vita/internal/schema"
	"github.com/vitalog/vita/internal/store"
)

const featureNutrition = "nutrition"

// NutritionCoordinator reconciles the nutrition log. Days hold many
// entries, so both directions move whole days: a push carries the full
// (non-deleted) entry list and a pull replaces each returned day.
type NutritionCoordinator struct {
	store  *store.Store
	client remote.Client
	creds  CredentialChecker
	cfg    *Config

	pushLimiter *RateLimiter
	pullLimiter *RateLimiter

	pushing atomic.Bool
	pulling atomic.Bool
}

// NewNutrition creates the nutrition-log coordinator.
func NewNutrition(st *store.Store, client remote.Client, creds CredentialChecker, cfg *Config) *NutritionCoordinator {
	cfg = cfg.normalize()
	return &NutritionCoordinator{
		store:       st,
		client:      client,
		creds:       creds,
		cfg:         cfg,
		pushLimiter: NewRateLimiter(cfg.PushCooldown, cfg.Now),
		pullLimiter: NewRateLimiter(cfg.PullCooldown, cfg.Now),
	}
}

// Push sends the day's dirty entries to the server. force bypasses the
// per-day cooldown. The returned status is the only error surface;
// remote failures are logged, leave rows dirty, and report StatusLocal.
func (c *NutritionCoordinator) Push(ctx context.Context, dateKey string, force bool) Status {
	if !c.pushing.CompareAndSwap(false, true) {
		return StatusSyncing
	}
	defer c.pushing.Store(false)

	userID, err := c.store.ActiveUser(ctx)
	if err != nil {
		return StatusLocal
	}

	// Logged out is the expected state, not an error.
	if !c.creds.Available(ctx) {
		return StatusLocal
	}

	dirty, err := c.store.HasDirtyNutrition(ctx, userID, dateKey)
	if err != nil {
		c.cfg.Logger.Printf("nutrition push %s: dirty check failed: %v", dateKey, err)
		return StatusLocal
	}
	if !dirty {
		return StatusSynced
	}

	if !force && !c.pushLimiter.Allow("push:"+dateKey) {
		pushesTotal.WithLabelValues(featureNutrition, resultSuppressed).Inc()
		return StatusLocal
	}

	entries, err := c.store.GetNutritionByDate(ctx, userID, dateKey)
	if err != nil {
		c.cfg.Logger.Printf("nutrition push %s: read failed: %v", dateKey, err)
		return StatusLocal
	}

	day := remote.DiaryDayFromEntries(dateKey, entries)
	if err := c.client.PushDiaryDay(ctx, day); err != nil {
		c.cfg.Logger.Printf("nutrition push %s: %d meals: %v", dateKey, len(day.Meals), err)
		pushesTotal.WithLabelValues(featureNutrition, resultError).Inc()
		c.cfg.notify(Event{Kind: EventPushFailed, Feature: featureNutrition, DateKey: dateKey, Status: StatusLocal})
		return StatusLocal
	}

	if err := c.store.MarkNutritionSynced(ctx, userID, dateKey); err != nil {
		c.cfg.Logger.Printf("nutrition push %s: mark synced failed: %v", dateKey, err)
		return StatusLocal
	}

	pushesTotal.WithLabelValues(featureNutrition, resultOK).Inc()
	c.cfg.notify(Event{Kind: EventPushComplete, Feature: featureNutrition, DateKey: dateKey, Status: StatusSynced})
	return StatusSynced
}

// PushPending pushes every day that has unsynced rows, oldest first.
// The daemon's push tick calls this.
func (c *NutritionCoordinator) PushPending(ctx context.Context, force bool) {
	userID, err := c.store.ActiveUser(ctx)
	if err != nil {
		return
	}

	days, err := c.store.DirtyNutritionDays(ctx, userID)
	if err != nil {
		c.cfg.Logger.Printf("nutrition push scan failed: %v", err)
		return
	}
	for _, day := range days {
		c.Push(ctx, day, force)
	}
}

// Pull fetches the bounded recent window and replaces each returned day
// locally. Observers are notified either way: a completed pull as
// pull_complete, a failed fetch as pull_failed. Failures are logged and
// change no dirty flags; the next natural trigger retries.
func (c *NutritionCoordinator) Pull(ctx context.Context, force bool) {
	if !c.pulling.CompareAndSwap(false, true) {
		return
	}
	defer c.pulling.Store(false)

	userID, err := c.store.ActiveUser(ctx)
	if err != nil {
		return
	}

	if !force && !c.pullLimiter.Allow("pull") {
		pullsTotal.WithLabelValues(featureNutrition, resultSuppressed).Inc()
		return
	}

	from := schema.DaysAgo(c.cfg.PullWindowDays)
	days, err := c.client.FetchDiaryDays(ctx, from)
	if err != nil {
		c.cfg.Logger.Printf("nutrition pull from %s: %v", from, err)
		pullsTotal.WithLabelValues(featureNutrition, resultError).Inc()
		c.cfg.notify(Event{Kind: EventPullFailed, Feature: featureNutrition, Status: StatusLocal})
		return
	}

	for _, day := range days {
		applied, err := c.store.ReplaceNutritionDayFromServer(ctx, userID, day.Date, day.Entries())
		if err != nil {
			c.cfg.Logger.Printf("nutrition pull: day %s failed: %v", day.Date, err)
			continue
		}
		if !applied {
			// Dirty local rows vetoed the replace; the day reconciles
			// after its next push.
			c.cfg.Logger.Printf("nutrition pull: day %s deferred (dirty local rows)", day.Date)
		}
	}

	pullsTotal.WithLabelValues(featureNutrition, resultOK).Inc()
	c.cfg.notify(Event{Kind: EventPullComplete, Feature: featureNutrition, Status: StatusSynced})
}

// Status derives the day's tri-state condition without touching the
// network.
func (c *NutritionCoordinator) Status(ctx context.Context, dateKey string) Status {
	if c.pushing.Load() || c.pulling.Load() {
		return StatusSyncing
	}

	userID, err := c.store.ActiveUser(ctx)
	if err != nil {
		return StatusLocal
	}

	dirty, err := c.store.HasDirtyNutrition(ctx, userID, dateKey)
	if err != nil && !errors.Is(err, store.ErrNoSession) {
		c.cfg.Logger.Printf("nutrition status %s: %v", dateKey, err)
	}
	if err != nil || dirty {
		return StatusLocal
	}
	return StatusSynced
}
