package syncer

import (
	"context"
	"sync/atomic"

	"github.com/vitalog/vita/internal/remote"
	"github.com/vitalog/vita/internal/schema"
	"github.com/vitalog/vita/internal/store"
)

const featureSurvey = "survey"

// SurveyCoordinator reconciles the daily wellness survey, one record
// per day.
type SurveyCoordinator struct {
	store  *store.Store
	client remote.Client
	creds  CredentialChecker
	cfg    *Config

	pushLimiter *RateLimiter
	pullLimiter *RateLimiter

	pushing atomic.Bool
	pulling atomic.Bool
}

// NewSurvey creates the daily-survey coordinator.
func NewSurvey(st *store.Store, client remote.Client, creds CredentialChecker, cfg *Config) *SurveyCoordinator {
	cfg = cfg.normalize()
	return &SurveyCoordinator{
		store:       st,
		client:      client,
		creds:       creds,
		cfg:         cfg,
		pushLimiter: NewRateLimiter(cfg.PushCooldown, cfg.Now),
		pullLimiter: NewRateLimiter(cfg.PullCooldown, cfg.Now),
	}
}

// Push sends the day's survey to the server if it is dirty.
//
// A pending tombstone has nothing to send (the contract carries no
// retraction for surveys); it is marked synced and purged so it stops
// holding the day dirty. The deletion stays local-only.
func (c *SurveyCoordinator) Push(ctx context.Context, dateKey string, force bool) Status {
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

	dirty, err := c.store.HasDirtySurvey(ctx, userID, dateKey)
	if err != nil {
		c.cfg.Logger.Printf("survey push %s: dirty check failed: %v", dateKey, err)
		return StatusLocal
	}
	if !dirty {
		return StatusSynced
	}

	if !force && !c.pushLimiter.Allow("push:"+dateKey) {
		pushesTotal.WithLabelValues(featureSurvey, resultSuppressed).Inc()
		return StatusLocal
	}

	sv, err := c.store.GetSurveyByDate(ctx, userID, dateKey)
	if err != nil {
		c.cfg.Logger.Printf("survey push %s: read failed: %v", dateKey, err)
		return StatusLocal
	}

	if sv != nil {
		rec := remote.SurveyRecordFromLocal(sv)
		if err := c.client.PushSurvey(ctx, rec); err != nil {
			c.cfg.Logger.Printf("survey push %s: %v", dateKey, err)
			pushesTotal.WithLabelValues(featureSurvey, resultError).Inc()
			c.cfg.notify(Event{Kind: EventPushFailed, Feature: featureSurvey, DateKey: dateKey, Status: StatusLocal})
			return StatusLocal
		}
	}

	if err := c.store.MarkSurveySynced(ctx, userID, dateKey); err != nil {
		c.cfg.Logger.Printf("survey push %s: mark synced failed: %v", dateKey, err)
		return StatusLocal
	}

	pushesTotal.WithLabelValues(featureSurvey, resultOK).Inc()
	c.cfg.notify(Event{Kind: EventPushComplete, Feature: featureSurvey, DateKey: dateKey, Status: StatusSynced})
	return StatusSynced
}

// PushPending pushes every day with an unsynced survey, oldest first.
func (c *SurveyCoordinator) PushPending(ctx context.Context, force bool) {
	userID, err := c.store.ActiveUser(ctx)
	if err != nil {
		return
	}

	days, err := c.store.DirtySurveyDays(ctx, userID)
	if err != nil {
		c.cfg.Logger.Printf("survey push scan failed: %v", err)
		return
	}
	for _, day := range days {
		c.Push(ctx, day, force)
	}
}

// Pull fetches the bounded recent window of surveys and reconciles each
// via the store's server upsert. Observers are notified either way: a
// completed pull as pull_complete, a failed fetch as pull_failed.
func (c *SurveyCoordinator) Pull(ctx context.Context, force bool) {
	if !c.pulling.CompareAndSwap(false, true) {
		return
	}
	defer c.pulling.Store(false)

	userID, err := c.store.ActiveUser(ctx)
	if err != nil {
		return
	}

	if !force && !c.pullLimiter.Allow("pull") {
		pullsTotal.WithLabelValues(featureSurvey, resultSuppressed).Inc()
		return
	}

	from := schema.DaysAgo(c.cfg.PullWindowDays)
	recs, err := c.client.FetchSurveys(ctx, from)
	if err != nil {
		c.cfg.Logger.Printf("survey pull from %s: %v", from, err)
		pullsTotal.WithLabelValues(featureSurvey, resultError).Inc()
		c.cfg.notify(Event{Kind: EventPullFailed, Feature: featureSurvey, Status: StatusLocal})
		return
	}

	for _, rec := range recs {
		applied, err := c.store.UpsertSurveyFromServer(ctx, userID, rec.Survey())
		if err != nil {
			c.cfg.Logger.Printf("survey pull: day %s failed: %v", rec.Date, err)
			continue
		}
		if !applied {
			c.cfg.Logger.Printf("survey pull: day %s deferred (dirty local row)", rec.Date)
		}
	}

	pullsTotal.WithLabelValues(featureSurvey, resultOK).Inc()
	c.cfg.notify(Event{Kind: EventPullComplete, Feature: featureSurvey, Status: StatusSynced})
}

// Status derives the day's tri-state condition without touching the
// network.
func (c *SurveyCoordinator) Status(ctx context.Context, dateKey string) Status {
	if c.pushing.Load() || c.pulling.Load() {
		return StatusSyncing
	}

	userID, err := c.store.ActiveUser(ctx)
	if err != nil {
		return StatusLocal
	}

	dirty, err := c.store.HasDirtySurvey(ctx, userID, dateKey)
	if err != nil || dirty {
		return StatusLocal
	}
	return StatusSynced
}
