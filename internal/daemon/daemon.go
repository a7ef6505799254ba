// Package daemon runs vita's background sync loop.
//
// The daemon:
//  1. Periodically pushes dirty days for all three features
//  2. Periodically pulls the recent window (standing in for the
//     screen-focus trigger a foreground UI would have)
//  3. Watches a photo drop directory and attaches new progress photos
//     to that day's body measurement
//  4. Handles graceful shutdown
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vitalog/vita/internal/schema"
	"github.com/vitalog/vita/internal/store"
	"github.com/vitalog/vita/internal/syncer"
)

// Config holds configuration for the daemon.
type Config struct {
	// PushInterval is how often to scan for dirty rows and push them.
	PushInterval time.Duration

	// PullInterval is how often to pull the recent window.
	PullInterval time.Duration

	// PhotoDir is the drop directory watched for progress photos.
	// Empty disables the watcher.
	PhotoDir string

	// DebounceInterval is how long a photo file must sit quiet before
	// it is processed. Batches partially-written files.
	DebounceInterval time.Duration

	// Logger for daemon activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		PushInterval:     30 * time.Second,
		PullInterval:     5 * time.Minute,
		DebounceInterval: 500 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Coordinators bundles the per-feature sync coordinators the daemon
// drives.
type Coordinators struct {
	Nutrition   *syncer.NutritionCoordinator
	Survey      *syncer.SurveyCoordinator
	Measurement *syncer.MeasurementCoordinator
}

// Daemon orchestrates periodic sync cycles and photo ingestion.
type Daemon struct {
	store  *store.Store
	coords Coordinators
	config *Config

	watcher       *fsnotify.Watcher
	changeQueue   map[string]time.Time // photo path -> last event time
	changeQueueMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Daemon instance. Use Start() to begin syncing.
func New(st *store.Store, coords Coordinators, config *Config) (*Daemon, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	defaults := DefaultConfig()
	if config.PushInterval <= 0 {
		config.PushInterval = defaults.PushInterval
	}
	if config.PullInterval <= 0 {
		config.PullInterval = defaults.PullInterval
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = defaults.DebounceInterval
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		store:       st,
		coords:      coords,
		config:      config,
		changeQueue: make(map[string]time.Time),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start begins the daemon's operation.
//
// An initial push+pull runs immediately, then the periodic loops take
// over. This blocks until ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	// Catch up on anything left dirty while the daemon was down.
	d.pushAll(false)
	d.pullAll(false)

	if d.config.PhotoDir != "" {
		if err := d.startPhotoWatcher(); err != nil {
			return err
		}
	}

	d.wg.Add(2)
	go d.pushLoop()
	go d.pullLoop()

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping daemon")

	d.cancel()

	if d.watcher != nil {
		if err := d.watcher.Close(); err != nil {
			d.config.Logger.Printf("Error closing watcher: %v", err)
		}
	}

	d.wg.Wait()

	d.config.Logger.Println("Daemon stopped")
	return nil
}

// pushLoop periodically pushes dirty days for all features.
func (d *Daemon) pushLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.PushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.pushAll(false)
		}
	}
}

// pullLoop periodically pulls the recent window for all features.
func (d *Daemon) pullLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.PullInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.pullAll(false)
		}
	}
}

func (d *Daemon) pushAll(force bool) {
	ctx := d.ctx
	d.coords.Nutrition.PushPending(ctx, force)
	d.coords.Survey.PushPending(ctx, force)
	d.coords.Measurement.PushPending(ctx, force)
}

func (d *Daemon) pullAll(force bool) {
	ctx := d.ctx
	d.coords.Nutrition.Pull(ctx, force)
	d.coords.Survey.Pull(ctx, force)
	d.coords.Measurement.Pull(ctx, force)
}

// startPhotoWatcher begins watching the photo drop directory.
func (d *Daemon) startPhotoWatcher() error {
	if err := os.MkdirAll(d.config.PhotoDir, 0755); err != nil {
		return fmt.Errorf("failed to create photo directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	d.watcher = watcher

	if err := d.watcher.Add(d.config.PhotoDir); err != nil {
		return fmt.Errorf("failed to watch photo directory: %w", err)
	}

	d.config.Logger.Printf("Watching photos: %s", d.config.PhotoDir)

	d.wg.Add(2)
	go d.watchPhotoEvents()
	go d.processChangeQueue()
	return nil
}

// watchPhotoEvents monitors filesystem events and queues photo files.
func (d *Daemon) watchPhotoEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if _, _, ok := ParsePhotoFilename(filepath.Base(event.Name)); !ok {
				continue
			}

			d.queueChange(event.Name)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// queueChange adds a photo file to the change queue with debouncing.
func (d *Daemon) queueChange(path string) {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	d.changeQueue[path] = time.Now()
}

// processChangeQueue attaches photos that have been quiet long enough.
func (d *Daemon) processChangeQueue() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.processPendingChanges()
		}
	}
}

// processPendingChanges attaches queued photos to their day's
// measurement.
func (d *Daemon) processPendingChanges() {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	now := time.Now()
	for path, queuedAt := range d.changeQueue {
		if now.Sub(queuedAt) < d.config.DebounceInterval {
			continue
		}

		if err := d.attachPhoto(path); err != nil {
			d.config.Logger.Printf("Error attaching photo %s: %v", path, err)
		}
		delete(d.changeQueue, path)
	}
}

// attachPhoto records the photo reference on that day's measurement.
// The write is a normal local mutation: dirty, pushed on the next tick.
func (d *Daemon) attachPhoto(path string) error {
	dateKey, slot, ok := ParsePhotoFilename(filepath.Base(path))
	if !ok {
		return fmt.Errorf("unrecognized photo filename: %s", filepath.Base(path))
	}

	userID, err := d.store.ActiveUser(d.ctx)
	if err != nil {
		// Nobody logged in; the file stays in the drop dir untouched.
		return nil
	}

	m, err := d.store.GetMeasurementByDate(d.ctx, userID, dateKey)
	if err != nil {
		return err
	}
	if m == nil {
		m = &schema.BodyMeasurement{DateKey: dateKey}
	}

	switch slot {
	case PhotoSlotFront:
		m.PhotoFront = &path
	case PhotoSlotSide:
		m.PhotoSide = &path
	case PhotoSlotBack:
		m.PhotoBack = &path
	}

	if err := d.store.UpsertMeasurementLocal(d.ctx, userID, m); err != nil {
		return err
	}

	d.config.Logger.Printf("Attached %s photo for %s", slot, dateKey)
	return nil
}
