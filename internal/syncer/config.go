package syncer

import (
	"context"
	"log"
	"os"
	"time"
)

// CredentialChecker answers whether a usable credential is currently
// stored. remote.Credentials implements it.
type CredentialChecker interface {
	Available(ctx context.Context) bool
}

// Config holds the knobs shared by all coordinators.
type Config struct {
	// PushCooldown is the minimum interval between automatic push
	// attempts for the same day.
	PushCooldown time.Duration

	// PullCooldown is the minimum interval between automatic pulls.
	PullCooldown time.Duration

	// PullWindowDays bounds every pull to the last N days. Applies to
	// all three feeds.
	PullWindowDays int

	// Now is the clock; nil means time.Now.
	Now func() time.Time

	// Logger for cycle activity. Nil means a stderr default.
	Logger *log.Logger

	// Notify receives completion events. May be nil.
	Notify NotifyFunc
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		PushCooldown:   15 * time.Second,
		PullCooldown:   30 * time.Second,
		PullWindowDays: 90,
		Logger:         log.New(os.Stderr, "[sync] ", log.LstdFlags),
	}
}

func (c *Config) normalize() *Config {
	if c == nil {
		c = DefaultConfig()
	}
	out := *c
	if out.PushCooldown == 0 {
		out.PushCooldown = 15 * time.Second
	}
	if out.PullCooldown == 0 {
		out.PullCooldown = 30 * time.Second
	}
	if out.PullWindowDays == 0 {
		out.PullWindowDays = 90
	}
	if out.Now == nil {
		out.Now = time.Now
	}
	if out.Logger == nil {
		out.Logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &out
}

func (c *Config) notify(ev Event) {
	if c.Notify != nil {
		c.Notify(ev)
	}
}
