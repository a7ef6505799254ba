package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/vitalog/vita/internal/config"
	"github.com/vitalog/vita/internal/remote"
	"github.com/vitalog/vita/internal/schema"
	"github.com/vitalog/vita/internal/store"
	"github.com/vitalog/vita/internal/syncer"
)

var rootCmd = &cobra.Command{
	Use:   "vita",
	Short: "Offline-first nutrition and wellness tracker",
	Long: `vita tracks meals, daily wellness surveys, and body measurements in a
local SQLite database, syncing with the remote service when a session
is active and the network cooperates. Everything works offline; edits
queue locally and push on the next sync cycle.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "data", Title: "Data Commands:"},
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "session", Title: "Session Commands:"},
	)
}

// app bundles the per-invocation wiring every command needs.
type app struct {
	settings *config.Settings
	store    *store.Store
	client   remote.Client
	creds    *remote.Credentials

	nutrition   *syncer.NutritionCoordinator
	survey      *syncer.SurveyCoordinator
	measurement *syncer.MeasurementCoordinator
}

// openApp loads config, opens the database, runs migrations, and wires
// the sync coordinators. Callers must Close().
func openApp() (*app, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(settings.DBPath)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(context.Background()); err != nil {
		st.Close()
		return nil, err
	}

	creds := remote.NewCredentials(st, nil)
	client := remote.NewHTTPClient(settings.ServerURL, creds, nil)

	cfg := &syncer.Config{
		PushCooldown:   settings.PushCooldown,
		PullCooldown:   settings.PullCooldown,
		PullWindowDays: settings.PullWindowDays,
		Logger:         log.New(os.Stderr, "[sync] ", log.LstdFlags),
	}

	return &app{
		settings:    settings,
		store:       st,
		client:      client,
		creds:       creds,
		nutrition:   syncer.NewNutrition(st, client, creds, cfg),
		survey:      syncer.NewSurvey(st, client, creds, cfg),
		measurement: syncer.NewMeasurement(st, client, creds, cfg),
	}, nil
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

// mustOpenApp is the command-body variant that exits on failure.
func mustOpenApp() *app {
	a, err := openApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return a
}

// parseDay resolves a user-supplied date into a day key. Accepts the
// canonical YYYY-MM-DD form plus natural language ("today",
// "yesterday", "last monday"). Empty means today.
func parseDay(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return schema.DateKey(time.Now()), nil
	}
	if err := schema.ValidateDateKey(input); err == nil {
		return input, nil
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(input, time.Now())
	if err != nil {
		return "", fmt.Errorf("failed to parse date %q: %w", input, err)
	}
	if r == nil {
		return "", fmt.Errorf("unrecognized date: %q", input)
	}
	return schema.DateKey(r.Time), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
