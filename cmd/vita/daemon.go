package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vitalog/vita/internal/config"
	"github.com/vitalog/vita/internal/daemon"
	"github.com/vitalog/vita/internal/dashboard"
	"github.com/vitalog/vita/internal/remote"
	"github.com/vitalog/vita/internal/store"
	"github.com/vitalog/vita/internal/syncer"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "sync",
	Short:   "Run the background sync daemon",
	Long: `Run the sync daemon in the foreground.

The daemon pushes pending edits and pulls the recent window on a
schedule, watches the photo drop directory, and serves a local status
dashboard:

  WebSocket events:  ws://localhost:<port>/ws
  Health check:      http://localhost:<port>/health
  Metrics:           http://localhost:<port>/metrics

Photo files named {date}_{front|side|back}.{jpg|png|heic} dropped into
the photo directory attach to that day's body measurement.

Press Ctrl+C to stop.`,
	Run: func(cmd *cobra.Command, args []string) {
		settings, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		logger := config.NewLogger(settings, "[vita] ")

		st, err := store.Open(settings.DBPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer st.Close()

		if err := st.Migrate(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		port, _ := cmd.Flags().GetInt("port")
		if port == 0 {
			port = settings.DashboardPort
		}

		server := dashboard.NewServer(&dashboard.Config{
			Port:   port,
			Logger: logger,
		})
		if err := server.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to start status server: %v\n", err)
			os.Exit(1)
		}
		defer server.Stop()

		creds := remote.NewCredentials(st, nil)
		client := remote.NewHTTPClient(settings.ServerURL, creds, nil)

		syncCfg := &syncer.Config{
			PushCooldown:   settings.PushCooldown,
			PullCooldown:   settings.PullCooldown,
			PullWindowDays: settings.PullWindowDays,
			Logger:         logger,
			Notify:         server.Notify,
		}

		coords := daemon.Coordinators{
			Nutrition:   syncer.NewNutrition(st, client, creds, syncCfg),
			Survey:      syncer.NewSurvey(st, client, creds, syncCfg),
			Measurement: syncer.NewMeasurement(st, client, creds, syncCfg),
		}

		d, err := daemon.New(st, coords, &daemon.Config{
			PushInterval: settings.PushInterval,
			PullInterval: settings.PullInterval,
			PhotoDir:     settings.PhotoDir,
			Logger:       logger,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Status server on http://localhost:%d (ws: /ws, health: /health, metrics: /metrics)\n", port)
		fmt.Println("Press Ctrl+C to stop...")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := d.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	daemonCmd.Flags().Int("port", 0, "Status server port (default from config)")

	rootCmd.AddCommand(daemonCmd)
}
