package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vitalog/vita/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Sync now",
	Long: `Push all pending local edits and pull the recent window from the
service. The --force flag bypasses the throttle cooldowns; in-flight
cycles are still never doubled up.`,
	Run: func(cmd *cobra.Command, args []string) {
		app := mustOpenApp()
		defer app.Close()
		ctx := cmd.Context()

		if _, err := app.store.ActiveUser(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v (run 'vita login')\n", err)
			os.Exit(1)
		}
		if !app.creds.Available(ctx) {
			fmt.Fprintf(os.Stderr, "Error: token missing or expired (run 'vita login')\n")
			os.Exit(1)
		}

		force, _ := cmd.Flags().GetBool("force")

		fmt.Printf("%s Pushing pending edits...\n", ui.RenderAccent("↑"))
		app.nutrition.PushPending(ctx, force)
		app.survey.PushPending(ctx, force)
		app.measurement.PushPending(ctx, force)

		fmt.Printf("%s Pulling recent window...\n", ui.RenderAccent("↓"))
		app.nutrition.Pull(ctx, force)
		app.survey.Pull(ctx, force)
		app.measurement.Pull(ctx, force)

		fmt.Printf("%s Sync complete\n", ui.RenderPass("✓"))
	},
}

var statusCmd = &cobra.Command{
	Use:     "status [date]",
	GroupID: "sync",
	Short:   "Show sync status for a day",
	Long: `Show the per-feature sync condition for a day.

  synced   everything acknowledged by the service
  syncing  a push or pull is in flight
  local    unpushed edits, or no active session`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app := mustOpenApp()
		defer app.Close()
		ctx := cmd.Context()

		dateArg := ""
		if len(args) == 1 {
			dateArg = args[0]
		}
		dateKey, err := parseDay(dateArg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s\n", ui.RenderBold(dateKey))
		fmt.Printf("  nutrition:   %s\n", renderStatus(app.nutrition.Status(ctx, dateKey)))
		fmt.Printf("  survey:      %s\n", renderStatus(app.survey.Status(ctx, dateKey)))
		fmt.Printf("  measurement: %s\n", renderStatus(app.measurement.Status(ctx, dateKey)))

		userID, err := app.store.ActiveUser(ctx)
		if err != nil {
			fmt.Printf("\n%s No active session; sync is paused\n", ui.RenderWarn("⚠"))
			return
		}

		days, err := app.store.DirtyNutritionDays(ctx, userID)
		if err == nil && len(days) > 0 {
			fmt.Printf("\n  %d day(s) with pending nutrition edits\n", len(days))
		}
		days, err = app.store.DirtySurveyDays(ctx, userID)
		if err == nil && len(days) > 0 {
			fmt.Printf("  %d day(s) with pending survey edits\n", len(days))
		}
		days, err = app.store.DirtyMeasurementDays(ctx, userID)
		if err == nil && len(days) > 0 {
			fmt.Printf("  %d day(s) with pending measurement edits\n", len(days))
		}
	},
}

func init() {
	syncCmd.Flags().Bool("force", false, "Bypass throttle cooldowns")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
}
