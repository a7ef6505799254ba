package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vitalog/vita/internal/schema"
	"github.com/vitalog/vita/internal/syncer"
	"github.com/vitalog/vita/internal/ui"
)

var logCmd = &cobra.Command{
	Use:     "log",
	GroupID: "data",
	Short:   "Manage the nutrition log",
	Long: `Log meals with their macronutrients, list a day's entries, or remove
one. Edits are local first and push in the background.`,
}

var logAddCmd = &cobra.Command{
	Use:   "add <label>",
	Short: "Log a meal",
	Long: `Add a meal to a day's nutrition log.

The date accepts natural language as well as YYYY-MM-DD.

Example:
  vita log add "chicken salad" -p 42 -f 18 -c 12 --fiber 6
  vita log add "protein shake" --date yesterday -p 30`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app := mustOpenApp()
		defer app.Close()
		ctx := cmd.Context()

		dateFlag, _ := cmd.Flags().GetString("date")
		dateKey, err := parseDay(dateFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		userID, err := app.store.ActiveUser(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		protein, _ := cmd.Flags().GetFloat64("protein")
		fat, _ := cmd.Flags().GetFloat64("fat")
		carbs, _ := cmd.Flags().GetFloat64("carbs")
		fiber, _ := cmd.Flags().GetFloat64("fiber")

		entry := &schema.NutritionEntry{
			DateKey:  dateKey,
			Label:    args[0],
			LoggedAt: time.Now(),
			Protein:  protein,
			Fat:      fat,
			Carbs:    carbs,
			Fiber:    fiber,
		}
		if err := app.store.UpsertNutritionLocal(ctx, userID, entry); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Logged %q on %s\n", ui.RenderPass("✓"), entry.Label, dateKey)

		// Opportunistic push; failures leave the entry queued.
		app.nutrition.Push(ctx, dateKey, false)
	},
}

var logShowCmd = &cobra.Command{
	Use:   "show [date]",
	Short: "Show a day's meals",
	Args:  cobra.MaximumNArgs(1),
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

		userID, err := app.store.ActiveUser(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		entries, err := app.store.GetNutritionByDate(ctx, userID, dateKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		status := app.nutrition.Status(ctx, dateKey)
		fmt.Printf("%s  %s\n", ui.RenderBold(dateKey), renderStatus(status))

		if len(entries) == 0 {
			fmt.Println("  (no meals logged)")
			return
		}

		var tp, tf, tc, tfi float64
		for _, e := range entries {
			fmt.Printf("  %s  %-24s P %5.1f  F %5.1f  C %5.1f  Fi %4.1f  %s\n",
				e.LoggedAt.Local().Format("15:04"), e.Label,
				e.Protein, e.Fat, e.Carbs, e.Fiber,
				ui.RenderDim(shortID(e.ID)))
			tp += e.Protein
			tf += e.Fat
			tc += e.Carbs
			tfi += e.Fiber
		}
		fmt.Printf("  %s         %-16s P %5.1f  F %5.1f  C %5.1f  Fi %4.1f\n",
			ui.RenderDim("total"), "", tp, tf, tc, tfi)
	},
}

var logRmCmd = &cobra.Command{
	Use:   "rm <entry-id>",
	Short: "Remove a meal",
	Long: `Remove a logged meal by id (prefixes shown by 'vita log show' work if
unambiguous). The removal propagates to the server on the next push.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app := mustOpenApp()
		defer app.Close()
		ctx := cmd.Context()

		userID, err := app.store.ActiveUser(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		id, dateKey, err := resolveEntryID(cmd, app, userID, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if err := app.store.DeleteNutrition(ctx, id, userID); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Removed entry %s\n", ui.RenderPass("✓"), shortID(id))
		app.nutrition.Push(ctx, dateKey, false)
	},
}

// resolveEntryID expands an id prefix against the day's entries. The
// --date flag narrows the search; default is today.
func resolveEntryID(cmd *cobra.Command, app *app, userID, prefix string) (id, dateKey string, err error) {
	dateFlag, _ := cmd.Flags().GetString("date")
	dateKey, err = parseDay(dateFlag)
	if err != nil {
		return "", "", err
	}

	entries, err := app.store.GetNutritionByDate(cmd.Context(), userID, dateKey)
	if err != nil {
		return "", "", err
	}

	var match string
	for _, e := range entries {
		if len(prefix) <= len(e.ID) && e.ID[:len(prefix)] == prefix {
			if match != "" {
				return "", "", fmt.Errorf("ambiguous entry id %q", prefix)
			}
			match = e.ID
		}
	}
	if match == "" {
		return "", "", fmt.Errorf("no entry %q on %s", prefix, dateKey)
	}
	return match, dateKey, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func renderStatus(s syncer.Status) string {
	switch s {
	case syncer.StatusSynced:
		return ui.RenderPass("synced")
	case syncer.StatusSyncing:
		return ui.RenderAccent("syncing")
	default:
		return ui.RenderWarn("local")
	}
}

func init() {
	logAddCmd.Flags().String("date", "", "Day to log against (default today)")
	logAddCmd.Flags().Float64P("protein", "p", 0, "Protein grams")
	logAddCmd.Flags().Float64P("fat", "f", 0, "Fat grams")
	logAddCmd.Flags().Float64P("carbs", "c", 0, "Carbohydrate grams")
	logAddCmd.Flags().Float64("fiber", 0, "Fiber grams")

	logRmCmd.Flags().String("date", "", "Day the entry belongs to (default today)")

	logCmd.AddCommand(logAddCmd)
	logCmd.AddCommand(logShowCmd)
	logCmd.AddCommand(logRmCmd)
	rootCmd.AddCommand(logCmd)
}
