package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vitalog/vita/internal/export"
	"github.com/vitalog/vita/internal/schema"
	"github.com/vitalog/vita/internal/ui"
)

var exportCmd = &cobra.Command{
	Use:     "export <file>",
	GroupID: "data",
	Short:   "Export data to a snapshot file",
	Long: `Export meals, surveys, and measurements to a portable snapshot.

The format follows the file extension (.json, .yaml) unless --format
overrides it. The default range is the last 90 days.

Example:
  vita export backup.yaml
  vita export january.json --from 2026-01-01 --to 2026-01-31`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app := mustOpenApp()
		defer app.Close()
		ctx := cmd.Context()

		fromFlag, _ := cmd.Flags().GetString("from")
		toFlag, _ := cmd.Flags().GetString("to")
		formatFlag, _ := cmd.Flags().GetString("format")

		from := schema.DaysAgo(90)
		if fromFlag != "" {
			var err error
			if from, err = parseDay(fromFlag); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}
		to := schema.DateKey(time.Now())
		if toFlag != "" {
			var err error
			if to, err = parseDay(toFlag); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}

		format := export.Format("")
		if formatFlag != "" {
			var err error
			if format, err = export.ParseFormat(formatFlag); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}
		if format == "" {
			switch {
			case hasExt(args[0], ".yaml", ".yml"):
				format = export.FormatYAML
			default:
				format = export.FormatJSON
			}
		}

		snap, err := export.New(app.store).Export(ctx, from, to)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if err := export.WriteFile(snap, args[0], format); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Exported %d day(s) to %s\n", ui.RenderPass("✓"), len(snap.Days), args[0])
	},
}

var importCmd = &cobra.Command{
	Use:     "import <file>",
	GroupID: "data",
	Short:   "Import data from a snapshot file",
	Long: `Import a snapshot created by 'vita export'. Imported rows land as
local edits and push on the next sync cycle. Meals are appended;
surveys and measurements replace the day's record.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app := mustOpenApp()
		defer app.Close()
		ctx := cmd.Context()

		snap, err := export.ReadFile(args[0], "")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		res, err := export.New(app.store).Import(ctx, snap)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Imported %d meal(s), %d survey(s), %d measurement(s)\n",
			ui.RenderPass("✓"), res.Meals, res.Surveys, res.Measurements)
	},
}

func hasExt(path string, exts ...string) bool {
	for _, ext := range exts {
		if len(path) >= len(ext) && path[len(path)-len(ext):] == ext {
			return true
		}
	}
	return false
}

func init() {
	exportCmd.Flags().String("from", "", "Range start (default 90 days ago)")
	exportCmd.Flags().String("to", "", "Range end (default today)")
	exportCmd.Flags().String("format", "", "Snapshot format: json or yaml")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
