package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vitalog/vita/internal/schema"
	"github.com/vitalog/vita/internal/ui"
)

var measureCmd = &cobra.Command{
	Use:     "measure",
	GroupID: "data",
	Short:   "Manage body measurements",
	Long: `Record weight and circumference measurements, one record per day.
Setting a field again overwrites it; omitted flags leave existing
values alone.`,
}

var measureSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Record measurements for a day",
	Long: `Record body measurements. Only the flags you pass are written.

Example:
  vita measure set --weight 82.4 --waist 86
  vita measure set --date "last sunday" --left-arm 38 --right-arm 38.5`,
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

		m, err := app.store.GetMeasurementByDate(ctx, userID, dateKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if m == nil {
			m = &schema.BodyMeasurement{DateKey: dateKey}
		}

		set := false
		setFloat := func(flag string, dst **float64) {
			if cmd.Flags().Changed(flag) {
				v, _ := cmd.Flags().GetFloat64(flag)
				*dst = &v
				set = true
			}
		}
		setFloat("weight", &m.Weight)
		setFloat("waist", &m.Waist)
		setFloat("left-arm", &m.LeftArm)
		setFloat("right-arm", &m.RightArm)
		setFloat("left-leg", &m.LeftLeg)
		setFloat("right-leg", &m.RightLeg)

		setPhoto := func(flag string, dst **string) {
			if cmd.Flags().Changed(flag) {
				v, _ := cmd.Flags().GetString(flag)
				abs, err := filepath.Abs(v)
				if err == nil {
					v = abs
				}
				*dst = &v
				set = true
			}
		}
		setPhoto("photo-front", &m.PhotoFront)
		setPhoto("photo-side", &m.PhotoSide)
		setPhoto("photo-back", &m.PhotoBack)

		if !set {
			fmt.Fprintln(os.Stderr, "Error: nothing to set; pass at least one measurement flag")
			os.Exit(1)
		}

		if err := app.store.UpsertMeasurementLocal(ctx, userID, m); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Measurements saved for %s\n", ui.RenderPass("✓"), dateKey)
		app.measurement.Push(ctx, dateKey, false)
	},
}

var measureShowCmd = &cobra.Command{
	Use:   "show [date]",
	Short: "Show a day's measurements",
	Long: `Show body measurements for a day. A missing weight borrows that day's
survey weight for display; borrowed values are marked and never stored.`,
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

		m, err := app.measurement.EnrichedByDate(ctx, dateKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		status := app.measurement.Status(ctx, dateKey)
		fmt.Printf("%s  %s\n", ui.RenderBold(dateKey), renderStatus(status))

		if m == nil {
			fmt.Println("  (no measurements)")
			return
		}

		// Flag a substituted weight so readers know it came from the
		// survey, not the tape.
		userID, _ := app.store.ActiveUser(ctx)
		stored, _ := app.store.GetMeasurementByDate(ctx, userID, dateKey)
		borrowed := m.Weight != nil && (stored == nil || stored.Weight == nil)

		printFloat := func(name string, v *float64, note string) {
			if v == nil {
				return
			}
			fmt.Printf("  %-11s %.1f%s\n", name+":", *v, note)
		}
		note := ""
		if borrowed {
			note = " " + ui.RenderDim("(from survey)")
		}
		printFloat("weight", m.Weight, note)
		printFloat("waist", m.Waist, "")
		printFloat("left arm", m.LeftArm, "")
		printFloat("right arm", m.RightArm, "")
		printFloat("left leg", m.LeftLeg, "")
		printFloat("right leg", m.RightLeg, "")

		printPhoto := func(name string, p *string) {
			if p == nil {
				return
			}
			fmt.Printf("  %-11s %s\n", name+":", *p)
		}
		printPhoto("front", m.PhotoFront)
		printPhoto("side", m.PhotoSide)
		printPhoto("back", m.PhotoBack)
	},
}

func init() {
	measureSetCmd.Flags().String("date", "", "Day to record against (default today)")
	measureSetCmd.Flags().Float64("weight", 0, "Weight")
	measureSetCmd.Flags().Float64("waist", 0, "Waist circumference")
	measureSetCmd.Flags().Float64("left-arm", 0, "Left arm circumference")
	measureSetCmd.Flags().Float64("right-arm", 0, "Right arm circumference")
	measureSetCmd.Flags().Float64("left-leg", 0, "Left leg circumference")
	measureSetCmd.Flags().Float64("right-leg", 0, "Right leg circumference")
	measureSetCmd.Flags().String("photo-front", "", "Front progress photo path")
	measureSetCmd.Flags().String("photo-side", "", "Side progress photo path")
	measureSetCmd.Flags().String("photo-back", "", "Back progress photo path")

	measureCmd.AddCommand(measureSetCmd)
	measureCmd.AddCommand(measureShowCmd)
	rootCmd.AddCommand(measureCmd)
}
