package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/vitalog/vita/internal/schema"
	"github.com/vitalog/vita/internal/ui"
)

var surveyCmd = &cobra.Command{
	Use:     "survey",
	GroupID: "data",
	Short:   "Manage the daily wellness survey",
	Long: `Fill in or review the daily wellness survey: weight plus 1-5 ratings
for motivation, sleep, stress, digestion, water intake, hunger, and
libido, and a free-form comment. One survey per day; filling it again
overwrites the previous answers.`,
}

var surveyFillCmd = &cobra.Command{
	Use:   "fill [date]",
	Short: "Fill in the survey interactively",
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

		// Pre-fill from an existing survey so re-running edits rather
		// than starting blank.
		existing, err := app.store.GetSurveyByDate(ctx, userID, dateKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		sv, err := runSurveyForm(dateKey, existing)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if err := app.store.UpsertSurveyLocal(ctx, userID, sv); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Survey saved for %s\n", ui.RenderPass("✓"), dateKey)
		app.survey.Push(ctx, dateKey, false)
	},
}

var surveyShowCmd = &cobra.Command{
	Use:   "show [date]",
	Short: "Show a day's survey",
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

		sv, err := app.store.GetSurveyByDate(ctx, userID, dateKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		status := app.survey.Status(ctx, dateKey)
		fmt.Printf("%s  %s\n", ui.RenderBold(dateKey), renderStatus(status))

		if sv == nil {
			fmt.Println("  (no survey)")
			return
		}

		if sv.Weight != nil {
			fmt.Printf("  weight:     %.1f\n", *sv.Weight)
		}
		printRating("motivation", sv.Motivation)
		printRating("sleep", sv.Sleep)
		printRating("stress", sv.Stress)
		printRating("digestion", sv.Digestion)
		printRating("water", sv.Water)
		printRating("hunger", sv.Hunger)
		printRating("libido", sv.Libido)
		if sv.Comment != nil && *sv.Comment != "" {
			fmt.Printf("  comment:    %s\n", *sv.Comment)
		}
	},
}

var surveyClearCmd = &cobra.Command{
	Use:   "clear [date]",
	Short: "Delete a day's survey",
	Long: `Delete the survey for a day. The deletion is local only; the service
keeps whatever was last pushed.`,
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

		userID, err := app.store.ActiveUser(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		sv, err := app.store.GetSurveyByDate(ctx, userID, dateKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if sv == nil {
			fmt.Printf("No survey on %s\n", dateKey)
			return
		}

		if err := app.store.DeleteSurvey(ctx, sv.ID, userID); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s Cleared survey for %s\n", ui.RenderPass("✓"), dateKey)
		app.survey.Push(ctx, dateKey, false)
	},
}

func printRating(name string, v *int) {
	if v == nil {
		return
	}
	fmt.Printf("  %-11s %d/5\n", name+":", *v)
}

// runSurveyForm collects the survey via an interactive form. Every
// question is skippable; skipped answers stay unset.
func runSurveyForm(dateKey string, existing *schema.DailySurvey) (*schema.DailySurvey, error) {
	sv := &schema.DailySurvey{DateKey: dateKey}

	weightStr := ""
	comment := ""
	ratings := map[string]*int{
		"motivation": nil, "sleep": nil, "stress": nil, "digestion": nil,
		"water": nil, "hunger": nil, "libido": nil,
	}
	ratingVals := map[string]int{}

	if existing != nil {
		if existing.Weight != nil {
			weightStr = strconv.FormatFloat(*existing.Weight, 'f', 1, 64)
		}
		if existing.Comment != nil {
			comment = *existing.Comment
		}
		for name, p := range map[string]*int{
			"motivation": existing.Motivation, "sleep": existing.Sleep,
			"stress": existing.Stress, "digestion": existing.Digestion,
			"water": existing.Water, "hunger": existing.Hunger,
			"libido": existing.Libido,
		} {
			if p != nil {
				ratingVals[name] = *p
			}
		}
	}

	fields := []huh.Field{
		huh.NewInput().
			Title("Weight").
			Description("Morning weight; leave blank to skip").
			Value(&weightStr).
			Validate(func(s string) error {
				if s == "" {
					return nil
				}
				_, err := strconv.ParseFloat(s, 64)
				return err
			}),
	}
	for _, name := range []string{"motivation", "sleep", "stress", "digestion", "water", "hunger", "libido"} {
		name := name
		val := ratingVals[name]
		ratings[name] = &val
		fields = append(fields, huh.NewSelect[int]().
			Title(name).
			Options(
				huh.NewOption("skip", 0),
				huh.NewOption("1 (worst)", 1),
				huh.NewOption("2", 2),
				huh.NewOption("3", 3),
				huh.NewOption("4", 4),
				huh.NewOption("5 (best)", 5),
			).
			Value(ratings[name]))
	}
	fields = append(fields, huh.NewText().
		Title("Comment").
		Description("Anything worth remembering about today").
		Value(&comment))

	form := huh.NewForm(huh.NewGroup(fields...))
	if err := form.Run(); err != nil {
		return nil, err
	}

	if weightStr != "" {
		w, err := strconv.ParseFloat(weightStr, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight: %w", err)
		}
		sv.Weight = &w
	}
	assign := func(dst **int, name string) {
		if v := *ratings[name]; v >= 1 && v <= 5 {
			val := v
			*dst = &val
		}
	}
	assign(&sv.Motivation, "motivation")
	assign(&sv.Sleep, "sleep")
	assign(&sv.Stress, "stress")
	assign(&sv.Digestion, "digestion")
	assign(&sv.Water, "water")
	assign(&sv.Hunger, "hunger")
	assign(&sv.Libido, "libido")
	if comment != "" {
		sv.Comment = &comment
	}
	return sv, nil
}

func init() {
	surveyCmd.AddCommand(surveyFillCmd)
	surveyCmd.AddCommand(surveyShowCmd)
	surveyCmd.AddCommand(surveyClearCmd)
	rootCmd.AddCommand(surveyCmd)
}
