package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MrWong99/clearspeech/internal/exercise"
	"github.com/MrWong99/clearspeech/internal/history"
)

func newExercisesCmd(v *viper.Viper) *cobra.Command {
	var (
		category   string
		difficulty string
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "exercises",
		Short: "List the exercise catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := exercise.Filter{
				Category:   exercise.Category(category),
				Difficulty: exercise.Difficulty(difficulty),
			}
			if f.Category != "" && !f.Category.IsValid() {
				return fmt.Errorf("unknown category %q", category)
			}
			if f.Difficulty != "" && !f.Difficulty.IsValid() {
				return fmt.Errorf("unknown difficulty %q", difficulty)
			}

			a, err := newApp(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer a.Close()

			list := a.svc.Catalog().List(f)
			w := cmd.OutOrStdout()
			if asJSON {
				if list == nil {
					list = []exercise.Exercise{}
				}
				return writeJSON(w, list)
			}
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCATEGORY\tDIFFICULTY\tTITLE\tTARGET")
			for _, ex := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", ex.ID, ex.Category, ex.Difficulty, ex.Title, ex.TargetText)
			}
			return tw.Flush()
		},
	}
	f := cmd.Flags()
	f.StringVar(&category, "category", "", "only list this category")
	f.StringVar(&difficulty, "difficulty", "", "only list this difficulty: easy, medium or hard")
	f.BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

// statsOutput is the --json shape of the stats command.
type statsOutput struct {
	Summary    history.Summary          `json:"summary"`
	Weekly     history.WeeklyComparison `json:"weekly"`
	Categories []history.CategoryStats  `json:"categories"`
	Missed     []history.WordCount      `json:"most_missed_words"`
	Trend      []history.TrendPoint     `json:"trend"`
}

func newStatsCmd(v *viper.Viper) *cobra.Command {
	var (
		days   int
		metric string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show progress statistics from the practice history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer a.Close()

			attempts, err := a.svc.Store().List(cmd.Context(), history.ListOptions{})
			if err != nil {
				return err
			}
			now := time.Now()
			out := statsOutput{
				Summary:    history.Summarize(attempts, now),
				Weekly:     history.Weekly(attempts, now),
				Categories: history.ByCategory(attempts),
				Missed:     history.MostMissedWords(attempts, 10),
				Trend:      history.Trend(attempts, history.ParseMetric(metric), days, now),
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			printStats(cmd.OutOrStdout(), out)
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&days, "days", 7, "number of days in the trend")
	f.StringVar(&metric, "metric", string(history.MetricOverall), "trend metric: overall, clarity, pace or fluency")
	f.BoolVar(&asJSON, "json", false, "print JSON instead of text")
	return cmd
}

func printStats(w io.Writer, s statsOutput) {
	sum := s.Summary
	if sum.TotalAttempts == 0 {
		fmt.Fprintln(w, "No practice recorded yet.")
		return
	}
	fmt.Fprintf(w, "%d attempts on %d days, %d minutes, %d distinct exercises\n",
		sum.TotalAttempts, sum.DaysPracticed, sum.PracticeMinutes, sum.DistinctExercises)
	fmt.Fprintf(w, "Average overall %.1f (clarity %.1f, pace %.1f, fluency %.1f), best %d, improvement %+.1f%%\n",
		sum.Average.Overall, sum.Average.Clarity, sum.Average.Pace, sum.Average.Fluency,
		sum.BestOverall, sum.ImprovementPercent)
	fmt.Fprintf(w, "Streak %d days (best %d)", sum.Streak.Current, sum.Streak.Best)
	if sum.Streak.NextMilestone > 0 {
		fmt.Fprintf(w, ", %d to the %d-day milestone", sum.Streak.DaysToMilestone, sum.Streak.NextMilestone)
	}
	fmt.Fprintln(w)
	for _, ach := range sum.Achievements {
		fmt.Fprintf(w, "★ %s\n", ach)
	}

	fmt.Fprintf(w, "\nThis week %d attempts (avg %.1f), last week %d (avg %.1f), change %+.1f\n",
		s.Weekly.ThisWeek.Attempts, s.Weekly.ThisWeek.AverageOverall,
		s.Weekly.LastWeek.Attempts, s.Weekly.LastWeek.AverageOverall, s.Weekly.ScoreChange)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nCATEGORY\tATTEMPTS\tAVERAGE\tBEST\tIMPROVEMENT")
	for _, c := range s.Categories {
		fmt.Fprintf(tw, "%s\t%d\t%.1f\t%d\t%+d\n", c.Category, c.Attempts, c.Average, c.Best, c.Improvement)
	}
	tw.Flush()

	if len(s.Missed) > 0 {
		fmt.Fprint(w, "\nMost missed:")
		for _, m := range s.Missed {
			fmt.Fprintf(w, " %s (%d)", m.Word, m.Count)
		}
		fmt.Fprintln(w)
	}
	if len(s.Trend) > 0 {
		fmt.Fprintf(w, "\n%s trend:\n", s.Trend[0].Metric)
		for _, p := range s.Trend {
			fmt.Fprintf(w, "  %s  %5.1f\n", p.Date, p.Value)
		}
	}
}

func newInsightsCmd(v *viper.Viper) *cobra.Command {
	var (
		since  time.Duration
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:       "insights weekly|session",
		Short:     "Generate coaching insights for the past week or the current session",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"weekly", "session"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer a.Close()

			w := cmd.OutOrStdout()
			now := time.Now()
			if args[0] == "session" {
				from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
				if since > 0 {
					from = now.Add(-since)
				}
				summary, err := a.svc.SessionSummary(cmd.Context(), from)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(w, map[string]string{"summary": summary})
				}
				fmt.Fprintln(w, summary)
				return nil
			}

			ins, err := a.svc.WeeklyInsights(cmd.Context(), now)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(w, ins)
			}
			fmt.Fprintf(w, "%s\n\nCelebrate: %s\nFocus on: %s\nGoal: %s\n", ins.Summary, ins.Celebration, ins.FocusArea, ins.Goal)
			return nil
		},
	}
	f := cmd.Flags()
	f.DurationVar(&since, "since", 0, "session length to summarise (default: since midnight)")
	f.BoolVar(&asJSON, "json", false, "print JSON instead of text")
	return cmd
}
