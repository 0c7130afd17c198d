package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MrWong99/clearspeech/internal/analysis"
	"github.com/MrWong99/clearspeech/internal/config"
	"github.com/MrWong99/clearspeech/internal/exercise"
	"github.com/MrWong99/clearspeech/internal/practice"
)

const practiceHelp = `Type what you said and press Enter. Commands: :skip moves to the next
exercise, :quit ends the session.`

func newPracticeCmd(v *viper.Viper) *cobra.Command {
	var (
		exerciseID string
		category   string
	)
	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Practise exercises interactively, one transcript per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer a.Close()

			ex, err := firstExercise(a.svc.Catalog(), exerciseID, exercise.Category(category))
			if err != nil {
				return err
			}

			if a.cfgPath != "" {
				w, err := config.NewWatcher(a.cfgPath, a.applyConfig)
				if err != nil {
					slog.Warn("config hot reload disabled", "err", err)
				} else {
					defer w.Stop()
				}
			}

			return runPractice(cmd.Context(), a, ex, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&exerciseID, "exercise", "", "exercise ID to start with")
	f.StringVar(&category, "category", "", "start with the first exercise of this category")
	return cmd
}

// firstExercise picks the starting exercise: the given ID, else the first one
// in category, else the first in the catalogue.
func firstExercise(c *exercise.Catalog, id string, category exercise.Category) (exercise.Exercise, error) {
	if id != "" {
		return c.Get(id)
	}
	if category != "" && !category.IsValid() {
		return exercise.Exercise{}, fmt.Errorf("unknown category %q", category)
	}
	list := c.List(exercise.Filter{Category: category})
	if len(list) == 0 {
		return exercise.Exercise{}, fmt.Errorf("no exercises in category %q", category)
	}
	return list[0], nil
}

// runPractice reads one transcript per line from in until EOF, :quit or
// context cancellation, then prints a session summary.
func runPractice(ctx context.Context, a *app, ex exercise.Exercise, in io.Reader, out io.Writer) error {
	a.metrics.ActivePractice.Add(ctx, 1)
	defer a.metrics.ActivePractice.Add(context.Background(), -1)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	start := time.Now()
	fmt.Fprintln(out, practiceHelp)
	showExercise(out, ex)

loop:
	for {
		var line string
		select {
		case <-ctx.Done():
			break loop
		case l, ok := <-lines:
			if !ok {
				break loop
			}
			line = strings.TrimSpace(l)
		}

		switch line {
		case "":
			continue
		case ":quit", ":q":
			break loop
		case ":skip":
			if next, ok := a.svc.Catalog().Next(ex, analysis.Same); ok {
				ex = next
			}
			showExercise(out, ex)
			continue
		}

		// Typing time says nothing about speaking rate, so no duration.
		res, err := a.svc.Attempt(ctx, practice.AttemptRequest{
			ExerciseID:      ex.ID,
			Spoken:          line,
			IncludeFeedback: true,
		})
		if err != nil {
			return err
		}
		printScores(out, res.Result.Scores)
		printAnalysis(out, res.Analysis)
		printFeedback(out, res.Feedback)
		fmt.Fprintf(out, "Difficulty: %s\n", res.Adjustment)

		if res.Next != nil {
			ex = *res.Next
		}
		showExercise(out, ex)
	}

	// The session context may be cancelled already; the summary still runs.
	summary, err := a.svc.SessionSummary(context.WithoutCancel(ctx), start)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%s\n", summary)
	return nil
}

func showExercise(w io.Writer, ex exercise.Exercise) {
	fmt.Fprintf(w, "\n── %s (%s, %s) ──\n", ex.Title, ex.Category, ex.Difficulty)
	if ex.Instructions != "" {
		fmt.Fprintln(w, ex.Instructions)
	}
	fmt.Fprintf(w, "Say: %q\n> ", ex.TargetText)
}
