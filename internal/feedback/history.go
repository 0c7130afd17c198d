package feedback

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/MrWong99/clearspeech/internal/history"
)

// Category averages at or above strongCategory count as a strength, those
// below weakCategory as a weakness.
const (
	strongCategory = 80
	weakCategory   = 60
)

// NewSessionStats summarises the attempts of one session.
func NewSessionStats(attempts []history.Attempt) SessionStats {
	s := SessionStats{ExerciseCount: len(attempts), ExerciseTypes: []string{}}
	if len(attempts) == 0 {
		return s
	}

	var (
		total time.Duration
		sum   int
	)
	for _, a := range attempts {
		total += a.Duration
		sum += a.Scores.Overall
		s.BestScore = max(s.BestScore, a.Scores.Overall)
		if c := a.Category; c != "" && !slices.Contains(s.ExerciseTypes, c) {
			s.ExerciseTypes = append(s.ExerciseTypes, c)
		}
	}
	s.DurationMinutes = int(math.Round(total.Minutes()))
	s.AverageScore = math.Round(float64(sum)/float64(len(attempts))*10) / 10
	return s
}

// NewWeeklyData builds the weekly insight input from the week comparison,
// per-category statistics and the most missed words.
func NewWeeklyData(w history.WeeklyComparison, categories []history.CategoryStats, missed []history.WordCount) WeeklyData {
	d := WeeklyData{
		SessionsThisWeek: w.ThisWeek.Attempts,
		PracticeMinutes:  w.ThisWeek.Minutes,
		AverageScore:     w.ThisWeek.AverageOverall,
		ScoreChange:      w.ChangePercent,
	}
	for _, c := range categories {
		switch {
		case c.Average >= strongCategory:
			d.Strengths = append(d.Strengths, fmt.Sprintf("Strong %s scores (%.0f average)", c.Category, c.Average))
		case c.Average < weakCategory:
			d.Weaknesses = append(d.Weaknesses, fmt.Sprintf("%s exercises (%.0f average)", c.Category, c.Average))
		}
	}
	if len(missed) > 0 {
		words := make([]string, 0, 3)
		for _, m := range missed[:min(3, len(missed))] {
			words = append(words, "'"+m.Word+"'")
		}
		d.Weaknesses = append(d.Weaknesses, "Words like "+joinWords(words))
	}
	return d
}

func joinWords(words []string) string {
	switch len(words) {
	case 1:
		return words[0]
	case 2:
		return words[0] + " and " + words[1]
	default:
		return fmt.Sprintf("%s, %s and %s", words[0], words[1], words[2])
	}
}
