package feedback

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrWong99/clearspeech/internal/analysis"
)

// Compile-time interface assertion.
var _ Generator = RuleGenerator{}

// maxRuleTips caps the tips a [RuleGenerator] returns.
const maxRuleTips = 3

// RuleGenerator derives feedback from scores and word errors without any
// remote call. Its output depends only on its input. The zero value is ready
// to use.
type RuleGenerator struct{}

// Generate implements [Generator.Generate]. It never fails.
func (RuleGenerator) Generate(_ context.Context, req Request) (*Feedback, error) {
	overall := req.Scores.Overall
	fb := &Feedback{
		Feedback:             assessment(overall),
		Encouragement:        encouragement(overall),
		SpecificTips:         []string{},
		RecommendedExercises: []string{},
		DifficultyAdjustment: analysis.DifficultyAdjustment(overall),
	}
	if len(req.Errors) > 0 {
		fb.Feedback += fmt.Sprintf(" Pay extra attention to '%s'.", req.Errors[0].Word)
	}
	if uc := req.UserContext; uc != nil && uc.SeverityLevel >= 4 && fb.DifficultyAdjustment == analysis.Harder {
		// Severity 4 and above never steps up automatically.
		fb.DifficultyAdjustment = analysis.Same
	}

	seen := make(map[string]bool)
	for _, e := range req.Errors {
		if len(fb.SpecificTips) == maxRuleTips {
			break
		}
		if e.Suggestion != "" && !seen[e.Suggestion] {
			seen[e.Suggestion] = true
			fb.SpecificTips = append(fb.SpecificTips, e.Suggestion)
		}
	}
	if req.Scores.Pace < 70 {
		fb.SpecificTips = append(fb.SpecificTips, "Try to say every word of the phrase, at a steady pace")
	}

	recommended := make(map[string]bool)
	for _, e := range req.Errors {
		ex := exerciseFor(e.Type)
		if !recommended[ex] {
			recommended[ex] = true
			fb.RecommendedExercises = append(fb.RecommendedExercises, ex)
		}
	}
	if len(fb.RecommendedExercises) == 0 {
		fb.RecommendedExercises = append(fb.RecommendedExercises, "Tongue Twisters")
	}
	return fb, nil
}

func assessment(overall int) string {
	switch {
	case overall >= 90:
		return "Excellent work! Your speech was clear and accurate."
	case overall >= 70:
		return "Good job! Most of the words came through clearly."
	case overall >= 50:
		return "Nice effort. Some words need a little more practice."
	default:
		return "Let's slow down and take the phrase one word at a time."
	}
}

func encouragement(overall int) string {
	switch {
	case overall >= 90:
		return "Fantastic, you're ready for a bigger challenge!"
	case overall >= 50:
		return DefaultEncouragement
	default:
		return "Every attempt builds your skills. Keep going!"
	}
}

func exerciseFor(t analysis.ErrorType) string {
	switch t {
	case analysis.Substitution, analysis.Distortion:
		return "Minimal Pairs"
	case analysis.Omission:
		return "Repeat After Me"
	case analysis.Addition:
		return "Sentence Building"
	default:
		return "Repeat After Me"
	}
}

// SessionSummary implements [Generator.SessionSummary].
func (RuleGenerator) SessionSummary(_ context.Context, s SessionStats) (string, error) {
	if s.ExerciseCount == 0 {
		return "No exercises were completed this session. A few minutes of practice is a great start!", nil
	}

	var sb strings.Builder
	exercises := "exercises"
	if s.ExerciseCount == 1 {
		exercises = "exercise"
	}
	fmt.Fprintf(&sb, "You completed %d %s in %d minutes with an average score of %.0f.",
		s.ExerciseCount, exercises, s.DurationMinutes, s.AverageScore)
	fmt.Fprintf(&sb, " Your best score was %d.", s.BestScore)
	if len(s.ExerciseTypes) > 0 {
		fmt.Fprintf(&sb, " You practiced %s.", strings.Join(s.ExerciseTypes, ", "))
	}
	sb.WriteString(" Great work, keep it up!")
	return sb.String(), nil
}

// WeeklyInsights implements [Generator.WeeklyInsights].
func (RuleGenerator) WeeklyInsights(_ context.Context, d WeeklyData) (*Insights, error) {
	ins := &Insights{}
	switch {
	case d.SessionsThisWeek == 0:
		ins.Summary = "You did not practice this week. Short daily sessions make the biggest difference."
	case d.ScoreChange > 0:
		ins.Summary = fmt.Sprintf("You practiced %d times this week and your average score rose by %.1f%% to %.0f.",
			d.SessionsThisWeek, d.ScoreChange, d.AverageScore)
	case d.ScoreChange < 0:
		ins.Summary = fmt.Sprintf("You practiced %d times this week with an average score of %.0f, a little below last week.",
			d.SessionsThisWeek, d.AverageScore)
	default:
		ins.Summary = fmt.Sprintf("You practiced %d times this week with an average score of %.0f.",
			d.SessionsThisWeek, d.AverageScore)
	}

	switch {
	case len(d.Strengths) > 0:
		ins.Celebration = d.Strengths[0]
	case d.PracticeMinutes > 0:
		ins.Celebration = fmt.Sprintf("%d minutes of practice this week", d.PracticeMinutes)
	default:
		ins.Celebration = "Getting started is the hardest part"
	}

	if len(d.Weaknesses) > 0 {
		ins.FocusArea = d.Weaknesses[0]
	} else {
		ins.FocusArea = "Keep practicing your current exercises"
	}

	target := max(3, d.SessionsThisWeek+1)
	ins.Goal = fmt.Sprintf("Practice at least %d times next week", target)
	return ins, nil
}
