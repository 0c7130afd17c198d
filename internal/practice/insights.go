package practice

import (
	"context"
	"fmt"
	"time"

	"github.com/MrWong99/clearspeech/internal/feedback"
	"github.com/MrWong99/clearspeech/internal/history"
)

// weeklyMissedWords is how many missed words feed the weekly insights.
const weeklyMissedWords = 5

// generator returns the feedback generator and a context bounded by the
// feedback timeout. Without a generator the rules answer.
func (s *Service) generator(ctx context.Context) (feedback.Generator, context.Context, context.CancelFunc) {
	fs := s.feedback.Load()
	if fs.gen == nil {
		return feedback.RuleGenerator{}, ctx, func() {}
	}
	timeout := fs.timeout
	if timeout <= 0 {
		timeout = DefaultFeedbackTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return fs.gen, ctx, cancel
}

// SessionSummary summarises the attempts practised at or after since.
func (s *Service) SessionSummary(ctx context.Context, since time.Time) (string, error) {
	attempts, err := s.store.List(ctx, history.ListOptions{Since: since})
	if err != nil {
		return "", fmt.Errorf("practice: list attempts: %w", err)
	}
	gen, ctx, cancel := s.generator(ctx)
	defer cancel()
	summary, err := gen.SessionSummary(ctx, feedback.NewSessionStats(attempts))
	if err != nil {
		return "", fmt.Errorf("practice: session summary: %w", err)
	}
	return summary, nil
}

// WeeklyInsights compares the seven days before now with the week before and
// turns the comparison into coaching insights.
func (s *Service) WeeklyInsights(ctx context.Context, now time.Time) (*feedback.Insights, error) {
	attempts, err := s.store.List(ctx, history.ListOptions{Since: now.AddDate(0, 0, -14)})
	if err != nil {
		return nil, fmt.Errorf("practice: list attempts: %w", err)
	}
	var thisWeek []history.Attempt
	weekStart := now.AddDate(0, 0, -7)
	for _, a := range attempts {
		if !a.PracticedAt.Before(weekStart) && !a.PracticedAt.After(now) {
			thisWeek = append(thisWeek, a)
		}
	}

	data := feedback.NewWeeklyData(
		history.Weekly(attempts, now),
		history.ByCategory(thisWeek),
		history.MostMissedWords(thisWeek, weeklyMissedWords),
	)
	gen, ctx, cancel := s.generator(ctx)
	defer cancel()
	ins, err := gen.WeeklyInsights(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("practice: weekly insights: %w", err)
	}
	return ins, nil
}
