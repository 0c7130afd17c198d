package practice_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/MrWong99/clearspeech/internal/analysis"
	"github.com/MrWong99/clearspeech/internal/exercise"
	"github.com/MrWong99/clearspeech/internal/feedback"
	"github.com/MrWong99/clearspeech/internal/history"
	"github.com/MrWong99/clearspeech/internal/observe"
	"github.com/MrWong99/clearspeech/internal/practice"
	"github.com/MrWong99/clearspeech/pkg/scoring"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func newService(t *testing.T, opts ...practice.Option) (*practice.Service, *history.MemStore) {
	t.Helper()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	store := history.NewMemStore()
	opts = append([]practice.Option{practice.WithStore(store), practice.WithMetrics(m)}, opts...)
	s, err := practice.New(scoring.DefaultConfig(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, store
}

func storedAttempts(t *testing.T, store history.Store) []history.Attempt {
	t.Helper()
	as, err := store.List(context.Background(), history.ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	return as
}

// stubGenerator is a feedback.Generator with scripted behaviour.
type stubGenerator struct {
	mu       sync.Mutex
	requests []feedback.Request

	generate func(ctx context.Context, req feedback.Request) (*feedback.Feedback, error)
}

func (g *stubGenerator) Generate(ctx context.Context, req feedback.Request) (*feedback.Feedback, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	return g.generate(ctx, req)
}

func (g *stubGenerator) SessionSummary(context.Context, feedback.SessionStats) (string, error) {
	return "stub summary", nil
}

func (g *stubGenerator) WeeklyInsights(context.Context, feedback.WeeklyData) (*feedback.Insights, error) {
	return &feedback.Insights{Summary: "stub insights"}, nil
}

func (g *stubGenerator) lastRequest(t *testing.T) feedback.Request {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.requests) == 0 {
		t.Fatal("generator was not called")
	}
	return g.requests[len(g.requests)-1]
}

// ── Attempt ──────────────────────────────────────────────────────────────────

func TestAttempt_Exercise(t *testing.T) {
	t.Parallel()
	s, store := newService(t)

	res, err := s.Attempt(context.Background(), practice.AttemptRequest{
		ExerciseID: "ex-002",
		Spoken:     "She sells seashells by the seashore",
		Duration:   3 * time.Second,
	})
	if err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	if res.Result.Scores != (scoring.Scores{Overall: 100, Clarity: 100, Pace: 100, Fluency: 100}) {
		t.Errorf("Scores = %+v, want all 100", res.Result.Scores)
	}
	if res.Adjustment != analysis.Harder {
		t.Errorf("Adjustment = %q, want harder", res.Adjustment)
	}
	if res.Feedback != nil {
		t.Errorf("Feedback = %+v, want nil when not requested", res.Feedback)
	}
	if res.Next == nil || res.Next.ID != "ex-003" {
		t.Errorf("Next = %+v, want ex-003 (first hard exercise)", res.Next)
	}

	stored := storedAttempts(t, store)
	if len(stored) != 1 {
		t.Fatalf("stored %d attempts, want 1", len(stored))
	}
	got := stored[0]
	if got.ID == "" || got.ID != res.Attempt.ID {
		t.Errorf("stored ID = %q, result ID = %q", got.ID, res.Attempt.ID)
	}
	if got.ExerciseID != "ex-002" || got.Category != string(exercise.MinimalPairs) {
		t.Errorf("stored attempt = %+v, want ex-002/minimal_pairs", got)
	}
	if got.Duration != 3*time.Second || len(got.MissedWords) != 0 {
		t.Errorf("stored attempt = %+v", got)
	}
}

func TestAttempt_FreeForm(t *testing.T) {
	t.Parallel()
	s, store := newService(t)

	res, err := s.Attempt(context.Background(), practice.AttemptRequest{
		Target: "the quick brown fox",
		Spoken: "the quick fox",
	})
	if err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	if res.Exercise != nil || res.Next != nil {
		t.Errorf("free-form attempt has exercise %+v / next %+v", res.Exercise, res.Next)
	}
	stored := storedAttempts(t, store)
	if len(stored) != 1 || stored[0].Category != "" || stored[0].Target != "the quick brown fox" {
		t.Fatalf("stored = %+v", stored)
	}
	if len(stored[0].MissedWords) == 0 {
		t.Error("MissedWords is empty for an incomplete attempt")
	}
}

func TestAttempt_EmptyTranscriptStepsDown(t *testing.T) {
	t.Parallel()
	s, _ := newService(t)

	res, err := s.Attempt(context.Background(), practice.AttemptRequest{ExerciseID: "ex-001"})
	if err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	if res.Result.Scores.Overall != 0 || res.Adjustment != analysis.Easier {
		t.Errorf("overall %d / adjustment %q, want 0 / easier", res.Result.Scores.Overall, res.Adjustment)
	}
	if res.Next == nil || res.Next.ID != "ex-004" {
		t.Errorf("Next = %+v, want ex-004 (next easy repeat_after_me)", res.Next)
	}
}

func TestAttempt_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  practice.AttemptRequest
		want error
	}{
		{"unknown exercise", practice.AttemptRequest{ExerciseID: "ex-999", Spoken: "hi"}, exercise.ErrNotFound},
		{"no target", practice.AttemptRequest{Spoken: "hi"}, practice.ErrNoTarget},
		{"blank target", practice.AttemptRequest{Target: "   ", Spoken: "hi"}, practice.ErrNoTarget},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s, store := newService(t)
			_, err := s.Attempt(context.Background(), tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Attempt error = %v, want %v", err, tc.want)
			}
			if n := len(storedAttempts(t, store)); n != 0 {
				t.Errorf("stored %d attempts after an error, want 0", n)
			}
		})
	}
}

// ── Feedback ─────────────────────────────────────────────────────────────────

func TestAttempt_RuleFeedbackAdjustsDifficulty(t *testing.T) {
	t.Parallel()
	s, _ := newService(t, practice.WithFeedback(feedback.RuleGenerator{}, time.Second))

	res, err := s.Attempt(context.Background(), practice.AttemptRequest{
		ExerciseID:      "ex-002",
		Spoken:          "She sells seashells by the seashore",
		IncludeFeedback: true,
		UserContext:     &feedback.UserContext{SpeechCondition: "stuttering", SeverityLevel: 5},
	})
	if err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	if res.Feedback == nil {
		t.Fatal("Feedback is nil")
	}
	if res.Adjustment != analysis.Same {
		t.Errorf("Adjustment = %q, want same for severity 5", res.Adjustment)
	}
	if res.Next == nil || res.Next.ID != "ex-005" {
		t.Errorf("Next = %+v, want ex-005 (next medium minimal_pairs)", res.Next)
	}
}

func TestAttempt_FeedbackFailureStillRecords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		timeout time.Duration
		gen     func(ctx context.Context, req feedback.Request) (*feedback.Feedback, error)
	}{
		{
			name:    "timeout",
			timeout: 20 * time.Millisecond,
			gen: func(ctx context.Context, _ feedback.Request) (*feedback.Feedback, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
		},
		{
			name:    "error",
			timeout: time.Second,
			gen: func(context.Context, feedback.Request) (*feedback.Feedback, error) {
				return nil, errors.New("provider unavailable")
			},
		},
		{
			name:    "nil feedback",
			timeout: time.Second,
			gen: func(context.Context, feedback.Request) (*feedback.Feedback, error) {
				return nil, nil
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			gen := &stubGenerator{generate: tc.gen}
			s, store := newService(t, practice.WithFeedback(gen, tc.timeout))

			res, err := s.Attempt(context.Background(), practice.AttemptRequest{
				Target:          "red lorry",
				Spoken:          "red lolly",
				IncludeFeedback: true,
			})
			if err != nil {
				t.Fatalf("Attempt: %v", err)
			}
			if res.Feedback != nil {
				t.Errorf("Feedback = %+v, want nil", res.Feedback)
			}
			if res.Adjustment != res.Analysis.Difficulty {
				t.Errorf("Adjustment = %q, want analysis value %q", res.Adjustment, res.Analysis.Difficulty)
			}
			if n := len(storedAttempts(t, store)); n != 1 {
				t.Errorf("stored %d attempts, want 1", n)
			}
		})
	}
}

func TestAttempt_FeedbackRequest(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{generate: func(context.Context, feedback.Request) (*feedback.Feedback, error) {
		return &feedback.Feedback{Feedback: "ok", DifficultyAdjustment: analysis.Easier, Source: "stub"}, nil
	}}
	defaultUser := &feedback.UserContext{SpeechCondition: "dysarthria", SeverityLevel: 2}
	s, _ := newService(t, practice.WithFeedback(gen, time.Second), practice.WithUserContext(defaultUser))
	ctx := context.Background()

	res, err := s.Attempt(ctx, practice.AttemptRequest{Target: "red lorry", Spoken: "red lolly", IncludeFeedback: true})
	if err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	if res.Feedback == nil || res.Feedback.Source != "stub" {
		t.Fatalf("Feedback = %+v, want stub feedback", res.Feedback)
	}
	if res.Adjustment != analysis.Easier {
		t.Errorf("Adjustment = %q, want the feedback's easier", res.Adjustment)
	}
	req := gen.lastRequest(t)
	if req.Target != "red lorry" || req.Spoken != "red lolly" || req.UserContext != defaultUser {
		t.Errorf("request = %+v, want target/spoken and default user", req)
	}
	if len(req.Errors) == 0 {
		t.Error("request carries no analysed errors")
	}

	override := &feedback.UserContext{SeverityLevel: 4}
	if _, err := s.Attempt(ctx, practice.AttemptRequest{Target: "hi", Spoken: "hi", IncludeFeedback: true, UserContext: override}); err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	if got := gen.lastRequest(t).UserContext; got != override {
		t.Errorf("UserContext = %+v, want per-request override", got)
	}

	s.SetFeedback(nil, 0)
	res, err = s.Attempt(ctx, practice.AttemptRequest{Target: "hi", Spoken: "hi", IncludeFeedback: true})
	if err != nil || res.Feedback != nil {
		t.Errorf("after SetFeedback(nil): feedback %+v, err %v", res.Feedback, err)
	}
}

// ── Scoring configuration ────────────────────────────────────────────────────

func TestSetScoringConfig(t *testing.T) {
	t.Parallel()
	s, _ := newService(t)
	ctx := context.Background()

	score := func() int {
		t.Helper()
		res, err := s.Attempt(ctx, practice.AttemptRequest{Target: "think", Spoken: "sink"})
		if err != nil {
			t.Fatalf("Attempt: %v", err)
		}
		return res.Result.Scores.Clarity
	}

	if got := score(); got != 0 {
		t.Errorf("clarity at default threshold = %d, want 0 (similarity 0.6)", got)
	}

	bad := scoring.DefaultConfig()
	bad.MatchThreshold = 0
	if err := s.SetScoringConfig(bad); err == nil {
		t.Fatal("SetScoringConfig accepted threshold 0")
	}
	if s.ScoringConfig() != scoring.DefaultConfig() {
		t.Errorf("config changed after rejected update: %+v", s.ScoringConfig())
	}

	lenient := scoring.DefaultConfig()
	lenient.MatchThreshold = 0.5
	if err := s.SetScoringConfig(lenient); err != nil {
		t.Fatalf("SetScoringConfig: %v", err)
	}
	if got := score(); got != 100 {
		t.Errorf("clarity at threshold 0.5 = %d, want 100", got)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()
	cfg := scoring.DefaultConfig()
	cfg.PaceWeight = 0.5
	if _, err := practice.New(cfg); err == nil {
		t.Fatal("New accepted weights that do not sum to 1")
	}
}

// ── ScoreBatch ───────────────────────────────────────────────────────────────

func TestScoreBatch_KeepsOrder(t *testing.T) {
	t.Parallel()
	s, _ := newService(t, practice.WithBatchLimit(3))

	pairs := []practice.Pair{
		{Target: "hello world", Spoken: "hello world"},
		{Target: "the quick fox", Spoken: ""},
		{Target: "red lorry", Spoken: "red lolly"},
		{Target: "", Spoken: "anything"},
		{Target: "peter piper picked", Spoken: "peter piper picked a peck"},
		{Target: "think", Spoken: "sink"},
		{Target: "one two three", Spoken: "three two one"},
	}
	got, err := s.ScoreBatch(context.Background(), pairs)
	if err != nil {
		t.Fatalf("ScoreBatch: %v", err)
	}
	if len(got) != len(pairs) {
		t.Fatalf("results = %d, want %d", len(got), len(pairs))
	}
	for i, p := range pairs {
		want := scoring.Score(p.Target, p.Spoken)
		if got[i].Scores != want.Scores || len(got[i].WordAnalysis) != len(want.WordAnalysis) {
			t.Errorf("result %d = %+v, want %+v", i, got[i].Scores, want.Scores)
		}
	}
}

func TestScoreBatch_Empty(t *testing.T) {
	t.Parallel()
	s, _ := newService(t)
	got, err := s.ScoreBatch(context.Background(), nil)
	if err != nil || len(got) != 0 {
		t.Errorf("ScoreBatch(nil) = %v, %v", got, err)
	}
}

func TestScoreBatch_Cancelled(t *testing.T) {
	t.Parallel()
	s, _ := newService(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.ScoreBatch(ctx, []practice.Pair{{Target: "a", Spoken: "a"}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

// ── Insights ─────────────────────────────────────────────────────────────────

func TestSessionSummary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("rules without generator", func(t *testing.T) {
		t.Parallel()
		s, _ := newService(t)
		start := time.Now().Add(-time.Minute)
		for _, spoken := range []string{"hello world", "hello"} {
			if _, err := s.Attempt(ctx, practice.AttemptRequest{Target: "hello world", Spoken: spoken}); err != nil {
				t.Fatalf("Attempt: %v", err)
			}
		}
		got, err := s.SessionSummary(ctx, start)
		if err != nil {
			t.Fatalf("SessionSummary: %v", err)
		}
		if !strings.HasPrefix(got, "You completed 2 exercises") {
			t.Errorf("summary = %q", got)
		}
	})

	t.Run("generator", func(t *testing.T) {
		t.Parallel()
		s, _ := newService(t, practice.WithFeedback(&stubGenerator{}, time.Second))
		got, err := s.SessionSummary(ctx, time.Now())
		if err != nil || got != "stub summary" {
			t.Errorf("SessionSummary = %q, %v", got, err)
		}
	})
}

func TestWeeklyInsights(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC)

	s, store := newService(t)
	for _, a := range []history.Attempt{
		{Target: "x", Category: "minimal_pairs", Scores: scoring.Scores{Overall: 90}, PracticedAt: now.AddDate(0, 0, -1)},
		{Target: "x", Category: "minimal_pairs", Scores: scoring.Scores{Overall: 86}, PracticedAt: now.AddDate(0, 0, -2)},
		{Target: "x", Category: "tongue_twisters", Scores: scoring.Scores{Overall: 40}, MissedWords: []string{"lorry"}, PracticedAt: now.AddDate(0, 0, -3)},
		{Target: "x", Category: "minimal_pairs", Scores: scoring.Scores{Overall: 50}, PracticedAt: now.AddDate(0, 0, -10)},
		{Target: "x", Category: "minimal_pairs", Scores: scoring.Scores{Overall: 10}, PracticedAt: now.AddDate(0, 0, -30)},
	} {
		if _, err := store.Record(ctx, a); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	ins, err := s.WeeklyInsights(ctx, now)
	if err != nil {
		t.Fatalf("WeeklyInsights: %v", err)
	}
	// This week: 90, 86, 40 -> 72; last week: 50 -> +44%.
	if want := "You practiced 3 times this week and your average score rose by 44.0% to 72."; ins.Summary != want {
		t.Errorf("Summary = %q, want %q", ins.Summary, want)
	}
	if want := "Strong minimal_pairs scores (88 average)"; ins.Celebration != want {
		t.Errorf("Celebration = %q, want %q", ins.Celebration, want)
	}
	if want := "tongue_twisters exercises (40 average)"; ins.FocusArea != want {
		t.Errorf("FocusArea = %q, want %q", ins.FocusArea, want)
	}
	if want := "Practice at least 4 times next week"; ins.Goal != want {
		t.Errorf("Goal = %q, want %q", ins.Goal, want)
	}
}
