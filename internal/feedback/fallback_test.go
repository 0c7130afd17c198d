package feedback_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/MrWong99/clearspeech/internal/feedback"
	"github.com/MrWong99/clearspeech/internal/resilience"
	"github.com/MrWong99/clearspeech/pkg/provider/llm/mock"
)

func newFallback(gens map[string]feedback.Generator, order ...string) *feedback.Fallback {
	f := feedback.NewFallback(resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour},
	})
	for _, name := range order {
		f.Add(name, gens[name])
	}
	return f
}

func TestFallback_PrimaryServes(t *testing.T) {
	t.Parallel()

	f := newFallback(map[string]feedback.Generator{
		"openai": feedback.NewLLMGenerator(reply(`{"feedback":"From the model."}`)),
	}, "openai")

	fb, err := f.Generate(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if fb.Source != "openai" || fb.Feedback != "From the model." {
		t.Errorf("Generate = %+v, want model feedback from openai", fb)
	}
}

func TestFallback_SecondaryServes(t *testing.T) {
	t.Parallel()

	f := newFallback(map[string]feedback.Generator{
		"openai": feedback.NewLLMGenerator(&mock.Provider{CompleteErr: errors.New("down")}),
		"ollama": feedback.NewLLMGenerator(reply(`{"feedback":"Local model."}`)),
	}, "openai", "ollama")

	fb, _ := f.Generate(context.Background(), sampleRequest())
	if fb.Source != "ollama" {
		t.Errorf("Source = %q, want ollama", fb.Source)
	}
	if !reflect.DeepEqual(f.Sources(), []string{"openai", "ollama", feedback.RulesSource}) {
		t.Errorf("Sources() = %v", f.Sources())
	}
}

func TestFallback_RulesWhenAllFail(t *testing.T) {
	t.Parallel()

	down := &mock.Provider{CompleteErr: errors.New("down")}
	f := newFallback(map[string]feedback.Generator{
		"openai": feedback.NewLLMGenerator(down),
	}, "openai")

	for range 3 {
		fb, err := f.Generate(context.Background(), sampleRequest())
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if fb.Source != feedback.RulesSource {
			t.Errorf("Source = %q, want rules", fb.Source)
		}
	}
	if n := len(down.Calls()); n != 2 {
		t.Errorf("provider called %d times, want 2 before the breaker opened", n)
	}
	if st := f.Breaker("openai").State(); st != resilience.StateOpen {
		t.Errorf("breaker = %v, want open", st)
	}

	summary, err := f.SessionSummary(context.Background(), feedback.SessionStats{})
	if err != nil || summary == "" {
		t.Errorf("SessionSummary = %q, %v; want rule summary", summary, err)
	}
	ins, err := f.WeeklyInsights(context.Background(), feedback.WeeklyData{})
	if err != nil || ins.Summary == "" {
		t.Errorf("WeeklyInsights = %+v, %v; want rule insights", ins, err)
	}
}

func TestFallback_NoGenerators(t *testing.T) {
	t.Parallel()

	f := feedback.NewFallback(resilience.FallbackConfig{})
	fb, err := f.Generate(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want, _ := feedback.RuleGenerator{}.Generate(context.Background(), sampleRequest())
	want.Source = feedback.RulesSource
	if !reflect.DeepEqual(fb, want) {
		t.Errorf("Generate = %+v, want %+v", fb, want)
	}
}

func TestFallback_MalformedReplyFallsThrough(t *testing.T) {
	t.Parallel()

	f := newFallback(map[string]feedback.Generator{
		"openai": feedback.NewLLMGenerator(reply("I cannot answer in JSON.")),
	}, "openai")
	fb, _ := f.Generate(context.Background(), sampleRequest())
	if fb.Source != feedback.RulesSource {
		t.Errorf("Source = %q, want rules", fb.Source)
	}
}

// brokenGenerator fails every call.
type brokenGenerator struct{ err error }

func (b brokenGenerator) Generate(context.Context, feedback.Request) (*feedback.Feedback, error) {
	return nil, b.err
}

func (b brokenGenerator) SessionSummary(context.Context, feedback.SessionStats) (string, error) {
	return "", b.err
}

func (b brokenGenerator) WeeklyInsights(context.Context, feedback.WeeklyData) (*feedback.Insights, error) {
	return nil, b.err
}

// nilGenerator answers without a result.
type nilGenerator struct{ brokenGenerator }

func (nilGenerator) Generate(context.Context, feedback.Request) (*feedback.Feedback, error) {
	return nil, nil
}

func TestFallback_RulesFailureIsReturned(t *testing.T) {
	t.Parallel()

	rulesErr := errors.New("rules unavailable")
	tests := []struct {
		name  string
		rules feedback.Generator
		want  error
	}{
		{"error", brokenGenerator{err: rulesErr}, rulesErr},
		{"nil feedback", nilGenerator{}, feedback.ErrMalformedResponse},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := feedback.NewFallback(resilience.FallbackConfig{}, feedback.WithRules(tc.rules))
			f.Add("openai", feedback.NewLLMGenerator(&mock.Provider{CompleteErr: errors.New("down")}))

			fb, err := f.Generate(context.Background(), sampleRequest())
			if fb != nil {
				t.Errorf("Generate feedback = %+v, want nil", fb)
			}
			if !errors.Is(err, tc.want) {
				t.Errorf("Generate err = %v, want %v", err, tc.want)
			}
		})
	}

	f := feedback.NewFallback(resilience.FallbackConfig{}, feedback.WithRules(brokenGenerator{err: rulesErr}))
	if ins, err := f.WeeklyInsights(context.Background(), feedback.WeeklyData{}); ins != nil || !errors.Is(err, rulesErr) {
		t.Errorf("WeeklyInsights = %+v, %v; want nil and the rules error", ins, err)
	}
}
