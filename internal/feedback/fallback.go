package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrWong99/clearspeech/internal/resilience"
)

// RulesSource is the [Feedback.Source] of rule-based feedback.
const RulesSource = "rules"

// Compile-time interface assertion.
var _ Generator = (*Fallback)(nil)

// Fallback tries its generators in registration order, each behind its own
// circuit breaker, and answers with a [RuleGenerator] when all of them fail.
// With the default rules its methods never return an error.
type Fallback struct {
	group *resilience.FallbackGroup[Generator]
	rules Generator
}

// FallbackOption configures a [Fallback].
type FallbackOption func(*Fallback)

// WithRules replaces the generator that answers once every remote generator
// has failed. Default: [RuleGenerator].
func WithRules(g Generator) FallbackOption {
	return func(f *Fallback) {
		if g != nil {
			f.rules = g
		}
	}
}

// NewFallback returns a Fallback without remote generators. cfg tunes the
// breaker created for every generator added with [Fallback.Add].
func NewFallback(cfg resilience.FallbackConfig, opts ...FallbackOption) *Fallback {
	f := &Fallback{
		group: resilience.NewFallbackGroup[Generator](cfg),
		rules: RuleGenerator{},
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Add registers g under name. Generators are added before the Fallback is
// shared.
func (f *Fallback) Add(name string, g Generator) {
	f.group.Add(name, g)
}

// Sources returns the generator names in the order they are tried, ending
// with [RulesSource].
func (f *Fallback) Sources() []string {
	return append(f.group.Names(), RulesSource)
}

// Breaker returns the breaker of the named generator, or nil.
func (f *Fallback) Breaker(name string) *resilience.CircuitBreaker {
	return f.group.Breaker(name)
}

// Generate implements [Generator.Generate] and records the serving generator
// in [Feedback.Source].
func (f *Fallback) Generate(ctx context.Context, req Request) (*Feedback, error) {
	fb, source, err := resilience.Do(ctx, f.group, func(ctx context.Context, g Generator) (*Feedback, error) {
		fb, err := g.Generate(ctx, req)
		if err == nil && fb == nil {
			return nil, ErrMalformedResponse
		}
		return fb, err
	})
	if err != nil {
		f.degraded("generate", err)
		var rerr error
		fb, rerr = f.rules.Generate(ctx, req)
		if rerr == nil && fb == nil {
			rerr = ErrMalformedResponse
		}
		if rerr != nil {
			return nil, fmt.Errorf("feedback: rules: %w", errors.Join(rerr, err))
		}
		source = RulesSource
	}
	fb.Source = source
	return fb, nil
}

// SessionSummary implements [Generator.SessionSummary].
func (f *Fallback) SessionSummary(ctx context.Context, stats SessionStats) (string, error) {
	s, _, err := resilience.Do(ctx, f.group, func(ctx context.Context, g Generator) (string, error) {
		return g.SessionSummary(ctx, stats)
	})
	if err != nil {
		f.degraded("session summary", err)
		return f.rules.SessionSummary(ctx, stats)
	}
	return s, nil
}

// WeeklyInsights implements [Generator.WeeklyInsights].
func (f *Fallback) WeeklyInsights(ctx context.Context, data WeeklyData) (*Insights, error) {
	ins, _, err := resilience.Do(ctx, f.group, func(ctx context.Context, g Generator) (*Insights, error) {
		ins, err := g.WeeklyInsights(ctx, data)
		if err == nil && ins == nil {
			return nil, ErrMalformedResponse
		}
		return ins, err
	})
	if err != nil {
		f.degraded("weekly insights", err)
		ins, rerr := f.rules.WeeklyInsights(ctx, data)
		if rerr == nil && ins == nil {
			rerr = ErrMalformedResponse
		}
		if rerr != nil {
			return nil, fmt.Errorf("feedback: rules: %w", errors.Join(rerr, err))
		}
		return ins, nil
	}
	return ins, nil
}

func (f *Fallback) degraded(op string, err error) {
	if f.group.Len() == 0 {
		return
	}
	slog.Warn("feedback: remote generators failed, using rules", "op", op, "err", err)
}
