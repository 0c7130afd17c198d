package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every entry of a [FallbackGroup] failed or was
// skipped because its breaker was open.
var ErrAllFailed = errors.New("resilience: all entries failed")

// ErrEmptyGroup is returned when a [FallbackGroup] has no entries.
var ErrEmptyGroup = errors.New("resilience: fallback group is empty")

// FallbackConfig configures the breaker created for every entry of a
// [FallbackGroup]. The breaker name is always the entry name.
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

type fallbackEntry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup tries values of the same type in registration order, each
// behind its own [CircuitBreaker]. Entries are added before the group is
// shared; Execute and Do are safe for concurrent use.
type FallbackGroup[T any] struct {
	entries []fallbackEntry[T]
	cfg     FallbackConfig
}

// NewFallbackGroup returns an empty group. Entries are registered with
// [FallbackGroup.Add]; the first one added is the primary.
func NewFallbackGroup[T any](cfg FallbackConfig) *FallbackGroup[T] {
	return &FallbackGroup[T]{cfg: cfg}
}

// Add appends an entry named name.
func (g *FallbackGroup[T]) Add(name string, value T) {
	cbCfg := g.cfg.CircuitBreaker
	cbCfg.Name = name
	g.entries = append(g.entries, fallbackEntry[T]{
		name:    name,
		value:   value,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// Len returns the number of entries.
func (g *FallbackGroup[T]) Len() int { return len(g.entries) }

// Names returns the entry names in order.
func (g *FallbackGroup[T]) Names() []string {
	names := make([]string, len(g.entries))
	for i, e := range g.entries {
		names[i] = e.name
	}
	return names
}

// Breaker returns the breaker of the entry named name, or nil.
func (g *FallbackGroup[T]) Breaker(name string) *CircuitBreaker {
	for _, e := range g.entries {
		if e.name == name {
			return e.breaker
		}
	}
	return nil
}

// Execute calls fn on each entry in order until one succeeds and returns the
// name of that entry.
func (g *FallbackGroup[T]) Execute(ctx context.Context, fn func(context.Context, T) error) (string, error) {
	_, name, err := Do(ctx, g, func(ctx context.Context, v T) (struct{}, error) {
		return struct{}{}, fn(ctx, v)
	})
	return name, err
}

// Do calls fn on each entry of g in order until one succeeds and returns its
// result together with the serving entry's name. Entries with an open breaker
// are skipped. Iteration stops early once ctx is done. When nothing succeeds
// the error wraps [ErrAllFailed] and every entry's error.
func Do[T, R any](ctx context.Context, g *FallbackGroup[T], fn func(context.Context, T) (R, error)) (R, string, error) {
	var zero R
	if len(g.entries) == 0 {
		return zero, "", ErrEmptyGroup
	}

	errs := make([]error, 0, len(g.entries))
	for i := range g.entries {
		e := &g.entries[i]
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		var result R
		err := e.breaker.Execute(func() error {
			var callErr error
			result, callErr = fn(ctx, e.value)
			return callErr
		})
		if err == nil {
			if i > 0 {
				slog.Info("fallback entry served request", "entry", e.name, "position", i)
			}
			return result, e.name, nil
		}

		errs = append(errs, fmt.Errorf("%s: %w", e.name, err))
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping fallback entry, circuit open", "entry", e.name)
		} else {
			slog.Warn("fallback entry failed, trying next", "entry", e.name, "err", err)
		}
	}
	return zero, "", fmt.Errorf("%w: %w", ErrAllFailed, errors.Join(errs...))
}
