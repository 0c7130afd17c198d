// Package resilience protects calls to remote feedback backends.
//
// [CircuitBreaker] is a three-state breaker (closed, open, half-open) that
// stops calling a backend after repeated failures and probes it again once a
// cool-down has passed. [FallbackGroup] orders several values of the same type
// behind one breaker each, so a failing primary is skipped in favour of the
// next healthy entry.
//
// All types are safe for concurrent use.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] while the breaker is
// open and the reset timeout has not elapsed.
var ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

// State is the operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed forwards every call.
	StateClosed State = iota

	// StateOpen rejects calls with [ErrCircuitOpen] until ResetTimeout has
	// passed since the last failure.
	StateOpen

	// StateHalfOpen lets up to HalfOpenMax probe calls through. One failed
	// probe re-opens the breaker; HalfOpenMax successes close it.
	StateHalfOpen
)

// String returns the lower-case name of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker defaults.
const (
	DefaultMaxFailures  = 5
	DefaultResetTimeout = 30 * time.Second
	DefaultHalfOpenMax  = 3
)

// CircuitBreakerConfig holds tuning knobs for a [CircuitBreaker]. Zero fields
// take the Default* values.
type CircuitBreakerConfig struct {
	// Name labels log records and state-change callbacks.
	Name string

	// MaxFailures is the number of consecutive failures that opens the breaker.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open before probing.
	ResetTimeout time.Duration

	// HalfOpenMax is the probe budget in the half-open state.
	HalfOpenMax int

	// OnStateChange, when set, is called after every transition. It runs with
	// the breaker's lock released.
	OnStateChange func(name string, from, to State)
}

// Counts is a snapshot of a breaker's bookkeeping.
type Counts struct {
	State               State
	ConsecutiveFailures int
	TotalFailures       int
	TotalSuccesses      int
	Rejected            int
}

// CircuitBreaker implements the three-state circuit breaker pattern.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	// now is overridable in tests.
	now func() time.Time

	mu           sync.Mutex
	state        State
	counts       Counts
	openedAt     time.Time
	probes       int
	probeSuccess int
}

// NewCircuitBreaker returns a closed [CircuitBreaker] configured by cfg.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultMaxFailures
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = DefaultResetTimeout
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = DefaultHalfOpenMax
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// Name returns the configured label.
func (cb *CircuitBreaker) Name() string { return cb.cfg.Name }

// Execute runs fn if the breaker admits the call and records its outcome.
// A [context.Canceled] error from fn is passed through without counting as a
// failure: the caller gave up, the backend did not fail.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	probe, err := cb.admit()
	if err != nil {
		return err
	}
	err = fn()
	cb.record(probe, err)
	return err
}

// admit decides whether a call may proceed and reports whether it is a
// half-open probe.
func (cb *CircuitBreaker) admit() (bool, error) {
	cb.mu.Lock()
	var from State
	changed := false
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.ResetTimeout {
		from, changed = cb.transition(StateHalfOpen)
	}

	var (
		probe bool
		err   error
	)
	switch cb.state {
	case StateOpen:
		cb.counts.Rejected++
		err = ErrCircuitOpen
	case StateHalfOpen:
		if cb.probes >= cb.cfg.HalfOpenMax {
			cb.counts.Rejected++
			err = ErrCircuitOpen
		} else {
			cb.probes++
			probe = true
		}
	}
	cb.mu.Unlock()

	if changed {
		cb.notify(from, StateHalfOpen)
	}
	return probe, err
}

func (cb *CircuitBreaker) record(probe bool, err error) {
	if errors.Is(err, context.Canceled) {
		cb.mu.Lock()
		if probe && cb.state == StateHalfOpen {
			cb.probes--
		}
		cb.mu.Unlock()
		return
	}

	cb.mu.Lock()
	var (
		from, to State
		changed  bool
	)
	if err != nil {
		cb.counts.TotalFailures++
		cb.counts.ConsecutiveFailures++
		switch {
		case probe && cb.state == StateHalfOpen:
			to = StateOpen
			from, changed = cb.transition(StateOpen)
		case cb.state == StateClosed && cb.counts.ConsecutiveFailures >= cb.cfg.MaxFailures:
			to = StateOpen
			from, changed = cb.transition(StateOpen)
		}
	} else {
		cb.counts.TotalSuccesses++
		cb.counts.ConsecutiveFailures = 0
		if probe && cb.state == StateHalfOpen {
			cb.probeSuccess++
			if cb.probeSuccess >= cb.cfg.HalfOpenMax {
				to = StateClosed
				from, changed = cb.transition(StateClosed)
			}
		}
	}
	failures := cb.counts.ConsecutiveFailures
	cb.mu.Unlock()

	if !changed {
		return
	}
	switch to {
	case StateOpen:
		slog.Warn("circuit breaker opened", "name", cb.cfg.Name, "from", from.String(), "consecutive_failures", failures, "err", err)
	case StateClosed:
		slog.Info("circuit breaker closed after successful probes", "name", cb.cfg.Name)
	}
	cb.notify(from, to)
}

// transition moves to state and resets the per-state bookkeeping. Must be
// called with cb.mu held.
func (cb *CircuitBreaker) transition(to State) (State, bool) {
	from := cb.state
	if from == to {
		return from, false
	}
	cb.state = to
	cb.probes = 0
	cb.probeSuccess = 0
	switch to {
	case StateOpen:
		cb.openedAt = cb.now()
	case StateClosed:
		cb.counts.ConsecutiveFailures = 0
	}
	return from, true
}

func (cb *CircuitBreaker) notify(from, to State) {
	if to == StateHalfOpen {
		slog.Info("circuit breaker half-open, probing", "name", cb.cfg.Name)
	}
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.cfg.Name, from, to)
	}
}

// State returns the current state. An open breaker whose reset timeout has
// elapsed reports [StateHalfOpen]; the transition itself happens on the next
// call to Execute.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.ResetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Counts returns a snapshot of the breaker's counters.
func (cb *CircuitBreaker) Counts() Counts {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	c := cb.counts
	c.State = cb.state
	return c
}

// Reset forces the breaker closed and clears the consecutive failure count.
// Totals are kept.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	from, changed := cb.transition(StateClosed)
	cb.counts.ConsecutiveFailures = 0
	cb.mu.Unlock()

	if changed {
		slog.Info("circuit breaker manually reset", "name", cb.cfg.Name)
		cb.notify(from, StateClosed)
	}
}
