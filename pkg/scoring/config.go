package scoring

import (
	"errors"
	"fmt"
	"math"
)

// Default configuration values.
const (
	DefaultMatchThreshold = 0.70
	DefaultClarityWeight  = 0.40
	DefaultFluencyWeight  = 0.35
	DefaultPaceWeight     = 0.25
)

// weightTolerance bounds floating-point noise when checking the weight sum.
const weightTolerance = 1e-9

// Config holds the tunable scoring parameters. It is a plain value; copies
// are independent.
type Config struct {
	// MatchThreshold is the minimum similarity for a word pair to count as a
	// match. Must be in (0, 1].
	MatchThreshold float64 `yaml:"match_threshold" json:"match_threshold"`

	// ClarityWeight, FluencyWeight and PaceWeight mix the sub-scores into the
	// overall score. They must be non-negative and sum to 1.
	ClarityWeight float64 `yaml:"clarity_weight" json:"clarity_weight"`
	FluencyWeight float64 `yaml:"fluency_weight" json:"fluency_weight"`
	PaceWeight    float64 `yaml:"pace_weight" json:"pace_weight"`
}

// DefaultConfig returns the standard configuration: threshold 0.70 and
// weights 0.40 / 0.35 / 0.25 for clarity / fluency / pace.
func DefaultConfig() Config {
	return Config{
		MatchThreshold: DefaultMatchThreshold,
		ClarityWeight:  DefaultClarityWeight,
		FluencyWeight:  DefaultFluencyWeight,
		PaceWeight:     DefaultPaceWeight,
	}
}

// Validate checks cfg and returns all problems joined into one error.
func (c Config) Validate() error {
	var errs []error
	if math.IsNaN(c.MatchThreshold) || c.MatchThreshold <= 0 || c.MatchThreshold > 1 {
		errs = append(errs, fmt.Errorf("scoring: match_threshold %v must be in (0, 1]", c.MatchThreshold))
	}
	weights := []struct {
		name string
		v    float64
	}{
		{"clarity_weight", c.ClarityWeight},
		{"fluency_weight", c.FluencyWeight},
		{"pace_weight", c.PaceWeight},
	}
	sum := 0.0
	for _, w := range weights {
		if math.IsNaN(w.v) || w.v < 0 {
			errs = append(errs, fmt.Errorf("scoring: %s %v must be non-negative", w.name, w.v))
		}
		sum += w.v
	}
	if math.Abs(sum-1) > weightTolerance {
		errs = append(errs, fmt.Errorf("scoring: weights must sum to 1, got %v", sum))
	}
	return errors.Join(errs...)
}
