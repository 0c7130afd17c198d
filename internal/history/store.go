// Package history records scored practice attempts and derives progress
// statistics from them: averages, streaks, week-over-week comparison,
// per-category performance, metric trends and the words missed most often.
//
// Two [Store] implementations are provided. [MemStore] keeps attempts in
// memory; [FileStore] appends them as JSON lines to a local file that is the
// whole store. The aggregation functions in stats.go are pure and operate on
// a slice of attempts, so they work with either store.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/MrWong99/clearspeech/pkg/scoring"
)

// ErrNotFound is returned by Get when the requested attempt does not exist.
var ErrNotFound = errors.New("history: attempt not found")

// ErrDuplicateID is returned by Record when an attempt with the same ID exists.
var ErrDuplicateID = errors.New("history: attempt with that ID already exists")

// Attempt is one scored practice attempt.
type Attempt struct {
	// ID is a UUID assigned by the store when empty.
	ID string `json:"id"`

	// ExerciseID is empty for free-form practice.
	ExerciseID string `json:"exercise_id,omitempty"`

	// Category is the exercise category, empty for free-form practice.
	Category string `json:"category,omitempty"`

	Target string         `json:"target"`
	Spoken string         `json:"spoken"`
	Scores scoring.Scores `json:"scores"`

	// MissedWords are the target words that did not match.
	MissedWords []string `json:"missed_words,omitempty"`

	// Duration is the length of the spoken attempt; zero when unknown.
	Duration time.Duration `json:"duration"`

	// PracticedAt is set by the store to the current time when zero.
	PracticedAt time.Time `json:"practiced_at"`
}

// Store persists attempts.
//
// All implementations must be safe for concurrent use.
type Store interface {
	// Record stores a. It assigns an ID and PracticedAt when they are zero
	// and returns the stored attempt.
	// Returns [ErrDuplicateID] if an attempt with the same non-empty ID exists.
	Record(ctx context.Context, a Attempt) (Attempt, error)

	// Get retrieves an attempt by ID.
	// Returns [ErrNotFound] when no attempt with that ID exists.
	Get(ctx context.Context, id string) (Attempt, error)

	// List returns the attempts matching opts, oldest first.
	List(ctx context.Context, opts ListOptions) ([]Attempt, error)
}

// ListOptions narrows the result set of [Store.List].
// All non-zero fields are applied as AND conditions.
type ListOptions struct {
	// Since keeps attempts practised at or after this instant.
	Since time.Time

	// Until keeps attempts practised before this instant.
	Until time.Time

	ExerciseID string
	Category   string

	// Limit keeps only the most recent Limit matches. Zero means no limit.
	Limit int
}

func (o ListOptions) matches(a Attempt) bool {
	if !o.Since.IsZero() && a.PracticedAt.Before(o.Since) {
		return false
	}
	if !o.Until.IsZero() && !a.PracticedAt.Before(o.Until) {
		return false
	}
	if o.ExerciseID != "" && a.ExerciseID != o.ExerciseID {
		return false
	}
	if o.Category != "" && a.Category != o.Category {
		return false
	}
	return true
}

// apply filters sorted attempts and trims them to the limit.
func (o ListOptions) apply(sorted []Attempt) []Attempt {
	out := make([]Attempt, 0, len(sorted))
	for _, a := range sorted {
		if o.matches(a) {
			out = append(out, a)
		}
	}
	if o.Limit > 0 && len(out) > o.Limit {
		out = out[len(out)-o.Limit:]
	}
	return out
}
