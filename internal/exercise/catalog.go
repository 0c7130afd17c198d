package exercise

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/MrWong99/clearspeech/internal/analysis"
)

var (
	// ErrNotFound is returned when an exercise ID is not in the catalogue.
	ErrNotFound = errors.New("exercise: not found")

	// ErrDuplicateID is returned when a catalogue lists an ID twice.
	ErrDuplicateID = errors.New("exercise: duplicate id")
)

// Filter narrows [Catalog.List]. Zero fields match everything.
type Filter struct {
	Category   Category
	Difficulty Difficulty
}

func (f Filter) matches(ex Exercise) bool {
	if f.Category != "" && ex.Category != f.Category {
		return false
	}
	if f.Difficulty != "" && ex.Difficulty != f.Difficulty {
		return false
	}
	return true
}

// Catalog is an immutable, ID-ordered set of exercises. It is safe for
// concurrent use.
type Catalog struct {
	exercises []Exercise
	byID      map[string]int
}

// NewCatalog validates exercises and returns a catalogue sorted by ID.
func NewCatalog(exercises []Exercise) (*Catalog, error) {
	c := &Catalog{
		exercises: slices.Clone(exercises),
		byID:      make(map[string]int, len(exercises)),
	}
	slices.SortFunc(c.exercises, func(a, b Exercise) int { return cmp.Compare(a.ID, b.ID) })

	var errs []error
	for i, ex := range c.exercises {
		if err := Validate(ex); err != nil {
			errs = append(errs, fmt.Errorf("exercise %q: %w", ex.ID, err))
			continue
		}
		if _, dup := c.byID[ex.ID]; dup {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDuplicateID, ex.ID))
			continue
		}
		c.byID[ex.ID] = i
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return c, nil
}

// Len returns the number of exercises.
func (c *Catalog) Len() int { return len(c.exercises) }

// Get returns the exercise with the given ID or [ErrNotFound].
func (c *Catalog) Get(id string) (Exercise, error) {
	i, ok := c.byID[id]
	if !ok {
		return Exercise{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return c.exercises[i], nil
}

// List returns the exercises matching f in ID order.
func (c *Catalog) List(f Filter) []Exercise {
	var out []Exercise
	for _, ex := range c.exercises {
		if f.matches(ex) {
			out = append(out, ex)
		}
	}
	return out
}

// Next picks the exercise to practise after current given a difficulty
// recommendation. It prefers the same category at the adjusted difficulty,
// then any category at that difficulty, then anything else. Within a group
// the first exercise after current in ID order wins, wrapping around.
// The current exercise is only returned when it is the sole candidate.
func (c *Catalog) Next(current Exercise, adj analysis.Adjustment) (Exercise, bool) {
	want := current.Difficulty.Step(adj)
	groups := []Filter{
		{Category: current.Category, Difficulty: want},
		{Difficulty: want},
		{},
	}
	for _, f := range groups {
		if ex, ok := c.after(current.ID, f); ok {
			return ex, true
		}
	}
	if _, err := c.Get(current.ID); err == nil {
		return current, true
	}
	return Exercise{}, false
}

// after returns the first exercise matching f whose ID sorts after id,
// wrapping around, and never id itself.
func (c *Catalog) after(id string, f Filter) (Exercise, bool) {
	var first *Exercise
	for i := range c.exercises {
		ex := &c.exercises[i]
		if ex.ID == id || !f.matches(*ex) {
			continue
		}
		if ex.ID > id {
			return *ex, true
		}
		if first == nil {
			first = ex
		}
	}
	if first != nil {
		return *first, true
	}
	return Exercise{}, false
}
