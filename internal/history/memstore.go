package history

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store].
// The zero value is ready to use.
type MemStore struct {
	mu       sync.RWMutex
	attempts []Attempt
	ids      map[string]struct{}

	// now is overridable in tests.
	now func() time.Time
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{ids: make(map[string]struct{})}
}

// Record implements [Store.Record].
func (s *MemStore) Record(_ context.Context, a Attempt) (Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(a)
}

// insert adds a with the lock held.
func (s *MemStore) insert(a Attempt) (Attempt, error) {
	if s.ids == nil {
		s.ids = make(map[string]struct{})
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if _, dup := s.ids[a.ID]; dup {
		return Attempt{}, fmt.Errorf("%w: %q", ErrDuplicateID, a.ID)
	}
	if a.PracticedAt.IsZero() {
		now := time.Now
		if s.now != nil {
			now = s.now
		}
		a.PracticedAt = now().UTC()
	}
	a.MissedWords = slices.Clone(a.MissedWords)

	// Keep attempts ordered by practice time; appends are the common case.
	i := len(s.attempts)
	for i > 0 && s.attempts[i-1].PracticedAt.After(a.PracticedAt) {
		i--
	}
	s.attempts = slices.Insert(s.attempts, i, a)
	s.ids[a.ID] = struct{}{}
	return a, nil
}

// Get implements [Store.Get].
func (s *MemStore) Get(_ context.Context, id string) (Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.attempts {
		if a.ID == id {
			return a, nil
		}
	}
	return Attempt{}, fmt.Errorf("%w: %q", ErrNotFound, id)
}

// List implements [Store.List].
func (s *MemStore) List(_ context.Context, opts ListOptions) ([]Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return opts.apply(s.attempts), nil
}

// sortAttempts orders attempts by practice time, then ID.
func sortAttempts(as []Attempt) {
	slices.SortStableFunc(as, func(a, b Attempt) int {
		if c := a.PracticedAt.Compare(b.PracticedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
