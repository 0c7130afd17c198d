package history_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/clearspeech/internal/history"
)

// ── Record / Get ─────────────────────────────────────────────────────────────

func TestMemStore_RecordAssignsIDAndTime(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := history.NewMemStore()

	before := time.Now().UTC()
	got, err := s.Record(ctx, history.Attempt{Target: "hello", Spoken: "hello"})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if got.ID == "" {
		t.Error("Record did not assign an ID")
	}
	if got.PracticedAt.Before(before) {
		t.Errorf("PracticedAt = %v, want >= %v", got.PracticedAt, before)
	}

	fetched, err := s.Get(ctx, got.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fetched.Target != "hello" {
		t.Errorf("Get().Target = %q, want hello", fetched.Target)
	}
}

func TestMemStore_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := history.NewMemStore()

	if _, err := s.Record(ctx, history.Attempt{ID: "a1"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := s.Record(ctx, history.Attempt{ID: "a1"}); !errors.Is(err, history.ErrDuplicateID) {
		t.Errorf("duplicate Record error = %v, want ErrDuplicateID", err)
	}
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, history.ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestMemStore_ZeroValue(t *testing.T) {
	t.Parallel()

	var s history.MemStore
	if _, err := s.Record(context.Background(), history.Attempt{}); err != nil {
		t.Fatalf("zero-value Record: %v", err)
	}
}

func TestMemStore_RecordCopiesMissedWords(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := history.NewMemStore()

	words := []string{"three"}
	a, _ := s.Record(ctx, history.Attempt{MissedWords: words})
	words[0] = "changed"

	got, _ := s.Get(ctx, a.ID)
	if got.MissedWords[0] != "three" {
		t.Errorf("stored MissedWords = %q, mutated through caller slice", got.MissedWords)
	}
}

// ── List ─────────────────────────────────────────────────────────────────────

func TestMemStore_List(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := history.NewMemStore()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	// Record out of order; List must return oldest first.
	for _, day := range []int{3, 1, 4, 2, 5} {
		cat := "minimal_pairs"
		if day%2 == 0 {
			cat = "tongue_twisters"
		}
		_, err := s.Record(ctx, history.Attempt{
			ID:          fmt.Sprintf("day-%d", day),
			ExerciseID:  fmt.Sprintf("ex-%03d", day),
			Category:    cat,
			PracticedAt: base.AddDate(0, 0, day),
		})
		if err != nil {
			t.Fatalf("Record day %d: %v", day, err)
		}
	}

	tests := []struct {
		name string
		opts history.ListOptions
		want []string
	}{
		{"all", history.ListOptions{}, []string{"day-1", "day-2", "day-3", "day-4", "day-5"}},
		{"since", history.ListOptions{Since: base.AddDate(0, 0, 4)}, []string{"day-4", "day-5"}},
		{"until exclusive", history.ListOptions{Until: base.AddDate(0, 0, 2)}, []string{"day-1"}},
		{"category", history.ListOptions{Category: "tongue_twisters"}, []string{"day-2", "day-4"}},
		{"exercise", history.ListOptions{ExerciseID: "ex-003"}, []string{"day-3"}},
		{"limit keeps most recent", history.ListOptions{Limit: 2}, []string{"day-4", "day-5"}},
		{"combined", history.ListOptions{Category: "minimal_pairs", Limit: 1}, []string{"day-5"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := s.List(ctx, tc.opts)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("List = %d attempts, want %d", len(got), len(tc.want))
			}
			for i, a := range got {
				if a.ID != tc.want[i] {
					t.Errorf("List[%d].ID = %q, want %q", i, a.ID, tc.want[i])
				}
			}
		})
	}
}

// ── Concurrency ──────────────────────────────────────────────────────────────

func TestMemStore_ConcurrentRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := history.NewMemStore()

	const n = 50
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Record(ctx, history.Attempt{Target: "go"}); err != nil {
				t.Errorf("Record: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := s.List(ctx, history.ListOptions{})
	if len(got) != n {
		t.Errorf("List = %d attempts, want %d", len(got), n)
	}
}
