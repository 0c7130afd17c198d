package history

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
)

// Compile-time assertion that FileStore satisfies the Store interface.
var _ Store = (*FileStore)(nil)

// FileStore persists attempts as append-only JSON lines in a local file and
// serves reads from an in-memory copy loaded at open time.
// Thread-safe for concurrent use within one process.
type FileStore struct {
	mu   sync.Mutex
	path string
	mem  *MemStore
}

// OpenFileStore loads the attempts stored at path. A missing file is treated
// as an empty history and is created on the first Record.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, mem: NewMemStore()}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("history: open %q: %w", s.path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var loaded []Attempt
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var a Attempt
		if err := json.Unmarshal(sc.Bytes(), &a); err != nil {
			return fmt.Errorf("history: %s:%d: decode attempt: %w", s.path, line, err)
		}
		loaded = append(loaded, a)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("history: read %q: %w", s.path, err)
	}

	sortAttempts(loaded)
	for _, a := range loaded {
		if _, err := s.mem.insert(a); err != nil {
			return fmt.Errorf("history: %s: %w", s.path, err)
		}
	}
	return nil
}

// Path returns the file backing the store.
func (s *FileStore) Path() string { return s.path }

// Record implements [Store.Record]. The attempt is written before it becomes
// visible to readers.
func (s *FileStore) Record(ctx context.Context, a Attempt) (Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID != "" {
		if _, err := s.mem.Get(ctx, a.ID); err == nil {
			return Attempt{}, fmt.Errorf("%w: %q", ErrDuplicateID, a.ID)
		}
	}

	// Fill ID and timestamp through a scratch store so the written line
	// carries them.
	scratch := &MemStore{now: s.mem.now}
	filled, err := scratch.insert(a)
	if err != nil {
		return Attempt{}, err
	}

	data, err := json.Marshal(filled)
	if err != nil {
		return Attempt{}, fmt.Errorf("history: marshal: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return Attempt{}, fmt.Errorf("history: open file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return Attempt{}, fmt.Errorf("history: write: %w", err)
	}
	if err := f.Close(); err != nil {
		return Attempt{}, fmt.Errorf("history: close: %w", err)
	}

	return s.mem.Record(ctx, filled)
}

// Get implements [Store.Get].
func (s *FileStore) Get(ctx context.Context, id string) (Attempt, error) {
	return s.mem.Get(ctx, id)
}

// List implements [Store.List].
func (s *FileStore) List(ctx context.Context, opts ListOptions) ([]Attempt, error) {
	return s.mem.List(ctx, opts)
}
