package config

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchInterval is the polling interval of a [Watcher].
const DefaultWatchInterval = 5 * time.Second

// settleDelay is how long the watcher waits after a file event before
// reading, so that a write in progress can finish.
const settleDelay = 50 * time.Millisecond

// Watcher monitors a config file and calls a callback when its content
// changes to a new valid configuration. It listens for fsnotify events on the
// file's directory and polls as a fallback, so edits are picked up on file
// systems without change notifications too. Change detection compares the
// modification time first and the SHA-256 of the content second.
type Watcher struct {
	path       string
	interval   time.Duration
	onChange   func(old, new *Config)
	noNotifier bool

	mu        sync.Mutex
	current   *Config
	lastMtime time.Time
	lastHash  [sha256.Size]byte

	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is [DefaultWatchInterval].
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithPollingOnly disables fsnotify and relies on polling alone.
func WithPollingOnly() WatcherOption {
	return func(w *Watcher) {
		w.noNotifier = true
	}
}

// NewWatcher loads the config at path and starts watching it in a background
// goroutine. onChange may be nil; it is called outside the watcher's lock.
func NewWatcher(path string, onChange func(old, new *Config), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     filepath.Clean(path),
		interval: DefaultWatchInterval,
		onChange: onChange,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, hash, mtime, err := w.loadAndHash()
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current = cfg
	w.lastHash = hash
	w.lastMtime = mtime

	go w.run(w.notifier())
	return w, nil
}

// notifier returns an fsnotify watcher on the config directory, or nil when
// notifications are unavailable.
func (w *Watcher) notifier() *fsnotify.Watcher {
	if w.noNotifier {
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("config watcher: fsnotify unavailable, polling only", "err", err)
		return nil
	}
	// Watch the directory: editors often replace the file by renaming.
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		slog.Warn("config watcher: cannot watch directory, polling only", "path", w.path, "err", err)
		fw.Close()
		return nil
	}
	return fw
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Reload checks the file immediately.
func (w *Watcher) Reload() {
	w.check(true)
}

// Stop stops watching and waits for the background goroutine to exit. It is
// safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
	<-w.stopped
}

func (w *Watcher) run(fw *fsnotify.Watcher) {
	defer close(w.stopped)

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	if fw != nil {
		defer fw.Close()
		events, errs = fw.Events, fw.Errors
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var settle <-chan time.Time
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-events:
			if !ok {
				slog.Warn("config watcher: fsnotify closed, polling only")
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) == w.path && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				settle = time.After(settleDelay)
			}
		case <-settle:
			settle = nil
			w.check(true)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			slog.Warn("config watcher: fsnotify error", "err", err)
		case <-ticker.C:
			w.check(false)
		}
	}
}

// check reloads the file if it changed. Without force an unchanged mtime
// short-circuits the read.
func (w *Watcher) check(force bool) {
	if !force {
		info, err := os.Stat(w.path)
		if err != nil {
			slog.Warn("config watcher: cannot stat file", "path", w.path, "err", err)
			return
		}
		w.mu.Lock()
		same := info.ModTime().Equal(w.lastMtime)
		w.mu.Unlock()
		if same {
			return
		}
	}

	cfg, hash, mtime, err := w.loadAndHash()
	if err != nil {
		slog.Warn("config watcher: failed to load config, keeping current", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	if hash == w.lastHash {
		w.lastMtime = mtime
		w.mu.Unlock()
		return
	}
	old := w.current
	w.current = cfg
	w.lastHash = hash
	w.lastMtime = mtime
	w.mu.Unlock()

	slog.Info("config watcher: configuration reloaded", "path", w.path)
	if w.onChange != nil {
		w.onChange(old, cfg)
	}
}

// loadAndHash reads, parses and validates the file and returns the config
// with the content hash and modification time.
func (w *Watcher) loadAndHash() (*Config, [sha256.Size]byte, time.Time, error) {
	var zero [sha256.Size]byte

	info, err := os.Stat(w.path)
	if err != nil {
		return nil, zero, time.Time{}, err
	}
	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, zero, time.Time{}, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, zero, time.Time{}, fmt.Errorf("config: %q is empty", w.path)
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, zero, time.Time{}, err
	}
	return cfg, sha256.Sum256(data), info.ModTime(), nil
}
