// Package watcher keeps the pair cache honest while files come and go.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"sigother/internal/paths"
	"sigother/internal/slogutil"
)

// EventType represents the type of file system event
type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

// Event represents a file system event
type Event struct {
	Type      EventType
	Path      string
	Root      string
	Timestamp time.Time
}

// String returns a string representation of the event type
func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// ChangeHandler is called with each debounced batch
type ChangeHandler func(events []Event)

// Config contains watcher configuration
type Config struct {
	DebounceMs     int      `json:"debounceMs" mapstructure:"debounceMs"`
	IgnorePatterns []string `json:"ignorePatterns" mapstructure:"ignore"`
}

// DefaultConfig returns the default watcher configuration
func DefaultConfig() Config {
	return Config{
		DebounceMs: 500,
		IgnorePatterns: []string{
			"**/.git/**",
			"**/" + paths.DataDirName + "/**",
			"**/node_modules/**",
			"**/*.swp",
			"**/*~",
		},
	}
}

// Watcher watches project roots with fsnotify
type Watcher struct {
	config    Config
	logger    *slog.Logger
	handler   ChangeHandler
	fsw       *fsnotify.Watcher
	debouncer *BatchDebouncer

	mu    sync.RWMutex
	roots map[string]int // root -> watched directory count
	wg    sync.WaitGroup

	started bool
	stopped bool
}

// New creates a watcher. Call WatchRoot for each root, then Start.
func New(config Config, logger *slog.Logger, handler ChangeHandler) (*Watcher, error) {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	for _, pattern := range config.IgnorePatterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid ignore pattern %q", pattern)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		config:  config,
		logger:  logger,
		handler: handler,
		fsw:     fsw,
		roots:   make(map[string]int),
	}
	w.debouncer = NewBatchDebouncer(time.Duration(config.DebounceMs)*time.Millisecond, w.dispatch)
	return w, nil
}

// Start processes events until ctx is cancelled or Stop is called
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()

	w.logger.Info("Starting file watcher", "debounceMs", w.config.DebounceMs, "roots", len(w.WatchedRoots()))

	w.wg.Add(1)
	go w.loop(ctx)
}

// Stop closes the underlying watcher and flushes pending events
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()
	w.debouncer.Flush()
	w.logger.Info("File watcher stopped")
	return err
}

// WatchRoot adds every non-ignored directory below root
func (w *Watcher) WatchRoot(root string) error {
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}

	w.mu.Lock()
	if _, exists := w.roots[root]; exists {
		w.mu.Unlock()
		return nil
	}
	w.roots[root] = 0
	w.mu.Unlock()

	count, err := w.addTree(root, root)
	if err != nil {
		return err
	}

	w.logger.Info("Watching root", "path", root, "directories", count)
	return nil
}

// addTree registers dir and its descendants, returning how many were added
func (w *Watcher) addTree(root, dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			w.logger.Debug("Skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.IsIgnored(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		count++
		return nil
	})

	w.mu.Lock()
	w.roots[root] += count
	w.mu.Unlock()
	return count, err
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.logger.Warn("File watcher overflowed, events were dropped")
				continue
			}
			w.logger.Warn("File watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	root := w.rootOf(ev.Name)
	if root == "" || w.IsIgnored(ev.Name) {
		return
	}

	var typ EventType
	switch {
	case ev.Has(fsnotify.Create):
		typ = EventCreate
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if _, err := w.addTree(root, ev.Name); err != nil {
				w.logger.Warn("Failed to watch new directory", "path", ev.Name, "error", err)
			}
		}
	case ev.Has(fsnotify.Remove):
		typ = EventDelete
	case ev.Has(fsnotify.Rename):
		typ = EventRename
	case ev.Has(fsnotify.Write):
		typ = EventModify
	default:
		return
	}

	w.debouncer.Add(Event{Type: typ, Path: ev.Name, Root: root, Timestamp: time.Now()})
}

func (w *Watcher) dispatch(events []Event) {
	w.logger.Debug("File changes detected", "eventCount", len(events))
	if w.handler != nil {
		w.handler(events)
	}
}

func (w *Watcher) rootOf(path string) string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	best := ""
	for root := range w.roots {
		if paths.IsWithinRoot(path, root) && len(root) > len(best) {
			best = root
		}
	}
	return best
}

// IsIgnored reports whether path matches an ignore pattern. Patterns are
// doublestar globs matched against the path relative to its root.
func (w *Watcher) IsIgnored(path string) bool {
	root := w.rootOf(path)
	if root == "" {
		return false
	}
	rel, err := paths.RelativeTo(path, root)
	if err != nil {
		return false
	}
	for _, pattern := range w.config.IgnorePatterns {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

// WatchedRoots returns the watched roots in sorted order
func (w *Watcher) WatchedRoots() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	roots := make([]string, 0, len(w.roots))
	for root := range w.roots {
		roots = append(roots, root)
	}
	sort.Strings(roots)
	return roots
}

// Stats returns watcher statistics
func (w *Watcher) Stats() map[string]interface{} {
	w.mu.RLock()
	defer w.mu.RUnlock()

	dirs := 0
	for _, n := range w.roots {
		dirs += n
	}
	return map[string]interface{}{
		"watchedRoots":       len(w.roots),
		"watchedDirectories": dirs,
		"debounceMs":         w.config.DebounceMs,
		"ignorePatterns":     len(w.config.IgnorePatterns),
		"pendingEvents":      w.debouncer.EventCount(),
	}
}
