package watcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"sigother/internal/slogutil"
	"sigother/internal/testutil"
)

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		eventType EventType
		want      string
	}{
		{EventCreate, "create"},
		{EventModify, "modify"},
		{EventDelete, "delete"},
		{EventRename, "rename"},
		{EventType(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := tt.eventType.String()
			if got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.DebounceMs != 500 {
		t.Errorf("DebounceMs = %d, want 500", config.DebounceMs)
	}
	if len(config.IgnorePatterns) == 0 {
		t.Error("IgnorePatterns should not be empty")
	}
}

func TestNewRejectsInvalidPattern(t *testing.T) {
	config := DefaultConfig()
	config.IgnorePatterns = []string{"[oops"}

	if _, err := New(config, nil, nil); err == nil {
		t.Error("expected error for invalid ignore pattern")
	}
}

func newTestWatcher(t *testing.T, handler ChangeHandler) *Watcher {
	t.Helper()
	config := DefaultConfig()
	config.DebounceMs = 50

	w, err := New(config, slogutil.NewDiscardLogger(), handler)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func TestWatcherIsIgnored(t *testing.T) {
	p := testutil.NewProject(t, "lib/a.js", "node_modules/x/index.js", ".git/HEAD")
	w := newTestWatcher(t, nil)

	if err := w.WatchRoot(p.Root); err != nil {
		t.Fatalf("WatchRoot failed: %v", err)
	}

	tests := []struct {
		rel  string
		want bool
	}{
		{"lib/a.js", false},
		{"lib/.a.js.swp", true},
		{"lib/a.js~", true},
		{"node_modules/x/index.js", true},
		{".git/HEAD", true},
		{".sigother/sigother.db", true},
		{"spec/a-spec.js", false},
	}

	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			if got := w.IsIgnored(p.Path(tt.rel)); got != tt.want {
				t.Errorf("IsIgnored(%s) = %v, want %v", tt.rel, got, tt.want)
			}
		})
	}

	if w.IsIgnored("/somewhere/else/.git/HEAD") {
		t.Error("paths outside every root are never ignored")
	}
}

func TestWatchRootStats(t *testing.T) {
	p := testutil.NewProject(t, "lib/a.js", "spec/a-spec.js", "node_modules/x/index.js")
	w := newTestWatcher(t, nil)

	if err := w.WatchRoot(p.Root); err != nil {
		t.Fatal(err)
	}
	if err := w.WatchRoot(p.Root); err != nil {
		t.Fatalf("watching a root twice should be a no-op: %v", err)
	}

	roots := w.WatchedRoots()
	if len(roots) != 1 || roots[0] != p.Root {
		t.Errorf("WatchedRoots() = %v", roots)
	}

	stats := w.Stats()
	// root, lib, spec; node_modules is pruned
	if stats["watchedDirectories"] != 3 {
		t.Errorf("watchedDirectories = %v, want 3", stats["watchedDirectories"])
	}
	if stats["debounceMs"] != 50 {
		t.Errorf("debounceMs = %v", stats["debounceMs"])
	}
}

func TestWatchRootMissing(t *testing.T) {
	w := newTestWatcher(t, nil)
	if err := w.WatchRoot("/definitely/not/here"); err == nil {
		t.Error("expected error for missing root")
	}
}

func collectEvents(t *testing.T) (ChangeHandler, func(want func([]Event) bool) []Event) {
	var mu sync.Mutex
	var all []Event
	notify := make(chan struct{}, 64)

	handler := func(events []Event) {
		mu.Lock()
		all = append(all, events...)
		mu.Unlock()
		notify <- struct{}{}
	}

	wait := func(want func([]Event) bool) []Event {
		t.Helper()
		deadline := time.After(5 * time.Second)
		for {
			mu.Lock()
			snapshot := append([]Event(nil), all...)
			mu.Unlock()
			if want(snapshot) {
				return snapshot
			}
			select {
			case <-notify:
			case <-deadline:
				t.Fatalf("timed out waiting for events, got %+v", snapshot)
			}
		}
	}
	return handler, wait
}

func hasEvent(events []Event, typ EventType, path string) bool {
	for _, ev := range events {
		if ev.Type == typ && ev.Path == path {
			return true
		}
	}
	return false
}

func TestWatcherReportsChanges(t *testing.T) {
	p := testutil.NewProject(t, "lib/a.js")
	handler, wait := collectEvents(t)
	w := newTestWatcher(t, handler)

	if err := w.WatchRoot(p.Root); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	created := p.Write("spec/a-spec.js", "")
	wait(func(evs []Event) bool { return hasEvent(evs, EventCreate, p.Path("spec")) })

	// spec/ was created after WatchRoot; the new directory is watched too.
	p.Write("spec/b-spec.js", "")
	wait(func(evs []Event) bool { return hasEvent(evs, EventCreate, p.Path("spec/b-spec.js")) })

	p.Remove("spec/a-spec.js")
	events := wait(func(evs []Event) bool { return hasEvent(evs, EventDelete, created) })

	for _, ev := range events {
		if ev.Root != p.Root {
			t.Errorf("event %+v has root %q, want %q", ev, ev.Root, p.Root)
		}
	}
}

func TestWatcherSkipsIgnoredEvents(t *testing.T) {
	p := testutil.NewProject(t, "lib/a.js")
	handler, wait := collectEvents(t)
	w := newTestWatcher(t, handler)

	if err := w.WatchRoot(p.Root); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	p.Write("lib/.a.js.swp", "")
	p.Write("lib/b.js", "")

	events := wait(func(evs []Event) bool { return hasEvent(evs, EventCreate, p.Path("lib/b.js")) })
	if hasEvent(events, EventCreate, p.Path("lib/.a.js.swp")) {
		t.Errorf("ignored file produced an event: %+v", events)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	w := newTestWatcher(t, nil)
	w.Start(context.Background())

	if err := w.Stop(); err != nil {
		t.Errorf("first Stop: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

type fakeInvalidator struct {
	mu          sync.Mutex
	invalidated []string
	forgets     int
}

func (f *fakeInvalidator) Invalidate(path string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, path)
	return 1, nil
}

func (f *fakeInvalidator) ForgetMisses() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forgets++
	return 0, nil
}

func TestCacheHandler(t *testing.T) {
	inv := &fakeInvalidator{}
	handler := CacheHandler(inv, slogutil.NewDiscardLogger())

	handler([]Event{
		{Type: EventModify, Path: "/p/lib/a.js"},
		{Type: EventDelete, Path: "/p/spec/a-spec.js"},
		{Type: EventRename, Path: "/p/lib/b.js"},
		{Type: EventCreate, Path: "/p/lib/c.js"},
		{Type: EventCreate, Path: "/p/lib/d.js"},
	})

	if len(inv.invalidated) != 2 || inv.invalidated[0] != "/p/spec/a-spec.js" || inv.invalidated[1] != "/p/lib/b.js" {
		t.Errorf("invalidated = %v", inv.invalidated)
	}
	if inv.forgets != 1 {
		t.Errorf("ForgetMisses called %d times, want 1", inv.forgets)
	}

	handler([]Event{{Type: EventModify, Path: "/p/lib/a.js"}})
	if inv.forgets != 1 || len(inv.invalidated) != 2 {
		t.Error("modify events should not touch the cache")
	}
}

// BatchDebouncer tests

func TestNewBatchDebouncer(t *testing.T) {
	emit := func(events []Event) {}
	b := NewBatchDebouncer(100*time.Millisecond, emit)

	if b == nil {
		t.Fatal("NewBatchDebouncer() returned nil")
	}
	if b.delay != 100*time.Millisecond {
		t.Errorf("delay = %v, want 100ms", b.delay)
	}
	if b.events == nil {
		t.Error("events should be initialized")
	}
}

func TestBatchDebouncerAdd(t *testing.T) {
	var received []Event
	var mu sync.Mutex

	emit := func(events []Event) {
		mu.Lock()
		received = events
		mu.Unlock()
	}

	b := NewBatchDebouncer(50*time.Millisecond, emit)

	b.Add(Event{Type: EventCreate, Path: "file1.go"})
	b.Add(Event{Type: EventModify, Path: "file2.go"})
	b.Add(Event{Type: EventDelete, Path: "file3.go"})

	if b.EventCount() != 3 {
		t.Errorf("EventCount() = %d, want 3", b.EventCount())
	}

	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	if len(received) != 3 {
		t.Errorf("Should have received 3 events, got %d", len(received))
	}
	mu.Unlock()
}

func TestBatchDebouncerCoalescesPaths(t *testing.T) {
	var received []Event
	b := NewBatchDebouncer(time.Hour, func(events []Event) { received = events })

	b.Add(Event{Type: EventCreate, Path: "a.go"})
	b.Add(Event{Type: EventModify, Path: "b.go"})
	b.Add(Event{Type: EventModify, Path: "a.go"})
	b.Add(Event{Type: EventDelete, Path: "a.go"})

	if b.EventCount() != 2 {
		t.Errorf("EventCount() = %d, want 2", b.EventCount())
	}

	b.Flush()
	if len(received) != 2 {
		t.Fatalf("received %d events, want 2", len(received))
	}
	if received[0].Path != "a.go" || received[0].Type != EventDelete {
		t.Errorf("first event = %+v, want a.go delete", received[0])
	}
	if received[1].Path != "b.go" {
		t.Errorf("second event = %+v", received[1])
	}
}

func TestBatchDebouncerFlush(t *testing.T) {
	var received []Event

	b := NewBatchDebouncer(500*time.Millisecond, func(events []Event) { received = events })
	b.Add(Event{Type: EventCreate, Path: "file.go"})
	b.Flush()

	if len(received) != 1 {
		t.Errorf("Should have received 1 event, got %d", len(received))
	}
	if b.EventCount() != 0 {
		t.Errorf("EventCount() = %d, want 0 after flush", b.EventCount())
	}
}

func TestBatchDebouncerNoEmitWithNoEvents(t *testing.T) {
	var called bool

	b := NewBatchDebouncer(10*time.Millisecond, func(events []Event) { called = true })
	b.Flush()

	if called {
		t.Error("Emit should not be called with no events")
	}
}
