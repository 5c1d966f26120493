package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

type dispatchCollector struct {
	mu    sync.Mutex
	paths []string
	ch    chan string
}

func newDispatchCollector() *dispatchCollector {
	return &dispatchCollector{ch: make(chan string, 16)}
}

func (c *dispatchCollector) handler(_ context.Context, _ int64, path string) {
	c.mu.Lock()
	c.paths = append(c.paths, path)
	c.mu.Unlock()
	c.ch <- path
}

func (c *dispatchCollector) wait(t *testing.T, timeout time.Duration) string {
	t.Helper()
	select {
	case path := <-c.ch:
		return path
	case <-time.After(timeout):
		t.Fatal("timed out waiting for dispatch")
		return ""
	}
}

func testRegistry(t *testing.T, handler Handler, onPathLost PathLostFunc) *Registry {
	t.Helper()
	registry := NewRegistry(20*time.Millisecond, 60*time.Millisecond, NewSuppressor(), handler, onPathLost, nil)
	t.Cleanup(registry.StopAll)
	return registry
}

func TestSuppressorIgnoresAndExpires(t *testing.T) {
	s := NewSuppressor()
	s.Suppress("/watch/out.txt")
	if !s.ShouldIgnore("/watch/out.txt") {
		t.Fatal("fresh suppression not honored")
	}
	if s.ShouldIgnore("/watch/other.txt") {
		t.Fatal("unrelated path suppressed")
	}

	// Rewind the clock past the TTL.
	s.now = func() time.Time { return time.Now().Add(suppressTTL + time.Second) }
	if s.ShouldIgnore("/watch/out.txt") {
		t.Fatal("expired suppression still honored")
	}
}

func TestStartErrors(t *testing.T) {
	registry := testRegistry(t, func(context.Context, int64, string) {}, nil)
	ctx := context.Background()

	if err := registry.Start(ctx, 1, filepath.Join(t.TempDir(), "missing")); !errors.Is(err, ErrPathNotFound) {
		t.Fatalf("missing path error = %v, want ErrPathNotFound", err)
	}

	dir := t.TempDir()
	if err := registry.Start(ctx, 1, dir); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := registry.Start(ctx, 1, dir); !errors.Is(err, ErrAlreadyWatching) {
		t.Fatalf("duplicate start error = %v, want ErrAlreadyWatching", err)
	}
	if !registry.Watching(1) {
		t.Fatal("registry does not report the watch")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	registry := testRegistry(t, func(context.Context, int64, string) {}, nil)
	dir := t.TempDir()
	if err := registry.Start(context.Background(), 1, dir); err != nil {
		t.Fatalf("start: %v", err)
	}
	registry.Stop(1)
	registry.Stop(1)
	if registry.Watching(1) {
		t.Fatal("watch survived stop")
	}
}

func TestSettledFileIsDispatched(t *testing.T) {
	collector := newDispatchCollector()
	registry := testRegistry(t, collector.handler, nil)
	dir := t.TempDir()
	if err := registry.Start(context.Background(), 1, dir); err != nil {
		t.Fatalf("start: %v", err)
	}

	path := filepath.Join(dir, "drop.txt")
	if err := os.WriteFile(path, []byte("contents"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got := collector.wait(t, 5*time.Second)
	if got != path {
		t.Fatalf("dispatched %s, want %s", got, path)
	}
}

func TestSuppressedPathIsNotDispatched(t *testing.T) {
	collector := newDispatchCollector()
	suppressor := NewSuppressor()
	registry := NewRegistry(20*time.Millisecond, 60*time.Millisecond, suppressor, collector.handler, nil, nil)
	t.Cleanup(registry.StopAll)

	dir := t.TempDir()
	if err := registry.Start(context.Background(), 1, dir); err != nil {
		t.Fatalf("start: %v", err)
	}

	suppressed := filepath.Join(dir, "engine-output.txt")
	suppressor.Suppress(suppressed)
	if err := os.WriteFile(suppressed, []byte("moved by engine"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	normal := filepath.Join(dir, "user-drop.txt")
	if err := os.WriteFile(normal, []byte("user file"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got := collector.wait(t, 5*time.Second)
	if got != normal {
		t.Fatalf("dispatched %s, want only %s", got, normal)
	}
	collector.mu.Lock()
	defer collector.mu.Unlock()
	for _, path := range collector.paths {
		if path == suppressed {
			t.Fatal("suppressed path was dispatched")
		}
	}
}

func TestPathLossStopsWatchAndSurfaces(t *testing.T) {
	lost := make(chan int64, 1)
	registry := testRegistry(t, func(context.Context, int64, string) {}, func(folderID int64, _ string, _ string) {
		lost <- folderID
	})

	parent := t.TempDir()
	dir := filepath.Join(parent, "inbox")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := registry.Start(context.Background(), 42, dir); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("remove watched dir: %v", err)
	}

	select {
	case folderID := <-lost:
		if folderID != 42 {
			t.Fatalf("lost folder id = %d, want 42", folderID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("path loss never surfaced")
	}

	deadline := time.Now().Add(2 * time.Second)
	for registry.Watching(42) {
		if time.Now().After(deadline) {
			t.Fatal("dead watch still registered")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSetupFailureDeregistersWatch(t *testing.T) {
	original := newFsnotifyWatcher
	newFsnotifyWatcher = func() (*fsnotify.Watcher, error) {
		return nil, errors.New("inotify instance limit reached")
	}
	t.Cleanup(func() { newFsnotifyWatcher = original })

	type loss struct {
		folderID int64
		reason   string
	}
	lost := make(chan loss, 1)
	registry := testRegistry(t, func(context.Context, int64, string) {}, func(folderID int64, _ string, reason string) {
		lost <- loss{folderID: folderID, reason: reason}
	})

	if err := registry.Start(context.Background(), 7, t.TempDir()); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case got := <-lost:
		if got.folderID != 7 {
			t.Fatalf("lost folder id = %d, want 7", got.folderID)
		}
		if !strings.Contains(got.reason, "watch setup failed") {
			t.Fatalf("reason = %q, want setup failure", got.reason)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("setup failure never surfaced")
	}

	deadline := time.Now().Add(2 * time.Second)
	for registry.Watching(7) {
		if time.Now().After(deadline) {
			t.Fatal("failed watch still registered")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
