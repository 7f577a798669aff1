package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

const testDebounce = 100 * time.Millisecond

func TestWatcher_DebouncesBurstIntoOneChange(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	w := NewWatcher(dir, func(context.Context) { calls.Add(1) }, WithDebounce(testDebounce))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	for _, name := range []string{"a.png", "b.jpg", "c.JPEG"} {
		if err := writeFile(filepath.Join(dir, name), "x"); err != nil {
			t.Fatal(err)
		}
	}
	waitFor(t, func() bool { return calls.Load() >= 1 })
	time.Sleep(3 * testDebounce)
	if got := calls.Load(); got != 1 {
		t.Errorf("expected one change callback for a burst, got %d", got)
	}
}

func TestWatcher_IgnoresUnsupportedFiles(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	w := NewWatcher(dir, func(context.Context) { calls.Add(1) }, WithDebounce(testDebounce))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := writeFile(filepath.Join(dir, "notes.txt"), "x"); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(4 * testDebounce)
	if got := calls.Load(); got != 0 {
		t.Errorf("expected no callback, got %d", got)
	}
}

func TestWatcher_RemovalTriggersChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.png")
	if err := writeFile(path, "x"); err != nil {
		t.Fatal(err)
	}
	var calls atomic.Int32
	w := NewWatcher(dir, func(context.Context) { calls.Add(1) }, WithDebounce(testDebounce))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return calls.Load() == 1 })
}

func TestWatcher_StopDropsPendingChange(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	w := NewWatcher(dir, func(context.Context) { calls.Add(1) }, WithDebounce(time.Second))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, "a.png"), "x"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(testDebounce)
	w.Stop()
	w.Stop()
	time.Sleep(1500 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("expected pending change to be dropped, got %d", got)
	}
}

func TestWatcher_StartCreatesMissingDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "watch", "me")
	w := NewWatcher(root, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if _, err := os.Stat(root); err != nil {
		t.Errorf("directory should exist after Start: %v", err)
	}
	if w.Dir() != filepath.Clean(root) {
		t.Errorf("Dir() = %q", w.Dir())
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}
