package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}

func TestWatcher_ReloadOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "properties.json")
	if err := writeFile(path, "[]"); err != nil {
		t.Fatal(err)
	}

	var reloaded []string
	var mu sync.Mutex
	w := New(WithDebounce(50 * time.Millisecond))
	if err := w.Watch(path, func(p string) {
		mu.Lock()
		reloaded = append(reloaded, p)
		mu.Unlock()
	}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := writeFile(path, `[{"id":"p1"}]`); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(reloaded) < 1 {
		t.Fatalf("expected at least one reload, got %d", len(reloaded))
	}
	if filepath.Clean(reloaded[0]) != filepath.Clean(path) {
		t.Errorf("reloaded %s, want %s", reloaded[0], path)
	}
}

func TestWatcher_IgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "suggestions.yaml")
	sibling := filepath.Join(dir, "unrelated.yaml")
	if err := writeFile(watched, "suggestions: []"); err != nil {
		t.Fatal(err)
	}

	var count int
	var mu sync.Mutex
	w := New(WithDebounce(50 * time.Millisecond))
	if err := w.Watch(watched, func(string) {
		mu.Lock()
		count++
		mu.Unlock()
	}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := writeFile(sibling, "noise"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 0 {
		t.Errorf("sibling writes must not trigger reloads, got %d", count)
	}
}

func TestWatcher_DebounceCollapsesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	if err := writeFile(path, "[]"); err != nil {
		t.Fatal(err)
	}

	var count int
	var mu sync.Mutex
	w := New(WithDebounce(150 * time.Millisecond))
	if err := w.Watch(path, func(string) {
		mu.Lock()
		count++
		mu.Unlock()
	}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	for i := 0; i < 5; i++ {
		if err := writeFile(path, "[]"); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(500 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Errorf("burst of writes should collapse to one reload, got %d", count)
	}
}

func TestWatcher_WatchAfterStart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "late.json")
	if err := writeFile(path, "[]"); err != nil {
		t.Fatal(err)
	}

	var reloads int
	var mu sync.Mutex
	w := New(WithDebounce(50 * time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := w.Watch(path, func(string) {
		mu.Lock()
		reloads++
		mu.Unlock()
	}); err != nil {
		t.Fatal(err)
	}

	if err := writeFile(path, `[{"id":"x"}]`); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if reloads < 1 {
		t.Errorf("expected reload for file registered after Start, got %d", reloads)
	}
}

func TestWatcher_DuplicateWatchIsAnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.json")
	w := New()
	if err := w.Watch(path, func(string) {}); err != nil {
		t.Fatal(err)
	}
	if err := w.Watch(path, func(string) {}); err == nil {
		t.Error("expected error for duplicate watch")
	}
	if n := len(w.Files()); n != 1 {
		t.Errorf("expected 1 registered file, got %d", n)
	}
}

func TestWatcher_Unwatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.json")
	if err := writeFile(path, "[]"); err != nil {
		t.Fatal(err)
	}

	var count int
	var mu sync.Mutex
	w := New(WithDebounce(50 * time.Millisecond))
	if err := w.Watch(path, func(string) {
		mu.Lock()
		count++
		mu.Unlock()
	}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	w.Unwatch(path)
	if len(w.Files()) != 0 {
		t.Fatalf("expected no registered files, got %v", w.Files())
	}

	if err := writeFile(path, "changed"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 0 {
		t.Errorf("unwatched file must not trigger reloads, got %d", count)
	}
}
