package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

const testDebounce = 50 * time.Millisecond

func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestWatcher_StoreWriteTriggersOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "embeddings.json")
	var calls atomic.Int32
	w := New(path, func() { calls.Add(1) }, WithDebounce(testDebounce))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, func() bool { return calls.Load() >= 1 }) {
		t.Fatal("expected onChange after writing the store")
	}
}

func TestWatcher_AtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "embeddings.json")
	if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
	var calls atomic.Int32
	w := New(path, func() { calls.Add(1) }, WithDebounce(testDebounce))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	tmp := filepath.Join(dir, "embeddings.json.tmp")
	if err := os.WriteFile(tmp, []byte(`[{"text":"a","embedding":[1]}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, func() bool { return calls.Load() >= 1 }) {
		t.Fatal("expected onChange after replacing the store")
	}
}

func TestWatcher_DebounceCoalesces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "embeddings.json")
	var calls atomic.Int32
	w := New(path, func() { calls.Add(1) }, WithDebounce(200*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(600 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("onChange called %d times, want 1", got)
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "embeddings.json")
	var calls atomic.Int32
	w := New(path, func() { calls.Add(1) }, WithDebounce(testDebounce))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("onChange called %d times for an unrelated file", got)
	}
}

func TestWatcher_CreatesMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "embeddings.json")
	w := New(path, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Errorf("store directory not created: %v", err)
	}
}

func TestWatcher_RunStopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.json")
	w := New(path, nil)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	// Stopping twice is harmless.
	w.Stop()
}

func TestWatcher_Targets(t *testing.T) {
	w := New("/data/embeddings.db", nil)
	tests := []struct {
		name string
		want bool
	}{
		{"/data/embeddings.db", true},
		{"/data/embeddings.db-wal", true},
		{"/data/embeddings.db-journal", true},
		{"/data/other.db", false},
		{"/data/./embeddings.db", true},
	}
	for _, tt := range tests {
		if got := w.targets[filepath.Clean(tt.name)]; got != tt.want {
			t.Errorf("target %q = %v, want %v", tt.name, got, tt.want)
		}
	}
	if w.Path() != "/data/embeddings.db" {
		t.Errorf("Path() = %q", w.Path())
	}
}
