package registry

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestWatchPicksUpValidUpdates(t *testing.T) {
	dir := t.TempDir()
	p := writeConfig(t, dir, sampleConfig)

	var reloads atomic.Int64
	var lastDefault atomic.Value
	lastDefault.Store("")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, p, zerolog.Nop(), func(f *File) {
			reloads.Add(1)
			lastDefault.Store(f.DefaultModel)
		})
	}()

	// Give the watcher a moment to register.
	time.Sleep(100 * time.Millisecond)

	next := `{"models": {"solo": {"path": "org/solo"}}, "default_model": "solo"}`
	if err := os.WriteFile(p, []byte(next), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	waitFor(t, 3*time.Second, func() bool { return reloads.Load() >= 1 })
	if got := lastDefault.Load().(string); got != "solo" {
		t.Fatalf("default after reload=%q", got)
	}

	// An invalid update must be ignored.
	before := reloads.Load()
	if err := os.WriteFile(p, []byte(`{"models": {}}`), 0o644); err != nil {
		t.Fatalf("rewrite invalid: %v", err)
	}
	time.Sleep(500 * time.Millisecond)
	if reloads.Load() != before {
		t.Fatalf("invalid config triggered a reload")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not stop on cancel")
	}
}

func TestWatchIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	p := writeConfig(t, dir, sampleConfig)

	var reloads atomic.Int64
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = Watch(ctx, p, zerolog.Nop(), func(*File) { reloads.Add(1) })
	}()
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write sibling: %v", err)
	}
	time.Sleep(500 * time.Millisecond)
	if reloads.Load() != 0 {
		t.Fatalf("sibling file triggered reload")
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}
