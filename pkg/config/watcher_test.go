package config

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	resetForTesting()
	t.Cleanup(resetForTesting)

	path := writeConfig(t, "retention:\n  batch_size: 10\n")
	if err := Initialize(path); err != nil {
		t.Fatalf("failed to initialize config: %v", err)
	}

	w, err := NewWatcher(path, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	// The watch may not be registered yet; keep rewriting until it lands.
	deadline := time.Now().Add(5 * time.Second)
	for GetConfig().Retention.BatchSize != 40 {
		if time.Now().After(deadline) {
			t.Fatal("configuration was not reloaded")
		}
		writeFile(t, path, "retention:\n  batch_size: 40\n")
		time.Sleep(100 * time.Millisecond)
	}

	if err := w.Stop(); err != nil {
		t.Fatalf("failed to stop watcher: %v", err)
	}
	if err := <-done; err != nil {
		t.Errorf("watch returned error: %v", err)
	}
}

func TestWatcher_RequiresPath(t *testing.T) {
	if _, err := NewWatcher("", 0, nil); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestDebouncer_CoalescesTriggers(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var calls, last atomic.Int32
	for i := int32(1); i <= 5; i++ {
		n := i
		d.Trigger(func() {
			calls.Add(1)
			last.Store(n)
		})
	}

	time.Sleep(150 * time.Millisecond)

	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
	if last.Load() != 5 {
		t.Errorf("expected latest callback to run, got %d", last.Load())
	}
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)

	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Stop()
	d.Trigger(func() { calls.Add(1) })

	time.Sleep(100 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("expected no calls after stop, got %d", calls.Load())
	}
}
