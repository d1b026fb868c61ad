package watcher

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestWatcher_FiresOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.sqlite")
	if err := os.WriteFile(path, []byte("v1"), 0644); err != nil {
		t.Fatal(err)
	}

	var fired atomic.Int32
	w, err := New(path, func(string) error {
		fired.Add(1)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.debounce = 50 * time.Millisecond
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("v2"), 0644); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 2*time.Second, func() bool { return fired.Load() >= 1 }) {
		t.Fatal("reload never fired")
	}
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.sqlite")
	if err := os.WriteFile(path, []byte("v1"), 0644); err != nil {
		t.Fatal(err)
	}

	var fired atomic.Int32
	w, err := New(path, func(string) error {
		fired.Add(1)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.debounce = 200 * time.Millisecond
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte{byte(i)}, 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !waitFor(t, 2*time.Second, func() bool { return fired.Load() >= 1 }) {
		t.Fatal("reload never fired")
	}
	// Settle, then confirm the burst collapsed to a single reload.
	time.Sleep(400 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("reloads = %d, want 1", got)
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.sqlite")
	if err := os.WriteFile(path, []byte("v1"), 0644); err != nil {
		t.Fatal(err)
	}

	var fired atomic.Int32
	w, err := New(path, func(string) error {
		fired.Add(1)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.debounce = 50 * time.Millisecond
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("reloads = %d, want 0 for unrelated file", got)
	}
}

func TestWatcher_StopTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.sqlite")
	w, err := New(path, func(string) error { return nil }, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}
