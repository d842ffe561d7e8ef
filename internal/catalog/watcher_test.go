package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherRevalidatesOnEdit(t *testing.T) {
	dir := t.TempDir()
	path := writeCatalog(t, dir, sampleCatalog)
	store := NewStore(path, discardLogger())

	w, err := NewWatcher(store, 10*time.Millisecond, discardLogger())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	t.Cleanup(func() {
		if err := w.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	})

	initial := w.LastValidation()
	if initial.Checks != 1 || initial.Episodes != 2 || initial.Err != nil {
		t.Fatalf("unexpected initial validation: %+v", initial)
	}

	writeCatalog(t, dir, `[{"id": 1}]`)
	waitFor(t, func() bool {
		v := w.LastValidation()
		return v.Checks > 1 && v.Episodes == 1 && v.Err == nil
	}, "revalidate after edit")

	writeCatalog(t, dir, `{broken`)
	waitFor(t, func() bool { return w.LastValidation().Err != nil }, "report broken catalog")

	// The store is still the only read path and keeps recovering to empty.
	if len(store.Load()) != 0 {
		t.Fatalf("expected empty catalog while broken")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeCatalog(t, dir, sampleCatalog)

	w, err := NewWatcher(NewStore(path, discardLogger()), 10*time.Millisecond, discardLogger())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("text"), 0o644); err != nil {
		t.Fatalf("write notes: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if checks := w.LastValidation().Checks; checks != 1 {
		t.Fatalf("expected no revalidation for unrelated files, got %d checks", checks)
	}
}

func TestWatcherMissingDirectory(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nope", "posts.json"), discardLogger())
	if _, err := NewWatcher(store, 10*time.Millisecond, discardLogger()); err == nil {
		t.Fatalf("expected error when catalog directory does not exist")
	}
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	path := writeCatalog(t, t.TempDir(), sampleCatalog)
	w, err := NewWatcher(NewStore(path, discardLogger()), 10*time.Millisecond, discardLogger())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func waitFor(t *testing.T, predicate func() bool, label string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if predicate() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", label)
}
