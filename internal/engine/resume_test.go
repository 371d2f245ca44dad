package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-ispider/ispider/internal/storage"
)

func TestResumeReconcilerMarksFinishedDomainsSkippable(t *testing.T) {
	dumpDir := t.TempDir()
	store := storage.NewResponseStore(dumpDir, 1<<20, discardLogger())

	fc := NewFetchController(5)
	reconciler := NewResumeReconciler(store, discardLogger())

	reconciler.Apply(fc, []string{"finished.com", "pending.com"}, []string{"finished.com"})

	if !fc.IsFinished("finished.com") {
		t.Error("a domain present in the checkpoint's finished list must be marked finished")
	}
	if fc.IsFinished("pending.com") {
		t.Error("a domain absent from the finished list must not be marked finished")
	}
}

func TestResumeReconcilerPurgesUnfinishedDumps(t *testing.T) {
	dumpDir := t.TempDir()
	store := storage.NewResponseStore(dumpDir, 1<<20, discardLogger())

	pendingDir := filepath.Join(dumpDir, "pending.com")
	if err := os.MkdirAll(pendingDir, 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := os.WriteFile(filepath.Join(pendingDir, "dump_0000.jsonl"), []byte("{}\n"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	fc := NewFetchController(5)
	reconciler := NewResumeReconciler(store, discardLogger())
	reconciler.Apply(fc, []string{"pending.com"}, nil)

	if _, err := os.Stat(pendingDir); !os.IsNotExist(err) {
		t.Error("expected the unfinished domain's dump directory to be purged")
	}
}

func TestResumeReconcilerLeavesFinishedDumpsIntact(t *testing.T) {
	dumpDir := t.TempDir()
	store := storage.NewResponseStore(dumpDir, 1<<20, discardLogger())

	finishedDir := filepath.Join(dumpDir, "finished.com")
	if err := os.MkdirAll(finishedDir, 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}

	fc := NewFetchController(5)
	reconciler := NewResumeReconciler(store, discardLogger())
	reconciler.Apply(fc, []string{"finished.com"}, []string{"finished.com"})

	if _, err := os.Stat(finishedDir); err != nil {
		t.Errorf("expected a finished domain's dump directory to survive reconciliation, got %v", err)
	}
}
