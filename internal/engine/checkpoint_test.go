package engine

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCheckpointSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fc := NewFetchController(1)
	fc.Reserve("a.com")
	fc.Complete("a.com")
	fc.Reserve("b.com") // reserved but not completed, must not appear as finished

	cm := NewCheckpointManager(dir, fc, time.Hour, discardLogger())
	if err := cm.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	finished, err := LoadCheckpoint(dir)
	if err != nil {
		t.Fatalf("LoadCheckpoint: %v", err)
	}
	sort.Strings(finished)
	if len(finished) != 1 || finished[0] != "a.com" {
		t.Errorf("expected [a.com], got %v", finished)
	}
}

func TestLoadCheckpointMissingFileIsNotError(t *testing.T) {
	dir := t.TempDir()
	finished, err := LoadCheckpoint(dir)
	if err != nil {
		t.Fatalf("expected no error for a missing checkpoint, got %v", err)
	}
	if finished != nil {
		t.Errorf("expected nil finished-domains slice, got %v", finished)
	}
}

func TestCheckpointSaveLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	fc := NewFetchController(1)
	fc.Reserve("a.com")
	fc.Complete("a.com")

	cm := NewCheckpointManager(dir, fc, time.Hour, discardLogger())
	if err := cm.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	tmp := filepath.Join(dir, checkpointFile+".tmp")
	if _, err := os.Stat(tmp); err == nil {
		t.Error("expected the .tmp file to be renamed away after Save")
	}
}
