package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// checkpointFile is the on-disk name of the finished-domains checkpoint.
const checkpointFile = "finished_domains.json"

// checkpointPayload is the persisted representation of crawl progress.
type checkpointPayload struct {
	FinishedDomains []string `json:"finished_domains"`
	SavedAt         string   `json:"saved_at"`
}

// CheckpointManager periodically persists the set of finished domains so a
// crawl interrupted mid-run can resume without re-fetching domains that
// already finished (no outstanding fetches left). Grounded on the periodic
// pickle-dump-to-tmp-then-rename pattern used to persist the finished-set,
// adapted here to JSON via a .tmp file and os.Rename for the same
// crash-safety: a reader never observes a partially written checkpoint.
type CheckpointManager struct {
	dir      string
	fc       *FetchController
	interval time.Duration
	logger   *slog.Logger
}

// NewCheckpointManager creates a CheckpointManager writing under dir.
func NewCheckpointManager(dir string, fc *FetchController, interval time.Duration, logger *slog.Logger) *CheckpointManager {
	return &CheckpointManager{
		dir:      dir,
		fc:       fc,
		interval: interval,
		logger:   logger.With("component", "checkpoint_manager"),
	}
}

// Run periodically saves the checkpoint until ctx is canceled, then saves
// once more before returning.
func (c *CheckpointManager) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := c.Save(); err != nil {
				c.logger.Error("final checkpoint save failed", "error", err)
			}
			return
		case <-ticker.C:
			if err := c.Save(); err != nil {
				c.logger.Error("checkpoint save failed", "error", err)
			}
		}
	}
}

// Save writes the current set of finished domains to disk via a
// write-temp-then-rename sequence.
func (c *CheckpointManager) Save() error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	payload := checkpointPayload{
		FinishedDomains: c.fc.FinishedDomains(),
		SavedAt:         time.Now().Format(time.RFC3339),
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	final := filepath.Join(c.dir, checkpointFile)
	tmp := final + ".tmp"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}

	c.logger.Debug("checkpoint saved", "finished_domains", len(payload.FinishedDomains))
	return nil
}

// LoadCheckpoint reads the finished-domains checkpoint from dir, if present. A
// missing file is not an error: it means no prior run left a checkpoint.
func LoadCheckpoint(dir string) ([]string, error) {
	final := filepath.Join(dir, checkpointFile)
	data, err := os.ReadFile(final)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	var payload checkpointPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse checkpoint: %w", err)
	}
	return payload.FinishedDomains, nil
}
