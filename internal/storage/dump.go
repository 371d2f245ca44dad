package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-ispider/ispider/internal/types"
)

// dumpRecord is the persisted representation of a single fetched response,
// one line per record in a domain's dump file.
type dumpRecord struct {
	URL        string `json:"url"`
	DomainKey  string `json:"dom_tld"`
	StatusCode int    `json:"status_code"`
	Depth      int    `json:"depth"`
	Kind       string `json:"kind"`
	Content    string `json:"content"`
	FetchedAt  string `json:"fetched_at"`
}

// ResponseStore persists every fetched Response to an append-only,
// per-domain, size-rotated dump file under <rootDir>/<dom_tld>/. When the
// active file for a domain exceeds MaxDumpSize, it is closed and a new
// numbered file is opened; the closing write goes through a .tmp-then-rename
// sequence so a crash mid-write never leaves a truncated dump visible.
type ResponseStore struct {
	rootDir     string
	maxDumpSize int64

	mu     sync.Mutex
	active map[string]*domainDump
	logger *slog.Logger
}

type domainDump struct {
	file  *os.File
	tmp   string
	final string
	seq   int
	size  int64
}

// NewResponseStore creates a ResponseStore rooted at rootDir.
func NewResponseStore(rootDir string, maxDumpSize int64, logger *slog.Logger) *ResponseStore {
	return &ResponseStore{
		rootDir:     rootDir,
		maxDumpSize: maxDumpSize,
		active:      make(map[string]*domainDump),
		logger:      logger.With("component", "response_store"),
	}
}

// Write appends resp to its domain's active dump file, rotating to a new
// file first if the active one has reached MaxDumpSize.
func (s *ResponseStore) Write(resp *types.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	domainKey := resp.Request.DomainKey
	dd, err := s.activeDump(domainKey)
	if err != nil {
		return &types.StorageError{Backend: "dump", Err: err}
	}

	record := dumpRecord{
		URL:        resp.Request.URLString(),
		DomainKey:  domainKey,
		StatusCode: resp.StatusCode,
		Depth:      resp.Request.Depth,
		Kind:       string(resp.Request.Kind),
		Content:    string(resp.Content),
		FetchedAt:  resp.FetchedAt.Format("2006-01-02T15:04:05Z07:00"),
	}

	line, err := json.Marshal(record)
	if err != nil {
		return &types.StorageError{Backend: "dump", Err: err}
	}
	line = append(line, '\n')

	n, err := dd.file.Write(line)
	if err != nil {
		return &types.StorageError{Backend: "dump", Err: err}
	}
	dd.size += int64(n)

	if dd.size >= s.maxDumpSize {
		if err := s.rotate(domainKey, dd); err != nil {
			return &types.StorageError{Backend: "dump", Err: err}
		}
	}
	return nil
}

// activeDump returns the open dump file for domainKey, creating one (and
// its directory) on first use.
func (s *ResponseStore) activeDump(domainKey string) (*domainDump, error) {
	if dd, ok := s.active[domainKey]; ok {
		return dd, nil
	}

	dir := filepath.Join(s.rootDir, domainKey)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create dump dir: %w", err)
	}

	dd := &domainDump{seq: 0}
	if err := s.openSeq(domainKey, dd); err != nil {
		return nil, err
	}
	s.active[domainKey] = dd
	return dd, nil
}

// openSeq opens dd.seq's .tmp file for writing.
func (s *ResponseStore) openSeq(domainKey string, dd *domainDump) error {
	dir := filepath.Join(s.rootDir, domainKey)
	final := filepath.Join(dir, fmt.Sprintf("dump_%04d.jsonl", dd.seq))
	tmp := final + ".tmp"

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open dump file: %w", err)
	}

	dd.file = f
	dd.tmp = tmp
	dd.final = final
	dd.size = 0
	return nil
}

// rotate closes the current dump file (renaming .tmp to its final name) and
// opens the next sequence number.
func (s *ResponseStore) rotate(domainKey string, dd *domainDump) error {
	if err := s.closeSeq(dd); err != nil {
		return err
	}
	dd.seq++
	return s.openSeq(domainKey, dd)
}

// closeSeq closes and atomically renames one dump file.
func (s *ResponseStore) closeSeq(dd *domainDump) error {
	if dd.file == nil {
		return nil
	}
	if err := dd.file.Close(); err != nil {
		return fmt.Errorf("close dump file: %w", err)
	}
	if err := os.Rename(dd.tmp, dd.final); err != nil {
		return fmt.Errorf("rename dump file: %w", err)
	}
	dd.file = nil
	return nil
}

// Close flushes and renames every domain's active dump file.
func (s *ResponseStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for domainKey, dd := range s.active {
		if err := s.closeSeq(dd); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("domain %s: %w", domainKey, err)
		}
	}
	s.logger.Info("response store closed", "domains", len(s.active))
	return firstErr
}

// Purge removes a domain's entire dump directory, used by the resume
// reconciler to discard partial state for unfinished domains.
func (s *ResponseStore) Purge(domainKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.active, domainKey)
	dir := filepath.Join(s.rootDir, domainKey)
	return os.RemoveAll(dir)
}
