package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-ispider/ispider/internal/types"
)

func itemWithFields(url string, fields map[string]any) *types.Item {
	item := types.NewItem(url)
	for k, v := range fields {
		item.Set(k, v)
	}
	return item
}

func TestCSVStorageUnionsHeadersAcrossItems(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	s, err := NewCSVStorage(path, discardLogger())
	if err != nil {
		t.Fatalf("NewCSVStorage: %v", err)
	}

	s.Store([]*types.Item{
		itemWithFields("https://example.com/a", map[string]any{"title": "A"}),
		itemWithFields("https://example.com/b", map[string]any{"og_image": "b.png"}),
	})
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 { // header + 2 rows
		t.Fatalf("expected 3 rows (header + 2 items), got %d", len(rows))
	}

	header := rows[0]
	hasTitle, hasOGImage := false, false
	for _, h := range header {
		if h == "title" {
			hasTitle = true
		}
		if h == "og_image" {
			hasOGImage = true
		}
	}
	if !hasTitle || !hasOGImage {
		t.Errorf("expected the union of both items' fields in the header, got %v", header)
	}
}

func TestCSVStorageEmptyProducesNoRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.csv")

	s, err := NewCSVStorage(path, discardLogger())
	if err != nil {
		t.Fatalf("NewCSVStorage: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("expected an empty output file when no items were stored, got %q", data)
	}
}

func TestJSONLStorageStreamsOneObjectPerLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.jsonl")

	s, err := NewJSONLStorage(path, discardLogger())
	if err != nil {
		t.Fatalf("NewJSONLStorage: %v", err)
	}
	s.Store([]*types.Item{itemWithFields("https://example.com/a", map[string]any{"title": "A"})})
	s.Store([]*types.Item{itemWithFields("https://example.com/b", map[string]any{"title": "B"})})
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	if lines != 2 {
		t.Errorf("expected 2 newline-delimited records, got %d", lines)
	}
}
