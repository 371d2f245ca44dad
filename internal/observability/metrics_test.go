package observability

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMetricsSnapshotReflectsRecordedCounters(t *testing.T) {
	m := NewMetrics(slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.RequestsTotal.Add(10)
	m.ResponsesTotal.Add(8)
	m.BytesDownloaded.Add(2048)

	snap := m.Snapshot()
	if snap["requests_total"] != 10 {
		t.Errorf("requests_total = %d, want 10", snap["requests_total"])
	}
	if snap["bytes_downloaded"] != 2048 {
		t.Errorf("bytes_downloaded = %d, want 2048", snap["bytes_downloaded"])
	}
}

func TestMetricsServeHTTPExposesCounters(t *testing.T) {
	m := NewMetrics(slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.RequestsTotal.Add(5)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "ispider_requests_total 5") {
		t.Errorf("expected exposition format to include the counter, got:\n%s", body)
	}
}

func TestEngineThroughputListsRecordedEngine(t *testing.T) {
	m := NewMetrics(slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.RecordEngineRequest("primary")
	m.TickEngineRates() // one tick right after the first recorded request

	rates := m.EngineThroughput()
	if _, ok := rates["primary"]; !ok {
		t.Error("expected the primary engine to appear in the throughput map once a request is recorded")
	}
}

func TestEngineThroughputTracksMultipleEngines(t *testing.T) {
	m := NewMetrics(slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.RecordEngineRequest("primary")
	m.RecordEngineRequest("fallback")

	rates := m.EngineThroughput()
	if len(rates) != 2 {
		t.Errorf("expected 2 tracked engines, got %d", len(rates))
	}
}
