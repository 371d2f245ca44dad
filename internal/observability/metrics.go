package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks operational metrics for the crawler.
type Metrics struct {
	// Request metrics
	RequestsTotal   atomic.Int64
	RequestsFailed  atomic.Int64
	RequestsRetried atomic.Int64

	// Response metrics
	ResponsesTotal atomic.Int64
	Responses2xx   atomic.Int64
	Responses3xx   atomic.Int64
	Responses4xx   atomic.Int64
	Responses5xx   atomic.Int64

	// Item metrics
	ItemsScraped atomic.Int64
	ItemsDropped atomic.Int64
	ItemsStored  atomic.Int64

	// Engine metrics
	ActiveWorkers   atomic.Int32
	QueueDepth      atomic.Int64
	BytesDownloaded atomic.Int64

	// Proxy metrics
	ProxyRotations atomic.Int64
	ProxyErrors    atomic.Int64

	// Domain metrics
	DomainsActive   atomic.Int64
	DomainsFinished atomic.Int64

	engineMu   sync.Mutex
	engineRate map[string]*engineThroughput

	logger *slog.Logger
}

// engineThroughput tracks an exponential moving average of requests/second
// for one fetch engine, recomputed whenever Tick observes elapsed time.
type engineThroughput struct {
	count     int64
	lastCount int64
	lastTick  time.Time
	emaPerSec float64
}

const engineThroughputAlpha = 0.3

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		engineRate: make(map[string]*engineThroughput),
		logger:     logger.With("component", "metrics"),
	}
}

// RecordEngineRequest counts one dispatched request against engine's
// throughput tracker.
func (m *Metrics) RecordEngineRequest(engine string) {
	m.engineMu.Lock()
	defer m.engineMu.Unlock()
	t, ok := m.engineRate[engine]
	if !ok {
		t = &engineThroughput{lastTick: time.Now()}
		m.engineRate[engine] = t
	}
	t.count++
}

// TickEngineRates recomputes each engine's moving-average requests/second
// from the counts accumulated since the previous tick. Call this from the
// stats reporter's periodic loop.
func (m *Metrics) TickEngineRates() {
	m.engineMu.Lock()
	defer m.engineMu.Unlock()
	now := time.Now()
	for _, t := range m.engineRate {
		elapsed := now.Sub(t.lastTick).Seconds()
		if elapsed <= 0 {
			continue
		}
		instant := float64(t.count-t.lastCount) / elapsed
		t.emaPerSec = engineThroughputAlpha*instant + (1-engineThroughputAlpha)*t.emaPerSec
		t.lastCount = t.count
		t.lastTick = now
	}
}

// EngineThroughput returns the current moving-average requests/second for
// every engine observed so far.
func (m *Metrics) EngineThroughput() map[string]float64 {
	m.engineMu.Lock()
	defer m.engineMu.Unlock()
	out := make(map[string]float64, len(m.engineRate))
	for name, t := range m.engineRate {
		out[name] = t.emaPerSec
	}
	return out
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		value int64
	}{
		{"ispider_requests_total", "Total requests made", m.RequestsTotal.Load()},
		{"ispider_requests_failed_total", "Total failed requests", m.RequestsFailed.Load()},
		{"ispider_requests_retried_total", "Total retried requests", m.RequestsRetried.Load()},
		{"ispider_responses_total", "Total responses received", m.ResponsesTotal.Load()},
		{"ispider_responses_2xx_total", "Total 2xx responses", m.Responses2xx.Load()},
		{"ispider_responses_3xx_total", "Total 3xx responses", m.Responses3xx.Load()},
		{"ispider_responses_4xx_total", "Total 4xx responses", m.Responses4xx.Load()},
		{"ispider_responses_5xx_total", "Total 5xx responses", m.Responses5xx.Load()},
		{"ispider_items_scraped_total", "Total items scraped", m.ItemsScraped.Load()},
		{"ispider_items_dropped_total", "Total items dropped", m.ItemsDropped.Load()},
		{"ispider_items_stored_total", "Total items stored", m.ItemsStored.Load()},
		{"ispider_active_workers", "Currently active workers", int64(m.ActiveWorkers.Load())},
		{"ispider_queue_depth", "Current URL queue depth", m.QueueDepth.Load()},
		{"ispider_bytes_downloaded_total", "Total bytes downloaded", m.BytesDownloaded.Load()},
		{"ispider_proxy_rotations_total", "Total proxy rotations", m.ProxyRotations.Load()},
		{"ispider_proxy_errors_total", "Total proxy errors", m.ProxyErrors.Load()},
		{"ispider_domains_active", "Currently active (in-progress) domains", m.DomainsActive.Load()},
		{"ispider_domains_finished_total", "Total domains marked finished (no outstanding requests left)", m.DomainsFinished.Load()},
	}

	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", metric.name)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}

	fmt.Fprintf(w, "# HELP ispider_engine_requests_per_second Moving-average dispatched requests per second, by engine\n")
	fmt.Fprintf(w, "# TYPE ispider_engine_requests_per_second gauge\n")
	for engine, rate := range m.EngineThroughput() {
		fmt.Fprintf(w, "ispider_engine_requests_per_second{engine=%q} %f\n", engine, rate)
	}
}

// StartServer starts the metrics HTTP server.
func (m *Metrics) StartServer(port int, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	addr := fmt.Sprintf(":%d", port)
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

// Snapshot returns the request, response, item, worker, queue and byte
// counters as a map; the proxy, domain and per-engine metrics are not in it.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"requests_total":   m.RequestsTotal.Load(),
		"requests_failed":  m.RequestsFailed.Load(),
		"responses_total":  m.ResponsesTotal.Load(),
		"responses_2xx":    m.Responses2xx.Load(),
		"responses_4xx":    m.Responses4xx.Load(),
		"responses_5xx":    m.Responses5xx.Load(),
		"items_scraped":    m.ItemsScraped.Load(),
		"items_dropped":    m.ItemsDropped.Load(),
		"items_stored":     m.ItemsStored.Load(),
		"active_workers":   int64(m.ActiveWorkers.Load()),
		"queue_depth":      m.QueueDepth.Load(),
		"bytes_downloaded": m.BytesDownloaded.Load(),
	}
}
