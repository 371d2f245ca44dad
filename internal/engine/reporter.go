package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-ispider/ispider/internal/observability"
)

// StatsReporter tracks crawl statistics and mirrors them into the process
// Prometheus-style metrics, grounded on the teacher's Stats/DomainStats
// map+mutex pattern.
type StatsReporter struct {
	metrics   *observability.Metrics
	startTime time.Time

	mu          sync.RWMutex
	domainStats map[string]*DomainStats
}

// DomainStats tracks per-domain counters for status reporting.
type DomainStats struct {
	Requests  int64
	Responses int64
	Errors    int64
	Items     int64
	LastFetch time.Time
}

// NewStatsReporter creates a StatsReporter backed by metrics.
func NewStatsReporter(metrics *observability.Metrics) *StatsReporter {
	return &StatsReporter{
		metrics:     metrics,
		startTime:   time.Now(),
		domainStats: make(map[string]*DomainStats),
	}
}

func (r *StatsReporter) domain(domainKey string) *DomainStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.domainStats[domainKey]
	if !ok {
		d = &DomainStats{}
		r.domainStats[domainKey] = d
	}
	return d
}

// RecordRequest increments request counters for a fetch dispatched on the
// given engine.
func (r *StatsReporter) RecordRequest(domainKey, engine string) {
	r.metrics.RequestsTotal.Add(1)
	r.metrics.RecordEngineRequest(engine)
	r.domain(domainKey).Requests++
}

// RecordResponse increments response counters, classifying by status code.
func (r *StatsReporter) RecordResponse(domainKey string, statusCode int, bytes int64) {
	r.metrics.ResponsesTotal.Add(1)
	r.metrics.BytesDownloaded.Add(bytes)

	switch {
	case statusCode >= 200 && statusCode < 300:
		r.metrics.Responses2xx.Add(1)
	case statusCode >= 300 && statusCode < 400:
		r.metrics.Responses3xx.Add(1)
	case statusCode >= 400 && statusCode < 500:
		r.metrics.Responses4xx.Add(1)
	default:
		r.metrics.Responses5xx.Add(1)
	}

	d := r.domain(domainKey)
	r.mu.Lock()
	d.Responses++
	d.LastFetch = time.Now()
	if statusCode < 200 || statusCode >= 400 {
		d.Errors++
	}
	r.mu.Unlock()
}

// RecordRetry increments the retry counter.
func (r *StatsReporter) RecordRetry() {
	r.metrics.RequestsRetried.Add(1)
}

// RecordFailure increments the failure counter.
func (r *StatsReporter) RecordFailure() {
	r.metrics.RequestsFailed.Add(1)
}

// RecordItems increments item counters for a batch stored for domainKey.
func (r *StatsReporter) RecordItems(domainKey string, scraped, dropped int) {
	r.metrics.ItemsScraped.Add(int64(scraped))
	r.metrics.ItemsDropped.Add(int64(dropped))
	d := r.domain(domainKey)
	r.mu.Lock()
	d.Items += int64(scraped)
	r.mu.Unlock()
}

// RecordDomainFinished counts one finished domain for metrics purposes.
func (r *StatsReporter) RecordDomainFinished() {
	r.metrics.DomainsFinished.Add(1)
}

// SetActiveDomains sets the current count of in-progress domains.
func (r *StatsReporter) SetActiveDomains(n int64) {
	r.metrics.DomainsActive.Store(n)
}

// SetQueueDepth sets the current IN queue depth.
func (r *StatsReporter) SetQueueDepth(n int64) {
	r.metrics.QueueDepth.Store(n)
}

// SetActiveWorkers sets the current active worker count.
func (r *StatsReporter) SetActiveWorkers(n int32) {
	r.metrics.ActiveWorkers.Store(n)
}

// Snapshot returns a point-in-time view of global and per-domain stats.
func (r *StatsReporter) Snapshot() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	domains := make(map[string]map[string]any, len(r.domainStats))
	for k, d := range r.domainStats {
		domains[k] = map[string]any{
			"requests":  d.Requests,
			"responses": d.Responses,
			"errors":    d.Errors,
			"items":     d.Items,
		}
	}

	return map[string]any{
		"elapsed": time.Since(r.startTime).String(),
		"global":  r.metrics.Snapshot(),
		"domains": domains,
	}
}

// Run logs a periodic throughput/queue-depth snapshot until ctx is
// canceled: total processed, per-engine moving-average throughput, and how
// many domains have finished so far.
func (r *StatsReporter) Run(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	logger = logger.With("component", "stats_reporter")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.metrics.TickEngineRates()
			logger.Info("crawl progress",
				"elapsed", time.Since(r.startTime).Round(time.Second).String(),
				"requests_total", r.metrics.RequestsTotal.Load(),
				"responses_total", r.metrics.ResponsesTotal.Load(),
				"queue_depth", r.metrics.QueueDepth.Load(),
				"domains_finished", r.metrics.DomainsFinished.Load(),
				"engine_throughput", r.metrics.EngineThroughput(),
			)
		}
	}
}
