package integration

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/go-ispider/ispider/internal/config"
	"github.com/go-ispider/ispider/internal/engine"
	"github.com/go-ispider/ispider/internal/fetcher"
	"github.com/go-ispider/ispider/internal/observability"
	"github.com/go-ispider/ispider/internal/parser"
	"github.com/go-ispider/ispider/internal/storage"
	"github.com/go-ispider/ispider/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// siteEngine is a canned fetch engine serving a tiny fixed link graph from
// memory, so the worker pool, extractor, and quota/dedup logic run against
// real goquery-parsed HTML without touching the network.
type siteEngine struct {
	mu      sync.Mutex
	pages   map[string]string
	fetched []string
}

func newSiteEngine(pages map[string]string) *siteEngine {
	return &siteEngine{pages: pages}
}

func (e *siteEngine) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	e.mu.Lock()
	e.fetched = append(e.fetched, req.URLString())
	e.mu.Unlock()

	body, ok := e.pages[req.URL.Path]
	if !ok {
		return types.NewResponse(req, 404, http.Header{}, nil, 0, false, time.Millisecond), nil
	}
	return types.NewResponse(req, 200, http.Header{}, []byte(body), 0, false, time.Millisecond), nil
}

func (e *siteEngine) Close() error { return nil }
func (e *siteEngine) Name() string { return "primary" }

func (e *siteEngine) fetchCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.fetched)
}

// memStorage collects stored items in memory for assertions.
type memStorage struct {
	mu    sync.Mutex
	items []*types.Item
}

func (s *memStorage) Store(items []*types.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, items...)
	return nil
}
func (s *memStorage) Close() error { return nil }
func (s *memStorage) Name() string { return "mem" }

func (s *memStorage) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// buildHarness assembles the same collaborators Orchestrator wires, but with
// a canned siteEngine instead of the real HTTP/curl engines, so the whole
// feeder -> scheduler -> extractor -> fetch-controller loop runs end to end
// against a known link graph.
func buildHarness(t *testing.T, maxPages int, pages map[string]string) (*engine.Scheduler, *engine.Feeder, *engine.OutQueue, *engine.FetchController, *memStorage, *siteEngine) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Engine.MaxPagesPerDomain = maxPages
	cfg.Engine.RespectRobotsTxt = false
	cfg.Engine.CrawlSitemaps = false
	cfg.Engine.QueueMaxSize = 100
	cfg.Engine.Pools = 2
	cfg.Engine.AsyncBlockSize = 4

	reg := fetcher.NewRegistry()
	site := newSiteEngine(pages)
	reg.Register(site)

	robots := parser.NewRobotsPolicy("ispider-test", testLogger)
	dedup := engine.NewDeduplicator()
	fc := engine.NewFetchController(maxPages)
	links := parser.NewHTMLLinkExtractor(testLogger)
	sitemaps := parser.NewXMLSitemapExtractor(testLogger)
	extractor := engine.NewExtractor(cfg, links, sitemaps, dedup, fc)

	dump := storage.NewResponseStore(t.TempDir(), 10<<20, testLogger)
	items := &memStorage{}
	metrics := observability.NewMetrics(testLogger)
	stats := engine.NewStatsReporter(metrics)

	out := engine.NewOutQueue()
	in := engine.NewInQueue(cfg.Engine.QueueMaxSize)
	feeder := engine.NewFeeder(out, in, testLogger)
	sched := engine.NewScheduler(cfg, in, out, reg, robots, extractor, fc, dump, items, stats, testLogger)

	return sched, feeder, out, fc, items, site
}

// TestCrawlHappyPathFollowsLinksToQuota drives scenario S1/S4: a seed page
// links to more pages than the domain's quota allows, and the crawl must
// stop exactly at MaxPagesPerDomain without fetching the rest.
func TestCrawlHappyPathFollowsLinksToQuota(t *testing.T) {
	pages := map[string]string{
		"/":  `<html><body><a href="/a">a</a><a href="/b">b</a><a href="/c">c</a></body></html>`,
		"/a": `<html><body>leaf</body></html>`,
		"/b": `<html><body>leaf</body></html>`,
		"/c": `<html><body>leaf</body></html>`,
	}

	sched, feeder, out, fc, items, site := buildHarness(t, 2, pages)

	seed := mustRequest(t, "https://example.com/")
	fc.RegisterSeed(seed.DomainKey)
	fc.Reserve(seed.DomainKey)
	out.Push(seed)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sched.Start(ctx)
	done := make(chan struct{})
	go func() { feeder.Run(ctx); close(done) }()

	sched.Wait()
	<-done

	if got := site.fetchCount(); got != 2 {
		t.Errorf("expected exactly 2 fetches (MaxPagesPerDomain), got %d", got)
	}
	if !fc.IsFinished(seed.DomainKey) {
		t.Error("expected the domain to be marked finished once its quota is exhausted")
	}
	if items.count() == 0 {
		t.Error("expected at least the seed landing page to produce a stored item")
	}
}

// TestCrawlDedupPreventsRevisits: two pages link to a shared third page; it
// must be fetched once.
func TestCrawlDedupPreventsRevisits(t *testing.T) {
	pages := map[string]string{
		"/":  `<html><body><a href="/a">a</a><a href="/b">b</a></body></html>`,
		"/a": `<html><body><a href="/shared">shared</a></body></html>`,
		"/b": `<html><body><a href="/shared">shared</a></body></html>`,
		"/shared": `<html><body>leaf</body></html>`,
	}

	sched, feeder, out, fc, _, site := buildHarness(t, 10, pages)

	seed := mustRequest(t, "https://example.com/")
	fc.RegisterSeed(seed.DomainKey)
	fc.Reserve(seed.DomainKey)
	out.Push(seed)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sched.Start(ctx)
	done := make(chan struct{})
	go func() { feeder.Run(ctx); close(done) }()

	sched.Wait()
	<-done

	seen := make(map[string]int)
	for _, u := range site.fetched {
		seen[u]++
	}
	if seen["https://example.com/shared"] != 1 {
		t.Errorf("expected /shared to be fetched exactly once, got %d", seen["https://example.com/shared"])
	}
}

func mustRequest(t *testing.T, rawURL string) *types.Request {
	t.Helper()
	req, err := types.NewRequest(rawURL, types.KindLanding, "primary")
	if err != nil {
		t.Fatalf("NewRequest(%q): %v", rawURL, err)
	}
	return req
}
