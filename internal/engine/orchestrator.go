package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/go-ispider/ispider/internal/config"
	"github.com/go-ispider/ispider/internal/fetcher"
	"github.com/go-ispider/ispider/internal/observability"
	"github.com/go-ispider/ispider/internal/parser"
	"github.com/go-ispider/ispider/internal/storage"
	"github.com/go-ispider/ispider/internal/types"
)

// Orchestrator wires the queues, worker pool, dedup/quota state, and
// storage backends into a runnable crawl and implements api.EngineController
// so the control API can add domains, stop, and inspect progress. Grounded
// on the teacher's Engine type, rebuilt around the OUT/IN queue split and
// the per-domain FetchController instead of a single heap-based frontier.
type Orchestrator struct {
	cfg    *config.Config
	logger *slog.Logger

	out   *OutQueue
	in    *InQueue
	inbox *DomainInbox

	registry  *fetcher.Registry
	robots    *parser.RobotsPolicy
	dedup     *Deduplicator
	fc        *FetchController
	extractor *Extractor

	dump    *storage.ResponseStore
	items   storage.Storage
	stats   *StatsReporter
	metrics *observability.Metrics

	feeder     *Feeder
	scheduler  *Scheduler
	checkpoint *CheckpointManager

	cancel context.CancelFunc
	done   chan struct{}
}

// NewOrchestrator assembles an Orchestrator from cfg. It opens storage
// backends and the dump store but does not start the crawl.
func NewOrchestrator(cfg *config.Config, logger *slog.Logger) (*Orchestrator, error) {
	proxyMgr := fetcher.NewProxyManager(&cfg.Proxy, logger)

	httpEngine, err := fetcher.NewHTTPEngine(cfg, proxyMgr, logger)
	if err != nil {
		return nil, fmt.Errorf("create http engine: %w", err)
	}
	curlEngine := fetcher.NewCurlEngine(cfg, logger)

	registry := fetcher.NewRegistry()
	available := map[string]fetcher.Engine{
		httpEngine.Name(): httpEngine,
		curlEngine.Name(): curlEngine,
	}
	for _, name := range cfg.Engine.Engines {
		if e, ok := available[name]; ok {
			registry.Register(e)
		}
	}
	if _, ok := registry.First(); !ok {
		return nil, fmt.Errorf("no known engine in engine.engines %v", cfg.Engine.Engines)
	}

	userAgent := "ispider"
	if len(cfg.Fetcher.UserAgents) > 0 {
		userAgent = cfg.Fetcher.UserAgents[0]
	}

	robots := parser.NewRobotsPolicy(userAgent, logger)
	dedup := NewDeduplicator()
	fc := NewFetchController(cfg.Engine.MaxPagesPerDomain)

	links := parser.NewHTMLLinkExtractor(logger)
	sitemaps := parser.NewXMLSitemapExtractor(logger)
	extractor := NewExtractor(cfg, links, sitemaps, dedup, fc)

	dumpDir := filepath.Join(cfg.Resume.UserFolder, "dumps")
	dump := storage.NewResponseStore(dumpDir, cfg.Storage.MaxDumpSize, logger)

	items, err := buildStorage(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create storage backend: %w", err)
	}

	metrics := observability.NewMetrics(logger)
	stats := NewStatsReporter(metrics)

	out := NewOutQueue()
	in := NewInQueue(cfg.Engine.QueueMaxSize)
	inbox := NewDomainInbox(cfg.Engine.QueueMaxSize)

	feeder := NewFeeder(out, in, logger)
	scheduler := NewScheduler(cfg, in, out, registry, robots, extractor, fc, dump, items, stats, logger)

	checkpointDir := filepath.Join(cfg.Resume.UserFolder, "checkpoints")
	checkpoint := NewCheckpointManager(checkpointDir, fc, 10*time.Second, logger)

	return &Orchestrator{
		cfg:        cfg,
		logger:     logger.With("component", "orchestrator"),
		out:        out,
		in:         in,
		inbox:      inbox,
		registry:   registry,
		robots:     robots,
		dedup:      dedup,
		fc:         fc,
		extractor:  extractor,
		dump:       dump,
		items:      items,
		stats:      stats,
		metrics:    metrics,
		feeder:     feeder,
		scheduler:  scheduler,
		checkpoint: checkpoint,
		done:       make(chan struct{}),
	}, nil
}

func buildStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.Storage.Type == "mongo" {
		return storage.NewMongoStorage(cfg.Storage.MongoURI, cfg.Storage.MongoDB, "items", logger)
	}
	return storage.NewFileStorage(cfg.Storage.Type, cfg.Storage.OutputPath, logger)
}

// Start seeds the crawl with seedURLs, launches the intake, checkpoint and
// stats loops, and then runs the feeder until it stops; the worker pool is
// started by Run. If resume is enabled, it reconciles against the checkpoint
// before seeding, treating a missing checkpoint as one with no finished
// domains.
func (o *Orchestrator) Start(ctx context.Context, seedURLs []string) error {
	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	seedDomains := make([]string, 0, len(seedURLs))
	requests := make([]*types.Request, 0, len(seedURLs)*2)

	for _, raw := range seedURLs {
		req, err := types.NewRequest(raw, types.KindLanding, firstEngine(o.registry))
		if err != nil {
			o.logger.Warn("invalid seed URL skipped", "url", raw, "error", err)
			continue
		}
		seedDomains = append(seedDomains, req.DomainKey)
		o.fc.RegisterSeed(req.DomainKey)
	}

	if o.cfg.Resume.Enabled {
		finished, err := LoadCheckpoint(filepath.Join(o.cfg.Resume.UserFolder, "checkpoints"))
		if err != nil {
			o.logger.Warn("failed to load checkpoint", "error", err)
		} else {
			reconciler := NewResumeReconciler(o.dump, o.logger)
			reconciler.Apply(o.fc, seedDomains, finished)
		}
	}

	for _, raw := range seedURLs {
		req, err := types.NewRequest(raw, types.KindLanding, firstEngine(o.registry))
		if err != nil {
			continue
		}
		if o.fc.IsFinished(req.DomainKey) {
			continue
		}
		if !o.fc.Reserve(req.DomainKey) {
			continue
		}
		o.dedup.SeenOrMark(req.DomainKey, req.URLString())
		requests = append(requests, req)

		if o.cfg.Engine.RespectRobotsTxt {
			robotsReq, err := types.NewRequest(robotsURL(req), types.KindRobots, req.Engine)
			if err == nil && o.fc.Reserve(req.DomainKey) {
				robotsReq.DomainKey = req.DomainKey
				robotsReq.SubDomainKey = req.SubDomainKey
				requests = append(requests, robotsReq)
			}
		}
		if o.cfg.Engine.CrawlSitemaps {
			sitemapReq, err := types.NewRequest(sitemapURL(req), types.KindSitemap, req.Engine)
			if err == nil && o.fc.Reserve(req.DomainKey) {
				sitemapReq.DomainKey = req.DomainKey
				sitemapReq.SubDomainKey = req.SubDomainKey
				requests = append(requests, sitemapReq)
			}
		}
	}

	o.out.PushAll(requests)

	go o.intake(ctx)
	go o.checkpoint.Run(ctx)
	go o.stats.Run(ctx, 30*time.Second, o.logger)

	o.feeder.Run(ctx) // returns once OUT is closed by the idle monitor
	return nil
}

// intake moves runtime-submitted seeds from the inbox onto the OUT stack
// until ctx is canceled.
func (o *Orchestrator) intake(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-o.inbox.Chan():
			if !ok {
				return
			}
			if o.fc.IsFinished(req.DomainKey) {
				continue
			}
			o.fc.RegisterSeed(req.DomainKey)
			if !o.fc.Reserve(req.DomainKey) {
				continue
			}
			o.dedup.SeenOrMark(req.DomainKey, req.URLString())
			o.out.Push(req)
		}
	}
}

// Run blocks until the feeder has started, the scheduler's worker pool
// reports the crawl complete, and cleanup has finished.
func (o *Orchestrator) Run(ctx context.Context, seedURLs []string) error {
	o.scheduler.Start(ctx)
	err := o.Start(ctx, seedURLs)
	o.scheduler.Wait()
	if o.cancel != nil {
		o.cancel() // stop the intake and checkpoint background loops
	}
	close(o.done)

	if cerr := o.checkpoint.Save(); cerr != nil {
		o.logger.Warn("final checkpoint save failed", "error", cerr)
	}
	if cerr := o.dump.Close(); cerr != nil {
		o.logger.Warn("dump store close failed", "error", cerr)
	}
	if cerr := o.items.Close(); cerr != nil {
		o.logger.Warn("item storage close failed", "error", cerr)
	}
	if cerr := o.registry.CloseAll(); cerr != nil {
		o.logger.Warn("engine registry close failed", "error", cerr)
	}
	return err
}

// AddDomains implements api.EngineController, submitting new seed URLs to
// the running crawl's intake inbox.
func (o *Orchestrator) AddDomains(urls []string) (int, error) {
	return o.inbox.Submit(urls, firstEngine(o.registry))
}

// Stop implements api.EngineController, canceling the crawl context.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
}

// Metrics exposes the Prometheus-format metrics collector so callers can
// serve it alongside the control API.
func (o *Orchestrator) Metrics() *observability.Metrics {
	return o.metrics
}

// Snapshot implements api.EngineController, returning current stats.
func (o *Orchestrator) Snapshot() map[string]any {
	return o.stats.Snapshot()
}

// Wait blocks until the crawl has fully finished and cleanup has run.
func (o *Orchestrator) Wait() {
	<-o.done
}

func firstEngine(reg *fetcher.Registry) string {
	if name, ok := reg.First(); ok {
		return name
	}
	return "primary"
}

func robotsURL(req *types.Request) string {
	u := *req.URL
	u.Path = "/robots.txt"
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func sitemapURL(req *types.Request) string {
	u := *req.URL
	u.Path = "/sitemap.xml"
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
