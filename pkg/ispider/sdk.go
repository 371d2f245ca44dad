// Package ispider provides a public SDK for embedding the crawler as a
// library.
//
// Example usage:
//
//	crawler := ispider.NewCrawler(
//	    ispider.WithMaxPagesPerDomain(200),
//	    ispider.WithMaxDepth(4),
//	    ispider.WithOutput("jsonl", "./output"),
//	)
//
//	if err := crawler.Run(context.Background(), "https://example.com"); err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println(crawler.Stats())
package ispider

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-ispider/ispider/internal/config"
	"github.com/go-ispider/ispider/internal/engine"
)

// Crawler is the high-level API for using ispider as a library.
type Crawler struct {
	cfg    *config.Config
	logger *slog.Logger
	orch   *engine.Orchestrator
}

// Option configures a Crawler.
type Option func(*config.Config)

// WithMaxPagesPerDomain caps how many pages are fetched per domain.
func WithMaxPagesPerDomain(n int) Option {
	return func(c *config.Config) { c.Engine.MaxPagesPerDomain = n }
}

// WithMaxDepth sets the maximum link-following depth.
func WithMaxDepth(depth int) Option {
	return func(c *config.Config) { c.Engine.WebsitesMaxDepth = depth }
}

// WithOutput sets the output format and path.
func WithOutput(format, path string) Option {
	return func(c *config.Config) {
		c.Storage.Type = format
		c.Storage.OutputPath = path
	}
}

// WithUserAgent sets a custom User-Agent for every fetch engine.
func WithUserAgent(ua string) Option {
	return func(c *config.Config) { c.Fetcher.UserAgents = []string{ua} }
}

// WithProxy enables proxy rotation with the given proxy URLs.
func WithProxy(urls ...string) Option {
	return func(c *config.Config) {
		c.Proxy.Enabled = true
		c.Proxy.URLs = urls
	}
}

// WithRobotsRespect enables or disables robots.txt compliance.
func WithRobotsRespect(respect bool) Option {
	return func(c *config.Config) { c.Engine.RespectRobotsTxt = respect }
}

// WithSameSubdomainOnly restricts link-following to each seed's exact host.
func WithSameSubdomainOnly(sameOnly bool) Option {
	return func(c *config.Config) { c.Engine.SameSubdomainOnly = sameOnly }
}

// WithResume enables checkpoint-based resume under userFolder.
func WithResume(userFolder string) Option {
	return func(c *config.Config) {
		c.Resume.Enabled = true
		c.Resume.UserFolder = userFolder
	}
}

// WithVerbose enables debug-level logging.
func WithVerbose() Option {
	return func(c *config.Config) { c.Logging.Level = "debug" }
}

// NewCrawler creates a new Crawler with the given options layered over
// config.DefaultConfig().
func NewCrawler(opts ...Option) *Crawler {
	cfg := config.DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	level := slog.LevelInfo
	if cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	return &Crawler{cfg: cfg, logger: logger}
}

// Run crawls the given seed URLs to completion, blocking until every
// domain finishes or ctx is canceled.
func (c *Crawler) Run(ctx context.Context, seeds ...string) error {
	if err := config.Validate(c.cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	orch, err := engine.NewOrchestrator(c.cfg, c.logger)
	if err != nil {
		return fmt.Errorf("create orchestrator: %w", err)
	}
	c.orch = orch

	return orch.Run(ctx, seeds)
}

// AddDomains submits additional seed URLs to a crawl already in progress.
func (c *Crawler) AddDomains(urls ...string) (accepted int, err error) {
	if c.orch == nil {
		return 0, fmt.Errorf("crawler is not running")
	}
	return c.orch.AddDomains(urls)
}

// Stop requests a graceful shutdown of an in-progress crawl.
func (c *Crawler) Stop() {
	if c.orch != nil {
		c.orch.Stop()
	}
}

// Stats returns a snapshot of crawl statistics.
func (c *Crawler) Stats() map[string]any {
	if c.orch == nil {
		return nil
	}
	return c.orch.Snapshot()
}
