package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-ispider/ispider/internal/api"
	"github.com/go-ispider/ispider/internal/config"
	"github.com/go-ispider/ispider/internal/engine"
)

var (
	cfgFile     string
	verbose     bool
	outputPath  string
	outputType  string
	depth       int
	maxPages    int
	apiPort     int
	apiEnabled  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ispider",
		Short: "ispider — polite, resumable, multi-stage web crawler",
		Long: `ispider crawls seed domains breadth of one site at a time, honoring
robots.txt, per-domain page quotas, and engine fallback on failure.

Features:
  • Two-stage queue: depth-first LIFO discovery feeding a bounded worker pool
  • Per-domain page quotas with reserve-before-enqueue accounting
  • robots.txt and sitemap.xml aware crawling
  • HTTP and curl fetch engines with automatic fallback on repeated failure
  • JSON, JSONL, CSV, and MongoDB item storage
  • Checkpoint-based resume across restarts
  • Prometheus metrics and a REST control API`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(crawlCmd())
	rootCmd.AddCommand(resumeCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func crawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url...]",
		Short: "Start crawling one or more seed URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCrawl,
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output directory (overrides config)")
	cmd.Flags().StringVarP(&outputType, "format", "f", "", "output format: json, jsonl, csv, mongo (overrides config)")
	cmd.Flags().IntVarP(&depth, "depth", "d", 0, "maximum crawl depth (0 = use config default)")
	cmd.Flags().IntVarP(&maxPages, "max-pages", "m", 0, "maximum pages per domain (0 = use config default)")
	cmd.Flags().IntVar(&apiPort, "api-port", 8080, "control API port")
	cmd.Flags().BoolVar(&apiEnabled, "api", false, "expose the control API while crawling")

	return cmd
}

func resumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume [url...]",
		Short: "Resume a prior crawl from its checkpoint",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadAndOverride(args)
			if err != nil {
				return err
			}
			cfg.Resume.Enabled = true
			return runWithConfig(cfg, args)
		},
	}
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ispider %s\n", config.Version)
		},
	}
}

func loadAndOverride(args []string) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if outputPath != "" {
		cfg.Storage.OutputPath = outputPath
	}
	if outputType != "" {
		cfg.Storage.Type = outputType
	}
	if depth > 0 {
		cfg.Engine.WebsitesMaxDepth = depth
	}
	if maxPages > 0 {
		cfg.Engine.MaxPagesPerDomain = maxPages
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	for _, rawURL := range args {
		if err := config.ValidateURL(rawURL); err != nil {
			return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
		}
	}
	return cfg, nil
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := loadAndOverride(args)
	if err != nil {
		return err
	}
	return runWithConfig(cfg, args)
}

func runWithConfig(cfg *config.Config, seeds []string) error {
	logger := setupLogger()

	logger.Info("starting crawl",
		"seeds", seeds,
		"max_pages_per_domain", cfg.Engine.MaxPagesPerDomain,
		"websites_max_depth", cfg.Engine.WebsitesMaxDepth,
		"output", cfg.Storage.OutputPath,
		"format", cfg.Storage.Type,
		"resume", cfg.Resume.Enabled,
	)

	orch, err := engine.NewOrchestrator(cfg, logger)
	if err != nil {
		return fmt.Errorf("create orchestrator: %w", err)
	}

	if cfg.Metrics.Enabled {
		if err := orch.Metrics().StartServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Warn("failed to start metrics server", "error", err)
		}
	}
	if apiEnabled {
		server := api.NewServer(apiPort, orch, logger)
		if err := server.Start(); err != nil {
			logger.Warn("failed to start control API", "error", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		orch.Stop()
	}()

	start := time.Now()
	if err := orch.Run(ctx, seeds); err != nil {
		return fmt.Errorf("run crawl: %w", err)
	}
	elapsed := time.Since(start)

	stats := orch.Snapshot()
	logger.Info("crawl complete", "elapsed", elapsed, "stats", stats["global"])
	fmt.Printf("crawl complete in %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("output written to %s\n", cfg.Storage.OutputPath)

	return nil
}

func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
