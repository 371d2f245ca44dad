package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Engine.Pools < 1 {
		return fmt.Errorf("engine.pools must be >= 1, got %d", cfg.Engine.Pools)
	}
	if cfg.Engine.AsyncBlockSize < 1 {
		return fmt.Errorf("engine.async_block_size must be >= 1, got %d", cfg.Engine.AsyncBlockSize)
	}
	if cfg.Engine.QueueMaxSize < 1 {
		return fmt.Errorf("engine.queue_max_size must be >= 1, got %d", cfg.Engine.QueueMaxSize)
	}
	if cfg.Engine.MaximumRetries < 0 {
		return fmt.Errorf("engine.maximum_retries must be >= 0, got %d", cfg.Engine.MaximumRetries)
	}
	if len(cfg.Engine.Engines) == 0 {
		return fmt.Errorf("engine.engines must list at least one engine")
	}
	if cfg.Engine.Timeout <= 0 {
		return fmt.Errorf("engine.timeout must be > 0")
	}
	if cfg.Engine.MaxPagesPerDomain < 1 {
		return fmt.Errorf("engine.max_pages_per_domain must be >= 1, got %d", cfg.Engine.MaxPagesPerDomain)
	}
	if cfg.Engine.WebsitesMaxDepth < 0 {
		return fmt.Errorf("engine.websites_max_depth must be >= 0, got %d", cfg.Engine.WebsitesMaxDepth)
	}
	if cfg.Engine.SitemapsMaxDepth < 0 {
		return fmt.Errorf("engine.sitemaps_max_depth must be >= 0, got %d", cfg.Engine.SitemapsMaxDepth)
	}

	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}

	if cfg.Proxy.Enabled {
		validRotations := map[string]bool{"round_robin": true, "random": true, "sticky_domain": true}
		if !validRotations[cfg.Proxy.Rotation] {
			return fmt.Errorf("proxy.rotation must be 'round_robin', 'random', or 'sticky_domain', got %q", cfg.Proxy.Rotation)
		}
		for _, proxyURL := range cfg.Proxy.URLs {
			if _, err := url.Parse(proxyURL); err != nil {
				return fmt.Errorf("invalid proxy URL %q: %w", proxyURL, err)
			}
		}
	}

	if cfg.Resume.Enabled && cfg.Resume.UserFolder == "" {
		return fmt.Errorf("resume.user_folder must be set when resume.enabled is true")
	}

	validStorageTypes := map[string]bool{
		"json": true, "jsonl": true, "csv": true, "mongo": true,
	}
	if !validStorageTypes[cfg.Storage.Type] {
		return fmt.Errorf("storage.type %q is not supported (valid: json, jsonl, csv, mongo)", cfg.Storage.Type)
	}
	if cfg.Storage.Type == "mongo" && cfg.Storage.MongoURI == "" {
		return fmt.Errorf("storage.mongo_uri must be set when storage.type is mongo")
	}
	if cfg.Storage.MaxDumpSize <= 0 {
		return fmt.Errorf("storage.max_dump_size must be > 0")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateURL checks if a URL string is valid for crawling (seeding).
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
