package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file and environment.
// Priority (highest to lowest): env vars > config file > defaults. CLI flags
// are not read here; the command applies them to the returned Config.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("ISPIDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("ispider")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".ispider"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	return Load(path)
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("engine.pools", cfg.Engine.Pools)
	v.SetDefault("engine.async_block_size", cfg.Engine.AsyncBlockSize)
	v.SetDefault("engine.queue_max_size", cfg.Engine.QueueMaxSize)
	v.SetDefault("engine.maximum_retries", cfg.Engine.MaximumRetries)
	v.SetDefault("engine.codes_to_retry", cfg.Engine.CodesToRetry)
	v.SetDefault("engine.engines", cfg.Engine.Engines)
	v.SetDefault("engine.timeout", cfg.Engine.Timeout)
	v.SetDefault("engine.max_pages_per_domain", cfg.Engine.MaxPagesPerDomain)
	v.SetDefault("engine.websites_max_depth", cfg.Engine.WebsitesMaxDepth)
	v.SetDefault("engine.sitemaps_max_depth", cfg.Engine.SitemapsMaxDepth)
	v.SetDefault("engine.same_subdomain_only", cfg.Engine.SameSubdomainOnly)
	v.SetDefault("engine.crawl_sitemaps", cfg.Engine.CrawlSitemaps)
	v.SetDefault("engine.respect_robots_txt", cfg.Engine.RespectRobotsTxt)

	v.SetDefault("fetcher.follow_redirects", cfg.Fetcher.FollowRedirects)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)
	v.SetDefault("fetcher.max_idle_conns", cfg.Fetcher.MaxIdleConns)
	v.SetDefault("fetcher.user_agents", cfg.Fetcher.UserAgents)
	v.SetDefault("fetcher.curl_binary", cfg.Fetcher.CurlBinary)

	v.SetDefault("proxy.enabled", cfg.Proxy.Enabled)
	v.SetDefault("proxy.rotation", cfg.Proxy.Rotation)
	v.SetDefault("proxy.health_check", cfg.Proxy.HealthCheck)
	v.SetDefault("proxy.rotate_on_fail", cfg.Proxy.RotateOnFail)

	v.SetDefault("filters.excluded_extensions", cfg.Filters.ExcludedExtensions)
	v.SetDefault("filters.excluded_expressions_url", cfg.Filters.ExcludedExpressionsURL)
	v.SetDefault("filters.included_expressions_url", cfg.Filters.IncludedExpressionsURL)

	v.SetDefault("resume.enabled", cfg.Resume.Enabled)
	v.SetDefault("resume.user_folder", cfg.Resume.UserFolder)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.output_path", cfg.Storage.OutputPath)
	v.SetDefault("storage.batch_size", cfg.Storage.BatchSize)
	v.SetDefault("storage.max_dump_size", cfg.Storage.MaxDumpSize)
	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.mongo_db", cfg.Storage.MongoDB)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
