package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for ispider.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"  yaml:"engine"`
	Fetcher FetcherConfig `mapstructure:"fetcher" yaml:"fetcher"`
	Proxy   ProxyConfig   `mapstructure:"proxy"   yaml:"proxy"`
	Filters FilterConfig  `mapstructure:"filters" yaml:"filters"`
	Resume  ResumeConfig  `mapstructure:"resume"  yaml:"resume"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// EngineConfig controls the core crawl engine: queues, worker pool, retries
// and per-domain quotas.
type EngineConfig struct {
	// Pools is the number of concurrent worker goroutines the scheduler runs.
	Pools int `mapstructure:"pools" yaml:"pools"`

	// AsyncBlockSize bounds concurrent in-flight requests per worker.
	AsyncBlockSize int `mapstructure:"async_block_size" yaml:"async_block_size"`

	// QueueMaxSize bounds the IN queue depth, the backpressure valve between
	// the feeder and the worker pool.
	QueueMaxSize int `mapstructure:"queue_max_size" yaml:"queue_max_size"`

	// MaximumRetries is how many times a request is retried on each engine
	// before it moves to the next engine in Engines; the count restarts on
	// every engine, and the request is abandoned after the last one.
	MaximumRetries int `mapstructure:"maximum_retries" yaml:"maximum_retries"`

	// CodesToRetry are HTTP status codes that trigger a retry/engine-fallback
	// instead of being accepted as a final response.
	CodesToRetry []int `mapstructure:"codes_to_retry" yaml:"codes_to_retry"`

	// Engines lists fetch engine identifiers in fallback order.
	Engines []string `mapstructure:"engines" yaml:"engines"`

	// Timeout is the per-request fetch deadline.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// MaxPagesPerDomain caps how many requests (landing, robots, sitemap and
	// discovered pages alike) are reserved per domain.
	MaxPagesPerDomain int `mapstructure:"max_pages_per_domain" yaml:"max_pages_per_domain"`

	// WebsitesMaxDepth is the maximum crawl depth when following links.
	WebsitesMaxDepth int `mapstructure:"websites_max_depth" yaml:"websites_max_depth"`

	// SitemapsMaxDepth is the maximum depth when expanding nested sitemap indexes.
	SitemapsMaxDepth int `mapstructure:"sitemaps_max_depth" yaml:"sitemaps_max_depth"`

	// SameSubdomainOnly restricts link-following to the exact seed host,
	// rather than any host sharing the seed's registrable domain.
	SameSubdomainOnly bool `mapstructure:"same_subdomain_only" yaml:"same_subdomain_only"`

	// CrawlSitemaps enables the sitemap-discovery stage before landing pages.
	CrawlSitemaps bool `mapstructure:"crawl_sitemaps" yaml:"crawl_sitemaps"`

	// RespectRobotsTxt gates requests against each domain's robots.txt policy.
	RespectRobotsTxt bool `mapstructure:"respect_robots_txt" yaml:"respect_robots_txt"`
}

// FetcherConfig controls the HTTP fetch adapters.
type FetcherConfig struct {
	FollowRedirects bool   `mapstructure:"follow_redirects" yaml:"follow_redirects"`
	MaxRedirects    int    `mapstructure:"max_redirects"    yaml:"max_redirects"`
	MaxBodySize     int64  `mapstructure:"max_body_size"    yaml:"max_body_size"`
	TLSInsecure     bool   `mapstructure:"tls_insecure"     yaml:"tls_insecure"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	UserAgents      []string `mapstructure:"user_agents" yaml:"user_agents"`
	CurlBinary      string `mapstructure:"curl_binary"       yaml:"curl_binary"`
}

// ProxyConfig controls proxy rotation.
type ProxyConfig struct {
	Enabled      bool     `mapstructure:"enabled"       yaml:"enabled"`
	Rotation     string   `mapstructure:"rotation"      yaml:"rotation"`
	URLs         []string `mapstructure:"urls"          yaml:"urls"`
	HealthCheck  bool     `mapstructure:"health_check"   yaml:"health_check"`
	RotateOnFail bool     `mapstructure:"rotate_on_fail" yaml:"rotate_on_fail"`
}

// FilterConfig controls URL inclusion/exclusion during link extraction.
type FilterConfig struct {
	ExcludedExtensions     []string `mapstructure:"excluded_extensions"      yaml:"excluded_extensions"`
	ExcludedExpressionsURL []string `mapstructure:"excluded_expressions_url" yaml:"excluded_expressions_url"`
	IncludedExpressionsURL []string `mapstructure:"included_expressions_url" yaml:"included_expressions_url"`
}

// ResumeConfig controls checkpoint/resume behavior.
type ResumeConfig struct {
	Enabled    bool   `mapstructure:"enabled"     yaml:"enabled"`
	UserFolder string `mapstructure:"user_folder" yaml:"user_folder"`
}

// StorageConfig controls output/storage.
type StorageConfig struct {
	Type         string `mapstructure:"type"          yaml:"type"`
	OutputPath   string `mapstructure:"output_path"   yaml:"output_path"`
	BatchSize    int    `mapstructure:"batch_size"    yaml:"batch_size"`
	MaxDumpSize  int64  `mapstructure:"max_dump_size" yaml:"max_dump_size"`
	MongoURI     string `mapstructure:"mongo_uri"     yaml:"mongo_uri"`
	MongoDB      string `mapstructure:"mongo_db"      yaml:"mongo_db"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults, mirroring
// ispider_core/settings.py's module-level constants.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Pools:             4,
			AsyncBlockSize:    10,
			QueueMaxSize:      5000,
			MaximumRetries:    3,
			CodesToRetry:      []int{429, 500, 502, 503, 504},
			Engines:           []string{"primary", "fallback"},
			Timeout:           30 * time.Second,
			MaxPagesPerDomain: 100,
			WebsitesMaxDepth:  3,
			SitemapsMaxDepth:  3,
			SameSubdomainOnly: false,
			CrawlSitemaps:     true,
			RespectRobotsTxt:  true,
		},
		Fetcher: FetcherConfig{
			FollowRedirects: true,
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024,
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    100,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
			CurlBinary: "curl",
		},
		Proxy: ProxyConfig{
			Enabled:      false,
			Rotation:     "round_robin",
			HealthCheck:  true,
			RotateOnFail: true,
		},
		Filters: FilterConfig{
			ExcludedExtensions: []string{
				".jpg", ".jpeg", ".png", ".gif", ".svg", ".css", ".js",
				".pdf", ".zip", ".mp4", ".mp3", ".woff", ".woff2",
			},
		},
		Resume: ResumeConfig{
			Enabled:    false,
			UserFolder: "./.ispider",
		},
		Storage: StorageConfig{
			Type:        "jsonl",
			OutputPath:  "./output",
			BatchSize:   100,
			MaxDumpSize: 50 * 1024 * 1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
