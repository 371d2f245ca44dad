package parser

import (
	"log/slog"
	"sync"

	"github.com/temoto/robotstxt"

	"github.com/go-ispider/ispider/internal/types"
)

// RobotsPolicy answers allow/disallow questions for a single domain's
// robots.txt, parsed once per domain and cached for the crawl's lifetime.
type RobotsPolicy struct {
	mu      sync.RWMutex
	groups  map[string]*robotstxt.Group // keyed by DomainKey
	userAgent string
	logger  *slog.Logger
}

// NewRobotsPolicy creates a new robots.txt policy cache.
func NewRobotsPolicy(userAgent string, logger *slog.Logger) *RobotsPolicy {
	return &RobotsPolicy{
		groups:    make(map[string]*robotstxt.Group),
		userAgent: userAgent,
		logger:    logger.With("component", "robots_policy"),
	}
}

// LoadResponse parses a fetched robots.txt response and registers its group
// under the request's domain key. A non-2xx or unparsable robots.txt is
// treated as "allow all", matching robots.txt convention.
func (p *RobotsPolicy) LoadResponse(resp *types.Response) {
	domainKey := resp.Request.DomainKey

	if !resp.IsSuccess() {
		p.logger.Debug("no robots.txt, allowing all", "domain", domainKey, "status", resp.StatusCode)
		return
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, resp.Content)
	if err != nil {
		p.logger.Debug("robots.txt parse failed, allowing all", "domain", domainKey, "error", err)
		return
	}

	group := data.FindGroup(p.userAgent)

	p.mu.Lock()
	p.groups[domainKey] = group
	p.mu.Unlock()
}

// Allowed reports whether path is allowed for domainKey. Domains with no
// loaded (or no parsable) robots.txt are fully allowed.
func (p *RobotsPolicy) Allowed(domainKey, path string) bool {
	p.mu.RLock()
	group, ok := p.groups[domainKey]
	p.mu.RUnlock()
	if !ok || group == nil {
		return true
	}
	return group.Test(path)
}

// CrawlDelay returns the robots.txt crawl-delay directive for domainKey, or
// zero if none was set or no robots.txt was loaded.
func (p *RobotsPolicy) CrawlDelay(domainKey string) (delay int, ok bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	group, found := p.groups[domainKey]
	if !found || group == nil || group.CrawlDelay <= 0 {
		return 0, false
	}
	return int(group.CrawlDelay.Seconds()), true
}
