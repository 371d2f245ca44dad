package engine

import (
	"path"
	"regexp"
	"strings"

	"github.com/go-ispider/ispider/internal/config"
	"github.com/go-ispider/ispider/internal/parser"
	"github.com/go-ispider/ispider/internal/types"
)

// Extractor turns a fetched Response into the next generation of requests:
// discovered links and sitemap entries, filtered by extension/regex rules,
// depth limits, same-domain policy, and the domain's remaining quota.
// Candidates that exceed the quota are dropped outright rather than queued
// for a later pass — FetchController.Reserve is the single gate, and a
// request that fails it now will not be revisited once the domain reopens.
type Extractor struct {
	cfg      *config.Config
	links    parser.LinkExtractor
	sitemaps parser.SitemapExtractor
	dedup    *Deduplicator
	fc       *FetchController

	excludedExtensions map[string]struct{}
	excludedPatterns   []*regexp.Regexp
	includedPatterns   []*regexp.Regexp
}

// NewExtractor builds an Extractor from the given config and collaborators.
func NewExtractor(cfg *config.Config, links parser.LinkExtractor, sitemaps parser.SitemapExtractor, dedup *Deduplicator, fc *FetchController) *Extractor {
	ext := &Extractor{
		cfg:                cfg,
		links:              links,
		sitemaps:           sitemaps,
		dedup:              dedup,
		fc:                 fc,
		excludedExtensions: make(map[string]struct{}, len(cfg.Filters.ExcludedExtensions)),
	}
	for _, e := range cfg.Filters.ExcludedExtensions {
		ext.excludedExtensions[strings.TrimPrefix(strings.ToLower(e), ".")] = struct{}{}
	}
	for _, p := range cfg.Filters.ExcludedExpressionsURL {
		if re, err := regexp.Compile(p); err == nil {
			ext.excludedPatterns = append(ext.excludedPatterns, re)
		}
	}
	for _, p := range cfg.Filters.IncludedExpressionsURL {
		if re, err := regexp.Compile(p); err == nil {
			ext.includedPatterns = append(ext.includedPatterns, re)
		}
	}
	return ext
}

// Expand produces the follow-on requests for resp: for a landing page it
// extracts links, for a sitemap response it extracts nested sitemaps and
// page URLs. Every candidate is checked against the dedup set, the depth
// limit for its kind, the URL filters, and the domain's fetch quota before
// being included.
func (x *Extractor) Expand(resp *types.Response) []*types.Request {
	req := resp.Request
	if !resp.IsSuccess() {
		return nil
	}

	// kinded pairs a discovered URL with the Kind its follow-on request must
	// carry, so sitemap-index children keep being routed back through the
	// sitemap parser instead of the HTML link extractor.
	type kinded struct {
		url  string
		kind types.Kind
	}
	var candidates []kinded

	switch req.Kind {
	case types.KindSitemap:
		pageURLs, sitemapURLs, err := x.sitemaps.Extract(resp)
		if err != nil {
			return nil
		}
		if req.Depth < x.cfg.Engine.SitemapsMaxDepth {
			for _, u := range sitemapURLs {
				candidates = append(candidates, kinded{u, types.KindSitemap})
			}
		}
		for _, u := range pageURLs {
			candidates = append(candidates, kinded{u, types.KindLanding})
		}
	default:
		if req.Depth >= x.cfg.Engine.WebsitesMaxDepth {
			return nil
		}
		links, err := x.links.Extract(resp)
		if err != nil {
			return nil
		}
		for _, u := range links {
			candidates = append(candidates, kinded{u, types.KindLanding})
		}
	}

	out := make([]*types.Request, 0, len(candidates))
	for _, c := range candidates {
		next, ok := x.buildCandidate(c.url, req, c.kind)
		if !ok {
			continue
		}
		out = append(out, next)
	}
	return out
}

func (x *Extractor) buildCandidate(raw string, parent *types.Request, kind types.Kind) (*types.Request, bool) {
	if !x.passesFilters(raw) {
		return nil, false
	}

	next, err := types.NewRequest(raw, kind, parent.Engine)
	if err != nil {
		return nil, false
	}

	if !types.SameDomain(next.URL.Hostname(), parent.DomainKey, parent.SubDomainKey, x.cfg.Engine.SameSubdomainOnly) {
		return nil, false
	}

	if x.dedup.SeenOrMark(next.DomainKey, next.URLString()) {
		return nil, false
	}

	if !x.fc.Reserve(next.DomainKey) {
		return nil, false
	}

	next.Depth = parent.Depth + 1
	next.ParentURL = parent.URLString()
	return next, true
}

func (x *Extractor) passesFilters(raw string) bool {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(raw), "."))
	if ext != "" {
		if _, excluded := x.excludedExtensions[ext]; excluded {
			return false
		}
	}

	for _, re := range x.excludedPatterns {
		if re.MatchString(raw) {
			return false
		}
	}

	if len(x.includedPatterns) == 0 {
		return true
	}
	for _, re := range x.includedPatterns {
		if re.MatchString(raw) {
			return true
		}
	}
	return false
}
