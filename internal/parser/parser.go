package parser

import (
	"github.com/go-ispider/ispider/internal/types"
)

// LinkExtractor pulls follow-up URLs out of a fetched response.
type LinkExtractor interface {
	// Extract returns the absolute URLs discovered in resp, resolved
	// against resp's own URL.
	Extract(resp *types.Response) ([]string, error)
}

// SitemapExtractor pulls page and nested-sitemap URLs out of a sitemap response.
type SitemapExtractor interface {
	// Extract returns page URLs and nested sitemap URLs found in resp.
	Extract(resp *types.Response) (pageURLs []string, sitemapURLs []string, err error)
}
