package parser

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/go-ispider/ispider/internal/types"
)

// HTMLLinkExtractor finds <a href> and alternate <link> targets in an HTML
// page and resolves them to absolute URLs.
type HTMLLinkExtractor struct {
	logger *slog.Logger
}

// NewHTMLLinkExtractor creates a new HTML link extractor.
func NewHTMLLinkExtractor(logger *slog.Logger) *HTMLLinkExtractor {
	return &HTMLLinkExtractor{logger: logger.With("component", "html_link_extractor")}
}

// Extract implements LinkExtractor.
func (x *HTMLLinkExtractor) Extract(resp *types.Response) ([]string, error) {
	doc, err := resp.Document()
	if err != nil {
		return nil, &types.ParseError{URL: resp.Request.URLString(), Err: err}
	}

	base := resp.Request.URL
	seen := make(map[string]struct{})
	var links []string

	add := func(raw string) {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") || strings.HasPrefix(raw, "javascript:") || strings.HasPrefix(raw, "mailto:") {
			return
		}
		parsed, err := url.Parse(raw)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(parsed)
		resolved.Fragment = ""
		s := resolved.String()
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		links = append(links, s)
	}

	doc.Find("a[href]").Each(func(i int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		add(href)
	})

	doc.Find(`link[rel="alternate"][href]`).Each(func(i int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		add(href)
	})

	return links, nil
}
