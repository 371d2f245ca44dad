package engine

import (
	"net/http"
	"testing"

	"github.com/go-ispider/ispider/internal/config"
	"github.com/go-ispider/ispider/internal/types"
)

type fakeLinkExtractor struct{ links []string }

func (f fakeLinkExtractor) Extract(resp *types.Response) ([]string, error) { return f.links, nil }

type fakeSitemapExtractor struct {
	pages    []string
	sitemaps []string
}

func (f fakeSitemapExtractor) Extract(resp *types.Response) ([]string, []string, error) {
	return f.pages, f.sitemaps, nil
}

func newTestExtractor(t *testing.T, cfg *config.Config, links []string) (*Extractor, *FetchController) {
	t.Helper()
	fc := NewFetchController(100)
	dedup := NewDeduplicator()
	ext := NewExtractor(cfg, fakeLinkExtractor{links: links}, fakeSitemapExtractor{}, dedup, fc)
	return ext, fc
}

func landingResponse(t *testing.T, rawURL string, depth int) *types.Response {
	req := mustRequest(t, rawURL)
	req.Depth = depth
	return types.NewResponse(req, 200, http.Header{}, nil, 0, false, 0)
}

func TestExtractorExpandFiltersSameDomainOnly(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Engine.WebsitesMaxDepth = 3
	ext, fc := newTestExtractor(t, cfg, []string{
		"https://example.com/child",
		"https://other.com/page",
	})
	fc.RegisterSeed("example.com")

	resp := landingResponse(t, "https://example.com/", 0)
	out := ext.Expand(resp)

	if len(out) != 1 {
		t.Fatalf("expected only the same-domain link to survive, got %d: %v", len(out), out)
	}
	if out[0].URLString() != "https://example.com/child" {
		t.Errorf("unexpected surviving link: %s", out[0].URLString())
	}
}

func TestExtractorExpandRespectsMaxDepth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Engine.WebsitesMaxDepth = 2
	ext, _ := newTestExtractor(t, cfg, []string{"https://example.com/deep"})

	resp := landingResponse(t, "https://example.com/", 2) // already at max depth
	out := ext.Expand(resp)

	if len(out) != 0 {
		t.Errorf("expected no candidates at max depth, got %d", len(out))
	}
}

func TestExtractorExpandDropsDuplicates(t *testing.T) {
	cfg := config.DefaultConfig()
	ext, _ := newTestExtractor(t, cfg, []string{
		"https://example.com/a",
		"https://example.com/a",
	})

	resp := landingResponse(t, "https://example.com/", 0)
	out := ext.Expand(resp)

	if len(out) != 1 {
		t.Errorf("expected duplicates within the same batch to collapse to 1, got %d", len(out))
	}
}

func TestExtractorExpandStopsAtQuota(t *testing.T) {
	cfg := config.DefaultConfig()
	ext, fc := newTestExtractor(t, cfg, []string{
		"https://example.com/a",
		"https://example.com/b",
		"https://example.com/c",
	})

	fc2 := NewFetchController(1)
	fc2.RegisterSeed("example.com")
	fc2.Reserve("example.com") // consume the domain's entire quota up front
	ext.fc = fc2
	_ = fc

	resp := landingResponse(t, "https://example.com/", 0)
	out := ext.Expand(resp)

	if len(out) != 0 {
		t.Errorf("expected quota-exhausted domain to drop every candidate, got %d", len(out))
	}
}

func TestExtractorExpandSkipsExcludedExtensions(t *testing.T) {
	cfg := config.DefaultConfig() // default excludes .jpg among others
	ext, _ := newTestExtractor(t, cfg, []string{
		"https://example.com/photo.jpg",
		"https://example.com/page.html",
	})

	resp := landingResponse(t, "https://example.com/", 0)
	out := ext.Expand(resp)

	if len(out) != 1 || out[0].URLString() != "https://example.com/page.html" {
		t.Errorf("expected only page.html to survive extension filtering, got %v", out)
	}
}

func TestExtractorExpandTagsSitemapChildrenBySection(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Engine.SitemapsMaxDepth = 3
	fc := NewFetchController(100)
	dedup := NewDeduplicator()
	sitemaps := fakeSitemapExtractor{
		pages:    []string{"https://example.com/page-a"},
		sitemaps: []string{"https://example.com/sitemap-2.xml"},
	}
	ext := NewExtractor(cfg, fakeLinkExtractor{}, sitemaps, dedup, fc)
	fc.RegisterSeed("example.com")

	req := mustRequest(t, "https://example.com/sitemap.xml")
	req.Kind = types.KindSitemap
	resp := types.NewResponse(req, 200, http.Header{}, nil, 0, false, 0)

	out := ext.Expand(resp)
	if len(out) != 2 {
		t.Fatalf("expected 2 candidates (1 page + 1 nested sitemap), got %d: %v", len(out), out)
	}

	kinds := make(map[string]types.Kind, len(out))
	for _, r := range out {
		kinds[r.URLString()] = r.Kind
	}
	if kinds["https://example.com/page-a"] != types.KindLanding {
		t.Errorf("expected the page URL to be tagged KindLanding, got %v", kinds["https://example.com/page-a"])
	}
	if kinds["https://example.com/sitemap-2.xml"] != types.KindSitemap {
		t.Errorf("expected the nested sitemap URL to be tagged KindSitemap, got %v", kinds["https://example.com/sitemap-2.xml"])
	}
}

func TestExtractorExpandOnFailedResponseReturnsNil(t *testing.T) {
	cfg := config.DefaultConfig()
	ext, _ := newTestExtractor(t, cfg, []string{"https://example.com/a"})

	req := mustRequest(t, "https://example.com/")
	resp := types.NewResponse(req, 500, http.Header{}, nil, 0, false, 0)

	out := ext.Expand(resp)
	if out != nil {
		t.Errorf("expected nil expansion for a non-success response, got %v", out)
	}
}
