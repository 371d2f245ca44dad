package parser

import (
	"encoding/xml"
	"log/slog"

	"github.com/go-ispider/ispider/internal/types"
)

// sitemapURLSet mirrors the <urlset> element of the sitemap protocol.
type sitemapURLSet struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// sitemapIndex mirrors the <sitemapindex> element, used for nested sitemaps.
type sitemapIndex struct {
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// XMLSitemapExtractor parses sitemap.xml / sitemap index documents. No
// third-party library in the dependency pack specializes sitemap XML, so
// this stays on encoding/xml.
type XMLSitemapExtractor struct {
	logger *slog.Logger
}

// NewXMLSitemapExtractor creates a new sitemap extractor.
func NewXMLSitemapExtractor(logger *slog.Logger) *XMLSitemapExtractor {
	return &XMLSitemapExtractor{logger: logger.With("component", "sitemap_extractor")}
}

// Extract implements SitemapExtractor. A document may be either a <urlset>
// (leaf sitemap, contributes pageURLs) or a <sitemapindex> (contributes
// sitemapURLs for further expansion up to EngineConfig.SitemapsMaxDepth).
func (x *XMLSitemapExtractor) Extract(resp *types.Response) (pageURLs []string, sitemapURLs []string, err error) {
	var urlSet sitemapURLSet
	if err := xml.Unmarshal(resp.Content, &urlSet); err == nil && len(urlSet.URLs) > 0 {
		for _, u := range urlSet.URLs {
			if u.Loc != "" {
				pageURLs = append(pageURLs, u.Loc)
			}
		}
		return pageURLs, nil, nil
	}

	var index sitemapIndex
	if err := xml.Unmarshal(resp.Content, &index); err != nil {
		return nil, nil, &types.ParseError{URL: resp.Request.URLString(), Err: err}
	}
	for _, s := range index.Sitemaps {
		if s.Loc != "" {
			sitemapURLs = append(sitemapURLs, s.Loc)
		}
	}

	x.logger.Debug("sitemap parsed", "url", resp.Request.URLString(), "pages", len(pageURLs), "nested", len(sitemapURLs))
	return pageURLs, sitemapURLs, nil
}
