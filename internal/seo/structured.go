package seo

import (
	"log/slog"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/go-ispider/ispider/internal/types"
)

// FieldRule defines a single XPath extraction rule for structured-data
// collection alongside the meta-tag audit (e.g. product price, article byline).
type FieldRule struct {
	Name      string
	Selector  string
	Attribute string // "", "text", "html", "outerHTML", or an attribute name
}

// StructuredExtractor pulls arbitrary fields out of a page via XPath,
// for callers that need more than the fixed MetaAuditResult fields.
type StructuredExtractor struct {
	logger *slog.Logger
}

// NewStructuredExtractor creates a new XPath-based field extractor.
func NewStructuredExtractor(logger *slog.Logger) *StructuredExtractor {
	return &StructuredExtractor{logger: logger.With("component", "structured_extractor")}
}

// Extract applies rules to resp's parsed document and returns an Item
// carrying one field per rule that matched.
func (x *StructuredExtractor) Extract(resp *types.Response, rules []FieldRule) (*types.Item, error) {
	doc, err := html.Parse(strings.NewReader(string(resp.Content)))
	if err != nil {
		return nil, &types.ParseError{URL: resp.Request.URLString(), Err: err}
	}

	item := types.NewItem(resp.Request.URLString())
	item.Source = "structured_extractor"

	for _, rule := range rules {
		values := x.extractOne(doc, rule)
		switch len(values) {
		case 0:
		case 1:
			item.Set(rule.Name, values[0])
		default:
			item.Set(rule.Name, values)
		}
	}

	return item, nil
}

func (x *StructuredExtractor) extractOne(doc *html.Node, rule FieldRule) []string {
	nodes, err := htmlquery.QueryAll(doc, rule.Selector)
	if err != nil {
		x.logger.Warn("invalid xpath", "selector", rule.Selector, "error", err)
		return nil
	}

	var values []string
	for _, node := range nodes {
		var val string
		switch rule.Attribute {
		case "", "text":
			val = strings.TrimSpace(htmlquery.InnerText(node))
		case "html", "innerHTML":
			val = htmlquery.OutputHTML(node, false)
		case "outerHTML":
			val = htmlquery.OutputHTML(node, true)
		default:
			val = htmlquery.SelectAttr(node, rule.Attribute)
		}
		if val != "" {
			values = append(values, val)
		}
	}
	return values
}
