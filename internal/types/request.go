package types

import (
	"fmt"
	"net/url"
	"time"
)

// Kind identifies where a request originated and which parser consumes its response.
type Kind string

const (
	KindLanding  Kind = "landing"
	KindRobots   Kind = "robots"
	KindSitemap  Kind = "sitemap"
	KindInternal Kind = "internal"
)

// Request is a single URL queued for fetching.
type Request struct {
	// URL is the absolute target URL.
	URL *url.URL

	// Kind classifies the origin/role of this request.
	Kind Kind

	// DomainKey is the canonical dom_tld this request belongs to.
	DomainKey string

	// SubDomainKey is the canonical sub_dom_tld (host including subdomain).
	SubDomainKey string

	// Attempt is the current retry attempt on the current engine, starting at 0.
	Attempt int

	// Depth is the crawl depth from the seed (0 for seeds).
	Depth int

	// Engine is the identifier of the HTTP adapter to use for this attempt.
	Engine string

	// ParentURL records which page this request was discovered on, if any.
	ParentURL string

	// CreatedAt is when this request was produced.
	CreatedAt time.Time
}

// NewRequest builds a Request from a raw URL string, deriving DomainKey/SubDomainKey.
func NewRequest(rawURL string, kind Kind, engine string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}

	domKey, subKey := CanonicalDomainKeys(u)

	return &Request{
		URL:          u,
		Kind:         kind,
		DomainKey:    domKey,
		SubDomainKey: subKey,
		Engine:       engine,
		CreatedAt:    time.Now(),
	}, nil
}

// URLString returns the string form of the request URL.
func (r *Request) URLString() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}

// Clone returns a deep copy of the request, safe to mutate for a retry/re-enqueue.
func (r *Request) Clone() *Request {
	clone := *r
	if r.URL != nil {
		u := *r.URL
		clone.URL = &u
	}
	return &clone
}
