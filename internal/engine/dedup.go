package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// Deduplicator tracks visited URLs per domain, so identical paths discovered
// through different pages are only ever fetched once. Scoping by domain (as
// opposed to one global set) keeps memory proportional to domains actually
// crawled and lets a domain's dedup state be dropped wholesale when purged
// by the resume reconciler.
type Deduplicator struct {
	mu     sync.RWMutex
	seen   map[string]map[string]struct{} // domainKey -> hash set
}

// NewDeduplicator creates an empty per-domain deduplicator.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]map[string]struct{})}
}

// SeenOrMark reports whether rawURL has already been observed for domainKey,
// marking it seen as a side effect if not. This combined check-and-set is
// atomic under the deduplicator's lock, closing the race a separate
// IsSeen/MarkSeen pair would have between concurrent extractor goroutines.
func (d *Deduplicator) SeenOrMark(domainKey, rawURL string) (alreadySeen bool) {
	hash := hashURL(CanonicalizeURL(rawURL))

	d.mu.Lock()
	defer d.mu.Unlock()

	set, ok := d.seen[domainKey]
	if !ok {
		set = make(map[string]struct{})
		d.seen[domainKey] = set
	}
	if _, dup := set[hash]; dup {
		return true
	}
	set[hash] = struct{}{}
	return false
}

// Count returns the number of unique URLs seen for domainKey.
func (d *Deduplicator) Count(domainKey string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.seen[domainKey])
}

// Purge discards all dedup state for domainKey.
func (d *Deduplicator) Purge(domainKey string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, domainKey)
}

// CanonicalizeURL normalizes a URL for deduplication: lowercases scheme and
// host, drops the fragment and default port, sorts query parameters, and
// trims a trailing slash (except on the bare root).
func CanonicalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	host := u.Hostname()
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = host
	}

	if u.RawQuery != "" {
		params := u.Query()
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var sorted []string
		for _, k := range keys {
			vals := params[k]
			sort.Strings(vals)
			for _, v := range vals {
				sorted = append(sorted, url.QueryEscape(k)+"="+url.QueryEscape(v))
			}
		}
		u.RawQuery = strings.Join(sorted, "&")
	}

	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimRight(u.Path, "/")
	}
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}

func hashURL(canonicalURL string) string {
	h := sha256.Sum256([]byte(canonicalURL))
	return hex.EncodeToString(h[:16])
}
