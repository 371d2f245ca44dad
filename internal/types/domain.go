package types

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// CanonicalDomainKeys derives the dom_tld (registrable domain) and sub_dom_tld
// (full host) keys used to group requests and enforce quota/filters.
func CanonicalDomainKeys(u *url.URL) (domTLD, subDomTLD string) {
	host := strings.ToLower(u.Hostname())
	subDomTLD = host

	domTLD, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		// No recognized public suffix (e.g. "localhost", bare IP) — fall
		// back to the full host as its own registrable domain.
		domTLD = host
	}
	return domTLD, subDomTLD
}

// SameDomain reports whether candidateHost belongs to domTLD, honoring the
// sameSubdomainOnly policy: when true, candidateHost must equal subDomTLD
// exactly; when false, any host sharing the same registrable domain qualifies.
func SameDomain(candidateHost, domTLD, subDomTLD string, sameSubdomainOnly bool) bool {
	candidateHost = strings.ToLower(candidateHost)
	if sameSubdomainOnly {
		return candidateHost == subDomTLD
	}
	candidateDom, err := publicsuffix.EffectiveTLDPlusOne(candidateHost)
	if err != nil {
		candidateDom = candidateHost
	}
	return candidateDom == domTLD
}
