package engine

import "testing"

func TestDeduplicatorSeenOrMark(t *testing.T) {
	d := NewDeduplicator()

	if d.SeenOrMark("example.com", "https://example.com/a") {
		t.Fatal("first observation of a URL must report not already seen")
	}
	if !d.SeenOrMark("example.com", "https://example.com/a") {
		t.Error("second observation of the same URL must report already seen")
	}
	if got := d.Count("example.com"); got != 1 {
		t.Errorf("expected 1 unique URL recorded, got %d", got)
	}
}

func TestDeduplicatorScopedPerDomain(t *testing.T) {
	d := NewDeduplicator()
	d.SeenOrMark("a.com", "https://a.com/page")

	if d.SeenOrMark("b.com", "https://a.com/page") {
		t.Error("dedup state must be scoped per domain key, not global")
	}
}

func TestDeduplicatorPurge(t *testing.T) {
	d := NewDeduplicator()
	d.SeenOrMark("example.com", "https://example.com/a")
	d.Purge("example.com")

	if got := d.Count("example.com"); got != 0 {
		t.Errorf("expected 0 after purge, got %d", got)
	}
	if d.SeenOrMark("example.com", "https://example.com/a") {
		t.Error("a purged domain should accept the same URL as unseen again")
	}
}

func TestCanonicalizeURLCaseAndPort(t *testing.T) {
	got := CanonicalizeURL("HTTPS://Example.COM:443/Path/")
	want := "https://example.com/Path"
	if got != want {
		t.Errorf("CanonicalizeURL() = %q, want %q", got, want)
	}
}

func TestCanonicalizeURLDropsFragmentAndSortsQuery(t *testing.T) {
	got := CanonicalizeURL("https://example.com/path?b=2&a=1#section")
	want := "https://example.com/path?a=1&b=2"
	if got != want {
		t.Errorf("CanonicalizeURL() = %q, want %q", got, want)
	}
}

func TestCanonicalizeURLEquivalentVariants(t *testing.T) {
	a := CanonicalizeURL("https://Example.com/path?x=1&y=2")
	b := CanonicalizeURL("https://example.com:443/path/?y=2&x=1#frag")
	if a != b {
		t.Errorf("expected equivalent URLs to canonicalize identically: %q vs %q", a, b)
	}
}

func TestCanonicalizeURLRootPathKeptAsSlash(t *testing.T) {
	got := CanonicalizeURL("https://example.com")
	want := "https://example.com/"
	if got != want {
		t.Errorf("CanonicalizeURL() = %q, want %q", got, want)
	}
}
