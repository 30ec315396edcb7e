package extract

import (
	"regexp"
	"strings"
)

// DedupKey maps a photo URL to the identity used to detect duplicates.
// An empty key falls back to the full URL.
type DedupKey func(url string) string

// PhotoSet accumulates photo URLs from several discovery strategies in
// first-seen order, dropping duplicates by key.
type PhotoSet struct {
	// Key identifies duplicates. Nil uses the full URL.
	Key DedupKey
	// Accept rejects URLs that are not listing photos. Nil accepts all.
	Accept func(url string) bool
	// Rewrite normalizes an accepted URL, usually to its largest variant.
	Rewrite func(url string) string

	seen map[string]bool
	urls []string
}

// Add offers one URL to the set and reports whether it was kept.
func (s *PhotoSet) Add(url string) bool {
	url = strings.TrimSpace(url)
	if url == "" {
		return false
	}
	if s.Accept != nil && !s.Accept(url) {
		return false
	}
	if s.Rewrite != nil {
		url = s.Rewrite(url)
	}
	key := ""
	if s.Key != nil {
		key = s.Key(url)
	}
	if key == "" {
		key = url
	}
	if s.seen == nil {
		s.seen = map[string]bool{}
	}
	// the rewritten URL is tracked too so two keys never yield one URL twice
	if s.seen[key] || s.seen["url:"+url] {
		return false
	}
	s.seen[key] = true
	s.seen["url:"+url] = true
	s.urls = append(s.urls, url)
	return true
}

// AddAll offers every URL in order.
func (s *PhotoSet) AddAll(urls ...string) {
	for _, u := range urls {
		s.Add(u)
	}
}

// Len is the number of photos kept so far.
func (s *PhotoSet) Len() int { return len(s.urls) }

// Photos returns the accumulated URLs; never nil.
func (s *PhotoSet) Photos() []string {
	out := make([]string, len(s.urls))
	copy(out, s.urls)
	return out
}

// RegexKey keys a URL by capture group 1 of re, or by the whole match when
// re has no group. It returns "" when re does not match.
func RegexKey(re *regexp.Regexp) DedupKey {
	return func(url string) string {
		m := re.FindStringSubmatch(url)
		switch {
		case len(m) > 1:
			return strings.ToLower(m[1])
		case len(m) == 1:
			return strings.ToLower(m[0])
		}
		return ""
	}
}

// StripQuery drops everything from the first '?'.
func StripQuery(url string) string {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		return url[:i]
	}
	return url
}

// QueryStrippedKey keys a URL by itself without its query string.
func QueryStrippedKey(url string) string {
	return StripQuery(url)
}

// Keys tries each key function in order and uses the first non-empty key.
func Keys(keys ...DedupKey) DedupKey {
	return func(url string) string {
		for _, k := range keys {
			if v := k(url); v != "" {
				return v
			}
		}
		return ""
	}
}

// UUIDPattern matches a canonical lowercase or uppercase UUID.
var UUIDPattern = regexp.MustCompile(`(?i)[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}`)

// Blocklisted builds an Accept filter rejecting URLs containing any of the
// given words, case-insensitively.
func Blocklisted(words ...string) func(string) bool {
	return func(url string) bool {
		lower := strings.ToLower(url)
		for _, w := range words {
			if strings.Contains(lower, w) {
				return false
			}
		}
		return true
	}
}

// SrcsetURLs returns the URL part of every srcset candidate.
func SrcsetURLs(srcset string) []string {
	var out []string
	for _, part := range strings.Split(srcset, ",") {
		fields := strings.Fields(part)
		if len(fields) > 0 {
			out = append(out, fields[0])
		}
	}
	return out
}

var backgroundURL = regexp.MustCompile(`url\(["']?(https?://[^"')]+)["']?\)`)

// BackgroundImages returns the URLs referenced by url(...) in a style attribute.
func BackgroundImages(style string) []string {
	var out []string
	for _, m := range backgroundURL.FindAllStringSubmatch(style, -1) {
		out = append(out, m[1])
	}
	return out
}

// ImageAttrs returns src, data-src and data-lazy of every <img>, in order.
func ImageAttrs(doc Document) []string {
	var out []string
	for _, img := range doc.QuerySelectorAll("img") {
		for _, attr := range []string{"src", "data-src", "data-lazy"} {
			if v := img.Attr(attr); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// SourceSrcsets returns every URL listed in <source srcset> elements.
func SourceSrcsets(doc Document) []string {
	var out []string
	for _, src := range doc.QuerySelectorAll("source[srcset]") {
		out = append(out, SrcsetURLs(src.Attr("srcset"))...)
	}
	return out
}

// AbsoluteScheme prefixes protocol-relative URLs with https.
func AbsoluteScheme(url string) string {
	if strings.HasPrefix(url, "//") {
		return "https:" + url
	}
	return url
}
