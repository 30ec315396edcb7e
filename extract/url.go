package extract

import "regexp"

// CanonicalURL resolves the listing URL: the caller's URL, then
// <link rel="canonical">, then og:url, then the first match of any raw
// pattern over the markup.
func CanonicalURL(doc Document, provided, raw string, patterns ...*regexp.Regexp) string {
	return First(
		Value(provided),
		func() string { return Attr(doc, `link[rel="canonical"]`, "href") },
		func() string { return MetaProperty(doc, "og:url") },
		func() string {
			for _, re := range patterns {
				if m := re.FindString(raw); m != "" {
					return m
				}
			}
			return ""
		},
	)
}
