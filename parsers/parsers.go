// Package parsers turns pasted listing markup from each supported portal
// into a models.Listing, and keeps the registry that picks a parser for a
// URL. Parsers are pure: no I/O, no shared mutable state, no panics, no
// errors. A field that cannot be found keeps its zero value and callers
// treat a zero price as a failed extraction.
package parsers

import (
	"regexp"
	"strings"
	"time"

	"hogar_scrooper/extract"
	"hogar_scrooper/models"
)

// ParseFunc parses one listing page. now anchors relative fields such as
// days published so repeated calls with the same inputs are identical.
type ParseFunc func(html, providedURL string, now time.Time) *models.Listing

// safely runs a parser and converts a panic into an empty listing, so a
// pathological page can never take the caller down.
func safely(fn ParseFunc) ParseFunc {
	return func(html, providedURL string, now time.Time) (l *models.Listing) {
		defer func() {
			if r := recover(); r != nil {
				l = &models.Listing{URL: providedURL}
				l.Finalize()
			}
		}()
		return fn(html, providedURL, now)
	}
}

// labelValue is one row of a label/value feature table.
type labelValue struct {
	label string // lowercased
	value string
}

// descriptionText returns the first description paragraph longer than 30
// characters, else og:description.
func descriptionText(doc extract.Document, selectors ...string) string {
	for _, sel := range selectors {
		if t := extract.Text(doc, sel); len(t) > 30 {
			return t
		}
	}
	return extract.MetaProperty(doc, "og:description")
}

var (
	genericEuroPrice = regexp.MustCompile(`(\d{1,3}(?:\.\d{3})+)\s*€`)
	parkingIncluded  = regexp.MustCompile(`(?i)garaje\s*incluid|plaza.*incluid`)
	parkingOptional  = regexp.MustCompile(`(?i)garaje\s*opcional|plaza.*opcional|posibilidad.*garaje`)
	terraceWord      = regexp.MustCompile(`(?i)\bterraza\b`)
	balconyWord      = regexp.MustCompile(`(?i)\bbalc(?:o|ó)n\b`)
)

// euroPriceInText finds a grouped euro amount such as "325.000 €".
func euroPriceInText(text string) int {
	if m := genericEuroPrice.FindStringSubmatch(text); m != nil {
		return extract.Round(extract.ParseLocaleNumber(m[1]))
	}
	return 0
}

func lowerTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
