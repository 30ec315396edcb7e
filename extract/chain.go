package extract

import (
	"regexp"
	"strings"
)

// First tries each extractor in order and returns the first non-zero
// result. Later extractors are not evaluated once one succeeds, so a
// field's fallback tiers never override an earlier tier.
func First[T comparable](extractors ...func() T) T {
	var zero T
	for _, fn := range extractors {
		if v := fn(); v != zero {
			return v
		}
	}
	return zero
}

// Value lifts a value that is already known into an extractor.
func Value[T comparable](v T) func() T {
	return func() T { return v }
}

// TextOf returns an extractor reading the trimmed text at selector.
func TextOf(doc Document, selector string) func() string {
	return func() string { return Text(doc, selector) }
}

// FirstText returns the text of the first selector that yields any.
func FirstText(doc Document, selectors ...string) string {
	for _, sel := range selectors {
		if t := Text(doc, sel); t != "" {
			return t
		}
	}
	return ""
}

// Submatch returns an extractor yielding capture group 1 of re over s.
func Submatch(re *regexp.Regexp, s string) func() string {
	return func() string {
		if m := re.FindStringSubmatch(s); len(m) > 1 {
			return m[1]
		}
		return ""
	}
}

// FirstSubmatch returns capture group 1 of the first pattern that matches.
func FirstSubmatch(s string, patterns ...*regexp.Regexp) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(s); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// CollapseSpaces collapses whitespace runs to single spaces and trims.
func CollapseSpaces(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// StripSpaces removes every whitespace character.
func StripSpaces(s string) string {
	return whitespaceRun.ReplaceAllString(s, "")
}

// Capitalize upper-cases the first rune.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

// SplitTrim splits on sep and trims every part.
func SplitTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
