package extract

import (
	"regexp"
	"strings"

	"hogar_scrooper/models"
)

var (
	elevatorWord = regexp.MustCompile(`(?i)\bascensor\b`)
	noElevator   = regexp.MustCompile(`(?i)\bsin\s+ascensor\b`)
)

// HasElevator reports an elevator mention that is not negated by
// "sin ascensor" anywhere in the text.
func HasElevator(text string) bool {
	return elevatorWord.MatchString(text) && !noElevator.MatchString(text)
}

// ContainsAny reports whether text contains any of the given substrings.
func ContainsAny(text string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// RenovationRules classifies renovation language. Total always wins over
// partial when both match.
type RenovationRules struct {
	Total   *regexp.Regexp
	Partial *regexp.Regexp
}

// DefaultRenovation is the vocabulary shared by every Spanish source.
var DefaultRenovation = RenovationRules{
	Total:   regexp.MustCompile(`(?i)reforma\s+integral|reforma\s+total`),
	Partial: regexp.MustCompile(`(?i)a\s+reformar|para\s+reformar|necesita\s+reforma`),
}

// Detect returns total, partial or no for the given text.
func (r RenovationRules) Detect(text string) models.Renovation {
	if r.Total != nil && r.Total.MatchString(text) {
		return models.RenovationTotal
	}
	if r.Partial != nil && r.Partial.MatchString(text) {
		return models.RenovationPartial
	}
	return models.RenovationNone
}

// Compound directions come first so "sureste" is not read as "sur".
var orientationPattern = regexp.MustCompile(
	`(?i)orientaci[oó]n\s*[:\s]*(noroeste|noreste|suroeste|sureste|norte|sur|este|oeste)`)

// OrientationWord matches a bare compass word, for label/value pairs.
var OrientationWord = regexp.MustCompile(
	`(?i)^\s*(noroeste|noreste|suroeste|sureste|norte|sur|este|oeste)\b`)

// Orientation finds "orientación: <direction>" and returns the capitalized
// direction word, or "".
func Orientation(text string) string {
	m := orientationPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return Capitalize(strings.ToLower(m[1]))
}

// Year returns the first captured four-digit year, across patterns in
// order, that falls inside the accepted construction range.
func Year(text string, patterns ...*regexp.Regexp) int {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		if y := Atoi(m[1]); InYearRange(y) {
			return y
		}
	}
	return 0
}

// InYearRange reports whether y is a plausible construction year.
func InYearRange(y int) bool {
	return y >= models.MinYearBuilt && y <= models.MaxYearBuilt
}

var (
	// SpanishPhone matches mobile and landline numbers: 6XX XXX XXX, 9XX...
	SpanishPhone = regexp.MustCompile(`\b([679]\d{2}[\s.-]?\d{3}[\s.-]?\d{3})\b`)
	// GroupedPhone matches the XXX XX XX XX layout.
	GroupedPhone  = regexp.MustCompile(`\b(\d{3}[\s.-]?\d{2}[\s.-]?\d{2}[\s.-]?\d{2})\b`)
	phoneSepChars = regexp.MustCompile(`[\s.-]`)
	emailPattern  = regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.-]+`)
	daysAgo       = regexp.MustCompile(`(?i)hace\s+(\d+)\s+d[ií]as?`)
)

// CleanPhone strips separators from a phone number.
func CleanPhone(s string) string {
	return phoneSepChars.ReplaceAllString(s, "")
}

// PhoneInText returns the first phone in text, across patterns in order,
// whose digit count is between 9 and 12.
func PhoneInText(text string, patterns ...*regexp.Regexp) string {
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if p := CleanPhone(m[1]); len(p) >= 9 && len(p) <= 12 {
				return p
			}
		}
	}
	return ""
}

// TelLinks returns the distinct numbers behind tel: links in document
// order, whitespace removed, ignoring anything shorter than 9 characters.
func TelLinks(doc Document) []string {
	var out []string
	seen := map[string]bool{}
	for _, a := range doc.QuerySelectorAll(`a[href^="tel:"]`) {
		phone := StripSpaces(strings.Replace(a.Attr("href"), "tel:", "", 1))
		if len(phone) < 9 || seen[phone] {
			continue
		}
		seen[phone] = true
		out = append(out, phone)
	}
	return out
}

// FirstTelLink is the first usable tel: link number, or "".
func FirstTelLink(doc Document) string {
	if links := TelLinks(doc); len(links) > 0 {
		return links[0]
	}
	return ""
}

// Email returns the first email address in text.
func Email(text string) string {
	return emailPattern.FindString(text)
}

// DaysAgo reads "hace N días" style text.
func DaysAgo(text string) int {
	if m := daysAgo.FindStringSubmatch(text); m != nil {
		return Atoi(m[1])
	}
	return 0
}

// Coordinate returns v when it lies inside [-limit, limit].
func Coordinate(v float64, limit float64) *float64 {
	if v < -limit || v > limit || v != v {
		return nil
	}
	return &v
}

// CoordinateText parses s as a coordinate bounded by limit.
func CoordinateText(s string, limit float64) *float64 {
	f, ok := ParseFloat(s)
	if !ok {
		return nil
	}
	return Coordinate(f, limit)
}

// Yes reports the affirmative values used in label/value feature tables.
func Yes(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "sí", "si", "yes", "1":
		return true
	}
	return false
}
