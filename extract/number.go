package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var numericRun = regexp.MustCompile(`[\d.,]+`)

// ParseLocaleNumber reads the first numeric run in text using the European
// convention: '.' groups thousands and ',' is the decimal separator.
// "1.234,56" -> 1234.56, "450.000 €" -> 450000. Input such as "1,234" is
// read as 1.234; sources in scope never publish comma-grouped thousands.
// Returns 0 when no number is present.
func ParseLocaleNumber(text string) float64 {
	m := numericRun.FindString(text)
	if m == "" {
		return 0
	}
	m = strings.ReplaceAll(m, ".", "")
	m = strings.Replace(m, ",", ".", 1)
	return parseFloatPrefix(m)
}

// ParseLocaleInt is ParseLocaleNumber truncated toward zero.
func ParseLocaleInt(text string) int {
	return int(ParseLocaleNumber(text))
}

// parseFloatPrefix parses the longest leading "digits[.digits]" prefix.
func parseFloatPrefix(s string) float64 {
	end := 0
	seenDot := false
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' {
			end++
			continue
		}
		if c == '.' && !seenDot {
			seenDot = true
			end++
			continue
		}
		break
	}
	prefix := strings.TrimSuffix(s[:end], ".")
	if prefix == "" {
		return 0
	}
	f, err := strconv.ParseFloat(prefix, 64)
	if err != nil {
		return 0
	}
	return f
}

// LeadingInt parses an optionally signed integer at the start of s after
// leading whitespace ("3 habitaciones" -> 3). Returns 0 otherwise.
func LeadingInt(s string) int {
	s = strings.TrimLeft(s, " \t\n\r\f\v")
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n := 0
	digits := 0
	for digits < len(s) && s[digits] >= '0' && s[digits] <= '9' {
		n = n*10 + int(s[digits]-'0')
		digits++
		if n > math.MaxInt32 {
			break
		}
	}
	if neg {
		return -n
	}
	return n
}

// Round rounds half up, matching how listing prices are displayed.
func Round(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(math.Floor(f + 0.5))
}

// ParseFloat parses a plain decimal such as a JSON coordinate.
func ParseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Atoi parses a whole string as an integer, returning 0 on failure.
func Atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
