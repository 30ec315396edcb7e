package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"hogar_scrooper/models"
)

var (
	streetReplacements = map[string]string{
		"calle":        "c",
		"avenida":      "av",
		"avda":         "av",
		"plaza":        "pza",
		"paseo":        "p",
		"pso":          "p",
		"carretera":    "ctra",
		"camino":       "cm",
		"ronda":        "rda",
		"travesia":     "trav",
		"urbanizacion": "urb",
		"barrio":       "bo",
		"kalea":        "c",
		"etorbidea":    "av",
		"pasealekua":   "p",
		"numero":       "n",
		"num":          "n",
		"izquierda":    "izq",
		"izda":         "izq",
		"derecha":      "dcha",
		"dcha":         "dcha",
		"drcha":        "dcha",
		"bajo":         "bj",
		"atico":        "at",
	}
	stopWords = map[string]bool{
		"de": true, "del": true, "la": true, "el": true, "los": true, "las": true, "y": true,
	}
	nonAlnumRegex = regexp.MustCompile(`[^a-z0-9\s]`)
	stripMarks    = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Fingerprint identifies a property across re-imports and across portals.
// Listings without any address fall back to their URL so unrelated
// anonymous listings never collapse into one.
func Fingerprint(l *models.Listing) string {
	place := NormalizeAddress(l.Address)
	if place == "" {
		place = NormalizeAddress(l.Zone)
	}
	if place == "" {
		place = "url:" + strings.ToLower(strings.TrimSpace(l.URL))
	}
	input := fmt.Sprintf("%s|%d|%d|%d|%s",
		place,
		l.Rooms,
		l.Bathrooms,
		l.SquareMeters,
		NormalizeAddress(l.Floor),
	)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:16])
}

// NormalizeAddress lowercases, strips accents and punctuation, drops
// articles and abbreviates street types word by word.
func NormalizeAddress(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if plain, _, err := transform.String(stripMarks, addr); err == nil {
		addr = plain
	}
	addr = nonAlnumRegex.ReplaceAllString(addr, " ")

	words := strings.Fields(addr)
	out := words[:0]
	for _, w := range words {
		if stopWords[w] {
			continue
		}
		if abbrev, ok := streetReplacements[w]; ok {
			w = abbrev
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}
