package parsers

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hogar_scrooper/extract"
	"hogar_scrooper/models"
)

var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join("testdata", name)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", name, err)
	}
	return string(data)
}

func allParsers() map[string]ParseFunc {
	return map[string]ParseFunc{
		"idealista":    ParseIdealista,
		"fotocasa":     ParseFotocasa,
		"engelvolkers": ParseEngelVolkers,
		"grupotome":    ParseGrupoTome,
		"areizaga":     ParseAreizaga,
	}
}

// photoKey is the dedup key each parser applies to its photos.
func photoKey(platform, url string) string {
	var key extract.DedupKey
	switch platform {
	case "idealista":
		key = IdealistaPhotoKey
	case "fotocasa":
		key = FotocasaPhotoKey
	case "engelvolkers":
		key = extract.RegexKey(extract.UUIDPattern)
	case "areizaga":
		key = extract.QueryStrippedKey
	}
	if key != nil {
		if k := key(url); k != "" {
			return k
		}
	}
	return url
}

func TestParsersNeverFailOnGarbage(t *testing.T) {
	inputs := []string{
		"",
		"just some words, 1.234,56 € and nothing else",
		"<html><body><div class=",
		"<script id=\"__NEXT_DATA__\">{\"props\":",
		"listados.fichapropiedad = [{,}];",
		"<script type=\"application/ld+json\">{\"@graph\":[1,\"x\",null]}</script>",
		"\x00\xff<<>>",
	}
	for name, parse := range allParsers() {
		for _, in := range inputs {
			l := parse(in, "", fixedNow)
			if l == nil {
				t.Fatalf("%s returned nil for %q", name, in)
			}
			if l.Status != models.StatusPending {
				t.Fatalf("%s: expected pending status, got %q", name, l.Status)
			}
			if l.Photos == nil {
				t.Fatalf("%s: expected empty photo list, got nil", name)
			}
		}
	}
}

func TestParsersAreDeterministic(t *testing.T) {
	fixtures := map[string]string{
		"idealista":    "idealista_basic.html",
		"fotocasa":     "fotocasa_basic.html",
		"engelvolkers": "engelvolkers_nextdata.html",
		"grupotome":    "grupotome_recovery.html",
		"areizaga":     "areizaga_basic.html",
	}
	parsers := allParsers()
	for name, fixture := range fixtures {
		html := loadFixture(t, fixture)
		first, _ := json.Marshal(parsers[name](html, "", fixedNow))
		second, _ := json.Marshal(parsers[name](html, "", fixedNow))
		if string(first) != string(second) {
			t.Fatalf("%s: output differs between runs", name)
		}
	}
}

func TestDerivedFieldsAreConsistent(t *testing.T) {
	fixtures := map[string][]string{
		"idealista":    {"idealista_basic.html", "idealista_minimal.html"},
		"fotocasa":     {"fotocasa_basic.html", "fotocasa_fallback.html"},
		"engelvolkers": {"engelvolkers_nextdata.html", "engelvolkers_jsonld.html"},
		"grupotome":    {"grupotome_recovery.html", "grupotome_html.html"},
		"areizaga":     {"areizaga_basic.html"},
	}
	parsers := allParsers()
	for name, files := range fixtures {
		for _, f := range files {
			l := parsers[name](loadFixture(t, f), "", fixedNow)
			if l.SquareMeters == 0 {
				if l.PricePerArea != 0 {
					t.Fatalf("%s: expected zero price per area without surface", f)
				}
				continue
			}
			want := int(float64(l.Price)/float64(l.SquareMeters) + 0.5)
			if l.PricePerArea != want {
				t.Fatalf("%s: price per area %d, want %d", f, l.PricePerArea, want)
			}
			if l.YearBuilt != 0 && (l.YearBuilt < models.MinYearBuilt || l.YearBuilt > models.MaxYearBuilt) {
				t.Fatalf("%s: year %d out of bounds", f, l.YearBuilt)
			}
			seen := map[string]bool{}
			keys := map[string]string{}
			for _, p := range l.Photos {
				if seen[p] {
					t.Fatalf("%s: duplicate photo %s", f, p)
				}
				seen[p] = true
				k := photoKey(name, p)
				if prev, ok := keys[k]; ok {
					t.Fatalf("%s: photos %s and %s share key %q", f, prev, p, k)
				}
				keys[k] = p
			}
		}
	}
}

func TestProvidedURLWins(t *testing.T) {
	html := loadFixture(t, "idealista_basic.html")
	l := ParseIdealista(html, "https://www.idealista.com/inmueble/1/", fixedNow)
	if l.URL != "https://www.idealista.com/inmueble/1/" {
		t.Fatalf("expected provided URL, got %s", l.URL)
	}
}

func TestSafelyRecoversPanics(t *testing.T) {
	boom := func(html, providedURL string, now time.Time) *models.Listing { panic("boom") }
	l := safely(boom)("<html>", "https://x/1", fixedNow)
	if l == nil || l.URL != "https://x/1" || l.Price != 0 {
		t.Fatalf("expected empty listing after panic, got %+v", l)
	}
}
