package parsers

import (
	"testing"
	"time"

	"hogar_scrooper/models"
)

func TestDetectFromURL(t *testing.T) {
	r := Default()
	cases := map[string]string{
		"https://www.idealista.com/inmueble/123/":                          "idealista",
		"HTTPS://WWW.FOTOCASA.ES/es/comprar/vivienda/x/1/d":                "fotocasa",
		"https://www.engelvoelkers.com/es/es/exposes/abc":                  "engelvolkers",
		"https://www.grupotome.com/ficha/piso/donostia/anorga/28712345/":   "grupotome",
		"https://www.areizaga.com/inmueble/piso-en-egia-ref-4521/":         "areizaga",
	}
	for in, want := range cases {
		got, ok := r.DetectFromURL(in)
		if !ok || got != want {
			t.Fatalf("%s: expected %s, got %q (%v)", in, want, got, ok)
		}
	}
	for _, in := range []string{"", "https://example.com/piso/1"} {
		if got, ok := r.DetectFromURL(in); ok {
			t.Fatalf("%q: expected no platform, got %s", in, got)
		}
	}
}

func TestListOptionsKeepsRegistrationOrder(t *testing.T) {
	opts := Default().ListOptions()
	want := []Option{
		{ID: "idealista", Label: "Idealista"},
		{ID: "grupotome", Label: "Grupo Tomé"},
		{ID: "engelvolkers", Label: "Engel & Völkers"},
		{ID: "fotocasa", Label: "Fotocasa"},
		{ID: "areizaga", Label: "Areizaga"},
	}
	if len(opts) != len(want) {
		t.Fatalf("expected %d options, got %v", len(want), opts)
	}
	for i := range want {
		if opts[i] != want[i] {
			t.Fatalf("option %d: expected %+v, got %+v", i, want[i], opts[i])
		}
	}
}

func TestResolve(t *testing.T) {
	r := Default()
	p, ok := r.Resolve("fotocasa")
	if !ok || p.Label != "Fotocasa" || p.Parse == nil {
		t.Fatalf("unexpected platform %+v (%v)", p, ok)
	}
	if _, ok := r.Resolve("nope"); ok {
		t.Fatal("expected unknown id to be missing")
	}
}

func TestRefererForImage(t *testing.T) {
	r := Default()
	cases := map[string]string{
		"https://fotos15.apinmo.com/2345/1/7-1.jpg":                       "https://www.grupotome.com/",
		"https://img3.idealista.com/blur/WEB_DETAIL/0/x/1105112345.jpg":   "https://www.idealista.com/",
		"https://img.inmotek.net/media/areizaga/fotos/inmuebles/1/a.jpg":  "https://www.areizaga.com/",
		"https://static.fotocasa.es/images/ads/0f6c1a9e?rule=original":    "https://www.fotocasa.es/",
	}
	for in, want := range cases {
		got, ok := r.RefererForImage(in)
		if !ok || got != want {
			t.Fatalf("%s: expected %s, got %q (%v)", in, want, got, ok)
		}
	}
	for _, in := range []string{"https://evil-apinmo.com/x.jpg", "https://example.com/a.jpg", "not a url", ""} {
		if got, ok := r.RefererForImage(in); ok {
			t.Fatalf("%q: expected no referer, got %s", in, got)
		}
	}
}

func TestRegisterReplacesInPlace(t *testing.T) {
	r := Default()
	stub := func(html, providedURL string, now time.Time) *models.Listing {
		return &models.Listing{Title: "stub"}
	}
	if err := r.Register(Platform{ID: "grupotome", Label: "Tomé", Domains: []string{"GrupoTome.com"}, Parse: stub}); err != nil {
		t.Fatalf("register: %v", err)
	}
	opts := r.ListOptions()
	if len(opts) != 5 || opts[1].Label != "Tomé" {
		t.Fatalf("expected replacement at the same position, got %v", opts)
	}
	if id, _ := r.DetectFromURL("https://www.grupotome.com/x"); id != "grupotome" {
		t.Fatalf("expected lowercased domain to match, got %q", id)
	}
	if err := r.Register(Platform{ID: "x"}); err == nil {
		t.Fatal("expected error for a platform without parser")
	}
	if err := r.Register(Platform{Parse: stub}); err == nil {
		t.Fatal("expected error for a platform without id")
	}
}

func TestRegisteredParsersRecoverPanics(t *testing.T) {
	r := NewRegistry()
	err := r.Register(Platform{ID: "bad", Domains: []string{"bad.test"}, Parse: func(string, string, time.Time) *models.Listing {
		var m map[string]int
		m["x"] = 1
		return nil
	}})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	p, _ := r.Resolve("bad")
	if l := p.Parse("<html>", "https://bad.test/1", time.Now()); l == nil || l.Price != 0 {
		t.Fatalf("expected empty listing, got %+v", l)
	}
}

func TestExtend(t *testing.T) {
	r := Default()
	before, _ := r.Resolve("idealista")
	if err := r.Extend("idealista", []string{"Idealista.PT"}, []string{"idealista-cdn.example"}, "https://www.idealista.pt/"); err != nil {
		t.Fatalf("extend: %v", err)
	}
	if id, ok := r.DetectFromURL("https://www.idealista.pt/imovel/1/"); !ok || id != "idealista" {
		t.Fatalf("expected extra domain to match, got %q", id)
	}
	ref, ok := r.RefererForImage("https://img.idealista-cdn.example/a.jpg")
	if !ok || ref != "https://www.idealista.pt/" {
		t.Fatalf("expected overridden referer, got %q (%v)", ref, ok)
	}
	if len(before.Domains) != 1 {
		t.Fatalf("extend must not mutate previously resolved platforms, got %v", before.Domains)
	}
	if err := r.Extend("nope", nil, nil, ""); err == nil {
		t.Fatal("expected error for unknown platform")
	}
}
