package parsers

import (
	"testing"

	"hogar_scrooper/models"
)

func TestParseIdealista(t *testing.T) {
	l := ParseIdealista(loadFixture(t, "idealista_basic.html"), "", fixedNow)

	if l.URL != "https://www.idealista.com/inmueble/104512345/" {
		t.Fatalf("expected canonical URL, got %q", l.URL)
	}
	if l.Price != 450000 {
		t.Fatalf("expected price 450000, got %d", l.Price)
	}
	if l.Title != "Piso en venta en calle de Prim" {
		t.Fatalf("unexpected title %q", l.Title)
	}
	if l.Zone != "Centro" || l.Address != "Centro, Donostia-San Sebastián" {
		t.Fatalf("unexpected location %q / %q", l.Zone, l.Address)
	}
	if l.BuiltSquareMeters != 90 || l.SquareMeters != 90 || l.UsableSquareMeters != 0 {
		t.Fatalf("unexpected surfaces built=%d usable=%d sqm=%d", l.BuiltSquareMeters, l.UsableSquareMeters, l.SquareMeters)
	}
	if l.PricePerArea != 5000 {
		t.Fatalf("expected 5000 €/m², got %d", l.PricePerArea)
	}
	if l.Rooms != 2 || l.Bathrooms != 1 {
		t.Fatalf("expected 2 rooms 1 bath, got %d/%d", l.Rooms, l.Bathrooms)
	}
	if l.Floor != "3ª" {
		t.Fatalf("expected floor 3ª, got %q", l.Floor)
	}
	if !l.Terrace || !l.Balcony || !l.Elevator {
		t.Fatalf("expected terrace, balcony and elevator: %+v", l)
	}
	if !l.ParkingIncluded || l.ParkingOptional {
		t.Fatalf("expected included parking only, got included=%v optional=%v", l.ParkingIncluded, l.ParkingOptional)
	}
	if l.NeedsRenovation != models.RenovationPartial {
		t.Fatalf("expected partial renovation, got %q", l.NeedsRenovation)
	}
	if l.YearBuilt != 1965 {
		t.Fatalf("expected 1965, got %d", l.YearBuilt)
	}
	if l.Orientation != "Sureste" {
		t.Fatalf("expected Sureste, got %q", l.Orientation)
	}
	if l.DaysPublished != 12 {
		t.Fatalf("expected 12 days, got %d", l.DaysPublished)
	}
	if l.Latitude == nil || *l.Latitude != 43.3183 || l.Longitude == nil || *l.Longitude != -1.9812 {
		t.Fatalf("unexpected coordinates %v %v", l.Latitude, l.Longitude)
	}

	want := []string{
		"https://img3.idealista.com/blur/WEB_DETAIL/0/id.pro.es.image.master/5a/7c/12/1105112345.jpg",
		"https://img3.idealista.com/blur/WEB_DETAIL/0/id.pro.es.image.master/aa/bb/cc/1105112346.webp",
		"https://img3.idealista.com/blur/WEB_DETAIL/0/id.pro.es.image.master/11/22/33/1105112347.jpg",
	}
	if len(l.Photos) != len(want) {
		t.Fatalf("expected %d photos, got %d: %v", len(want), len(l.Photos), l.Photos)
	}
	for i := range want {
		if l.Photos[i] != want[i] {
			t.Fatalf("photo %d: expected %s, got %s", i, want[i], l.Photos[i])
		}
	}

	if l.Contact.Phone != "+34943111222" {
		t.Fatalf("expected tel link phone, got %q", l.Contact.Phone)
	}
	if l.Contact.Agency != "Inmobiliaria Kursaal" {
		t.Fatalf("unexpected agency %q", l.Contact.Agency)
	}
	if l.Notes != "Piso de 2 habitaciones en el Centro de Donostia, muy luminoso y con vistas." {
		t.Fatalf("expected og:description notes, got %q", l.Notes)
	}
}

func TestParseIdealistaMinimal(t *testing.T) {
	l := ParseIdealista(loadFixture(t, "idealista_minimal.html"), "", fixedNow)

	if l.URL != "" {
		t.Fatalf("expected empty URL, got %q", l.URL)
	}
	if l.Price != 325000 {
		t.Fatalf("expected 325000, got %d", l.Price)
	}
	// an unqualified surface counts as built
	if l.BuiltSquareMeters != 75 || l.SquareMeters != 75 {
		t.Fatalf("expected built 75, got %d", l.BuiltSquareMeters)
	}
	if l.PricePerArea != 4333 {
		t.Fatalf("expected 4333, got %d", l.PricePerArea)
	}
	if l.Rooms != 3 {
		t.Fatalf("expected 3 rooms, got %d", l.Rooms)
	}
	if l.NeedsRenovation != models.RenovationTotal {
		t.Fatalf("total renovation must win over partial, got %q", l.NeedsRenovation)
	}
	if l.Elevator {
		t.Fatal("sin ascensor must not count as elevator")
	}
	if l.Contact.Phone != "600123456" {
		t.Fatalf("expected phone from container, got %q", l.Contact.Phone)
	}
	if l.Latitude != nil || l.Longitude != nil {
		t.Fatal("expected no coordinates")
	}
	if len(l.Photos) != 0 {
		t.Fatalf("expected no photos, got %v", l.Photos)
	}
}

func TestIdealistaPhotoHelpers(t *testing.T) {
	in := "https://img3.idealista.com/blur/WEB_LISTING/0/id.pro.es.image.master/S/1105112345.jpg"
	got := IdealistaPhotoRewrite(in)
	want := "https://img3.idealista.com/blur/WEB_DETAIL/0/id.pro.es.image.master/L/1105112345.jpg"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if IdealistaPhotoKey(got) != IdealistaPhotoKey(in) {
		t.Fatal("rewrite must not change the photo key")
	}
}

func TestParseIdealistaScriptPhone(t *testing.T) {
	html := `<html><body><span class="info-data-price">300.000 €</span>` +
		`<script>var config = {"phone":"0034943111222"};</script></body></html>`
	l := ParseIdealista(html, "", fixedNow)
	if l.Contact.Phone != "0034943111222" {
		t.Fatalf("expected phone from inline script, got %q", l.Contact.Phone)
	}
}

func TestParseIdealistaIgnoresFeaturesOutsideContainer(t *testing.T) {
	html := `<html><body><span class="info-data-price">300.000 €</span>` +
		`<div class="other"><span>90 m²</span><span>3 hab.</span></div></body></html>`
	l := ParseIdealista(html, "", fixedNow)
	if l.BuiltSquareMeters != 0 || l.Rooms != 0 {
		t.Fatalf("expected no features outside the feature containers, got built=%d rooms=%d", l.BuiltSquareMeters, l.Rooms)
	}
}
