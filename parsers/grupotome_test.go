package parsers

import (
	"testing"

	"hogar_scrooper/extract"
	"hogar_scrooper/models"
)

func TestParseGrupoTomeRecoversMalformedPayload(t *testing.T) {
	l := ParseGrupoTome(loadFixture(t, "grupotome_recovery.html"), "", fixedNow)

	if l.Price != 285000 {
		t.Fatalf("payload price must win over markup, got %d", l.Price)
	}
	if l.Title != "Piso en venta en Añorga" {
		t.Fatalf("unexpected title %q", l.Title)
	}
	if l.Zone != "Añorga" || l.Address != "Añorga, Donostia - San Sebastian" {
		t.Fatalf("unexpected location %q / %q", l.Zone, l.Address)
	}
	if l.BuiltSquareMeters != 92 || l.UsableSquareMeters != 80 {
		t.Fatalf("unexpected surfaces built=%d usable=%d", l.BuiltSquareMeters, l.UsableSquareMeters)
	}
	if l.PricePerArea != 3098 {
		t.Fatalf("expected 3098, got %d", l.PricePerArea)
	}
	if l.Rooms != 3 || l.Bathrooms != 1 || l.Floor != "Piso" {
		t.Fatalf("unexpected rooms=%d baths=%d floor=%q", l.Rooms, l.Bathrooms, l.Floor)
	}
	if l.YearBuilt != 1978 || l.Orientation != "Sur" {
		t.Fatalf("unexpected year %d orientation %q", l.YearBuilt, l.Orientation)
	}
	if !l.Terrace || l.Elevator || l.ParkingIncluded {
		t.Fatalf("unexpected flags terrace=%v elevator=%v parking=%v", l.Terrace, l.Elevator, l.ParkingIncluded)
	}
	if l.Latitude == nil || *l.Latitude != 43.2987 || l.Longitude == nil || *l.Longitude != -2.0123 {
		t.Fatalf("unexpected coordinates %v %v", l.Latitude, l.Longitude)
	}
	want := []string{
		"https://fotos15.apinmo.com/2345/28712345/7-1.jpg",
		"https://fotos15.apinmo.com/2345/28712345/7-2.jpg",
		"https://fotos15.apinmo.com/2345/28712345/7-3.jpg",
	}
	if len(l.Photos) != len(want) {
		t.Fatalf("expected %d photos, got %v", len(want), l.Photos)
	}
	for i := range want {
		if l.Photos[i] != want[i] {
			t.Fatalf("photo %d: expected %s, got %s", i, want[i], l.Photos[i])
		}
	}
	c := l.Contact
	if c.Agency != "Grupo Tomé Añorga" || c.Phone != "943214365" || c.Email != "anorga@grupotome.com" {
		t.Fatalf("unexpected contact %+v", c)
	}
	if l.DaysPublished != 5 {
		t.Fatalf("expected 5 days, got %d", l.DaysPublished)
	}
	if l.NeedsRenovation != models.RenovationPartial {
		t.Fatalf("expected partial, got %q", l.NeedsRenovation)
	}
	if l.Notes != "Piso exterior de tres habitaciones a reformar, con vistas despejadas al monte." {
		t.Fatalf("unexpected notes %q", l.Notes)
	}
}

func TestParseGrupoTomeFromMarkup(t *testing.T) {
	l := ParseGrupoTome(loadFixture(t, "grupotome_html.html"), "", fixedNow)

	if l.Price != 315000 {
		t.Fatalf("expected 315000, got %d", l.Price)
	}
	if l.Zone != "Amara" || l.Address != "Amara / Donostia - San Sebastian" {
		t.Fatalf("unexpected location %q / %q", l.Zone, l.Address)
	}
	if l.BuiltSquareMeters != 70 || l.UsableSquareMeters != 62 {
		t.Fatalf("unexpected surfaces built=%d usable=%d", l.BuiltSquareMeters, l.UsableSquareMeters)
	}
	if l.Rooms != 2 || l.Bathrooms != 1 {
		t.Fatalf("unexpected rooms=%d baths=%d", l.Rooms, l.Bathrooms)
	}
	if l.Orientation != "Noroeste" {
		t.Fatalf("expected Noroeste, got %q", l.Orientation)
	}
	if !l.Elevator || !l.Balcony || l.Terrace || !l.ParkingOptional || l.ParkingIncluded {
		t.Fatalf("unexpected quality flags %+v", l)
	}
	if l.NeedsRenovation != models.RenovationTotal {
		t.Fatalf("expected total, got %q", l.NeedsRenovation)
	}
	if l.YearBuilt != 0 {
		t.Fatalf("expected no construction year, got %d", l.YearBuilt)
	}
	want := []string{
		"https://fotos15.apinmo.com/2345/998877/7-1.jpg",
		"https://fotos15.apinmo.com/2345/998877/7-2.jpg",
	}
	if len(l.Photos) != len(want) || l.Photos[0] != want[0] || l.Photos[1] != want[1] {
		t.Fatalf("expected %v without thumbnails, got %v", want, l.Photos)
	}
	if l.Contact.Agency != "Grupo Tomé Amara" || l.Contact.Phone != "943445566" {
		t.Fatalf("unexpected contact %+v", l.Contact)
	}
}

func TestInmovillaListing(t *testing.T) {
	valid := `<script>listados.fichapropiedad = [{"pag":1},{"precioinmo":100000,"zona":"Gros"}];</script>`
	if got := InmovillaListing(valid); extract.Str(got, "zona") != "Gros" {
		t.Fatalf("expected second element, got %v", got)
	}

	trailing := `<script>listados.fichapropiedad = [{"pag":1},{"precioinmo":100000,"zona":"Egia",},];</script>`
	if got := InmovillaListing(trailing); extract.Str(got, "zona") != "Egia" {
		t.Fatalf("expected trailing commas to be tolerated, got %v", got)
	}

	if got := InmovillaListing(`listados.fichapropiedad = [{,}];`); got != nil {
		t.Fatalf("expected nil for an undecodable payload, got %v", got)
	}
	if got := InmovillaListing(""); got != nil {
		t.Fatalf("expected nil without payload, got %v", got)
	}
}

func TestInmovillaPhotosRequiresEveryField(t *testing.T) {
	data := extract.Object{
		"numfotos": float64(2), "fotoletra": float64(7), "srvfotos": float64(15),
		"numagencia": float64(2345), "cod_ofer": float64(1),
	}
	if got := InmovillaPhotos(data); len(got) != 2 || got[1] != "https://fotos15.apinmo.com/2345/1/7-2.jpg" {
		t.Fatalf("unexpected photos %v", got)
	}
	data["srvfotos"] = float64(0)
	if got := InmovillaPhotos(data); got != nil {
		t.Fatalf("expected nil with a zero server, got %v", got)
	}
}

func TestInmovillaPhotosRejectsOversizedGallery(t *testing.T) {
	data := extract.Object{
		"numfotos": float64(50000000), "fotoletra": float64(7), "srvfotos": float64(15),
		"numagencia": float64(2345), "cod_ofer": float64(1),
	}
	if got := InmovillaPhotos(data); got != nil {
		t.Fatalf("expected nil for an implausible photo count, got %d photos", len(got))
	}
	data["numfotos"] = float64(maxInmovillaPhotos)
	if got := InmovillaPhotos(data); len(got) != maxInmovillaPhotos {
		t.Fatalf("expected %d photos at the cap, got %d", maxInmovillaPhotos, len(got))
	}

	html := `<html><body><script>listados.fichapropiedad = [{"pag":1},{"precioinmo":250000,"numfotos":1000000000,` +
		`"fotoletra":7,"srvfotos":15,"numagencia":2345,"cod_ofer":1}];</script>` +
		`<img src="https://fotos15.apinmo.com/2345/1/7-1.jpg"></body></html>`
	l := ParseGrupoTome(html, "", fixedNow)
	if l.Price != 250000 {
		t.Fatalf("expected price from payload, got %d", l.Price)
	}
	if len(l.Photos) != 1 || l.Photos[0] != "https://fotos15.apinmo.com/2345/1/7-1.jpg" {
		t.Fatalf("expected CDN discovery fallback, got %v", l.Photos)
	}
}
