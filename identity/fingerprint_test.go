package identity

import (
	"testing"

	"hogar_scrooper/models"
)

func TestNormalizeAddress(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Calle de Prim, 12 - 3º Izda.", "c prim 12 3 izq"},
		{"  AVENIDA   de la Zurriola 5 ", "av zurriola 5"},
		{"Paseo de Francia", "p francia"},
		{"Añorga, Donostia - San Sebastián", "anorga donostia san sebastian"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeAddress(c.in); got != c.want {
			t.Fatalf("NormalizeAddress(%q): expected %q, got %q", c.in, c.want, got)
		}
	}
}

func TestFingerprintMatchesAcrossSpelling(t *testing.T) {
	a := &models.Listing{Address: "Calle de Prim 12", Rooms: 2, Bathrooms: 1, SquareMeters: 90, URL: "https://a/1"}
	b := &models.Listing{Address: "c/ Prim, 12", Rooms: 2, Bathrooms: 1, SquareMeters: 90, URL: "https://b/2"}
	if Fingerprint(a) != Fingerprint(b) {
		t.Fatal("expected same fingerprint for the same flat on two portals")
	}
	b.Rooms = 3
	if Fingerprint(a) == Fingerprint(b) {
		t.Fatal("expected different fingerprint when rooms differ")
	}
}

func TestFingerprintFallsBackToURL(t *testing.T) {
	a := &models.Listing{URL: "https://www.idealista.com/inmueble/1/"}
	b := &models.Listing{URL: "https://www.idealista.com/inmueble/2/"}
	if Fingerprint(a) == Fingerprint(b) {
		t.Fatal("listings without address must not share a fingerprint")
	}
	if len(Fingerprint(a)) != 32 {
		t.Fatalf("expected 32 hex chars, got %d", len(Fingerprint(a)))
	}
}
