package extract

import "testing"

func TestParseLocaleNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"450.000 €", 450000},
		{"1.234,56", 1234.56},
		{"90 m² construidos", 90},
		{"85,5 m²", 85.5},
		{"1,234", 1.234},
		{"precio: 1.250.000€", 1250000},
		{"sin número", 0},
		{"", 0},
		{"...", 0},
		{",5", 0.5},
	}
	for _, c := range cases {
		if got := ParseLocaleNumber(c.in); got != c.want {
			t.Errorf("ParseLocaleNumber(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseLocaleIntTruncates(t *testing.T) {
	if got := ParseLocaleInt("85,9 m²"); got != 85 {
		t.Fatalf("expected 85, got %d", got)
	}
}

func TestLeadingInt(t *testing.T) {
	cases := map[string]int{
		"3 habitaciones": 3,
		"  12":           12,
		"-4 x":           -4,
		"hab 3":          0,
		"":               0,
		"2,5":            2,
	}
	for in, want := range cases {
		if got := LeadingInt(in); got != want {
			t.Errorf("LeadingInt(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestRoundHalfUp(t *testing.T) {
	if Round(2.5) != 3 || Round(2.49) != 2 || Round(5000) != 5000 {
		t.Fatalf("unexpected rounding: %d %d %d", Round(2.5), Round(2.49), Round(5000))
	}
}

func TestFirstShortCircuits(t *testing.T) {
	calls := 0
	got := First(
		func() string { calls++; return "" },
		func() string { calls++; return "b" },
		func() string { calls++; return "c" },
	)
	if got != "b" {
		t.Fatalf("expected b, got %q", got)
	}
	if calls != 2 {
		t.Fatalf("expected later extractors to be skipped, got %d calls", calls)
	}
	if First[int]() != 0 {
		t.Fatalf("expected zero value for empty chain")
	}
}

func TestCollapseSpaces(t *testing.T) {
	if got := CollapseSpaces("  Piso \n\t en   Gros  "); got != "Piso en Gros" {
		t.Fatalf("unexpected %q", got)
	}
}
