package catalog

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase", "Masala Dosa", "masala dosa"},
		{"diacritics", "Café Latte", "cafe latte"},
		{"punctuation", "Café   Latte!", "cafe latte"},
		{"mixed separators", "idli-sambar / vada", "idli sambar vada"},
		{"digits survive", "Thali No. 2", "thali no 2"},
		{"leading and trailing space", "  paneer tikka  ", "paneer tikka"},
		{"only garbage", "!!! ???", ""},
		{"empty", "", ""},
		{"no stemming", "samosas", "samosas"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"Café Latte!", "  Pizza -- Slice  ", "veg thali", "Žlutý kůň"}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNormalizeEquivalentSpellings(t *testing.T) {
	if Normalize("Café Latte!") != Normalize("cafe   latte") {
		t.Error("expected 'Café Latte!' and 'cafe   latte' to normalize to the same key")
	}
	if Normalize("item") == Normalize("items") {
		t.Error("normalization must not conflate singular and plural")
	}
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"chicken curry", "Chicken Curry"},
		{"veg  thali", "Veg Thali"},
		{"DOSA", "DOSA"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := TitleCase(tt.input); got != tt.want {
			t.Errorf("TitleCase(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
