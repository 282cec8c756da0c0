package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	if got := SanitizeFileName(`  Deep: Rest/Part "2"? `); got != "Deep- Rest-Part 2" {
		t.Fatalf("SanitizeFileName = %q", got)
	}
	if got := SanitizeFileName("   "); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}

func TestSlug(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Deep Rest", "deep-rest"},
		{"  Rêverie / Océan  ", "reverie-ocean"},
		{"Session #7: Return!", "session-7-return"},
		{"???", "session"},
	}
	for _, tc := range cases {
		if got := Slug(tc.in); got != tc.want {
			t.Fatalf("Slug(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeTitle(t *testing.T) {
	// "e" + combining acute composes to a single rune under NFC.
	got := NormalizeTitle("  Into\tthe   Re\u0301verie\x07 \n")
	if got != "Into the R\u00e9verie" {
		t.Fatalf("NormalizeTitle = %q", got)
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("deep_rest-return"); got != "Deep Rest Return" {
		t.Fatalf("DisplayName = %q", got)
	}
	if got := DisplayName("__"); got != "" {
		t.Fatalf("expected empty display name, got %q", got)
	}
}
