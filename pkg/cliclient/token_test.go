package cliclient

import "testing"

func TestNormalizeKeyTrimsAndLowercases(t *testing.T) {
	cases := map[string]string{
		"https://Example.com/":   "https://example.com",
		"  https://a.b.c  ":      "https://a.b.c",
		"http://localhost:3000":  "http://localhost:3000",
		"http://localhost:3000/": "http://localhost:3000",
	}
	for in, want := range cases {
		if got := normalizeKey(in); got != want {
			t.Errorf("normalizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeKeyIsIdempotent(t *testing.T) {
	once := normalizeKey("HTTPS://Host.example/")
	twice := normalizeKey(once)
	if once != twice {
		t.Fatalf("expected idempotent normalization, got %q then %q", once, twice)
	}
}
