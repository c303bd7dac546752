package ids_test

import (
	"testing"

	"github.com/crawlee-cloud/crawlee-cloud/pkg/ids"
)

func TestNewLengthAndAlphabet(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := ids.New()
		if len(id) != ids.Length {
			t.Fatalf("expected length %d, got %d (%q)", ids.Length, len(id), id)
		}
		for _, r := range id {
			if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
				t.Fatalf("id %q contains non-alphanumeric rune %q", id, r)
			}
		}
		if seen[id] {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = true
	}
}

func TestIsDefaultAlias(t *testing.T) {
	cases := map[string]bool{
		"":          true,
		"default":   true,
		"my-store":  false,
		"Default":   false,
	}
	for in, want := range cases {
		if got := ids.IsDefaultAlias(in); got != want {
			t.Errorf("IsDefaultAlias(%q) = %v, want %v", in, got, want)
		}
	}
}
