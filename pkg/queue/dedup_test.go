package queue

import "testing"

func TestDeriveUniqueKeyGetNoPayload(t *testing.T) {
	cases := map[string]string{
		"https://Example.com/Path/":  "https://example.com/path",
		"  https://example.com/a  ":  "https://example.com/a",
		"https://example.com/a#frag": "https://example.com/a",
		"https://example.com/":       "https://example.com",
	}
	for in, want := range cases {
		if got := DeriveUniqueKey("GET", in, nil); got != want {
			t.Errorf("DeriveUniqueKey(GET, %q) = %q, want %q", in, got, want)
		}
	}
}

func TestDeriveUniqueKeyWithPayloadIncludesMethodAndHash(t *testing.T) {
	key1 := DeriveUniqueKey("POST", "https://example.com/submit", []byte(`{"a":1}`))
	key2 := DeriveUniqueKey("POST", "https://example.com/submit", []byte(`{"a":2}`))

	if key1 == key2 {
		t.Fatalf("expected different payloads to produce different keys, both were %q", key1)
	}
	if key1[:4] != "POST" {
		t.Fatalf("expected key to start with method, got %q", key1)
	}
}

func TestDeriveUniqueKeyIsDeterministic(t *testing.T) {
	a := DeriveUniqueKey("POST", "https://example.com/x", []byte("same"))
	b := DeriveUniqueKey("POST", "https://example.com/x", []byte("same"))
	if a != b {
		t.Fatalf("expected deterministic key, got %q vs %q", a, b)
	}
}

func TestDeriveUniqueKeyGetWithPayloadUsesHashBranch(t *testing.T) {
	withoutPayload := DeriveUniqueKey("GET", "https://example.com/x", nil)
	withPayload := DeriveUniqueKey("GET", "https://example.com/x", []byte("body"))
	if withoutPayload == withPayload {
		t.Fatalf("expected GET-with-payload to take the hashed branch, not collide with no-payload form")
	}
}
