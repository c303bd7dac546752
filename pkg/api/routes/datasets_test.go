package routes

import (
	"encoding/json"
	"testing"
)

func TestNormalizeItemsSingleObject(t *testing.T) {
	items, err := normalizeItems([]byte(`  {"a":1}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if string(items[0]) != `{"a":1}` {
		t.Errorf("unexpected item: %s", items[0])
	}
}

func TestNormalizeItemsArray(t *testing.T) {
	items, err := normalizeItems([]byte(`[{"a":1}, {"a":2}]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
}

func TestNormalizeItemsArrayWithLeadingWhitespace(t *testing.T) {
	items, err := normalizeItems([]byte("\n\t [1, 2, 3]"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
}

func TestNormalizeItemsInvalidArrayPropagatesError(t *testing.T) {
	if _, err := normalizeItems([]byte(`[{"a":1}`)); err == nil {
		t.Fatal("expected an error for malformed array body")
	}
}

func TestTrimLeadingSpace(t *testing.T) {
	cases := map[string]string{
		"  {}":    "{}",
		"\n\t[]":  "[]",
		"no-lead": "no-lead",
		"":        "",
	}
	for in, want := range cases {
		if got := string(trimLeadingSpace([]byte(in))); got != want {
			t.Errorf("trimLeadingSpace(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeItemsPreservesRawMessageOrdering(t *testing.T) {
	items, err := normalizeItems([]byte(`[3, 1, 2]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var vals []int
	for _, item := range items {
		var v int
		if err := json.Unmarshal(item, &v); err != nil {
			t.Fatalf("unmarshal item: %v", err)
		}
		vals = append(vals, v)
	}
	want := []int{3, 1, 2}
	for i, v := range want {
		if vals[i] != v {
			t.Errorf("index %d: got %d, want %d", i, vals[i], v)
		}
	}
}
