package routes

import (
	"context"
	"testing"

	"github.com/crawlee-cloud/crawlee-cloud/pkg/auth"
)

func TestRequirePrincipalErrorsWhenAbsent(t *testing.T) {
	_, err := requirePrincipal(context.Background())
	if err != errUnauthenticated {
		t.Fatalf("expected errUnauthenticated, got %v", err)
	}
}

func TestRequirePrincipalReturnsAttachedPrincipal(t *testing.T) {
	want := &auth.Principal{ID: "p1", Login: "alice"}
	ctx := context.WithValue(context.Background(), PrincipalKey, want)

	got, err := requirePrincipal(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Fatalf("expected the same Principal pointer back, got %+v", got)
	}
}

func TestResolveStorageIDPassesThroughExplicitID(t *testing.T) {
	principal := &auth.Principal{ID: "p1"}
	resolveCalled := false

	got, err := resolveStorageID(context.Background(), "ds_explicit123", principal, func(context.Context, string) (string, error) {
		resolveCalled = true
		return "should-not-be-used", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ds_explicit123" {
		t.Fatalf("expected explicit id passed through, got %q", got)
	}
	if resolveCalled {
		t.Fatalf("resolveDefault should not be called for an explicit id")
	}
}

func TestResolveStorageIDResolvesDefaultAlias(t *testing.T) {
	principal := &auth.Principal{ID: "p1"}

	for _, raw := range []string{"default", ""} {
		got, err := resolveStorageID(context.Background(), raw, principal, func(_ context.Context, principalID string) (string, error) {
			if principalID != "p1" {
				t.Fatalf("expected principal id p1, got %q", principalID)
			}
			return "ds_concrete456", nil
		})
		if err != nil {
			t.Fatalf("unexpected error for raw %q: %v", raw, err)
		}
		if got != "ds_concrete456" {
			t.Fatalf("expected resolved concrete id for raw %q, got %q", raw, got)
		}
	}
}
