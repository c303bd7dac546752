package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/crawlee-cloud/crawlee-cloud/pkg/auth"
)

func TestSignAndAuthenticateSession(t *testing.T) {
	a := auth.NewJWTAuthenticator("test-secret", "crawlee-cloud")

	token, err := a.SignSession(auth.Principal{ID: "user-1", Login: "jdoe", Email: "j@example.com"}, time.Hour)
	if err != nil {
		t.Fatalf("sign session: %v", err)
	}

	p, err := a.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if p.ID != "user-1" || p.Login != "jdoe" || p.IsRunScoped() {
		t.Fatalf("unexpected principal: %+v", p)
	}
}

func TestSignRunToken(t *testing.T) {
	a := auth.NewJWTAuthenticator("test-secret", "crawlee-cloud")

	token, err := a.SignRunToken("run-123", "actor-456", 10*time.Minute)
	if err != nil {
		t.Fatalf("sign run token: %v", err)
	}

	p, err := a.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if p.RunID != "run-123" || p.ID != "actor-456" || !p.IsRunScoped() {
		t.Fatalf("unexpected principal: %+v", p)
	}
}

func TestAuthenticateRejectsWrongSecret(t *testing.T) {
	issuer := auth.NewJWTAuthenticator("correct-secret", "crawlee-cloud")
	verifier := auth.NewJWTAuthenticator("wrong-secret", "crawlee-cloud")

	token, err := issuer.SignSession(auth.Principal{ID: "user-1"}, time.Hour)
	if err != nil {
		t.Fatalf("sign session: %v", err)
	}

	if _, err := verifier.Authenticate(context.Background(), token); err != auth.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestAuthenticateRejectsExpired(t *testing.T) {
	a := auth.NewJWTAuthenticator("test-secret", "crawlee-cloud")

	token, err := a.SignSession(auth.Principal{ID: "user-1"}, -time.Minute)
	if err != nil {
		t.Fatalf("sign session: %v", err)
	}

	if _, err := a.Authenticate(context.Background(), token); err != auth.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}
