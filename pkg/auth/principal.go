// Package auth provides the opaque Principal the core consumes, and the
// token machinery (golang-jwt/jwt/v5) that resolves a bearer token into
// one, including signature verification and run-scoped tokens.
package auth

import "context"

// Principal is the caller identity every authorization check operates
// against. The core never inspects how a Principal was established — it
// only asks an Authenticator to resolve one from a request, then checks
// whether that Principal may act on a given Actor/Run/resource.
type Principal struct {
	ID    string
	Login string
	Name  string
	Email string

	// RunID is set only for run-scoped tokens minted for a container. The
	// update-run route accepts only such a Principal, and only for its own
	// run; other routes do not check RunID.
	RunID string
}

// IsRunScoped reports whether this Principal is an ephemeral per-run
// identity rather than a user/API-key principal.
func (p Principal) IsRunScoped() bool {
	return p.RunID != ""
}

// Authenticator resolves an opaque bearer token into a Principal. The core
// depends only on this interface; cmd/server wires a CompositeAuthenticator
// that tries JWTs and API keys.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Principal, error)
}
