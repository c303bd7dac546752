package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any signature, expiry, or shape failure.
var ErrInvalidToken = errors.New("auth: invalid token")

// claims is the on-wire JWT payload for both user-session tokens and
// run-scoped tokens; RunID is empty for the former.
type claims struct {
	jwt.RegisteredClaims
	Login string `json:"login,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	RunID string `json:"run_id,omitempty"`
}

// JWTAuthenticator signs and verifies HS256 tokens against a shared secret.
type JWTAuthenticator struct {
	secret []byte
	issuer string
}

func NewJWTAuthenticator(secret, issuer string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret), issuer: issuer}
}

// SignSession mints a user-session token for p, valid for ttl.
func (a *JWTAuthenticator) SignSession(p Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Login: p.Login,
		Name:  p.Name,
		Email: p.Email,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(a.secret)
}

// SignRunToken mints an ephemeral token scoping the bearer to runID only,
// for injection into a container so it can call back into the storage API
// without holding the issuing user's broader credentials.
func (a *JWTAuthenticator) SignRunToken(runID, actorID string, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		RunID: runID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(a.secret)
}

// Authenticate verifies signature and expiry, then resolves a Principal.
func (a *JWTAuthenticator) Authenticate(_ context.Context, token string) (*Principal, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method %v", ErrInvalidToken, t.Method)
		}
		return a.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	return &Principal{
		ID:    c.Subject,
		Login: c.Login,
		Name:  c.Name,
		Email: c.Email,
		RunID: c.RunID,
	}, nil
}

var _ Authenticator = (*JWTAuthenticator)(nil)
