package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DisplayClaims is a CLI-friendly view of a JWT payload parsed without
// verification. It exists for the crawlee-cli token-cache UX (showing the
// logged-in principal, checking rough expiry) where the CLI holds no
// signing key and cannot verify the token itself — the server already did
// that when it issued it.
type DisplayClaims struct {
	ID    string
	Login string
	Name  string
	Email string
	Exp   int64
}

// ParseUnverified extracts display claims from a JWT without checking its
// signature. Never use this for authorization decisions.
func ParseUnverified(tokenStr string) (*DisplayClaims, error) {
	var mc jwt.MapClaims
	parser := new(jwt.Parser)
	if _, _, err := parser.ParseUnverified(tokenStr, &mc); err != nil {
		return nil, err
	}

	dc := &DisplayClaims{}
	if sub, ok := mc["sub"].(string); ok {
		dc.ID = sub
	}
	if login, ok := mc["login"].(string); ok {
		dc.Login = login
	}
	if name, ok := mc["name"].(string); ok {
		dc.Name = name
	}
	if email, ok := mc["email"].(string); ok {
		dc.Email = email
	}
	if exp, ok := mc["exp"]; ok {
		switch v := exp.(type) {
		case float64:
			dc.Exp = int64(v)
		case int64:
			dc.Exp = v
		case string:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				dc.Exp = n
			}
		}
	}
	return dc, nil
}

// IsExpired reports whether token is expired or within the skew window of
// expiring, parsing it without verification.
func IsExpired(token string, skew time.Duration) (bool, error) {
	if token == "" {
		return true, nil
	}
	dc, err := ParseUnverified(token)
	if err != nil {
		return true, err
	}
	if dc.Exp == 0 {
		return false, nil
	}
	expiresAt := time.Unix(dc.Exp, 0).Add(-skew)
	return time.Now().After(expiresAt), nil
}
