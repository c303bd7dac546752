package auth

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"

	"github.com/crawlee-cloud/crawlee-cloud/pkg/db/models"
	"github.com/uptrace/bun"
)

// APIKeyPrefix is the wire-visible marker distinguishing a long-lived API
// key from a short-lived session token.
const APIKeyPrefix = "cp_"

// APIKeyAuthenticator resolves "cp_"-prefixed API keys to a Principal by
// hash lookup. It never sees or stores the key itself, only its SHA-256
// digest.
type APIKeyAuthenticator struct {
	db *bun.DB
}

func NewAPIKeyAuthenticator(db *bun.DB) *APIKeyAuthenticator {
	return &APIKeyAuthenticator{db: db}
}

func hashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func (a *APIKeyAuthenticator) Authenticate(ctx context.Context, token string) (*Principal, error) {
	row := new(models.APIKey)
	err := a.db.NewSelect().Model(row).
		Where("hash = ? AND revoked_at IS NULL", hashAPIKey(token)).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	principal := new(models.Principal)
	if err := a.db.NewSelect().Model(principal).Where("id = ?", row.PrincipalID).Scan(ctx); err != nil {
		return nil, ErrInvalidToken
	}

	return &Principal{
		ID:    principal.ID,
		Login: principal.Login,
		Name:  principal.Name,
		Email: principal.Email,
	}, nil
}

var _ Authenticator = (*APIKeyAuthenticator)(nil)

// CompositeAuthenticator dispatches a bearer token to the JWT verifier or
// the API-key store based on the APIKeyPrefix marker, so the HTTP layer
// can treat "either shape resolves to a Principal" as a single call.
type CompositeAuthenticator struct {
	sessions *JWTAuthenticator
	apiKeys  *APIKeyAuthenticator
}

func NewCompositeAuthenticator(sessions *JWTAuthenticator, apiKeys *APIKeyAuthenticator) *CompositeAuthenticator {
	return &CompositeAuthenticator{sessions: sessions, apiKeys: apiKeys}
}

func (a *CompositeAuthenticator) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if len(token) > len(APIKeyPrefix) && token[:len(APIKeyPrefix)] == APIKeyPrefix {
		return a.apiKeys.Authenticate(ctx, token)
	}
	return a.sessions.Authenticate(ctx, token)
}

var _ Authenticator = (*CompositeAuthenticator)(nil)
