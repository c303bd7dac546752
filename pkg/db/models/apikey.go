package models

import (
	"time"

	"github.com/uptrace/bun"
)

// APIKey is a long-lived credential recognized by its "cp_" wire prefix.
// Only the SHA-256 hash of the key is stored; this table exists only so
// the core can verify a presented key without holding a second authority.
type APIKey struct {
	bun.BaseModel `bun:"table:iam.api_keys,alias:ak"`

	Hash        string `bun:",pk"`
	PrincipalID string `bun:",notnull"`

	CreatedAt time.Time  `bun:",nullzero,notnull,default:current_timestamp"`
	RevokedAt *time.Time `bun:",nullzero"`
}
