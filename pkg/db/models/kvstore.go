package models

import (
	"time"

	"github.com/uptrace/bun"
)

// KeyValueStore is a map from key to (blob, content-type).
type KeyValueStore struct {
	bun.BaseModel `bun:"table:key_value_stores,alias:kvs"`

	ID   string  `bun:",pk"`
	Name *string `bun:",unique,nullzero"`

	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}
