package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Dataset is an ordered append-only sequence of JSON items. Name is nullable: anonymous datasets are addressed by ID only.
type Dataset struct {
	bun.BaseModel `bun:"table:datasets,alias:ds"`

	ID        string  `bun:",pk"`
	Name      *string `bun:",unique,nullzero"`
	ItemCount int64   `bun:",notnull,default:0"`

	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}
