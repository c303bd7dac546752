package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Actor is a named deployable scraping-job definition.
type Actor struct {
	bun.BaseModel `bun:"table:actors,alias:a"`

	ID          string `bun:",pk"`
	OwnerID     string `bun:",notnull,unique:actors_owner_name"`
	Name        string `bun:",notnull,unique:actors_owner_name"`
	Title       string `bun:",nullzero"`
	Description string `bun:",nullzero"`

	DefaultImage       string `bun:",notnull"`
	DefaultMemoryMbytes int   `bun:",notnull,default:1024"`
	DefaultTimeoutSecs  int   `bun:",notnull,default:300"`

	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}
