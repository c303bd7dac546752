package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Principal is the thin identity directory Actor/Run rows reference by
// id. Issuance, password/OAuth handling, and API-key management are the
// external user-management collaborator and live outside
// this module; this row exists so API keys resolve to a principal. Owner
// columns such as Actor.OwnerID hold its id without a foreign key.
type Principal struct {
	bun.BaseModel `bun:"table:iam.principals,alias:pr"`

	ID    string `bun:",pk"`
	Login string `bun:",unique,notnull"`
	Name  string `bun:",nullzero"`
	Email string `bun:",nullzero"`

	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}
