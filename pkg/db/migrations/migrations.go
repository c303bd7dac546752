// Package migrations registers every schema change against the shared
// bun/migrate registry.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
