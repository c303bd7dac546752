package migrations

import (
	"context"
	"fmt"

	"github.com/crawlee-cloud/crawlee-cloud/pkg/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Print(" [up migration] ")

		if _, err := db.NewRaw("CREATE SCHEMA IF NOT EXISTS iam").Exec(ctx); err != nil {
			return err
		}

		_, err := db.NewCreateTable().
			Model((*models.Principal)(nil)).
			IfNotExists().
			Exec(ctx)
		return err
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Print(" [down migration] ")

		if _, err := db.NewDropTable().Model((*models.Principal)(nil)).IfExists().Exec(ctx); err != nil {
			return err
		}

		_, err := db.NewRaw("DROP SCHEMA IF EXISTS iam").Exec(ctx)
		return err
	})
}
