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

		tables := []interface{}{
			(*models.Actor)(nil),
			(*models.Run)(nil),
			(*models.Dataset)(nil),
			(*models.KeyValueStore)(nil),
			(*models.RequestQueue)(nil),
			(*models.Request)(nil),
		}
		for _, model := range tables {
			if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return err
			}
		}

		// Requests are read FIFO-order filtered to the pending set; this
		// partial index keeps that scan off the handled majority of rows
		// once a queue has been running a while.
		_, err := db.NewRaw(`
			CREATE INDEX IF NOT EXISTS requests_queue_pending_order_idx
			ON requests (queue_id, order_no)
			WHERE handled_at IS NULL
		`).Exec(ctx)
		return err
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Print(" [down migration] ")

		if _, err := db.NewRaw("DROP INDEX IF EXISTS requests_queue_pending_order_idx").Exec(ctx); err != nil {
			return err
		}

		tables := []interface{}{
			(*models.Request)(nil),
			(*models.RequestQueue)(nil),
			(*models.KeyValueStore)(nil),
			(*models.Dataset)(nil),
			(*models.Run)(nil),
			(*models.Actor)(nil),
		}
		for _, model := range tables {
			if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}
