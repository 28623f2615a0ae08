package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS deliveries (
		id                  TEXT PRIMARY KEY,
		order_id            BIGINT NOT NULL UNIQUE,
		status              TEXT NOT NULL,
		validation_code     TEXT NOT NULL,
		code_epoch          INT NOT NULL DEFAULT 1,
		code_consumed_at    TIMESTAMPTZ,
		destination_lat     DOUBLE PRECISION,
		destination_lng     DOUBLE PRECISION,
		gps_active          BOOLEAN NOT NULL DEFAULT FALSE,
		tracking_epoch      INT NOT NULL DEFAULT 0,
		tracking_started_at TIMESTAMPTZ,
		tracking_ends_at    TIMESTAMPTZ,
		created_at          TIMESTAMPTZ NOT NULL,
		collecting_at       TIMESTAMPTZ,
		picked_up_at        TIMESTAMPTZ,
		delivered_at        TIMESTAMPTZ,
		version             BIGINT NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS delivery_collections (
		delivery_id  TEXT NOT NULL REFERENCES deliveries(id) ON DELETE CASCADE,
		position     INT NOT NULL,
		product_id   TEXT NOT NULL,
		shop_id      TEXT NOT NULL,
		status       TEXT NOT NULL,
		collected_at TIMESTAMPTZ,
		PRIMARY KEY (delivery_id, position),
		UNIQUE (delivery_id, product_id, shop_id)
	)`,
	`CREATE INDEX IF NOT EXISTS deliveries_status_idx ON deliveries (status)`,
}

// Migrate creates the delivery tables if they do not exist.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	return nil
}
