package database

import (
	"context"
	"fmt"
)

// schema holds the tables this service owns. Statements are idempotent.
var schema = []string{
	`CREATE SCHEMA IF NOT EXISTS ibdash`,
	`CREATE TABLE IF NOT EXISTS ibdash.high_water_mark (
		account_id  TEXT PRIMARY KEY,
		value       DOUBLE PRECISION NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS ibdash.trade_log (
		id          BIGSERIAL PRIMARY KEY,
		logged_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		symbol      TEXT NOT NULL,
		action      TEXT NOT NULL,
		order_type  TEXT NOT NULL,
		size        DOUBLE PRECISION NOT NULL,
		status      TEXT NOT NULL,
		payload     JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trade_log_logged_at ON ibdash.trade_log (logged_at DESC)`,
}

// Migrate creates the service tables if they do not exist
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
