package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS user_profiles (
		telegram_user_id  TEXT PRIMARY KEY,
		status            TEXT NOT NULL,
		group_id          TEXT,
		requested_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		status_updated_at TIMESTAMPTZ,
		group_joined_at   TIMESTAMPTZ,
		group_left_at     TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_user_profiles_status_created
		ON user_profiles (status, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS groups (
		id              TEXT PRIMARY KEY,
		group_name      TEXT NOT NULL,
		owner_id        TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		member_user_ids TEXT[] NOT NULL DEFAULT '{}'
	)`,
	`CREATE TABLE IF NOT EXISTS receipts (
		id                  TEXT PRIMARY KEY,
		store_name          TEXT NOT NULL DEFAULT '',
		date                DATE NOT NULL,
		total_price         NUMERIC(14, 2),
		currency_code       TEXT,
		items               JSONB NOT NULL DEFAULT '[]'::jsonb,
		telegram_user_id    TEXT NOT NULL,
		group_id            TEXT,
		upload_timestamp    TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		is_verified_by_user BOOLEAN NOT NULL DEFAULT false,
		edited_by           TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_receipts_user_recent
		ON receipts (telegram_user_id, date DESC, upload_timestamp DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_receipts_group_recent
		ON receipts (group_id, date DESC, upload_timestamp DESC)`,
}

// Migrate creates the tables and the composite indexes used by the recent-receipts listing.
func Migrate(ctx context.Context, db *pgxpool.Pool, logger *zap.Logger) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}
	logger.Info("Database schema is up to date", zap.Int("statements", len(schema)))
	return nil
}
