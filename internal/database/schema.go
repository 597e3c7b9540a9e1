package database

import (
	"context"
	"fmt"
)

// schema is applied on startup. Statements are idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id                      TEXT PRIMARY KEY,
		email                   TEXT NOT NULL UNIQUE,
		password_hash           TEXT NOT NULL DEFAULT '',
		name                    TEXT NOT NULL DEFAULT '',
		google_id               TEXT NOT NULL DEFAULT '',
		role                    TEXT NOT NULL DEFAULT 'user',
		plan                    TEXT NOT NULL DEFAULT 'free',
		plan_price              INTEGER NOT NULL DEFAULT 0,
		plan_activated_at       TIMESTAMPTZ,
		credits_balance         INTEGER NOT NULL DEFAULT 0 CHECK (credits_balance >= 0),
		credits_total_purchased INTEGER NOT NULL DEFAULT 0,
		credits_total_used      INTEGER NOT NULL DEFAULT 0,
		images_generated        INTEGER NOT NULL DEFAULT 0,
		videos_generated        INTEGER NOT NULL DEFAULT 0,
		scenes_generated        INTEGER NOT NULL DEFAULT 0,
		terms_status            BOOLEAN NOT NULL DEFAULT FALSE,
		terms_accepted_at       TIMESTAMPTZ,
		terms_version           TEXT NOT NULL DEFAULT '',
		is_verified             BOOLEAN NOT NULL DEFAULT FALSE,
		is_active               BOOLEAN NOT NULL DEFAULT TRUE,
		is_blocked              BOOLEAN NOT NULL DEFAULT FALSE,
		last_login_at           TIMESTAMPTZ,
		created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at              TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS generations (
		seq         BIGSERIAL PRIMARY KEY,
		id          TEXT NOT NULL UNIQUE,
		user_id     TEXT NOT NULL REFERENCES users(id),
		kind        TEXT NOT NULL,
		mode        TEXT NOT NULL,
		source_urls TEXT[] NOT NULL DEFAULT '{}',
		result_url  TEXT NOT NULL DEFAULT '',
		prompt      TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_generations_user_kind ON generations (user_id, kind, seq DESC)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id),
		plan_name  TEXT NOT NULL,
		amount     INTEGER NOT NULL,
		currency   TEXT NOT NULL DEFAULT 'INR',
		payment_id TEXT NOT NULL DEFAULT '',
		order_id   TEXT NOT NULL,
		status     TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_user ON payments (user_id, created_at DESC)`,
}

// EnsureSchema creates the tables the stores need
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	db.log.Debug().Int("statements", len(schema)).Msg("schema ensured")
	return nil
}
