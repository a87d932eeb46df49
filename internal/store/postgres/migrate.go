package postgres

import (
	"context"
	"fmt"
	"time"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		username   TEXT PRIMARY KEY,
		password   TEXT NOT NULL,
		role       TEXT NOT NULL,
		active     BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		id          BIGSERIAL PRIMARY KEY,
		username    TEXT NOT NULL REFERENCES users(username) ON DELETE CASCADE,
		name        VARCHAR(100) NOT NULL DEFAULT '',
		location    VARCHAR(255) NOT NULL DEFAULT '',
		phone       VARCHAR(20) NOT NULL DEFAULT '',
		payment     BIGINT NOT NULL DEFAULT 0,
		added_time  TIMESTAMPTZ NOT NULL DEFAULT now(),
		description TEXT NOT NULL DEFAULT '',
		ready       BOOLEAN NOT NULL DEFAULT true,
		CONSTRAINT profiles_username_key UNIQUE (username)
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id            BIGSERIAL PRIMARY KEY,
		profile_id    BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		name          VARCHAR(150) NOT NULL,
		price         NUMERIC(10,2) NOT NULL,
		selling_price NUMERIC(10,2) NOT NULL,
		stock         NUMERIC(15,3) NOT NULL DEFAULT 0,
		qrcode        VARCHAR(100)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS products_profile_name_key ON products (profile_id, lower(name))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS products_profile_qrcode_key ON products (profile_id, qrcode) WHERE qrcode IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS receipts (
		id          BIGSERIAL PRIMARY KEY,
		profile_id  BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		username    TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		description TEXT NOT NULL DEFAULT '',
		ready       BOOLEAN NOT NULL DEFAULT false
	)`,
	`CREATE INDEX IF NOT EXISTS receipts_profile_created_idx ON receipts (profile_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS receipt_items (
		id           BIGSERIAL PRIMARY KEY,
		receipt_id   BIGINT NOT NULL REFERENCES receipts(id) ON DELETE CASCADE,
		product_name VARCHAR(150) NOT NULL,
		price        NUMERIC(10,2) NOT NULL,
		quantity     NUMERIC(15,3) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS receipt_items_receipt_idx ON receipt_items (receipt_id)`,
	`CREATE TABLE IF NOT EXISTS returned_products (
		id           BIGSERIAL PRIMARY KEY,
		profile_id   BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		username     TEXT NOT NULL DEFAULT '',
		product_id   BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		product_name VARCHAR(150) NOT NULL,
		quantity     NUMERIC(15,3) NOT NULL,
		reason       TEXT NOT NULL DEFAULT '',
		date         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id             TEXT PRIMARY KEY,
		profile_id     BIGINT NOT NULL DEFAULT 0,
		actor_username TEXT NOT NULL,
		actor_role     TEXT NOT NULL,
		action         TEXT NOT NULL,
		entity_type    TEXT NOT NULL,
		entity_id      TEXT NOT NULL,
		detail         TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS audit_logs_profile_created_idx ON audit_logs (profile_id, created_at DESC)`,
}

// Migrate creates the schema if it does not exist. Each statement is retried
// while the database is still starting up.
func (s *Store) Migrate(ctx context.Context, retries int) error {
	for _, stmt := range schema {
		var err error
		for attempt := 0; attempt <= retries; attempt++ {
			if _, err = s.db.ExecContext(ctx, stmt); err == nil {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
		}
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
