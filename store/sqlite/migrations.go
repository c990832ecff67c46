package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Escrow store (SQLite).
var Migrations = migrate.NewGroup("escrow")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_escrow_providers",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS escrow_providers (
    address     TEXT PRIMARY KEY,
    whitelisted INTEGER NOT NULL DEFAULT 0,
    registered  INTEGER NOT NULL DEFAULT 0,
    url         TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_escrow_providers_whitelisted ON escrow_providers (whitelisted);
CREATE INDEX IF NOT EXISTS idx_escrow_providers_registered ON escrow_providers (registered);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS escrow_providers`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_escrow_token_whitelist",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS escrow_token_whitelist (
    asset      TEXT PRIMARY KEY,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS escrow_token_whitelist`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_escrow_subscriptions",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS escrow_subscriptions (
    hash       TEXT PRIMARY KEY,
    provider   TEXT NOT NULL DEFAULT '',
    consumer   TEXT NOT NULL DEFAULT '',
    asset      TEXT NOT NULL DEFAULT '',
    balance    TEXT NOT NULL DEFAULT '0',
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_escrow_subs_provider ON escrow_subscriptions (provider);
CREATE INDEX IF NOT EXISTS idx_escrow_subs_consumer ON escrow_subscriptions (consumer);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS escrow_subscriptions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_escrow_receipts",
			Version: "20250101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS escrow_receipts (
    id         TEXT PRIMARY KEY,
    kind       TEXT NOT NULL DEFAULT '',
    provider   TEXT NOT NULL DEFAULT '',
    hash       TEXT NOT NULL DEFAULT '',
    consumer   TEXT NOT NULL DEFAULT '',
    asset      TEXT NOT NULL DEFAULT '',
    amount     TEXT NOT NULL DEFAULT '0',
    url        TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_escrow_receipts_hash ON escrow_receipts (hash);
CREATE INDEX IF NOT EXISTS idx_escrow_receipts_provider ON escrow_receipts (provider);
CREATE INDEX IF NOT EXISTS idx_escrow_receipts_kind ON escrow_receipts (hash, kind);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS escrow_receipts`)
				return err
			},
		},
	)
}
