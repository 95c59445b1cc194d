package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Unlocker store (SQLite).
var Migrations = migrate.NewGroup("unlocker")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_unlocker_vaults",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS unlocker_vaults (
    id                    INTEGER PRIMARY KEY,
    name                  TEXT NOT NULL DEFAULT '',
    type                  INTEGER NOT NULL DEFAULT 0,
    token_address         TEXT NOT NULL DEFAULT '',
    payment_token_address TEXT NOT NULL DEFAULT '',
    operator              TEXT NOT NULL DEFAULT '',
    can_share_revenue     INTEGER NOT NULL DEFAULT 0,
    unlocked_since        INTEGER NOT NULL DEFAULT 0,
    unlocked_duration     INTEGER NOT NULL DEFAULT 0,
    total_deposit         INTEGER NOT NULL DEFAULT 0,
    balance               INTEGER NOT NULL DEFAULT 0,
    total_payout          INTEGER NOT NULL DEFAULT 0,
    allocated_amount      INTEGER NOT NULL DEFAULT 0,
    payment_amount        INTEGER NOT NULL DEFAULT 0,
    claimed_amount        INTEGER NOT NULL DEFAULT 0,
    created_at            TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at            TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_unlocker_vaults_operator ON unlocker_vaults (operator);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS unlocker_vaults`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_unlocker_schedules",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS unlocker_schedules (
    id                  INTEGER PRIMARY KEY,
    vault_id            INTEGER NOT NULL DEFAULT 0,
    user_address        TEXT NOT NULL DEFAULT '',
    allocation_units    INTEGER NOT NULL DEFAULT 0,
    allocation_token    TEXT NOT NULL DEFAULT '',
    payment_units       INTEGER NOT NULL DEFAULT 0,
    payment_token       TEXT NOT NULL DEFAULT '',
    is_share_revenue    INTEGER NOT NULL DEFAULT 0,
    can_refund          INTEGER NOT NULL DEFAULT 0,
    can_refund_duration INTEGER NOT NULL DEFAULT 0,
    has_refunded        INTEGER NOT NULL DEFAULT 0,
    start_time          INTEGER NOT NULL DEFAULT 0,
    claimed_units       INTEGER NOT NULL DEFAULT 0,
    created_at          TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at          TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_unlocker_schedules_user ON unlocker_schedules (user_address, id);
CREATE INDEX IF NOT EXISTS idx_unlocker_schedules_vault ON unlocker_schedules (vault_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS unlocker_schedules`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_unlocker_aggregates",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS unlocker_aggregates (
    kind  TEXT NOT NULL,
    key   TEXT NOT NULL DEFAULT '',
    value INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (kind, key)
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS unlocker_aggregates`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_unlocker_nonces",
			Version: "20240101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS unlocker_nonces (
    signer     TEXT NOT NULL,
    nonce      INTEGER NOT NULL,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    PRIMARY KEY (signer, nonce)
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS unlocker_nonces`)
				return err
			},
		},
	)
}
