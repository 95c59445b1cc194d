package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Unlocker store.
var Migrations = migrate.NewGroup("unlocker")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_unlocker_vaults",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS unlocker_vaults (
    id                    BIGINT PRIMARY KEY,
    name                  TEXT NOT NULL DEFAULT '',
    type                  SMALLINT NOT NULL DEFAULT 0,
    token_address         TEXT NOT NULL DEFAULT '',
    payment_token_address TEXT NOT NULL DEFAULT '',
    operator              TEXT NOT NULL DEFAULT '',
    can_share_revenue     BOOLEAN NOT NULL DEFAULT FALSE,
    unlocked_since        BIGINT NOT NULL DEFAULT 0,
    unlocked_duration     BIGINT NOT NULL DEFAULT 0,
    total_deposit         BIGINT NOT NULL DEFAULT 0,
    balance               BIGINT NOT NULL DEFAULT 0,
    total_payout          BIGINT NOT NULL DEFAULT 0,
    allocated_amount      BIGINT NOT NULL DEFAULT 0,
    payment_amount        BIGINT NOT NULL DEFAULT 0,
    claimed_amount        BIGINT NOT NULL DEFAULT 0,
    created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
    id                  BIGINT PRIMARY KEY,
    vault_id            BIGINT NOT NULL DEFAULT 0,
    user_address        TEXT NOT NULL DEFAULT '',
    allocation_units    BIGINT NOT NULL DEFAULT 0,
    allocation_token    TEXT NOT NULL DEFAULT '',
    payment_units       BIGINT NOT NULL DEFAULT 0,
    payment_token       TEXT NOT NULL DEFAULT '',
    is_share_revenue    BOOLEAN NOT NULL DEFAULT FALSE,
    can_refund          BOOLEAN NOT NULL DEFAULT FALSE,
    can_refund_duration BIGINT NOT NULL DEFAULT 0,
    has_refunded        BOOLEAN NOT NULL DEFAULT FALSE,
    start_time          BIGINT NOT NULL DEFAULT 0,
    claimed_units       BIGINT NOT NULL DEFAULT 0,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
    value BIGINT NOT NULL DEFAULT 0,
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
    nonce      BIGINT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
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
