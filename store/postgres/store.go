package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/unlocker"
	"github.com/xraph/unlocker/schedule"
	unlockerstore "github.com/xraph/unlocker/store"
	"github.com/xraph/unlocker/types"
	"github.com/xraph/unlocker/vault"
)

// compile-time interface check
var _ unlockerstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("unlocker/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("unlocker/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Vault Store ====================

func (s *Store) GetVault(ctx context.Context, vaultID uint64) (*vault.Vault, error) {
	m := new(vaultModel)
	err := s.pg.NewSelect(m).
		Where("id = ?", vaultID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, unlocker.ErrInvalidVaultID
		}
		return nil, err
	}
	return fromVaultModel(m), nil
}

func (s *Store) CountVaults(ctx context.Context) (uint64, error) {
	var count uint64
	err := s.pg.NewRaw(`SELECT COUNT(*) FROM unlocker_vaults`).Scan(ctx, &count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ==================== Schedule Store ====================

func (s *Store) GetSchedule(ctx context.Context, scheduleID uint64) (*schedule.Schedule, error) {
	m := new(scheduleModel)
	err := s.pg.NewSelect(m).
		Where("id = ?", scheduleID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, unlocker.ErrInvalidScheduleID
		}
		return nil, err
	}
	return fromScheduleModel(m), nil
}

func (s *Store) CountSchedules(ctx context.Context) (uint64, error) {
	var count uint64
	err := s.pg.NewRaw(`SELECT COUNT(*) FROM unlocker_schedules`).Scan(ctx, &count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) ListSchedulesByUser(ctx context.Context, user types.Address, opts schedule.ListOpts) ([]*schedule.Schedule, uint64, error) {
	var total uint64
	err := s.pg.NewRaw(`SELECT COUNT(*) FROM unlocker_schedules WHERE user_address = ?`, user.Addr().String()).
		Scan(ctx, &total)
	if err != nil {
		return nil, 0, err
	}

	var models []scheduleModel
	q := s.pg.NewSelect(&models).
		Where("user_address = ?", user.Addr().String()).
		OrderExpr("id ASC")

	page := opts.Page
	if page < 1 {
		page = 1
	}
	if opts.PageSize > 0 {
		q = q.Limit(opts.PageSize).Offset((page - 1) * opts.PageSize)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, 0, err
	}

	result := make([]*schedule.Schedule, len(models))
	for i := range models {
		result[i] = fromScheduleModel(&models[i])
	}
	return result, total, nil
}

// ==================== Aggregate Store ====================

func (s *Store) Aggregate(ctx context.Context, kind unlockerstore.AggregateKind, key types.Address) (int64, error) {
	m := new(aggregateModel)
	err := s.pg.NewSelect(m).
		Where("kind = ?", string(kind)).
		Where("key = ?", key.Addr().String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, err
	}
	return m.Value, nil
}

// ==================== Nonce Store ====================

func (s *Store) NonceUsed(ctx context.Context, signer types.Address, nonce uint64) (bool, error) {
	var count int
	err := s.pg.NewRaw(`SELECT COUNT(*) FROM unlocker_nonces WHERE signer = ? AND nonce = ?`,
		signer.Addr().String(), nonce).Scan(ctx, &count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ==================== Commit ====================

// Commit applies the batch. The nonce primary key arbitrates replays across
// engine instances: the batch is rejected before any other write if a queued
// nonce already exists.
func (s *Store) Commit(ctx context.Context, b *unlockerstore.Batch) error {
	for _, n := range b.Nonces {
		m := &nonceModel{Signer: n.Signer.String(), Nonce: n.Nonce, CreatedAt: now()}
		res, err := s.pg.NewInsert(m).
			OnConflict("(signer, nonce) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("unlocker/postgres: insert nonce: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return unlocker.ErrNonceHasBeenUsed
		}
	}

	for _, v := range b.Vaults {
		m := toVaultModel(v)
		m.UpdatedAt = now()
		if _, err := s.pg.NewInsert(m).
			OnConflict("(id) DO UPDATE").
			Set("name = EXCLUDED.name").
			Set("type = EXCLUDED.type").
			Set("token_address = EXCLUDED.token_address").
			Set("payment_token_address = EXCLUDED.payment_token_address").
			Set("operator = EXCLUDED.operator").
			Set("can_share_revenue = EXCLUDED.can_share_revenue").
			Set("unlocked_since = EXCLUDED.unlocked_since").
			Set("unlocked_duration = EXCLUDED.unlocked_duration").
			Set("total_deposit = EXCLUDED.total_deposit").
			Set("balance = EXCLUDED.balance").
			Set("total_payout = EXCLUDED.total_payout").
			Set("allocated_amount = EXCLUDED.allocated_amount").
			Set("payment_amount = EXCLUDED.payment_amount").
			Set("claimed_amount = EXCLUDED.claimed_amount").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx); err != nil {
			return fmt.Errorf("unlocker/postgres: upsert vault: %w", err)
		}
	}

	for _, sc := range b.Schedules {
		m := toScheduleModel(sc)
		m.UpdatedAt = now()
		if _, err := s.pg.NewInsert(m).
			OnConflict("(id) DO UPDATE").
			Set("vault_id = EXCLUDED.vault_id").
			Set("user_address = EXCLUDED.user_address").
			Set("allocation_units = EXCLUDED.allocation_units").
			Set("allocation_token = EXCLUDED.allocation_token").
			Set("payment_units = EXCLUDED.payment_units").
			Set("payment_token = EXCLUDED.payment_token").
			Set("is_share_revenue = EXCLUDED.is_share_revenue").
			Set("can_refund = EXCLUDED.can_refund").
			Set("can_refund_duration = EXCLUDED.can_refund_duration").
			Set("has_refunded = EXCLUDED.has_refunded").
			Set("start_time = EXCLUDED.start_time").
			Set("claimed_units = EXCLUDED.claimed_units").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx); err != nil {
			return fmt.Errorf("unlocker/postgres: upsert schedule: %w", err)
		}
	}

	for _, d := range b.Aggregates {
		m := &aggregateModel{Kind: string(d.Kind), Key: d.Key.String(), Value: d.Delta}
		if _, err := s.pg.NewInsert(m).
			OnConflict("(kind, key) DO UPDATE").
			Set("value = unlocker_aggregates.value + EXCLUDED.value").
			Exec(ctx); err != nil {
			return fmt.Errorf("unlocker/postgres: upsert aggregate: %w", err)
		}
	}

	return nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
