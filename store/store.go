// Package store defines the storage contract for the unlock engine.
//
// Reads are plain lookups. All writes travel through Commit, which applies a
// Batch atomically: every upsert, aggregate delta, and nonce consumption in
// the batch lands together or not at all. Commit re-checks each nonce inside
// its transaction, so a replayed signature loses the race even when two
// engine instances share one database.
package store

import (
	"context"

	"github.com/xraph/unlocker/schedule"
	"github.com/xraph/unlocker/types"
	"github.com/xraph/unlocker/vault"
)

// AggregateKind names a global counter maintained by the engine.
type AggregateKind string

const (
	// AggInvest is a user's outstanding invested units.
	AggInvest AggregateKind = "invest"
	// AggTotalInvest is the sum of AggInvest over all users.
	AggTotalInvest AggregateKind = "total_invest"
	// AggShareRevenue is per-user revenue-sharing weight.
	AggShareRevenue AggregateKind = "share_revenue"
	// AggTotalShareRevenue is the sum of AggShareRevenue over all users.
	AggTotalShareRevenue AggregateKind = "total_share_revenue"
	// AggWithdrawable is per-payment-token admin-withdrawable balance.
	AggWithdrawable AggregateKind = "withdrawable_payment"
)

// Keyed reports whether the kind is keyed by an address rather than global.
func (k AggregateKind) Keyed() bool {
	return k == AggInvest || k == AggShareRevenue || k == AggWithdrawable
}

// AggregateDelta is a signed adjustment to one aggregate counter.
// Key is the user address for per-user kinds, the payment token address for
// AggWithdrawable, and empty for totals.
type AggregateDelta struct {
	Kind  AggregateKind `json:"kind"`
	Key   types.Address `json:"key,omitempty"`
	Delta int64         `json:"delta"`
}

// NonceUse marks one (signer, nonce) pair as consumed.
type NonceUse struct {
	Signer types.Address `json:"signer"`
	Nonce  uint64        `json:"nonce"`
}

// Batch collects the full effect of one engine operation.
type Batch struct {
	Vaults     []*vault.Vault
	Schedules  []*schedule.Schedule
	Aggregates []AggregateDelta
	Nonces     []NonceUse
}

// PutVault queues a vault upsert.
func (b *Batch) PutVault(v *vault.Vault) *Batch {
	b.Vaults = append(b.Vaults, v)
	return b
}

// PutSchedule queues a schedule upsert.
func (b *Batch) PutSchedule(s *schedule.Schedule) *Batch {
	b.Schedules = append(b.Schedules, s)
	return b
}

// AddAggregate queues an aggregate adjustment. Zero deltas are dropped.
func (b *Batch) AddAggregate(kind AggregateKind, key types.Address, delta int64) *Batch {
	if delta == 0 {
		return b
	}
	b.Aggregates = append(b.Aggregates, AggregateDelta{Kind: kind, Key: key.Addr(), Delta: delta})
	return b
}

// UseNonce queues a nonce consumption.
func (b *Batch) UseNonce(signer types.Address, nonce uint64) *Batch {
	b.Nonces = append(b.Nonces, NonceUse{Signer: signer.Addr(), Nonce: nonce})
	return b
}

// Empty reports whether the batch carries no effect.
func (b *Batch) Empty() bool {
	return len(b.Vaults) == 0 && len(b.Schedules) == 0 &&
		len(b.Aggregates) == 0 && len(b.Nonces) == 0
}

// Store is the unified storage interface for all engine entities.
type Store interface {
	// Vault reads
	GetVault(ctx context.Context, vaultID uint64) (*vault.Vault, error)
	CountVaults(ctx context.Context) (uint64, error)

	// Schedule reads
	GetSchedule(ctx context.Context, scheduleID uint64) (*schedule.Schedule, error)
	CountSchedules(ctx context.Context) (uint64, error)
	ListSchedulesByUser(ctx context.Context, user types.Address, opts schedule.ListOpts) ([]*schedule.Schedule, uint64, error)

	// Aggregate reads. Unknown keys read as zero.
	Aggregate(ctx context.Context, kind AggregateKind, key types.Address) (int64, error)

	// Nonce reads. Commit re-checks under its own transaction; this exists
	// so the engine can fail fast before doing signature-independent work.
	NonceUsed(ctx context.Context, signer types.Address, nonce uint64) (bool, error)

	// Commit applies the batch atomically. It fails with
	// ErrNonceHasBeenUsed when any queued nonce was consumed since the
	// engine's pre-check.
	Commit(ctx context.Context, b *Batch) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
