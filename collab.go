package unlocker

import (
	"context"

	"github.com/xraph/unlocker/types"
)

// AccessController decides which addresses hold the admin capability. Admin
// callers may create vaults, replace vault operators, and withdraw payment
// tokens. Operator authority is per vault and checked against the vault
// record, not here.
type AccessController interface {
	IsAdmin(ctx context.Context, caller types.Address) bool
}

// Pauser gates all mutating operations. While Paused returns true every
// mutating call fails with ErrEnforcedPause; reads stay available.
type Pauser interface {
	Paused(ctx context.Context) bool
}

// PayoutGate separately disables the payout surface: payouts, payout-and-lock,
// and admin payment withdrawals fail with ErrPayoutTemporarilyDisabled while
// PayoutEnabled returns false.
type PayoutGate interface {
	PayoutEnabled(ctx context.Context) bool
}

// VotingPowerSink receives the governance weight minted by finalized
// allocations: direct allocations grant immediately, investments when they
// are non-refundable, and refundable investments once the refund right is
// waived. A negative amount revokes a grant that could not be committed.
type VotingPowerSink interface {
	GrantVotingPower(ctx context.Context, user types.Address, amount int64) error
}

// TokenMover executes the custody-side token movement that accompanies a
// ledger mutation. Implementations bridge to whatever actually holds funds;
// the engine only sequences the calls.
//
// TransferIn pulls amount base units of token from the counterparty into
// custody; TransferOut pushes them out. A returned error aborts the
// operation before any state is committed.
type TokenMover interface {
	TransferIn(ctx context.Context, token, from types.Address, amount int64) error
	TransferOut(ctx context.Context, token, to types.Address, amount int64) error
}

// ──────────────────────────────────────────────────
// Permissive defaults
// ──────────────────────────────────────────────────

type allowAllAccess struct{}

func (allowAllAccess) IsAdmin(context.Context, types.Address) bool { return true }

type neverPaused struct{}

func (neverPaused) Paused(context.Context) bool { return false }

type alwaysPayable struct{}

func (alwaysPayable) PayoutEnabled(context.Context) bool { return true }

// nopVotingSink drops grants. It backs deployments without a governance side.
type nopVotingSink struct{}

func (nopVotingSink) GrantVotingPower(context.Context, types.Address, int64) error { return nil }

// nopMover accepts every transfer. It backs library-only deployments where
// custody is reconciled elsewhere.
type nopMover struct{}

func (nopMover) TransferIn(context.Context, types.Address, types.Address, int64) error {
	return nil
}

func (nopMover) TransferOut(context.Context, types.Address, types.Address, int64) error {
	return nil
}
