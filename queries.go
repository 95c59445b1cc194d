package unlocker

import (
	"context"

	"github.com/xraph/unlocker/schedule"
	"github.com/xraph/unlocker/store"
	"github.com/xraph/unlocker/types"
	"github.com/xraph/unlocker/vault"
)

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// GetVault returns one vault by id.
func (e *Engine) GetVault(ctx context.Context, vaultID uint64) (*vault.Vault, error) {
	return e.store.GetVault(ctx, vaultID)
}

// VaultCount returns the number of vaults ever created.
func (e *Engine) VaultCount(ctx context.Context) (uint64, error) {
	return e.store.CountVaults(ctx)
}

// GetSchedule returns one schedule together with its vesting position at the
// current engine clock.
func (e *Engine) GetSchedule(ctx context.Context, scheduleID uint64) (*schedule.View, error) {
	return e.GetScheduleAt(ctx, scheduleID, e.now())
}

// GetScheduleAt returns one schedule with its vesting position evaluated at
// the caller-supplied unix timestamp, past or future.
func (e *Engine) GetScheduleAt(ctx context.Context, scheduleID uint64, at int64) (*schedule.View, error) {
	s, err := e.store.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	v, err := e.store.GetVault(ctx, s.VaultID)
	if err != nil {
		return nil, err
	}
	return viewAt(s, v, at), nil
}

// ScheduleCount returns the number of schedules ever created.
func (e *Engine) ScheduleCount(ctx context.Context) (uint64, error) {
	return e.store.CountSchedules(ctx)
}

// ListUserSchedules pages through one user's schedules in creation order and
// returns the page plus the user's total schedule count.
func (e *Engine) ListUserSchedules(ctx context.Context, user types.Address, opts schedule.ListOpts) ([]*schedule.View, uint64, error) {
	schedules, total, err := e.store.ListSchedulesByUser(ctx, user, opts)
	if err != nil {
		return nil, 0, err
	}

	views := make([]*schedule.View, 0, len(schedules))
	for _, s := range schedules {
		v, err := e.store.GetVault(ctx, s.VaultID)
		if err != nil {
			return nil, 0, err
		}
		views = append(views, e.viewOf(s, v))
	}
	return views, total, nil
}

// CanUnlockedAmount returns how much of a schedule's allocation has vested at
// the current engine clock, claimed or not.
func (e *Engine) CanUnlockedAmount(ctx context.Context, scheduleID uint64) (types.Amount, error) {
	return e.CanUnlockedAmountAt(ctx, scheduleID, e.now())
}

// CanUnlockedAmountAt evaluates the vested portion at a caller-supplied unix
// timestamp instead of the engine clock.
func (e *Engine) CanUnlockedAmountAt(ctx context.Context, scheduleID uint64, at int64) (types.Amount, error) {
	s, err := e.store.GetSchedule(ctx, scheduleID)
	if err != nil {
		return types.Amount{}, err
	}
	v, err := e.store.GetVault(ctx, s.VaultID)
	if err != nil {
		return types.Amount{}, err
	}
	return schedule.UnlockedAmount(s, termsFor(v), at), nil
}

// CanClaimAmount returns the vested-but-unclaimed portion of a schedule at
// the current engine clock.
func (e *Engine) CanClaimAmount(ctx context.Context, scheduleID uint64) (types.Amount, error) {
	s, err := e.store.GetSchedule(ctx, scheduleID)
	if err != nil {
		return types.Amount{}, err
	}
	v, err := e.store.GetVault(ctx, s.VaultID)
	if err != nil {
		return types.Amount{}, err
	}
	return schedule.ClaimableAmount(s, termsFor(v), e.now()), nil
}

// InvestAmount returns a user's outstanding invested units. Hard refunds
// subtract from it; voting power is tracked separately by the sink.
func (e *Engine) InvestAmount(ctx context.Context, user types.Address) (int64, error) {
	return e.store.Aggregate(ctx, store.AggInvest, user)
}

// TotalInvestTokenAmount returns outstanding invested units over all users.
func (e *Engine) TotalInvestTokenAmount(ctx context.Context) (int64, error) {
	return e.store.Aggregate(ctx, store.AggTotalInvest, "")
}

// ShareRevenueAmount returns a user's revenue-sharing weight.
func (e *Engine) ShareRevenueAmount(ctx context.Context, user types.Address) (int64, error) {
	return e.store.Aggregate(ctx, store.AggShareRevenue, user)
}

// TotalShareRevenueAmount returns revenue-sharing weight over all users.
func (e *Engine) TotalShareRevenueAmount(ctx context.Context) (int64, error) {
	return e.store.Aggregate(ctx, store.AggTotalShareRevenue, "")
}

// WithdrawablePaymentTokenAmount returns the admin-withdrawable balance of
// one payment token.
func (e *Engine) WithdrawablePaymentTokenAmount(ctx context.Context, token types.Address) (int64, error) {
	return e.store.Aggregate(ctx, store.AggWithdrawable, token)
}

// NonceUsed reports whether a (signer, nonce) pair has been consumed.
func (e *Engine) NonceUsed(ctx context.Context, signer types.Address, nonce uint64) (bool, error) {
	return e.store.NonceUsed(ctx, signer, nonce)
}

func (e *Engine) viewOf(s *schedule.Schedule, v *vault.Vault) *schedule.View {
	return viewAt(s, v, e.now())
}

func viewAt(s *schedule.Schedule, v *vault.Vault, at int64) *schedule.View {
	terms := termsFor(v)
	return &schedule.View{
		Schedule:          s,
		CanUnlockedAmount: schedule.UnlockedAmount(s, terms, at),
		CanClaimAmount:    schedule.ClaimableAmount(s, terms, at),
	}
}
