package unlocker_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/unlocker"
	"github.com/xraph/unlocker/auth"
	"github.com/xraph/unlocker/schedule"
	"github.com/xraph/unlocker/store"
	"github.com/xraph/unlocker/store/memory"
	"github.com/xraph/unlocker/types"
	"github.com/xraph/unlocker/vault"
)

const (
	testToken    = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	testPayToken = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	testAdmin    = types.Address("0xadadadadadadadadadadadadadadadadadadadad")
)

// recordingMover captures custody-side transfers so tests can assert the
// engine sequenced them.
type recordingMover struct {
	mu  sync.Mutex
	in  []int64
	out []int64
	err error
}

func (m *recordingMover) TransferIn(_ context.Context, _, _ types.Address, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.in = append(m.in, amount)
	return nil
}

func (m *recordingMover) TransferOut(_ context.Context, _, _ types.Address, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.out = append(m.out, amount)
	return nil
}

// recordingVotingSink accumulates governance grants per user.
type recordingVotingSink struct {
	mu     sync.Mutex
	grants map[types.Address]int64
}

func (s *recordingVotingSink) GrantVotingPower(_ context.Context, user types.Address, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grants == nil {
		s.grants = make(map[types.Address]int64)
	}
	s.grants[user] += amount
	return nil
}

func (s *recordingVotingSink) power(user types.Address) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grants[user.Addr()]
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	eng      *unlocker.Engine
	mover    *recordingMover
	voting   *recordingVotingSink
	operator *auth.Signer
	user     *auth.Signer
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	operator, err := auth.NewSigner()
	require.NoError(t, err)
	user, err := auth.NewSigner()
	require.NoError(t, err)

	f := &fixture{
		t:        t,
		ctx:      context.Background(),
		mover:    &recordingMover{},
		voting:   &recordingVotingSink{},
		operator: operator,
		user:     user,
		now:      time.Unix(1_700_000_000, 0),
	}
	f.eng = unlocker.New(memory.New(),
		unlocker.WithTokenMover(f.mover),
		unlocker.WithVotingPowerSink(f.voting),
		unlocker.WithClock(func() time.Time { return f.now }),
	)
	require.NoError(t, f.eng.Start(f.ctx))
	t.Cleanup(func() { _ = f.eng.Stop() })
	return f
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func (f *fixture) createVault(typ vault.Type, deposit int64) *vault.Vault {
	f.t.Helper()
	spec := vault.Spec{
		Name:             "test",
		Type:             typ,
		TokenAddress:     testToken,
		Operator:         f.operator.Address(),
		UnlockedDuration: 1000,
	}
	if typ == vault.TypeVc {
		spec.PaymentTokenAddress = testPayToken
		spec.CanShareRevenue = true
	}
	v, err := f.eng.CreateVault(f.ctx, testAdmin, spec)
	require.NoError(f.t, err)
	if deposit > 0 {
		require.NoError(f.t, f.eng.DepositToken(f.ctx, f.user.Address(), v.ID, deposit))
	}
	return v
}

// ──────────────────────────────────────────────────
// Vault management
// ──────────────────────────────────────────────────

func TestCreateVault(t *testing.T) {
	f := newFixture(t)

	v, err := f.eng.CreateVault(f.ctx, testAdmin, vault.Spec{
		Name:         "first",
		Type:         vault.TypeLinearUnlocked,
		TokenAddress: testToken,
		Operator:     f.operator.Address(),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v.ID)
	assert.True(t, v.Balance.IsZero())
	assert.Equal(t, testToken, v.Balance.Token)

	v2, err := f.eng.CreateVault(f.ctx, testAdmin, vault.Spec{
		Name:         "second",
		Type:         vault.TypePayout,
		TokenAddress: testToken,
		Operator:     f.operator.Address(),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), v2.ID)

	count, err := f.eng.VaultCount(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestCreateVaultValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.eng.CreateVault(f.ctx, testAdmin, vault.Spec{
		Type:         vault.Type(9),
		TokenAddress: testToken,
	})
	assert.ErrorIs(t, err, unlocker.ErrInvalidVaultType)

	_, err = f.eng.CreateVault(f.ctx, testAdmin, vault.Spec{
		Type: vault.TypeLinearUnlocked,
	})
	var verr unlocker.ValidationError
	assert.ErrorAs(t, err, &verr)

	// An investment vault needs a payment token to receive the payment leg.
	_, err = f.eng.CreateVault(f.ctx, testAdmin, vault.Spec{
		Type:         vault.TypeVc,
		TokenAddress: testToken,
	})
	assert.ErrorIs(t, err, unlocker.ErrInvalidPaymentTokenAddress)
}

func TestUpdateVaultOperator(t *testing.T) {
	f := newFixture(t)
	v := f.createVault(vault.TypeLinearUnlocked, 0)

	next, err := auth.NewSigner()
	require.NoError(t, err)
	require.NoError(t, f.eng.UpdateVaultOperator(f.ctx, testAdmin, v.ID, next.Address()))

	got, err := f.eng.GetVault(f.ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, next.Address(), got.Operator)
}

func TestDepositToken(t *testing.T) {
	f := newFixture(t)
	v := f.createVault(vault.TypeLinearUnlocked, 0)

	require.NoError(t, f.eng.DepositToken(f.ctx, f.user.Address(), v.ID, 500))
	require.NoError(t, f.eng.DepositToken(f.ctx, f.user.Address(), v.ID, 250))

	got, err := f.eng.GetVault(f.ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(750), got.Balance.Units)
	assert.Equal(t, int64(750), got.TotalDeposit.Units)
	assert.Equal(t, []int64{500, 250}, f.mover.in)

	err = f.eng.DepositToken(f.ctx, f.user.Address(), v.ID, -1)
	var verr unlocker.ValidationError
	assert.ErrorAs(t, err, &verr)

	// Zero deposits succeed without touching custody.
	require.NoError(t, f.eng.DepositToken(f.ctx, f.user.Address(), v.ID, 0))
	assert.Len(t, f.mover.in, 2)
}

func TestDepositUnknownVault(t *testing.T) {
	f := newFixture(t)
	err := f.eng.DepositToken(f.ctx, f.user.Address(), 42, 100)
	assert.ErrorIs(t, err, unlocker.ErrInvalidVaultID)
}

// ──────────────────────────────────────────────────
// Allocation
// ──────────────────────────────────────────────────

func (f *fixture) allocateParams(vaultID uint64, amount int64, nonce uint64) auth.AllocateParams {
	return auth.AllocateParams{
		VaultID:     vaultID,
		UserAddress: f.user.Address(),
		TokenAmount: amount,
		Nonce:       nonce,
	}
}

func TestAllocateLinearUnlockedTokens(t *testing.T) {
	f := newFixture(t)
	v := f.createVault(vault.TypeLinearUnlocked, 1000)

	params := f.allocateParams(v.ID, 100, 1)
	s, err := f.eng.AllocateLinearUnlockedTokens(f.ctx, params, f.operator.MustSign(auth.Allocate{AllocateParams: params}))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), s.ID)
	assert.Equal(t, int64(100), s.AllocationAmount.Units)
	assert.False(t, s.CanRefund)
	assert.Equal(t, f.now.Unix(), s.StartTime)

	// The allocation moves from free balance to the outstanding obligation.
	got, err := f.eng.GetVault(f.ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(900), got.Balance.Units)
	assert.Equal(t, int64(100), got.AllocatedAmount.Units)

	// Direct allocations always mint voting power.
	assert.Equal(t, int64(100), f.voting.power(f.user.Address()))
}

func TestAllocateValidation(t *testing.T) {
	f := newFixture(t)
	v := f.createVault(vault.TypeLinearUnlocked, 1000)

	sign := func(p auth.AllocateParams) auth.Signature {
		return f.operator.MustSign(auth.Allocate{AllocateParams: p})
	}

	p := f.allocateParams(v.ID, 100, 1)
	p.PaymentAmount = 5
	_, err := f.eng.AllocateLinearUnlockedTokens(f.ctx, p, sign(p))
	assert.ErrorIs(t, err, unlocker.ErrPaymentAmountNotZero)

	p = f.allocateParams(v.ID, 100, 2)
	p.CanRefund = true
	_, err = f.eng.AllocateLinearUnlockedTokens(f.ctx, p, sign(p))
	assert.ErrorIs(t, err, unlocker.ErrCanRefundNotFalse)

	// The vault was created without revenue sharing.
	p = f.allocateParams(v.ID, 100, 3)
	p.IsShareRevenue = true
	_, err = f.eng.AllocateLinearUnlockedTokens(f.ctx, p, sign(p))
	assert.ErrorIs(t, err, unlocker.ErrCannotShareRevenue)

	p = f.allocateParams(v.ID, 1001, 4)
	_, err = f.eng.AllocateLinearUnlockedTokens(f.ctx, p, sign(p))
	assert.ErrorIs(t, err, unlocker.ErrInsufficientVaultBalance)
}

func TestAllocateWrongVaultType(t *testing.T) {
	f := newFixture(t)
	v := f.createVault(vault.TypePayout, 1000)

	p := f.allocateParams(v.ID, 100, 1)
	_, err := f.eng.AllocateLinearUnlockedTokens(f.ctx, p, f.operator.MustSign(auth.Allocate{AllocateParams: p}))
	assert.ErrorIs(t, err, unlocker.ErrInvalidVaultType)
}

func TestAllocateRejectsWrongSigner(t *testing.T) {
	f := newFixture(t)
	v := f.createVault(vault.TypeLinearUnlocked, 1000)

	p := f.allocateParams(v.ID, 100, 1)
	// Signed by the user, not the vault operator.
	_, err := f.eng.AllocateLinearUnlockedTokens(f.ctx, p, f.user.MustSign(auth.Allocate{AllocateParams: p}))
	assert.ErrorIs(t, err, unlocker.ErrVerifySignatureFailed)
}

func TestAllocateUnknownVaultPrecedesSignature(t *testing.T) {
	f := newFixture(t)

	// An unknown vault fails before signature verification: the expected
	// signer lives on the vault record.
	p := f.allocateParams(999, 100, 1)
	_, err := f.eng.AllocateLinearUnlockedTokens(f.ctx, p, auth.Signature{})
	assert.ErrorIs(t, err, unlocker.ErrInvalidVaultID)
}

func TestAllocateNonceReplay(t *testing.T) {
	f := newFixture(t)
	v := f.createVault(vault.TypeLinearUnlocked, 1000)

	p := f.allocateParams(v.ID, 100, 7)
	sig := f.operator.MustSign(auth.Allocate{AllocateParams: p})
	_, err := f.eng.AllocateLinearUnlockedTokens(f.ctx, p, sig)
	require.NoError(t, err)

	_, err = f.eng.AllocateLinearUnlockedTokens(f.ctx, p, sig)
	assert.ErrorIs(t, err, unlocker.ErrNonceHasBeenUsed)

	used, err := f.eng.NonceUsed(f.ctx, f.operator.Address(), 7)
	require.NoError(t, err)
	assert.True(t, used)
}

// ──────────────────────────────────────────────────
// Vesting and claims
// ──────────────────────────────────────────────────

func TestLinearVestingClaim(t *testing.T) {
	f := newFixture(t)
	v := f.createVault(vault.TypeLinearUnlocked, 1000)

	p := f.allocateParams(v.ID, 100, 1)
	s, err := f.eng.AllocateLinearUnlockedTokens(f.ctx, p, f.operator.MustSign(auth.Allocate{AllocateParams: p}))
	require.NoError(t, err)

	// Halfway through the 1000s ramp, 50 units have vested.
	f.advance(500 * time.Second)
	claimable, err := f.eng.CanClaimAmount(f.ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), claimable.Units)

	claim := auth.ClaimParams{ScheduleID: s.ID, Amount: 50, Nonce: 2}
	require.NoError(t, f.eng.ClaimUnlockedTokens(f.ctx, claim, f.user.MustSign(auth.Claim{ClaimParams: claim})))

	// The balance already left at allocation time; the claim only settles
	// the outstanding obligation.
	got, err := f.eng.GetVault(f.ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(900), got.Balance.Units)
	assert.Equal(t, int64(50), got.AllocatedAmount.Units)
	assert.Equal(t, int64(50), got.ClaimedAmount.Units)
	assert.Equal(t, []int64{50}, f.mover.out)

	// Nothing more has vested yet.
	claim = auth.ClaimParams{ScheduleID: s.ID, Amount: 1, Nonce: 3}
	err = f.eng.ClaimUnlockedTokens(f.ctx, claim, f.user.MustSign(auth.Claim{ClaimParams: claim}))
	assert.ErrorIs(t, err, unlocker.ErrInsufficientClaimableAmount)

	// After the ramp, the rest is claimable.
	f.advance(500 * time.Second)
	claim = auth.ClaimParams{ScheduleID: s.ID, Amount: 50, Nonce: 4}
	require.NoError(t, f.eng.ClaimUnlockedTokens(f.ctx, claim, f.user.MustSign(auth.Claim{ClaimParams: claim})))

	view, err := f.eng.GetSchedule(f.ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), view.Schedule.ClaimedAmount.Units)
	assert.True(t, view.CanClaimAmount.IsZero())
}

func TestClaimRejectsWrongSigner(t *testing.T) {
	f := newFixture(t)
	v := f.createVault(vault.TypeLinearUnlocked, 1000)

	p := f.allocateParams(v.ID, 100, 1)
	s, err := f.eng.AllocateLinearUnlockedTokens(f.ctx, p, f.operator.MustSign(auth.Allocate{AllocateParams: p}))
	require.NoError(t, err)

	f.advance(1000 * time.Second)
	claim := auth.ClaimParams{ScheduleID: s.ID, Amount: 10, Nonce: 2}
	err = f.eng.ClaimUnlockedTokens(f.ctx, claim, f.operator.MustSign(auth.Claim{ClaimParams: claim}))
	assert.ErrorIs(t, err, unlocker.ErrVerifySignatureFailed)
}

func TestScheduleStartsAtUnlockEpoch(t *testing.T) {
	f := newFixture(t)

	epoch := f.now.Unix() + 5000
	v, err := f.eng.CreateVault(f.ctx, testAdmin, vault.Spec{
		Name:             "epoch",
		Type:             vault.TypeLinearUnlocked,
		TokenAddress:     testToken,
		Operator:         f.operator.Address(),
		UnlockedSince:    epoch,
		UnlockedDuration: 1000,
	})
	require.NoError(t, err)
	require.NoError(t, f.eng.DepositToken(f.ctx, f.user.Address(), v.ID, 1000))

	p := f.allocateParams(v.ID, 100, 1)
	s, err := f.eng.AllocateLinearUnlockedTokens(f.ctx, p, f.operator.MustSign(auth.Allocate{AllocateParams: p}))
	require.NoError(t, err)

	// Created before the vault's unlock epoch, the ramp waits for the epoch.
	assert.Equal(t, epoch, s.StartTime)

	claimable, err := f.eng.CanClaimAmount(f.ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, claimable.IsZero())

	// Half the ramp past the epoch.
	f.advance(5500 * time.Second)
	claimable, err = f.eng.CanClaimAmount(f.ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), claimable.Units)
}

func TestScheduleViewAtTimestamp(t *testing.T) {
	f := newFixture(t)
	v := f.createVault(vault.TypeLinearUnlocked, 1000)

	p := f.allocateParams(v.ID, 100, 1)
	s, err := f.eng.AllocateLinearUnlockedTokens(f.ctx, p, f.operator.MustSign(auth.Allocate{AllocateParams: p}))
	require.NoError(t, err)

	// The clock stays put; only the query timestamp moves.
	at := s.StartTime + 500
	unlocked, err := f.eng.CanUnlockedAmountAt(f.ctx, s.ID, at)
	require.NoError(t, err)
	assert.Equal(t, int64(50), unlocked.Units)

	view, err := f.eng.GetScheduleAt(f.ctx, s.ID, at)
	require.NoError(t, err)
	assert.Equal(t, int64(50), view.CanUnlockedAmount.Units)
	assert.Equal(t, int64(50), view.CanClaimAmount.Units)

	view, err = f.eng.GetScheduleAt(f.ctx, s.ID, s.StartTime)
	require.NoError(t, err)
	assert.True(t, view.CanUnlockedAmount.IsZero())
}

func TestClaimDecrementsShareRevenue(t *testing.T) {
	f := newFixture(t)
	v := f.createVault(vault.TypeVc, 10_000)

	p := f.allocateParams(v.ID, 1000, 1)
	p.IsShareRevenue = true
	s, err := f.invest(v, p)
	require.NoError(t, err)

	f.advance(time.Duration(schedule.InvestCliffSeconds+400) * time.Second)
	claim := auth.ClaimParams{ScheduleID: s.ID, Amount: 400, Nonce: 2}
	require.NoError(t, f.eng.ClaimUnlockedTokens(f.ctx, claim, f.user.MustSign(auth.Claim{ClaimParams: claim})))

	// Claimed tokens drop out of the revenue-sharing weight.
	share, err := f.eng.ShareRevenueAmount(f.ctx, f.user.Address())
	require.NoError(t, err)
	assert.Equal(t, int64(600), share)
	total, err := f.eng.TotalShareRevenueAmount(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(600), total)
}

// ──────────────────────────────────────────────────
// Investment
// ──────────────────────────────────────────────────

func (f *fixture) invest(v *vault.Vault, p auth.AllocateParams) (*schedule.Schedule, error) {
	return f.eng.InvestToken(f.ctx, p,
		f.user.MustSign(auth.InvestUser{AllocateParams: p}),
		f.operator.MustSign(auth.InvestOperator{AllocateParams: p}),
	)
}

func TestInvestTokenNonRefundable(t *testing.T) {
	f := newFixture(t)
	v := f.createVault(vault.TypeVc, 10_000)

	p := f.allocateParams(v.ID, 1000, 1)
	p.PaymentAmount = 500
	p.IsShareRevenue = true
	s, err := f.invest(v, p)
	require.NoError(t, err)
	assert.Equal(t, int64(500), s.PaymentAmount.Units)

	got, err := f.eng.GetVault(f.ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9000), got.Balance.Units)
	assert.Equal(t, int64(1000), got.AllocatedAmount.Units)
	assert.Equal(t, int64(500), got.PaymentAmount.Units)
	assert.Equal(t, []int64{10_000, 500}, f.mover.in) // deposit, then payment

	// Invested totals count immediately; being non-refundable also vests
	// voting power, revenue weight, and the withdrawable payment.
	invested, err := f.eng.InvestAmount(f.ctx, f.user.Address())
	require.NoError(t, err)
	assert.Equal(t, int64(1000), invested)
	total, err := f.eng.TotalInvestTokenAmount(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), total)
	share, err := f.eng.ShareRevenueAmount(f.ctx, f.user.Address())
	require.NoError(t, err)
	assert.Equal(t, int64(1000), share)
	withdrawable, err := f.eng.WithdrawablePaymentTokenAmount(f.ctx, testPayToken)
	require.NoError(t, err)
	assert.Equal(t, int64(500), withdrawable)
	assert.Equal(t, int64(1000), f.voting.power(f.user.Address()))
}

func TestInvestClaimBlockedByCliff(t *testing.T) {
	f := newFixture(t)
	v := f.createVault(vault.TypeVc, 10_000)

	p := f.allocateParams(v.ID, 1000, 1)
	s, err := f.invest(v, p)
	require.NoError(t, err)

	// Just before the one-year cliff nothing has vested.
	f.advance(time.Duration(schedule.InvestCliffSeconds-1) * time.Second)
	claim := auth.ClaimParams{ScheduleID: s.ID, Amount: 1, Nonce: 2}
	err = f.eng.ClaimUnlockedTokens(f.ctx, claim, f.user.MustSign(auth.Claim{ClaimParams: claim}))
	assert.ErrorIs(t, err, unlocker.ErrInsufficientClaimableAmount)

	// Past the cliff the linear ramp runs.
	f.advance(1 * time.Second)
	f.advance(500 * time.Second)
	claimable, err := f.eng.CanClaimAmount(f.ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), claimable.Units)
}

func TestInvestWrongVaultType(t *testing.T) {
	f := newFixture(t)
	v := f.createVault(vault.TypeLinearUnlocked, 1000)

	p := f.allocateParams(v.ID, 100, 1)
	_, err := f.invest(v, p)
	assert.ErrorIs(t, err, unlocker.ErrInvalidVaultType)
}

func TestInvestInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	v := f.createVault(vault.TypeVc, 100)

	p := f.allocateParams(v.ID, 101, 1)
	_, err := f.invest(v, p)
	assert.ErrorIs(t, err, unlocker.ErrInsufficientBalance)
}

// ──────────────────────────────────────────────────
// Refunds
// ──────────────────────────────────────────────────

func (f *fixture) investRefundable(v *vault.Vault, window int64) *schedule.Schedule {
	f.t.Helper()
	p := f.allocateParams(v.ID, 1000, 1)
	p.PaymentAmount = 500
	p.CanRefund = true
	p.CanRefundDuration = window
	s, err := f.invest(v, p)
	require.NoError(f.t, err)
	return s
}

func TestDoInvestRefund(t *testing.T) {
	f := newFixture(t)
	v := f.createVault(vault.TypeVc, 10_000)
	s := f.investRefundable(v, 3600)

	// Invested totals count from the moment the investment lands, refundable
	// or not. Voting power does not until the investment is final.
	invested, err := f.eng.InvestAmount(f.ctx, f.user.Address())
	require.NoError(t, err)
	assert.Equal(t, int64(1000), invested)
	assert.Zero(t, f.voting.power(f.user.Address()))

	sign := func(p auth.RefundParams) auth.Signature {
		return f.user.MustSign(auth.DoRefund{RefundParams: p})
	}

	// The waiting period must fully elapse first.
	f.advance(3599 * time.Second)
	p := auth.RefundParams{ScheduleID: s.ID, Nonce: 2}
	err = f.eng.DoInvestRefund(f.ctx, p, sign(p))
	assert.ErrorIs(t, err, unlocker.ErrRefundWindowNotReach)

	f.advance(1 * time.Second)
	require.NoError(t, f.eng.DoInvestRefund(f.ctx, p, sign(p)))

	// The unclaimed allocation flows back into the free balance and the
	// invested totals unwind.
	got, err := f.eng.GetVault(f.ctx, v.ID)
	require.NoError(t, err)
	assert.Zero(t, got.AllocatedAmount.Units)
	assert.Zero(t, got.PaymentAmount.Units)
	assert.Equal(t, int64(10_000), got.Balance.Units)
	assert.Equal(t, []int64{500}, f.mover.out) // payment returned

	invested, err = f.eng.InvestAmount(f.ctx, f.user.Address())
	require.NoError(t, err)
	assert.Zero(t, invested)
	total, err := f.eng.TotalInvestTokenAmount(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, total)

	view, err := f.eng.GetSchedule(f.ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, view.Schedule.HasRefunded)
	assert.False(t, view.Schedule.CanRefund)
	assert.True(t, view.CanClaimAmount.IsZero())

	// A dead schedule cannot be refunded again or claimed.
	p2 := auth.RefundParams{ScheduleID: s.ID, Nonce: 3}
	err = f.eng.DoInvestRefund(f.ctx, p2, sign(p2))
	assert.ErrorIs(t, err, unlocker.ErrAlreadyRefunded)

	claim := auth.ClaimParams{ScheduleID: s.ID, Amount: 1, Nonce: 4}
	err = f.eng.ClaimUnlockedTokens(f.ctx, claim, f.user.MustSign(auth.Claim{ClaimParams: claim}))
	assert.ErrorIs(t, err, unlocker.ErrScheduleAlreadyRefunded)
}

func TestDoInvestRefundNonRefundable(t *testing.T) {
	f := newFixture(t)
	v := f.createVault(vault.TypeVc, 10_000)

	p := f.allocateParams(v.ID, 1000, 1)
	s, err := f.invest(v, p)
	require.NoError(t, err)

	rp := auth.RefundParams{ScheduleID: s.ID, Nonce: 2}
	err = f.eng.DoInvestRefund(f.ctx, rp, f.user.MustSign(auth.DoRefund{RefundParams: rp}))
	assert.ErrorIs(t, err, unlocker.ErrNonRefundable)
}

func TestQuitInvestRefund(t *testing.T) {
	f := newFixture(t)
	v := f.createVault(vault.TypeVc, 10_000)
	s := f.investRefundable(v, 3600)

	// Nothing withdrawable and no voting power while the refund right lives.
	assert.Zero(t, f.voting.power(f.user.Address()))

	// Waiving works at any time inside the window.
	p := auth.RefundParams{ScheduleID: s.ID, Nonce: 2}
	require.NoError(t, f.eng.QuitInvestRefund(f.ctx, p, f.user.MustSign(auth.QuitRefund{RefundParams: p})))

	// The investment is now final: voting power and the withdrawable
	// payment vest, and the invested totals simply stay.
	invested, err := f.eng.InvestAmount(f.ctx, f.user.Address())
	require.NoError(t, err)
	assert.Equal(t, int64(1000), invested)
	withdrawable, err := f.eng.WithdrawablePaymentTokenAmount(f.ctx, testPayToken)
	require.NoError(t, err)
	assert.Equal(t, int64(500), withdrawable)
	assert.Equal(t, int64(1000), f.voting.power(f.user.Address()))

	view, err := f.eng.GetSchedule(f.ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, view.Schedule.CanRefund)
	assert.False(t, view.Schedule.HasRefunded)

	// The refund right is gone for good.
	p2 := auth.RefundParams{ScheduleID: s.ID, Nonce: 3}
	err = f.eng.DoInvestRefund(f.ctx, p2, f.user.MustSign(auth.DoRefund{RefundParams: p2}))
	assert.ErrorIs(t, err, unlocker.ErrNonRefundable)
}

func TestQuitRefundAfterHardRefund(t *testing.T) {
	f := newFixture(t)
	v := f.createVault(vault.TypeVc, 10_000)
	s := f.investRefundable(v, 0)

	p := auth.RefundParams{ScheduleID: s.ID, Nonce: 2}
	require.NoError(t, f.eng.DoInvestRefund(f.ctx, p, f.user.MustSign(auth.DoRefund{RefundParams: p})))

	// Waiving a refunded schedule fails as non-refundable, the same as any
	// other schedule without a live refund right.
	p2 := auth.RefundParams{ScheduleID: s.ID, Nonce: 3}
	err := f.eng.QuitInvestRefund(f.ctx, p2, f.user.MustSign(auth.QuitRefund{RefundParams: p2}))
	assert.ErrorIs(t, err, unlocker.ErrNonRefundable)
}

func TestDoInvestRefundInsufficientPaymentBalance(t *testing.T) {
	f := newFixture(t)

	// Seed a vault whose payment counter lags the schedule's payment leg, as
	// if the counters had diverged. The refund must refuse to run rather
	// than drive the counter negative.
	st := memory.New()
	eng := unlocker.New(st,
		unlocker.WithClock(func() time.Time { return f.now }),
	)
	require.NoError(t, eng.Start(f.ctx))
	defer eng.Stop()

	v := &vault.Vault{
		Entity:              types.NewEntity(),
		ID:                  1,
		Type:                vault.TypeVc,
		TokenAddress:        testToken,
		PaymentTokenAddress: testPayToken,
		Balance:             types.Zero(testToken),
		AllocatedAmount:     types.Tokens(testToken, 1000),
		PaymentAmount:       types.Tokens(testPayToken, 100),
	}
	s := &schedule.Schedule{
		Entity:           types.NewEntity(),
		ID:               1,
		VaultID:          1,
		UserAddress:      f.user.Address(),
		AllocationAmount: types.Tokens(testToken, 1000),
		ClaimedAmount:    types.Zero(testToken),
		PaymentAmount:    types.Tokens(testPayToken, 500),
		CanRefund:        true,
		StartTime:        f.now.Unix() - 10,
	}
	require.NoError(t, st.Commit(f.ctx, new(store.Batch).PutVault(v).PutSchedule(s)))

	p := auth.RefundParams{ScheduleID: 1, Nonce: 1}
	err := eng.DoInvestRefund(f.ctx, p, f.user.MustSign(auth.DoRefund{RefundParams: p}))
	assert.ErrorIs(t, err, unlocker.ErrInsufficientPaymentBalance)
}

// ──────────────────────────────────────────────────
// Payouts and withdrawals
// ──────────────────────────────────────────────────

func TestPayoutToken(t *testing.T) {
	f := newFixture(t)
	v := f.createVault(vault.TypePayout, 1000)

	p := auth.PayoutParams{VaultID: v.ID, To: f.user.Address(), Amount: 400, Reason: "grant", Nonce: 1}
	require.NoError(t, f.eng.PayoutToken(f.ctx, p, f.operator.MustSign(auth.Payout{PayoutParams: p})))

	got, err := f.eng.GetVault(f.ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(600), got.Balance.Units)
	assert.Equal(t, int64(400), got.TotalPayout.Units)
	assert.Equal(t, []int64{400}, f.mover.out)

	// Only the remaining balance is payable.
	p = auth.PayoutParams{VaultID: v.ID, To: f.user.Address(), Amount: 601, Nonce: 2}
	err = f.eng.PayoutToken(f.ctx, p, f.operator.MustSign(auth.Payout{PayoutParams: p}))
	assert.ErrorIs(t, err, unlocker.ErrInsufficientBalance)
}

func TestPayoutTokenAndLinearUnlock(t *testing.T) {
	f := newFixture(t)
	v := f.createVault(vault.TypePayout, 1000)

	p := auth.PayoutParams{VaultID: v.ID, To: f.user.Address(), Amount: 400, Reason: "locked grant", Nonce: 1}
	s, err := f.eng.PayoutTokenAndLinearUnlock(f.ctx, p, f.operator.MustSign(auth.PayoutAndLock{PayoutParams: p}))
	require.NoError(t, err)
	assert.Equal(t, f.user.Address(), s.UserAddress)
	assert.Equal(t, int64(400), s.AllocationAmount.Units)
	assert.False(t, s.CanRefund)

	// Nothing left custody, but the vault accounts the payout: the amount
	// leaves the free balance and waits as a schedule obligation.
	assert.Empty(t, f.mover.out)
	got, err := f.eng.GetVault(f.ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(600), got.Balance.Units)
	assert.Equal(t, int64(400), got.AllocatedAmount.Units)
	assert.Equal(t, int64(400), got.TotalPayout.Units)

	// The schedule vests with no cliff.
	f.advance(1000 * time.Second)
	claimable, err := f.eng.CanClaimAmount(f.ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(400), claimable.Units)
}

func TestWithdrawPaymentToken(t *testing.T) {
	f := newFixture(t)
	v := f.createVault(vault.TypeVc, 10_000)

	p := f.allocateParams(v.ID, 1000, 1)
	p.PaymentAmount = 500
	_, err := f.invest(v, p)
	require.NoError(t, err)

	// Exactly the accumulated balance can leave.
	require.NoError(t, f.eng.WithdrawPaymentToken(f.ctx, testAdmin, testPayToken, testAdmin, 500))
	withdrawable, err := f.eng.WithdrawablePaymentTokenAmount(f.ctx, testPayToken)
	require.NoError(t, err)
	assert.Zero(t, withdrawable)

	err = f.eng.WithdrawPaymentToken(f.ctx, testAdmin, testPayToken, testAdmin, 1)
	assert.ErrorIs(t, err, unlocker.ErrInsufficientBalance)
}

// ──────────────────────────────────────────────────
// Gates
// ──────────────────────────────────────────────────

type staticPauser bool

func (p staticPauser) Paused(context.Context) bool { return bool(p) }

type staticGate bool

func (g staticGate) PayoutEnabled(context.Context) bool { return bool(g) }

func TestPausedEngineRejectsMutations(t *testing.T) {
	eng := unlocker.New(memory.New(), unlocker.WithPauser(staticPauser(true)))
	ctx := context.Background()
	require.NoError(t, eng.Start(ctx))
	defer eng.Stop()

	_, err := eng.CreateVault(ctx, testAdmin, vault.Spec{Type: vault.TypePayout, TokenAddress: testToken})
	assert.ErrorIs(t, err, unlocker.ErrEnforcedPause)

	err = eng.DepositToken(ctx, testAdmin, 1, 100)
	assert.ErrorIs(t, err, unlocker.ErrEnforcedPause)

	// Reads stay available.
	_, err = eng.VaultCount(ctx)
	assert.NoError(t, err)
}

func TestPayoutGate(t *testing.T) {
	f := newFixture(t)
	v := f.createVault(vault.TypePayout, 1000)

	gated := unlocker.New(memory.New(), unlocker.WithPayoutGate(staticGate(false)))
	require.NoError(t, gated.Start(f.ctx))
	defer gated.Stop()

	p := auth.PayoutParams{VaultID: v.ID, To: f.user.Address(), Amount: 1, Nonce: 1}
	err := gated.PayoutToken(f.ctx, p, f.operator.MustSign(auth.Payout{PayoutParams: p}))
	assert.ErrorIs(t, err, unlocker.ErrPayoutTemporarilyDisabled)

	err = gated.WithdrawPaymentToken(f.ctx, testAdmin, testPayToken, testAdmin, 1)
	assert.ErrorIs(t, err, unlocker.ErrPayoutTemporarilyDisabled)
}

// ──────────────────────────────────────────────────
// Listing
// ──────────────────────────────────────────────────

func TestListUserSchedulesPagination(t *testing.T) {
	f := newFixture(t)
	v := f.createVault(vault.TypeLinearUnlocked, 100_000)

	for i := 0; i < 13; i++ {
		p := f.allocateParams(v.ID, 10, uint64(i+1))
		_, err := f.eng.AllocateLinearUnlockedTokens(f.ctx, p, f.operator.MustSign(auth.Allocate{AllocateParams: p}))
		require.NoError(t, err)
	}

	page1, total, err := f.eng.ListUserSchedules(f.ctx, f.user.Address(), schedule.ListOpts{Page: 1, PageSize: 5})
	require.NoError(t, err)
	assert.Equal(t, uint64(13), total)
	require.Len(t, page1, 5)
	assert.Equal(t, uint64(1), page1[0].Schedule.ID)

	page3, total, err := f.eng.ListUserSchedules(f.ctx, f.user.Address(), schedule.ListOpts{Page: 3, PageSize: 5})
	require.NoError(t, err)
	assert.Equal(t, uint64(13), total)
	require.Len(t, page3, 3)
	assert.Equal(t, uint64(13), page3[2].Schedule.ID)

	page4, _, err := f.eng.ListUserSchedules(f.ctx, f.user.Address(), schedule.ListOpts{Page: 4, PageSize: 5})
	require.NoError(t, err)
	assert.Empty(t, page4)

	other, err := auth.NewSigner()
	require.NoError(t, err)
	none, total, err := f.eng.ListUserSchedules(f.ctx, other.Address(), schedule.ListOpts{Page: 1, PageSize: 5})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, none)
}
