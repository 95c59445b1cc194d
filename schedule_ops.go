package unlocker

import (
	"context"

	"github.com/xraph/unlocker/auth"
	"github.com/xraph/unlocker/event"
	"github.com/xraph/unlocker/schedule"
	"github.com/xraph/unlocker/store"
	"github.com/xraph/unlocker/types"
	"github.com/xraph/unlocker/vault"
)

// termsFor derives a schedule's vesting terms from its vault: investment
// vaults carry the one-year cliff, everything else vests with no cliff.
func termsFor(v *vault.Vault) schedule.Terms {
	if v.Type == vault.TypeVc {
		return schedule.InvestTerms(v.UnlockedDuration)
	}
	return schedule.LinearTerms(v.UnlockedDuration)
}

// ──────────────────────────────────────────────────
// Allocation
// ──────────────────────────────────────────────────

// AllocateLinearUnlockedTokens grants vault tokens directly onto a fresh
// vesting schedule under an operator signature. No payment leg, no refund
// window.
func (e *Engine) AllocateLinearUnlockedTokens(ctx context.Context, params auth.AllocateParams, operatorSig auth.Signature) (*schedule.Schedule, error) {
	if err := e.guardMutate(ctx); err != nil {
		return nil, err
	}

	unlock := e.lockVault(params.VaultID)
	defer unlock()

	v, err := e.store.GetVault(ctx, params.VaultID)
	if err != nil {
		return nil, err
	}

	if err := e.requireSigner(auth.Allocate{AllocateParams: params}, operatorSig, v.Operator); err != nil {
		return nil, err
	}
	if err := e.checkNonce(ctx, v.Operator, params.Nonce); err != nil {
		return nil, err
	}

	if v.Type != vault.TypeLinearUnlocked {
		return nil, ErrInvalidVaultType
	}
	if params.PaymentAmount != 0 {
		return nil, ErrPaymentAmountNotZero
	}
	if params.CanRefund {
		return nil, ErrCanRefundNotFalse
	}
	if params.IsShareRevenue && !v.CanShareRevenue {
		return nil, ErrCannotShareRevenue
	}
	if params.TokenAmount <= 0 {
		return nil, ValidationError{Field: "token_amount", Message: "must be positive"}
	}

	amount := types.Tokens(v.TokenAddress.String(), params.TokenAmount)
	if amount.GreaterThan(v.Balance) {
		return nil, ErrInsufficientVaultBalance
	}

	e.createMu.Lock()
	defer e.createMu.Unlock()

	count, err := e.store.CountSchedules(ctx)
	if err != nil {
		return nil, err
	}

	now := e.now()
	user := params.UserAddress.Addr()
	s := &schedule.Schedule{
		Entity:           types.NewEntityAt(e.clock()),
		ID:               count + 1,
		VaultID:          v.ID,
		UserAddress:      user,
		AllocationAmount: amount,
		PaymentAmount:    types.Zero(v.PaymentTokenAddress.String()),
		IsShareRevenue:   params.IsShareRevenue,
		StartTime:        maxInt64(now, v.UnlockedSince),
		ClaimedAmount:    types.Zero(v.TokenAddress.String()),
	}

	// The allocation leaves the free balance and becomes an outstanding
	// schedule obligation.
	v.Balance = v.Balance.Subtract(amount)
	v.AllocatedAmount = v.AllocatedAmount.Add(amount)
	v.TouchAt(e.clock())

	b := new(store.Batch).
		PutVault(v).
		PutSchedule(s).
		UseNonce(v.Operator, params.Nonce)
	if params.IsShareRevenue {
		// No quit step exists for non-refundable schedules, so the
		// revenue-sharing weight vests with the allocation itself.
		b.AddAggregate(store.AggShareRevenue, user, params.TokenAmount).
			AddAggregate(store.AggTotalShareRevenue, "", params.TokenAmount)
	}

	if err := e.voting.GrantVotingPower(ctx, user, params.TokenAmount); err != nil {
		return nil, err
	}

	ev := &event.TokenAllocated{
		Meta:        e.meta(),
		VaultID:     v.ID,
		ScheduleID:  s.ID,
		UserAddress: user,
		Schedule:    s,
	}

	undo := func() {
		_ = e.voting.GrantVotingPower(ctx, user, -params.TokenAmount) //nolint:errcheck // compensating grant
	}
	if err := e.commit(ctx, b, undo, ev); err != nil {
		return nil, err
	}
	return s, nil
}

// InvestToken sells vault tokens to an investor: the payment leg moves into
// custody and the purchased tokens land on a vesting schedule. Requires both
// the investor's and the operator's signature over the same parameters.
func (e *Engine) InvestToken(ctx context.Context, params auth.AllocateParams, userSig, operatorSig auth.Signature) (*schedule.Schedule, error) {
	if err := e.guardMutate(ctx); err != nil {
		return nil, err
	}

	unlock := e.lockVault(params.VaultID)
	defer unlock()

	v, err := e.store.GetVault(ctx, params.VaultID)
	if err != nil {
		return nil, err
	}

	user := params.UserAddress.Addr()
	if err := e.requireSigner(auth.InvestUser{AllocateParams: params}, userSig, user); err != nil {
		return nil, err
	}
	if err := e.requireSigner(auth.InvestOperator{AllocateParams: params}, operatorSig, v.Operator); err != nil {
		return nil, err
	}
	if err := e.checkNonce(ctx, user, params.Nonce); err != nil {
		return nil, err
	}
	if err := e.checkNonce(ctx, v.Operator, params.Nonce); err != nil {
		return nil, err
	}

	if v.Type != vault.TypeVc {
		return nil, ErrInvalidVaultType
	}
	if params.IsShareRevenue && !v.CanShareRevenue {
		return nil, ErrCannotShareRevenue
	}
	if params.TokenAmount <= 0 {
		return nil, ValidationError{Field: "token_amount", Message: "must be positive"}
	}
	if params.PaymentAmount < 0 {
		return nil, ValidationError{Field: "payment_amount", Message: "must not be negative"}
	}
	if params.PaymentAmount > 0 && v.PaymentTokenAddress.IsZero() {
		return nil, ErrInvalidPaymentTokenAddress
	}

	amount := types.Tokens(v.TokenAddress.String(), params.TokenAmount)
	if amount.GreaterThan(v.Balance) {
		return nil, ErrInsufficientBalance
	}

	e.createMu.Lock()
	defer e.createMu.Unlock()

	count, err := e.store.CountSchedules(ctx)
	if err != nil {
		return nil, err
	}

	if params.PaymentAmount > 0 {
		if err := e.mover.TransferIn(ctx, v.PaymentTokenAddress, user, params.PaymentAmount); err != nil {
			return nil, err
		}
	}

	now := e.now()
	payment := types.Tokens(v.PaymentTokenAddress.String(), params.PaymentAmount)
	s := &schedule.Schedule{
		Entity:            types.NewEntityAt(e.clock()),
		ID:                count + 1,
		VaultID:           v.ID,
		UserAddress:       user,
		AllocationAmount:  amount,
		PaymentAmount:     payment,
		IsShareRevenue:    params.IsShareRevenue,
		CanRefund:         params.CanRefund,
		CanRefundDuration: params.CanRefundDuration,
		StartTime:         maxInt64(now, v.UnlockedSince),
		ClaimedAmount:     types.Zero(v.TokenAddress.String()),
	}

	v.Balance = v.Balance.Subtract(amount)
	v.AllocatedAmount = v.AllocatedAmount.Add(amount)
	v.PaymentAmount = v.PaymentAmount.Add(payment)
	v.TouchAt(e.clock())

	b := new(store.Batch).
		PutVault(v).
		PutSchedule(s).
		UseNonce(user, params.Nonce).
		UseNonce(v.Operator, params.Nonce).
		// Invested totals count every investment from the moment it lands;
		// a later hard refund subtracts them again.
		AddAggregate(store.AggInvest, user, params.TokenAmount).
		AddAggregate(store.AggTotalInvest, "", params.TokenAmount)
	if !params.CanRefund {
		// A non-refundable investment is final immediately: voting power,
		// revenue weight, and the admin-withdrawable payment all vest here
		// instead of at quitInvestRefund.
		if params.IsShareRevenue {
			b.AddAggregate(store.AggShareRevenue, user, params.TokenAmount).
				AddAggregate(store.AggTotalShareRevenue, "", params.TokenAmount)
		}
		b.AddAggregate(store.AggWithdrawable, v.PaymentTokenAddress, params.PaymentAmount)
		if err := e.voting.GrantVotingPower(ctx, user, params.TokenAmount); err != nil {
			if params.PaymentAmount > 0 {
				_ = e.mover.TransferOut(ctx, v.PaymentTokenAddress, user, params.PaymentAmount) //nolint:errcheck // compensating transfer
			}
			return nil, err
		}
	}

	invested := &event.TokenInvested{
		Meta:        e.meta(),
		VaultID:     v.ID,
		UserAddress: user,
		Params:      params,
		Signer:      v.Operator,
	}
	allocated := &event.TokenAllocated{
		Meta:        e.meta(),
		VaultID:     v.ID,
		ScheduleID:  s.ID,
		UserAddress: user,
		Schedule:    s,
	}

	undo := func() {
		if params.PaymentAmount > 0 {
			_ = e.mover.TransferOut(ctx, v.PaymentTokenAddress, user, params.PaymentAmount) //nolint:errcheck // compensating transfer
		}
		if !params.CanRefund {
			_ = e.voting.GrantVotingPower(ctx, user, -params.TokenAmount) //nolint:errcheck // compensating grant
		}
	}
	if err := e.commit(ctx, b, undo, invested, allocated); err != nil {
		return nil, err
	}
	return s, nil
}

// ──────────────────────────────────────────────────
// Claims
// ──────────────────────────────────────────────────

// ClaimUnlockedTokens releases vested tokens from a schedule to its user
// under the user's signature.
func (e *Engine) ClaimUnlockedTokens(ctx context.Context, params auth.ClaimParams, userSig auth.Signature) error {
	if err := e.guardMutate(ctx); err != nil {
		return err
	}

	// The vault id lives on the schedule, so resolve it first and refetch
	// both records under the vault lock.
	head, err := e.store.GetSchedule(ctx, params.ScheduleID)
	if err != nil {
		return err
	}

	unlock := e.lockVault(head.VaultID)
	defer unlock()

	s, err := e.store.GetSchedule(ctx, params.ScheduleID)
	if err != nil {
		return err
	}
	v, err := e.store.GetVault(ctx, s.VaultID)
	if err != nil {
		return err
	}

	if err := e.requireSigner(auth.Claim{ClaimParams: params}, userSig, s.UserAddress); err != nil {
		return err
	}
	if err := e.checkNonce(ctx, s.UserAddress, params.Nonce); err != nil {
		return err
	}

	if s.HasRefunded {
		return ErrScheduleAlreadyRefunded
	}
	if params.Amount <= 0 {
		return ValidationError{Field: "amount", Message: "must be positive"}
	}

	amount := types.Tokens(v.TokenAddress.String(), params.Amount)
	claimable := schedule.ClaimableAmount(s, termsFor(v), e.now())
	if amount.GreaterThan(claimable) {
		return ErrInsufficientClaimableAmount
	}

	if err := e.mover.TransferOut(ctx, v.TokenAddress, s.UserAddress, params.Amount); err != nil {
		return err
	}

	s.ClaimedAmount = s.ClaimedAmount.Add(amount)
	s.TouchAt(e.clock())

	// The balance was already debited when the schedule was funded; a claim
	// only settles the outstanding obligation.
	v.AllocatedAmount = v.AllocatedAmount.Subtract(amount)
	v.ClaimedAmount = v.ClaimedAmount.Add(amount)
	v.TouchAt(e.clock())

	ev := &event.TokenClaimed{
		Meta:         e.meta(),
		VaultID:      v.ID,
		ScheduleID:   s.ID,
		UserAddress:  s.UserAddress,
		TokenAddress: v.TokenAddress,
		Amount:       amount,
	}

	b := new(store.Batch).
		PutVault(v).
		PutSchedule(s).
		UseNonce(s.UserAddress, params.Nonce)
	if s.IsShareRevenue {
		// Claimed tokens stop earning revenue share.
		b.AddAggregate(store.AggShareRevenue, s.UserAddress, -params.Amount).
			AddAggregate(store.AggTotalShareRevenue, "", -params.Amount)
	}
	undo := func() {
		_ = e.mover.TransferIn(ctx, v.TokenAddress, s.UserAddress, params.Amount) //nolint:errcheck // compensating transfer
	}
	return e.commit(ctx, b, undo, ev)
}

// ──────────────────────────────────────────────────
// Refunds
// ──────────────────────────────────────────────────

// DoInvestRefund returns an investor's payment and releases the unclaimed
// allocation back to the vault's free pool. Only allowed after the refund
// waiting period has fully elapsed; the schedule is dead afterwards.
func (e *Engine) DoInvestRefund(ctx context.Context, params auth.RefundParams, userSig auth.Signature) error {
	if err := e.guardMutate(ctx); err != nil {
		return err
	}

	head, err := e.store.GetSchedule(ctx, params.ScheduleID)
	if err != nil {
		return err
	}

	unlock := e.lockVault(head.VaultID)
	defer unlock()

	s, err := e.store.GetSchedule(ctx, params.ScheduleID)
	if err != nil {
		return err
	}
	v, err := e.store.GetVault(ctx, s.VaultID)
	if err != nil {
		return err
	}

	if err := e.requireSigner(auth.DoRefund{RefundParams: params}, userSig, s.UserAddress); err != nil {
		return err
	}
	if err := e.checkNonce(ctx, s.UserAddress, params.Nonce); err != nil {
		return err
	}

	if s.HasRefunded {
		return ErrAlreadyRefunded
	}
	if !s.CanRefund {
		return ErrNonRefundable
	}
	if e.now() < s.StartTime+s.CanRefundDuration {
		return ErrRefundWindowNotReach
	}
	if v.PaymentAmount.LessThan(s.PaymentAmount) {
		return ErrInsufficientPaymentBalance
	}

	// The unclaimed remainder flows back into the vault's free balance.
	remaining := s.AllocationAmount.Subtract(s.ClaimedAmount)
	v.Balance = v.Balance.Add(remaining)
	v.AllocatedAmount = v.AllocatedAmount.Subtract(remaining)
	v.PaymentAmount = v.PaymentAmount.Subtract(s.PaymentAmount)
	v.TouchAt(e.clock())

	if s.PaymentAmount.IsPositive() {
		if err := e.mover.TransferOut(ctx, v.PaymentTokenAddress, s.UserAddress, s.PaymentAmount.Units); err != nil {
			return err
		}
	}

	s.HasRefunded = true
	s.CanRefund = false
	s.TouchAt(e.clock())

	ev := &event.TokenRefunded{
		Meta:             e.meta(),
		VaultID:          v.ID,
		ScheduleID:       s.ID,
		UserAddress:      s.UserAddress,
		AllocationAmount: s.AllocationAmount,
		PaymentAmount:    s.PaymentAmount,
		Schedule:         s,
	}

	b := new(store.Batch).
		PutVault(v).
		PutSchedule(s).
		UseNonce(s.UserAddress, params.Nonce).
		AddAggregate(store.AggInvest, s.UserAddress, -s.AllocationAmount.Units).
		AddAggregate(store.AggTotalInvest, "", -s.AllocationAmount.Units)
	undo := func() {
		if s.PaymentAmount.IsPositive() {
			_ = e.mover.TransferIn(ctx, v.PaymentTokenAddress, s.UserAddress, s.PaymentAmount.Units) //nolint:errcheck // compensating transfer
		}
	}
	return e.commit(ctx, b, undo, ev)
}

// QuitInvestRefund irrevocably waives the refund right. The investment
// becomes final: voting power, revenue weight, and the admin-withdrawable
// payment vest here, and the schedule keeps vesting normally.
func (e *Engine) QuitInvestRefund(ctx context.Context, params auth.RefundParams, userSig auth.Signature) error {
	if err := e.guardMutate(ctx); err != nil {
		return err
	}

	head, err := e.store.GetSchedule(ctx, params.ScheduleID)
	if err != nil {
		return err
	}

	unlock := e.lockVault(head.VaultID)
	defer unlock()

	s, err := e.store.GetSchedule(ctx, params.ScheduleID)
	if err != nil {
		return err
	}
	v, err := e.store.GetVault(ctx, s.VaultID)
	if err != nil {
		return err
	}

	if err := e.requireSigner(auth.QuitRefund{RefundParams: params}, userSig, s.UserAddress); err != nil {
		return err
	}
	if err := e.checkNonce(ctx, s.UserAddress, params.Nonce); err != nil {
		return err
	}

	// A refunded schedule already lost its refund right, so one check covers
	// both the never-refundable and the already-refunded case.
	if !s.CanRefund {
		return ErrNonRefundable
	}

	s.CanRefund = false
	s.TouchAt(e.clock())

	b := new(store.Batch).
		PutSchedule(s).
		UseNonce(s.UserAddress, params.Nonce)
	if s.IsShareRevenue {
		b.AddAggregate(store.AggShareRevenue, s.UserAddress, s.AllocationAmount.Units).
			AddAggregate(store.AggTotalShareRevenue, "", s.AllocationAmount.Units)
	}
	b.AddAggregate(store.AggWithdrawable, v.PaymentTokenAddress, s.PaymentAmount.Units)

	if err := e.voting.GrantVotingPower(ctx, s.UserAddress, s.AllocationAmount.Units); err != nil {
		return err
	}

	ev := &event.TokenRefunded{
		Meta:             e.meta(),
		VaultID:          v.ID,
		ScheduleID:       s.ID,
		UserAddress:      s.UserAddress,
		AllocationAmount: s.AllocationAmount,
		PaymentAmount:    s.PaymentAmount,
		Schedule:         s,
	}

	undo := func() {
		_ = e.voting.GrantVotingPower(ctx, s.UserAddress, -s.AllocationAmount.Units) //nolint:errcheck // compensating grant
	}
	return e.commit(ctx, b, undo, ev)
}
