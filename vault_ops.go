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

// ──────────────────────────────────────────────────
// Vault Management
// ──────────────────────────────────────────────────

// CreateVault creates a new vault. Admin only. Vault ids are sequential
// starting at 1 and never reused.
func (e *Engine) CreateVault(ctx context.Context, caller types.Address, spec vault.Spec) (*vault.Vault, error) {
	if err := e.guardMutate(ctx); err != nil {
		return nil, err
	}
	if err := e.requireAdmin(ctx, caller); err != nil {
		return nil, err
	}

	if !spec.Type.Valid() {
		return nil, ErrInvalidVaultType
	}
	if spec.TokenAddress.IsZero() {
		return nil, ValidationError{Field: "token_address", Message: "must not be zero"}
	}
	if spec.Type == vault.TypeVc && spec.PaymentTokenAddress.IsZero() {
		return nil, ErrInvalidPaymentTokenAddress
	}

	e.createMu.Lock()
	defer e.createMu.Unlock()

	count, err := e.store.CountVaults(ctx)
	if err != nil {
		return nil, err
	}

	token := spec.TokenAddress.Addr().String()
	payToken := spec.PaymentTokenAddress.Addr().String()

	v := &vault.Vault{
		Entity:              types.NewEntityAt(e.clock()),
		ID:                  count + 1,
		Name:                spec.Name,
		Type:                spec.Type,
		TokenAddress:        spec.TokenAddress.Addr(),
		PaymentTokenAddress: spec.PaymentTokenAddress.Addr(),
		Operator:            spec.Operator.Addr(),
		CanShareRevenue:     spec.CanShareRevenue,
		UnlockedSince:       spec.UnlockedSince,
		UnlockedDuration:    spec.UnlockedDuration,
		TotalDeposit:        types.Zero(token),
		Balance:             types.Zero(token),
		TotalPayout:         types.Zero(token),
		AllocatedAmount:     types.Zero(token),
		PaymentAmount:       types.Zero(payToken),
		ClaimedAmount:       types.Zero(token),
	}

	ev := &event.VaultCreated{
		Meta:                e.meta(),
		VaultID:             v.ID,
		Name:                v.Name,
		Type:                v.Type,
		TokenAddress:        v.TokenAddress,
		PaymentTokenAddress: v.PaymentTokenAddress,
		Operator:            v.Operator,
	}

	b := new(store.Batch).PutVault(v)
	if err := e.commit(ctx, b, nil, ev); err != nil {
		return nil, err
	}

	e.logger.Info("vault created",
		"vault_id", v.ID,
		"type", v.Type.String(),
		"operator", v.Operator.Short(),
	)
	return v, nil
}

// UpdateVaultOperator replaces a vault's operator. Admin only.
func (e *Engine) UpdateVaultOperator(ctx context.Context, caller types.Address, vaultID uint64, newOperator types.Address) error {
	if err := e.guardMutate(ctx); err != nil {
		return err
	}
	if err := e.requireAdmin(ctx, caller); err != nil {
		return err
	}

	unlock := e.lockVault(vaultID)
	defer unlock()

	v, err := e.store.GetVault(ctx, vaultID)
	if err != nil {
		return err
	}

	v.Operator = newOperator.Addr()
	v.TouchAt(e.clock())

	ev := &event.VaultOperatorUpdated{
		Meta:        e.meta(),
		VaultID:     v.ID,
		NewOperator: v.Operator,
	}

	return e.commit(ctx, new(store.Batch).PutVault(v), nil, ev)
}

// DepositToken moves amount base units of the vault's token into custody.
// Anyone may deposit. A zero amount succeeds without touching state but
// still emits the deposit event.
func (e *Engine) DepositToken(ctx context.Context, depositor types.Address, vaultID uint64, amount int64) error {
	if err := e.guardMutate(ctx); err != nil {
		return err
	}
	if amount < 0 {
		return ValidationError{Field: "amount", Message: "must not be negative"}
	}

	unlock := e.lockVault(vaultID)
	defer unlock()

	v, err := e.store.GetVault(ctx, vaultID)
	if err != nil {
		return err
	}

	ev := &event.TokenDeposited{
		Meta:         e.meta(),
		Depositor:    depositor.Addr(),
		VaultID:      v.ID,
		TokenAddress: v.TokenAddress,
		Amount:       types.Tokens(v.TokenAddress.String(), amount),
	}

	if amount == 0 {
		e.plugins.Emit(ctx, ev)
		return nil
	}

	if err := e.mover.TransferIn(ctx, v.TokenAddress, depositor.Addr(), amount); err != nil {
		return err
	}

	v.TotalDeposit = v.TotalDeposit.Add(ev.Amount)
	v.Balance = v.Balance.Add(ev.Amount)
	v.TouchAt(e.clock())

	undo := func() {
		_ = e.mover.TransferOut(ctx, v.TokenAddress, depositor.Addr(), amount) //nolint:errcheck // compensating transfer
	}
	return e.commit(ctx, new(store.Batch).PutVault(v), undo, ev)
}

// WithdrawPaymentToken pays out accumulated withdrawable payment tokens to
// an admin-chosen recipient. Admin only, and disabled along with payouts.
func (e *Engine) WithdrawPaymentToken(ctx context.Context, caller, token, to types.Address, amount int64) error {
	if err := e.guardPayout(ctx); err != nil {
		return err
	}
	if err := e.requireAdmin(ctx, caller); err != nil {
		return err
	}
	if amount <= 0 {
		return ValidationError{Field: "amount", Message: "must be positive"}
	}

	available, err := e.store.Aggregate(ctx, store.AggWithdrawable, token)
	if err != nil {
		return err
	}
	if amount > available {
		return ErrInsufficientBalance
	}

	if err := e.mover.TransferOut(ctx, token.Addr(), to.Addr(), amount); err != nil {
		return err
	}

	ev := &event.PaymentTokenWithdrawn{
		Meta:   e.meta(),
		Token:  token.Addr(),
		To:     to.Addr(),
		Amount: types.Tokens(token.String(), amount),
	}

	b := new(store.Batch).AddAggregate(store.AggWithdrawable, token, -amount)
	undo := func() {
		_ = e.mover.TransferIn(ctx, token.Addr(), to.Addr(), amount) //nolint:errcheck // compensating transfer
	}
	return e.commit(ctx, b, undo, ev)
}

// ──────────────────────────────────────────────────
// Payouts
// ──────────────────────────────────────────────────

// PayoutToken disburses unallocated vault balance to a recipient under an
// operator signature.
func (e *Engine) PayoutToken(ctx context.Context, params auth.PayoutParams, operatorSig auth.Signature) error {
	if err := e.guardPayout(ctx); err != nil {
		return err
	}

	unlock := e.lockVault(params.VaultID)
	defer unlock()

	v, err := e.store.GetVault(ctx, params.VaultID)
	if err != nil {
		return err
	}

	if err := e.requireSigner(auth.Payout{PayoutParams: params}, operatorSig, v.Operator); err != nil {
		return err
	}
	if err := e.checkNonce(ctx, v.Operator, params.Nonce); err != nil {
		return err
	}

	if v.Type != vault.TypePayout {
		return ErrInvalidVaultType
	}
	if params.Amount <= 0 {
		return ValidationError{Field: "amount", Message: "must be positive"}
	}

	amount := types.Tokens(v.TokenAddress.String(), params.Amount)
	if amount.GreaterThan(v.Balance) {
		return ErrInsufficientBalance
	}

	if err := e.mover.TransferOut(ctx, v.TokenAddress, params.To.Addr(), params.Amount); err != nil {
		return err
	}

	v.Balance = v.Balance.Subtract(amount)
	v.TotalPayout = v.TotalPayout.Add(amount)
	v.TouchAt(e.clock())

	ev := &event.TokenPaid{
		Meta:    e.meta(),
		VaultID: v.ID,
		To:      params.To.Addr(),
		Amount:  amount,
		Reason:  params.Reason,
		Nonce:   params.Nonce,
		Signer:  v.Operator,
	}

	b := new(store.Batch).
		PutVault(v).
		UseNonce(v.Operator, params.Nonce)
	undo := func() {
		_ = e.mover.TransferIn(ctx, v.TokenAddress, params.To.Addr(), params.Amount) //nolint:errcheck // compensating transfer
	}
	return e.commit(ctx, b, undo, ev)
}

// PayoutTokenAndLinearUnlock reserves unallocated balance onto a fresh
// no-cliff vesting schedule for the recipient instead of transferring
// immediately.
func (e *Engine) PayoutTokenAndLinearUnlock(ctx context.Context, params auth.PayoutParams, operatorSig auth.Signature) (*schedule.Schedule, error) {
	if err := e.guardPayout(ctx); err != nil {
		return nil, err
	}

	unlock := e.lockVault(params.VaultID)
	defer unlock()

	v, err := e.store.GetVault(ctx, params.VaultID)
	if err != nil {
		return nil, err
	}

	if err := e.requireSigner(auth.PayoutAndLock{PayoutParams: params}, operatorSig, v.Operator); err != nil {
		return nil, err
	}
	if err := e.checkNonce(ctx, v.Operator, params.Nonce); err != nil {
		return nil, err
	}

	if v.Type != vault.TypePayout {
		return nil, ErrInvalidVaultType
	}
	if params.Amount <= 0 {
		return nil, ValidationError{Field: "amount", Message: "must be positive"}
	}

	amount := types.Tokens(v.TokenAddress.String(), params.Amount)
	if amount.GreaterThan(v.Balance) {
		return nil, ErrInsufficientAvailableAmount
	}

	e.createMu.Lock()
	defer e.createMu.Unlock()

	count, err := e.store.CountSchedules(ctx)
	if err != nil {
		return nil, err
	}

	now := e.now()
	s := &schedule.Schedule{
		Entity:           types.NewEntityAt(e.clock()),
		ID:               count + 1,
		VaultID:          v.ID,
		UserAddress:      params.To.Addr(),
		AllocationAmount: amount,
		PaymentAmount:    types.Zero(v.PaymentTokenAddress.String()),
		StartTime:        maxInt64(now, v.UnlockedSince),
		ClaimedAmount:    types.Zero(v.TokenAddress.String()),
	}

	// Paid out of the free balance, but held back as a schedule obligation
	// until claimed.
	v.Balance = v.Balance.Subtract(amount)
	v.AllocatedAmount = v.AllocatedAmount.Add(amount)
	v.TotalPayout = v.TotalPayout.Add(amount)
	v.TouchAt(e.clock())

	paid := &event.TokenPaid{
		Meta:    e.meta(),
		VaultID: v.ID,
		To:      s.UserAddress,
		Amount:  amount,
		Reason:  params.Reason,
		Nonce:   params.Nonce,
		Signer:  v.Operator,
	}
	allocated := &event.TokenAllocated{
		Meta:        e.meta(),
		VaultID:     v.ID,
		ScheduleID:  s.ID,
		UserAddress: s.UserAddress,
		Schedule:    s,
	}

	b := new(store.Batch).
		PutVault(v).
		PutSchedule(s).
		UseNonce(v.Operator, params.Nonce)
	if err := e.commit(ctx, b, nil, paid, allocated); err != nil {
		return nil, err
	}
	return s, nil
}
