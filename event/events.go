// Package event defines the domain events the engine emits after each
// committed operation. Events are the audit trail: plugins receive them
// synchronously, in commit order, with the state they describe already
// persisted.
package event

import (
	"github.com/xraph/unlocker/auth"
	"github.com/xraph/unlocker/id"
	"github.com/xraph/unlocker/schedule"
	"github.com/xraph/unlocker/types"
	"github.com/xraph/unlocker/vault"
)

// Event is implemented by every domain event.
type Event interface {
	Kind() string
	EventID() id.EventID
}

// Meta carries the identity and timestamp shared by all events.
type Meta struct {
	ID id.EventID `json:"id"`
	At int64      `json:"at"` // unix seconds, engine clock at commit
}

// NewMeta stamps a fresh event identity.
func NewMeta(at int64) Meta {
	return Meta{ID: id.NewEventID(), At: at}
}

// EventID implements Event.
func (m Meta) EventID() id.EventID { return m.ID }

// VaultCreated is emitted once per createVault.
type VaultCreated struct {
	Meta
	VaultID             uint64        `json:"vault_id"`
	Name                string        `json:"name"`
	Type                vault.Type    `json:"type"`
	TokenAddress        types.Address `json:"token_address"`
	PaymentTokenAddress types.Address `json:"payment_token_address"`
	Operator            types.Address `json:"operator"`
}

func (VaultCreated) Kind() string { return "vault.created" }

// VaultOperatorUpdated is emitted when an admin replaces a vault's operator.
type VaultOperatorUpdated struct {
	Meta
	VaultID     uint64        `json:"vault_id"`
	NewOperator types.Address `json:"new_operator"`
}

func (VaultOperatorUpdated) Kind() string { return "vault.operator_updated" }

// TokenDeposited is emitted on every deposit, including zero-amount no-ops.
type TokenDeposited struct {
	Meta
	Depositor    types.Address `json:"depositor"`
	VaultID      uint64        `json:"vault_id"`
	TokenAddress types.Address `json:"token_address"`
	Amount       types.Amount  `json:"amount"`
}

func (TokenDeposited) Kind() string { return "vault.token_deposited" }

// TokenAllocated is emitted whenever a schedule is created, by direct
// allocation, investment, or payout-and-lock.
type TokenAllocated struct {
	Meta
	VaultID     uint64             `json:"vault_id"`
	ScheduleID  uint64             `json:"schedule_id"`
	UserAddress types.Address      `json:"user_address"`
	Schedule    *schedule.Schedule `json:"schedule"`
}

func (TokenAllocated) Kind() string { return "schedule.token_allocated" }

// TokenInvested is emitted by investToken, before its TokenAllocated.
type TokenInvested struct {
	Meta
	VaultID     uint64              `json:"vault_id"`
	UserAddress types.Address       `json:"user_address"`
	Params      auth.AllocateParams `json:"params"`
	Signer      types.Address       `json:"signer"`
}

func (TokenInvested) Kind() string { return "schedule.token_invested" }

// TokenClaimed is emitted when vested tokens leave custody toward the user.
type TokenClaimed struct {
	Meta
	VaultID      uint64        `json:"vault_id"`
	ScheduleID   uint64        `json:"schedule_id"`
	UserAddress  types.Address `json:"user_address"`
	TokenAddress types.Address `json:"token_address"`
	Amount       types.Amount  `json:"amount"`
}

func (TokenClaimed) Kind() string { return "schedule.token_claimed" }

// TokenRefunded is emitted by doInvestRefund and, with the schedule showing
// HasRefunded=false, by quitInvestRefund.
type TokenRefunded struct {
	Meta
	VaultID          uint64             `json:"vault_id"`
	ScheduleID       uint64             `json:"schedule_id"`
	UserAddress      types.Address      `json:"user_address"`
	AllocationAmount types.Amount       `json:"allocation_amount"`
	PaymentAmount    types.Amount       `json:"payment_amount"`
	Schedule         *schedule.Schedule `json:"schedule"`
}

func (TokenRefunded) Kind() string { return "schedule.token_refunded" }

// TokenPaid is emitted by payoutToken and payoutTokenAndLinearUnlock.
type TokenPaid struct {
	Meta
	VaultID uint64        `json:"vault_id"`
	To      types.Address `json:"to"`
	Amount  types.Amount  `json:"amount"`
	Reason  string        `json:"reason"`
	Nonce   uint64        `json:"nonce"`
	Signer  types.Address `json:"signer"`
}

func (TokenPaid) Kind() string { return "vault.token_paid" }

// PaymentTokenWithdrawn is emitted by adminWithdrawPaymentToken.
type PaymentTokenWithdrawn struct {
	Meta
	Token  types.Address `json:"token"`
	To     types.Address `json:"to"`
	Amount types.Amount  `json:"amount"`
}

func (PaymentTokenWithdrawn) Kind() string { return "vault.payment_token_withdrawn" }
