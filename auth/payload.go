package auth

import (
	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"

	"github.com/xraph/unlocker/types"
)

// Schema names the typed-payload shape a signature commits to. Two payloads
// with identical fields but different schemas never share a digest, so a
// signature authorizing one operation can't be replayed on another.
type Schema string

const (
	SchemaInvestUser     Schema = "invest_user"
	SchemaInvestOperator Schema = "invest_operator"
	SchemaAllocate       Schema = "allocate_linear_unlocked_tokens"
	SchemaClaim          Schema = "claim_unlocked_token"
	SchemaDoRefund       Schema = "invest_do_refund"
	SchemaQuitRefund     Schema = "invest_quit_refund"
	SchemaPayout         Schema = "payout"
	SchemaPayoutAndLock  Schema = "payout_and_lock"
)

// Payload is a signable typed structure.
type Payload interface {
	Schema() Schema
	EncodeFields(e *Encoder)
}

// Digest returns the 32-byte hash a signer commits to: sha256 over the
// schema name followed by the canonical field encoding.
func Digest(p Payload) []byte {
	e := NewEncoder()
	e.String(string(p.Schema()))
	p.EncodeFields(e)
	return bsvhash.Sha256(e.Bytes())
}

// ──────────────────────────────────────────────────
// Parameter structs
// ──────────────────────────────────────────────────

// AllocateParams carries the full argument set of an allocation-style
// operation. Token quantities are base units of the vault's token and
// payment token respectively.
type AllocateParams struct {
	VaultID           uint64        `json:"vault_id"`
	UserAddress       types.Address `json:"user_address"`
	TokenAmount       int64         `json:"token_amount"`
	PaymentAmount     int64         `json:"payment_amount"`
	IsShareRevenue    bool          `json:"is_share_revenue"`
	CanRefund         bool          `json:"can_refund"`
	CanRefundDuration int64         `json:"can_refund_duration"`
	Nonce             uint64        `json:"nonce"`
}

func (p AllocateParams) encode(e *Encoder) {
	e.Uint64(p.VaultID)
	e.Address(p.UserAddress)
	e.Int64(p.TokenAmount)
	e.Int64(p.PaymentAmount)
	e.Bool(p.IsShareRevenue)
	e.Bool(p.CanRefund)
	e.Int64(p.CanRefundDuration)
	e.Uint64(p.Nonce)
}

// ClaimParams is the payload of a claim call.
type ClaimParams struct {
	ScheduleID uint64 `json:"schedule_id"`
	Amount     int64  `json:"amount"`
	Nonce      uint64 `json:"nonce"`
}

func (p ClaimParams) encode(e *Encoder) {
	e.Uint64(p.ScheduleID)
	e.Int64(p.Amount)
	e.Uint64(p.Nonce)
}

// RefundParams is the payload of refund and quit-refund calls.
type RefundParams struct {
	ScheduleID uint64 `json:"schedule_id"`
	Nonce      uint64 `json:"nonce"`
}

func (p RefundParams) encode(e *Encoder) {
	e.Uint64(p.ScheduleID)
	e.Uint64(p.Nonce)
}

// PayoutParams is the payload of payout and payout-and-lock calls.
type PayoutParams struct {
	VaultID uint64        `json:"vault_id"`
	To      types.Address `json:"to"`
	Amount  int64         `json:"amount"`
	Reason  string        `json:"reason"`
	Nonce   uint64        `json:"nonce"`
}

func (p PayoutParams) encode(e *Encoder) {
	e.Uint64(p.VaultID)
	e.Address(p.To)
	e.Int64(p.Amount)
	e.String(p.Reason)
	e.Uint64(p.Nonce)
}

// ──────────────────────────────────────────────────
// Schema-bound payloads
// ──────────────────────────────────────────────────

// InvestUser binds AllocateParams to the user-side invest schema.
type InvestUser struct{ AllocateParams }

func (InvestUser) Schema() Schema { return SchemaInvestUser }
func (p InvestUser) EncodeFields(e *Encoder) { p.AllocateParams.encode(e) }

// InvestOperator binds AllocateParams to the operator-side invest schema.
type InvestOperator struct{ AllocateParams }

func (InvestOperator) Schema() Schema { return SchemaInvestOperator }
func (p InvestOperator) EncodeFields(e *Encoder) { p.AllocateParams.encode(e) }

// Allocate binds AllocateParams to the direct-allocation schema.
type Allocate struct{ AllocateParams }

func (Allocate) Schema() Schema { return SchemaAllocate }
func (p Allocate) EncodeFields(e *Encoder) { p.AllocateParams.encode(e) }

// Claim binds ClaimParams to the claim schema.
type Claim struct{ ClaimParams }

func (Claim) Schema() Schema { return SchemaClaim }
func (p Claim) EncodeFields(e *Encoder) { p.ClaimParams.encode(e) }

// DoRefund binds RefundParams to the hard-refund schema.
type DoRefund struct{ RefundParams }

func (DoRefund) Schema() Schema { return SchemaDoRefund }
func (p DoRefund) EncodeFields(e *Encoder) { p.RefundParams.encode(e) }

// QuitRefund binds RefundParams to the quit-refund schema.
type QuitRefund struct{ RefundParams }

func (QuitRefund) Schema() Schema { return SchemaQuitRefund }
func (p QuitRefund) EncodeFields(e *Encoder) { p.RefundParams.encode(e) }

// Payout binds PayoutParams to the payout schema.
type Payout struct{ PayoutParams }

func (Payout) Schema() Schema { return SchemaPayout }
func (p Payout) EncodeFields(e *Encoder) { p.PayoutParams.encode(e) }

// PayoutAndLock binds PayoutParams to the payout-and-lock schema.
type PayoutAndLock struct{ PayoutParams }

func (PayoutAndLock) Schema() Schema { return SchemaPayoutAndLock }
func (p PayoutAndLock) EncodeFields(e *Encoder) { p.PayoutParams.encode(e) }
