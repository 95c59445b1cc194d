package vault

import (
	"github.com/xraph/unlocker/types"
)

// Type selects a vault's allocation policy.
type Type uint8

const (
	// TypeVc vaults hold tokens sold to investors: allocations require a
	// payment leg and a dual user/operator signature.
	TypeVc Type = iota
	// TypeLinearUnlocked vaults grant tokens directly onto linear vesting
	// schedules with no payment leg.
	TypeLinearUnlocked
	// TypePayout vaults disburse tokens to arbitrary recipients under the
	// payout quota.
	TypePayout
)

// Valid reports whether t is a known vault type.
func (t Type) Valid() bool { return t <= TypePayout }

func (t Type) String() string {
	switch t {
	case TypeVc:
		return "vc"
	case TypeLinearUnlocked:
		return "linear_unlocked"
	case TypePayout:
		return "payout"
	default:
		return "unknown"
	}
}

// Vault is a named pool of token custody. Counters mutate only through
// engine operations; the record is never deleted.
type Vault struct {
	types.Entity
	ID                  uint64        `json:"id"`
	Name                string        `json:"name"`
	Type                Type          `json:"type"`
	TokenAddress        types.Address `json:"token_address"`
	PaymentTokenAddress types.Address `json:"payment_token_address"`
	Operator            types.Address `json:"operator"`
	CanShareRevenue     bool          `json:"can_share_revenue"`
	UnlockedSince       int64         `json:"unlocked_since"`   // unix seconds; schedules never vest before this
	UnlockedDuration    int64         `json:"unlocked_duration"` // vesting ramp length in seconds

	// Mutable counters.
	TotalDeposit    types.Amount `json:"total_deposit"`
	Balance         types.Amount `json:"balance"`
	TotalPayout     types.Amount `json:"total_payout"`
	AllocatedAmount types.Amount `json:"allocated_amount"`
	PaymentAmount   types.Amount `json:"payment_amount"`
	ClaimedAmount   types.Amount `json:"claimed_amount"`
}

// Spec carries the caller-supplied fields of a new vault. Counters are not
// part of the spec; the engine zeroes them on creation.
type Spec struct {
	Name                string        `json:"name"`
	Type                Type          `json:"type"`
	TokenAddress        types.Address `json:"token_address"`
	PaymentTokenAddress types.Address `json:"payment_token_address"`
	Operator            types.Address `json:"operator"`
	CanShareRevenue     bool          `json:"can_share_revenue"`
	UnlockedSince       int64         `json:"unlocked_since"`
	UnlockedDuration    int64         `json:"unlocked_duration"`
}

// Clone returns a deep copy. Stores hand out clones so callers can't mutate
// ledger state behind the engine's back.
func (v *Vault) Clone() *Vault {
	c := *v
	return &c
}
