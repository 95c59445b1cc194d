package schedule

import (
	"github.com/xraph/unlocker/types"
)

// Schedule is one user's individually vesting grant of tokens, with an
// optional refund window.
//
// State machine: a schedule enters as allocated (HasRefunded=false). Claims
// are self-loops that raise ClaimedAmount monotonically. A refundable
// schedule leaves the refund window exactly once: either hard-refunded via
// doInvestRefund (HasRefunded=true, CanRefund=false, claiming forever
// blocked) or committed via quitInvestRefund (CanRefund=false only, normal
// vesting resumes). CanRefund never transitions back to true.
type Schedule struct {
	types.Entity
	ID                uint64        `json:"id"`
	VaultID           uint64        `json:"vault_id"`
	UserAddress       types.Address `json:"user_address"`
	AllocationAmount  types.Amount  `json:"allocation_amount"`
	PaymentAmount     types.Amount  `json:"payment_amount"`
	IsShareRevenue    bool          `json:"is_share_revenue"`
	CanRefund         bool          `json:"can_refund"`
	CanRefundDuration int64         `json:"can_refund_duration"` // seconds after StartTime
	HasRefunded       bool          `json:"has_refunded"`
	StartTime         int64         `json:"start_time"` // unix seconds, max(creation time, vault.UnlockedSince)
	ClaimedAmount     types.Amount  `json:"claimed_amount"`
}

// Clone returns a deep copy.
func (s *Schedule) Clone() *Schedule {
	c := *s
	return &c
}

// View is a schedule plus its vesting position at a query timestamp.
type View struct {
	Schedule          *Schedule    `json:"schedule"`
	CanUnlockedAmount types.Amount `json:"can_unlocked_amount"`
	CanClaimAmount    types.Amount `json:"can_claim_amount"`
}

// ListOpts paginates a user's schedules. Pages are 1-indexed and returned in
// creation order.
type ListOpts struct {
	Page     int
	PageSize int
}

// Window returns the half-open index range [lo, hi) selected by the opts
// over a list of n schedules.
func (o ListOpts) Window(n int) (int, int) {
	page := o.Page
	if page < 1 {
		page = 1
	}
	size := o.PageSize
	if size < 1 {
		size = 1
	}
	lo := (page - 1) * size
	if lo > n {
		lo = n
	}
	hi := lo + size
	if hi > n {
		hi = n
	}
	return lo, hi
}
