package schedule

import (
	"github.com/xraph/unlocker/types"
)

// InvestCliffSeconds is the lock period applied to investment-originated
// schedules before linear vesting begins. Directly allocated and
// payout-and-lock schedules vest with no cliff.
const InvestCliffSeconds int64 = 365 * 24 * 60 * 60

// Terms fixes the vesting shape for one schedule: an optional cliff after
// StartTime, then a linear ramp over Duration seconds. Duration 0 means the
// full allocation unlocks as soon as the cliff has passed.
type Terms struct {
	CliffSeconds int64
	Duration     int64
}

// LinearTerms vests linearly over duration with no cliff.
func LinearTerms(duration int64) Terms {
	return Terms{Duration: duration}
}

// InvestTerms applies the one-year cliff, then vests linearly over duration.
func InvestTerms(duration int64) Terms {
	return Terms{CliffSeconds: InvestCliffSeconds, Duration: duration}
}

// UnlockedAmount computes how much of the schedule's allocation has vested
// at the unix timestamp `at`.
//
// The ramp is integer arithmetic: allocation * elapsed / duration, clamped
// to [0, allocation]. Claims already taken are not subtracted here; see
// ClaimableAmount.
func UnlockedAmount(s *Schedule, terms Terms, at int64) types.Amount {
	if s.HasRefunded {
		return types.Zero(s.AllocationAmount.Token)
	}

	vestStart := s.StartTime + terms.CliffSeconds
	if at < vestStart {
		return types.Zero(s.AllocationAmount.Token)
	}
	if terms.Duration <= 0 {
		return s.AllocationAmount
	}

	elapsed := at - vestStart
	if elapsed >= terms.Duration {
		return s.AllocationAmount
	}
	return s.AllocationAmount.MulDiv(elapsed, terms.Duration).Clamp(s.AllocationAmount)
}

// ClaimableAmount is the vested portion not yet claimed.
func ClaimableAmount(s *Schedule, terms Terms, at int64) types.Amount {
	unlocked := UnlockedAmount(s, terms, at)
	return unlocked.Subtract(s.ClaimedAmount).Clamp(s.AllocationAmount)
}
