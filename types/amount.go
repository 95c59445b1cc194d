// Package types provides common types used across Unlocker.
package types

import (
	"encoding/json"
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"
)

// Amount represents a quantity of a fungible token in its smallest base unit.
// All arithmetic is integer-only — no floating point.
//
// Examples:
//   - Tokens("0xabc...", 100) = 100 base units of the 0xabc token
//   - Zero("0xabc...")        = an empty balance of that token
type Amount struct {
	Units int64  `json:"units"` // Smallest base unit of the token
	Token string `json:"token"` // Token contract address, lowercase hex
}

// Tokens creates an Amount of the given token.
func Tokens(token string, units int64) Amount {
	return Amount{Units: units, Token: strings.ToLower(token)}
}

// Zero returns a zero Amount of the specified token.
func Zero(token string) Amount { return Amount{Units: 0, Token: strings.ToLower(token)} }

// Arithmetic operations

// Add adds two Amounts. Panics if tokens don't match.
func (a Amount) Add(other Amount) Amount {
	a.assertSameToken(other)
	return Amount{Units: a.Units + other.Units, Token: a.mergeToken(other)}
}

// Subtract subtracts another Amount. Panics if tokens don't match.
func (a Amount) Subtract(other Amount) Amount {
	a.assertSameToken(other)
	return Amount{Units: a.Units - other.Units, Token: a.mergeToken(other)}
}

// MulDiv computes a * num / den with integer division.
// This is the vesting ramp primitive: unlocked = total * elapsed / duration.
// The intermediate product is carried in 128 bits, so 18-decimal allocations
// do not overflow mid-ramp.
func (a Amount) MulDiv(num, den int64) Amount {
	if den == 0 {
		panic("amount: division by zero")
	}

	neg := false
	x, y, d := a.Units, num, den
	if x < 0 {
		x, neg = -x, !neg
	}
	if y < 0 {
		y, neg = -y, !neg
	}
	if d < 0 {
		d, neg = -d, !neg
	}

	hi, lo := bits.Mul64(uint64(x), uint64(y))
	if hi >= uint64(d) {
		panic("amount: mul/div quotient overflows")
	}
	q, _ := bits.Div64(hi, lo, uint64(d))
	if q > math.MaxInt64 {
		panic("amount: mul/div quotient overflows")
	}

	units := int64(q)
	if neg {
		units = -units
	}
	return Amount{Units: units, Token: a.Token}
}

// Comparison methods

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool { return a.Units == 0 }

// IsPositive returns true if the amount is greater than zero.
func (a Amount) IsPositive() bool { return a.Units > 0 }

// IsNegative returns true if the amount is less than zero.
func (a Amount) IsNegative() bool { return a.Units < 0 }

// Equal returns true if both Amounts are equal (same units and token).
func (a Amount) Equal(other Amount) bool {
	return a.Units == other.Units && a.Token == other.Token
}

// LessThan returns true if this Amount is less than other. Panics if tokens don't match.
func (a Amount) LessThan(other Amount) bool {
	a.assertSameToken(other)
	return a.Units < other.Units
}

// GreaterThan returns true if this Amount is greater than other. Panics if tokens don't match.
func (a Amount) GreaterThan(other Amount) bool {
	a.assertSameToken(other)
	return a.Units > other.Units
}

// Min returns the smaller of two Amounts. Panics if tokens don't match.
func (a Amount) Min(other Amount) Amount {
	a.assertSameToken(other)
	if a.Units < other.Units {
		return a
	}
	return other
}

// Clamp limits the Amount to the range [0, max]. Panics if tokens don't match.
func (a Amount) Clamp(max Amount) Amount {
	a.assertSameToken(max)
	if a.Units < 0 {
		return Zero(a.Token)
	}
	if a.Units > max.Units {
		return max
	}
	return a
}

// String returns "units token", e.g. "100 0xabc".
func (a Amount) String() string {
	return strconv.FormatInt(a.Units, 10) + " " + a.Token
}

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Units int64  `json:"units"`
		Token string `json:"token"`
	}{Units: a.Units, Token: a.Token})
}

// mergeToken returns the non-empty token of the pair.
func (a Amount) mergeToken(other Amount) string {
	if a.Token != "" {
		return a.Token
	}
	return other.Token
}

// assertSameToken panics if tokens don't match. A zero-token operand (the zero
// value of Amount) is compatible with any token.
func (a Amount) assertSameToken(other Amount) {
	if a.Token != other.Token && a.Token != "" && other.Token != "" {
		panic(fmt.Sprintf("amount: token mismatch: %s != %s", a.Token, other.Token))
	}
}

// Sum calculates the sum of multiple Amounts. All must share one token.
func Sum(values ...Amount) Amount {
	if len(values) == 0 {
		return Amount{}
	}
	result := values[0]
	for i := 1; i < len(values); i++ {
		result = result.Add(values[i])
	}
	return result
}
