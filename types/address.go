package types

import "strings"

// Address identifies an account or token: a lowercase hex string
// (a 20-byte hash of the account's public key, 0x-prefixed).
type Address string

// ZeroAddress is the null account, used to signal "no token" on vault fields.
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

// Addr normalizes a raw string into an Address.
func Addr(s string) Address { return Address(strings.ToLower(s)) }

// IsZero returns true for the empty string and the all-zero address.
func (a Address) IsZero() bool { return a == "" || a == ZeroAddress }

// Addr returns the normalized (lowercase) form. Addresses arriving from
// callers may carry mixed-case hex; everything stored or compared goes
// through here first.
func (a Address) Addr() Address { return Address(strings.ToLower(string(a))) }

// String implements fmt.Stringer.
func (a Address) String() string { return string(a) }

// Short returns a truncated form for log output, e.g. "0x1234..abcd".
func (a Address) Short() string {
	s := string(a)
	if len(s) <= 12 {
		return s
	}
	return s[:6] + ".." + s[len(s)-4:]
}
