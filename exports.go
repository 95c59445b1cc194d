package unlocker

import "github.com/xraph/unlocker/types"

// Re-export common types for convenience so users don't have to import types package.

// Amount is re-exported from types package.
type Amount = types.Amount

// Address is re-exported from types package.
type Address = types.Address

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export Amount and Address constructors
var (
	Tokens = types.Tokens
	Zero   = types.Zero
	Sum    = types.Sum
	Addr   = types.Addr
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
