// Package unlocker provides an embeddable token custody and unlock-schedule
// engine for Go applications.
//
// Unlocker is designed as a library, not a service. Import it directly into
// your Go application and wire it to your own custody bridge. It provides:
//
//   - Vault accounting with deposit, allocation, payout, and claim flows
//   - Linear vesting schedules with an optional one-year investment cliff
//   - Signature-authorized operations with per-signer nonce replay protection
//   - Investment refund windows with hard-refund and quit-refund paths
//   - Global aggregates for voting power, revenue sharing, and withdrawable
//     payments
//   - Pluggable persistence (in-memory, bbolt, SQLite, PostgreSQL)
//   - A synchronous plugin bus carrying every committed domain event
//
// # Quick Start
//
// Create an engine with your preferred store:
//
//	import (
//	    "github.com/xraph/unlocker"
//	    "github.com/xraph/unlocker/store/memory"
//	)
//
//	eng := unlocker.New(memory.New())
//
//	// Start the engine (runs store migrations, initializes plugins)
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
// # Core Concepts
//
// Vaults are named pools of token custody, each with an allocation policy:
//
//	v, err := eng.CreateVault(ctx, admin, vault.Spec{
//	    Name:             "Team",
//	    Type:             vault.TypeLinearUnlocked,
//	    TokenAddress:     token,
//	    Operator:         operator,
//	    UnlockedDuration: 2 * 365 * 24 * 60 * 60,
//	})
//
// Schedules reserve vault balance onto per-user vesting ramps. They are
// created by operator-signed allocations, dual-signed investments, or
// payout-and-lock disbursements:
//
//	s, err := eng.AllocateLinearUnlockedTokens(ctx, params, operatorSig)
//
// Claims release the vested portion:
//
//	err := eng.ClaimUnlockedTokens(ctx, claimParams, userSig)
//
// # Accounting Model
//
// All token quantities are int64 base units; there is no floating point
// anywhere in the engine. Every operation's full effect reaches the store as
// one atomic batch, so readers never observe a half-applied operation, and a
// replayed signature loses the nonce race even when two engine instances
// share one database.
//
// # TypeID
//
// Domain events use TypeID for globally unique, K-sortable identifiers:
//
//	evt_01h2xcejqtf2nbrexx3vqjhp41  // Domain event
//	op_01h455vb4pex5vsknk084sn02q   // Operation trace
//
// Vaults and schedules are addressed by the sequential indexes the engine
// assigns at creation; those indexes are stable and never reused.
package unlocker
