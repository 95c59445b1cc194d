// Package plugin provides an extensible plugin system for Unlocker.
// Plugins hook into the engine's domain events to extend functionality:
// audit trails, metrics, downstream notification, reconciliation exports.
package plugin

import (
	"context"

	"github.com/xraph/unlocker/event"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Vault lifecycle hooks
// ──────────────────────────────────────────────────

// OnVaultCreated is called after a vault is created.
type OnVaultCreated interface {
	Plugin
	OnVaultCreated(ctx context.Context, ev *event.VaultCreated) error
}

// OnVaultOperatorUpdated is called after a vault's operator is replaced.
type OnVaultOperatorUpdated interface {
	Plugin
	OnVaultOperatorUpdated(ctx context.Context, ev *event.VaultOperatorUpdated) error
}

// OnTokenDeposited is called after a deposit commits, including zero-amount
// deposits.
type OnTokenDeposited interface {
	Plugin
	OnTokenDeposited(ctx context.Context, ev *event.TokenDeposited) error
}

// ──────────────────────────────────────────────────
// Schedule lifecycle hooks
// ──────────────────────────────────────────────────

// OnTokenAllocated is called after any operation creates a schedule.
type OnTokenAllocated interface {
	Plugin
	OnTokenAllocated(ctx context.Context, ev *event.TokenAllocated) error
}

// OnTokenInvested is called after investToken commits, before the paired
// TokenAllocated hook.
type OnTokenInvested interface {
	Plugin
	OnTokenInvested(ctx context.Context, ev *event.TokenInvested) error
}

// OnTokenClaimed is called after vested tokens are claimed.
type OnTokenClaimed interface {
	Plugin
	OnTokenClaimed(ctx context.Context, ev *event.TokenClaimed) error
}

// OnTokenRefunded is called after doInvestRefund, and after quitInvestRefund
// with the schedule showing HasRefunded=false.
type OnTokenRefunded interface {
	Plugin
	OnTokenRefunded(ctx context.Context, ev *event.TokenRefunded) error
}

// ──────────────────────────────────────────────────
// Payout hooks
// ──────────────────────────────────────────────────

// OnTokenPaid is called after payoutToken or payoutTokenAndLinearUnlock.
type OnTokenPaid interface {
	Plugin
	OnTokenPaid(ctx context.Context, ev *event.TokenPaid) error
}

// OnPaymentTokenWithdrawn is called after adminWithdrawPaymentToken.
type OnPaymentTokenWithdrawn interface {
	Plugin
	OnPaymentTokenWithdrawn(ctx context.Context, ev *event.PaymentTokenWithdrawn) error
}
