// Package observability provides a metrics extension for Unlocker that
// records lifecycle event counts via go-utils MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/unlocker/event"
	"github.com/xraph/unlocker/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                  = (*MetricsExtension)(nil)
	_ plugin.OnInit                  = (*MetricsExtension)(nil)
	_ plugin.OnVaultCreated          = (*MetricsExtension)(nil)
	_ plugin.OnVaultOperatorUpdated  = (*MetricsExtension)(nil)
	_ plugin.OnTokenDeposited        = (*MetricsExtension)(nil)
	_ plugin.OnTokenAllocated        = (*MetricsExtension)(nil)
	_ plugin.OnTokenInvested         = (*MetricsExtension)(nil)
	_ plugin.OnTokenClaimed          = (*MetricsExtension)(nil)
	_ plugin.OnTokenRefunded         = (*MetricsExtension)(nil)
	_ plugin.OnTokenPaid             = (*MetricsExtension)(nil)
	_ plugin.OnPaymentTokenWithdrawn = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as an Unlocker plugin to automatically track custody metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Vault metrics
	VaultCreated    Counter
	OperatorUpdated Counter
	Deposits        Counter
	DepositUnits    Histogram

	// Schedule metrics
	Allocations     Counter
	Investments     Counter
	InvestmentUnits Histogram

	// Claim metrics
	Claims     Counter
	ClaimUnits Histogram

	// Refund metrics
	HardRefunds Counter
	QuitRefunds Counter

	// Payout metrics
	Payouts            Counter
	PayoutUnits        Histogram
	PaymentWithdrawals Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Vault metrics
		VaultCreated:    factory.Counter("unlocker.vault.created"),
		OperatorUpdated: factory.Counter("unlocker.vault.operator_updated"),
		Deposits:        factory.Counter("unlocker.vault.deposits"),
		DepositUnits:    factory.Histogram("unlocker.vault.deposit.units"),

		// Schedule metrics
		Allocations:     factory.Counter("unlocker.schedule.allocations"),
		Investments:     factory.Counter("unlocker.schedule.investments"),
		InvestmentUnits: factory.Histogram("unlocker.schedule.investment.units"),

		// Claim metrics
		Claims:     factory.Counter("unlocker.schedule.claims"),
		ClaimUnits: factory.Histogram("unlocker.schedule.claim.units"),

		// Refund metrics
		HardRefunds: factory.Counter("unlocker.schedule.refunds.hard"),
		QuitRefunds: factory.Counter("unlocker.schedule.refunds.quit"),

		// Payout metrics
		Payouts:            factory.Counter("unlocker.vault.payouts"),
		PayoutUnits:        factory.Histogram("unlocker.vault.payout.units"),
		PaymentWithdrawals: factory.Counter("unlocker.vault.payment_withdrawals"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Vault lifecycle hooks
// ──────────────────────────────────────────────────

// OnVaultCreated implements plugin.OnVaultCreated.
func (m *MetricsExtension) OnVaultCreated(_ context.Context, _ *event.VaultCreated) error {
	m.VaultCreated.Inc()
	return nil
}

// OnVaultOperatorUpdated implements plugin.OnVaultOperatorUpdated.
func (m *MetricsExtension) OnVaultOperatorUpdated(_ context.Context, _ *event.VaultOperatorUpdated) error {
	m.OperatorUpdated.Inc()
	return nil
}

// OnTokenDeposited implements plugin.OnTokenDeposited.
func (m *MetricsExtension) OnTokenDeposited(_ context.Context, ev *event.TokenDeposited) error {
	m.Deposits.Inc()
	m.DepositUnits.Observe(float64(ev.Amount.Units))
	return nil
}

// ──────────────────────────────────────────────────
// Schedule lifecycle hooks
// ──────────────────────────────────────────────────

// OnTokenAllocated implements plugin.OnTokenAllocated.
func (m *MetricsExtension) OnTokenAllocated(_ context.Context, _ *event.TokenAllocated) error {
	m.Allocations.Inc()
	return nil
}

// OnTokenInvested implements plugin.OnTokenInvested.
func (m *MetricsExtension) OnTokenInvested(_ context.Context, ev *event.TokenInvested) error {
	m.Investments.Inc()
	m.InvestmentUnits.Observe(float64(ev.Params.TokenAmount))
	return nil
}

// OnTokenClaimed implements plugin.OnTokenClaimed.
func (m *MetricsExtension) OnTokenClaimed(_ context.Context, ev *event.TokenClaimed) error {
	m.Claims.Inc()
	m.ClaimUnits.Observe(float64(ev.Amount.Units))
	return nil
}

// OnTokenRefunded implements plugin.OnTokenRefunded.
func (m *MetricsExtension) OnTokenRefunded(_ context.Context, ev *event.TokenRefunded) error {
	if ev.Schedule != nil && ev.Schedule.HasRefunded {
		m.HardRefunds.Inc()
	} else {
		m.QuitRefunds.Inc()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Payout hooks
// ──────────────────────────────────────────────────

// OnTokenPaid implements plugin.OnTokenPaid.
func (m *MetricsExtension) OnTokenPaid(_ context.Context, ev *event.TokenPaid) error {
	m.Payouts.Inc()
	m.PayoutUnits.Observe(float64(ev.Amount.Units))
	return nil
}

// OnPaymentTokenWithdrawn implements plugin.OnPaymentTokenWithdrawn.
func (m *MetricsExtension) OnPaymentTokenWithdrawn(_ context.Context, _ *event.PaymentTokenWithdrawn) error {
	m.PaymentWithdrawals.Inc()
	return nil
}
