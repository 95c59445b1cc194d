// Package audithook bridges Unlocker lifecycle events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/xraph/unlocker/event"
	"github.com/xraph/unlocker/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                  = (*Extension)(nil)
	_ plugin.OnVaultCreated          = (*Extension)(nil)
	_ plugin.OnVaultOperatorUpdated  = (*Extension)(nil)
	_ plugin.OnTokenDeposited        = (*Extension)(nil)
	_ plugin.OnTokenAllocated        = (*Extension)(nil)
	_ plugin.OnTokenInvested         = (*Extension)(nil)
	_ plugin.OnTokenClaimed          = (*Extension)(nil)
	_ plugin.OnTokenRefunded         = (*Extension)(nil)
	_ plugin.OnTokenPaid             = (*Extension)(nil)
	_ plugin.OnPaymentTokenWithdrawn = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly — callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Unlocker lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Vault lifecycle hooks
// ──────────────────────────────────────────────────

// OnVaultCreated implements plugin.OnVaultCreated.
func (e *Extension) OnVaultCreated(ctx context.Context, ev *event.VaultCreated) error {
	return e.record(ctx, ActionVaultCreated, SeverityInfo, OutcomeSuccess,
		ResourceVault, vaultID(ev.VaultID), CategoryCustody, nil,
		"event_id", ev.EventID().String(),
		"name", ev.Name,
		"type", ev.Type.String(),
		"token", ev.TokenAddress.String(),
		"operator", ev.Operator.String(),
	)
}

// OnVaultOperatorUpdated implements plugin.OnVaultOperatorUpdated.
func (e *Extension) OnVaultOperatorUpdated(ctx context.Context, ev *event.VaultOperatorUpdated) error {
	return e.record(ctx, ActionOperatorUpdated, SeverityWarning, OutcomeSuccess,
		ResourceVault, vaultID(ev.VaultID), CategoryCustody, nil,
		"event_id", ev.EventID().String(),
		"new_operator", ev.NewOperator.String(),
	)
}

// OnTokenDeposited implements plugin.OnTokenDeposited.
func (e *Extension) OnTokenDeposited(ctx context.Context, ev *event.TokenDeposited) error {
	return e.record(ctx, ActionTokenDeposited, SeverityInfo, OutcomeSuccess,
		ResourceVault, vaultID(ev.VaultID), CategoryCustody, nil,
		"event_id", ev.EventID().String(),
		"depositor", ev.Depositor.String(),
		"units", ev.Amount.Units,
	)
}

// ──────────────────────────────────────────────────
// Schedule lifecycle hooks
// ──────────────────────────────────────────────────

// OnTokenAllocated implements plugin.OnTokenAllocated.
func (e *Extension) OnTokenAllocated(ctx context.Context, ev *event.TokenAllocated) error {
	return e.record(ctx, ActionTokenAllocated, SeverityInfo, OutcomeSuccess,
		ResourceSchedule, scheduleID(ev.ScheduleID), CategoryVesting, nil,
		"event_id", ev.EventID().String(),
		"vault_id", ev.VaultID,
		"user", ev.UserAddress.String(),
		"units", ev.Schedule.AllocationAmount.Units,
	)
}

// OnTokenInvested implements plugin.OnTokenInvested.
func (e *Extension) OnTokenInvested(ctx context.Context, ev *event.TokenInvested) error {
	return e.record(ctx, ActionTokenInvested, SeverityInfo, OutcomeSuccess,
		ResourceVault, vaultID(ev.VaultID), CategoryVesting, nil,
		"event_id", ev.EventID().String(),
		"user", ev.UserAddress.String(),
		"token_units", ev.Params.TokenAmount,
		"payment_units", ev.Params.PaymentAmount,
		"can_refund", ev.Params.CanRefund,
	)
}

// OnTokenClaimed implements plugin.OnTokenClaimed.
func (e *Extension) OnTokenClaimed(ctx context.Context, ev *event.TokenClaimed) error {
	return e.record(ctx, ActionTokenClaimed, SeverityInfo, OutcomeSuccess,
		ResourceSchedule, scheduleID(ev.ScheduleID), CategoryVesting, nil,
		"event_id", ev.EventID().String(),
		"vault_id", ev.VaultID,
		"user", ev.UserAddress.String(),
		"units", ev.Amount.Units,
	)
}

// OnTokenRefunded implements plugin.OnTokenRefunded.
func (e *Extension) OnTokenRefunded(ctx context.Context, ev *event.TokenRefunded) error {
	// quitInvestRefund reuses this event with the schedule not refunded;
	// audit it under its own action so the two flows stay distinguishable.
	action := ActionTokenRefunded
	if ev.Schedule != nil && !ev.Schedule.HasRefunded {
		action = ActionRefundWaived
	}
	return e.record(ctx, action, SeverityWarning, OutcomeSuccess,
		ResourceSchedule, scheduleID(ev.ScheduleID), CategoryVesting, nil,
		"event_id", ev.EventID().String(),
		"vault_id", ev.VaultID,
		"user", ev.UserAddress.String(),
		"allocation_units", ev.AllocationAmount.Units,
		"payment_units", ev.PaymentAmount.Units,
	)
}

// ──────────────────────────────────────────────────
// Payout hooks
// ──────────────────────────────────────────────────

// OnTokenPaid implements plugin.OnTokenPaid.
func (e *Extension) OnTokenPaid(ctx context.Context, ev *event.TokenPaid) error {
	return e.record(ctx, ActionTokenPaid, SeverityWarning, OutcomeSuccess,
		ResourceVault, vaultID(ev.VaultID), CategoryPayout, nil,
		"event_id", ev.EventID().String(),
		"to", ev.To.String(),
		"units", ev.Amount.Units,
		"reason", ev.Reason,
		"signer", ev.Signer.String(),
	)
}

// OnPaymentTokenWithdrawn implements plugin.OnPaymentTokenWithdrawn.
func (e *Extension) OnPaymentTokenWithdrawn(ctx context.Context, ev *event.PaymentTokenWithdrawn) error {
	return e.record(ctx, ActionPaymentWithdrawn, SeverityWarning, OutcomeSuccess,
		ResourceVault, "", CategoryPayout, nil,
		"event_id", ev.EventID().String(),
		"token", ev.Token.String(),
		"to", ev.To.String(),
		"units", ev.Amount.Units,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

func vaultID(id uint64) string    { return strconv.FormatUint(id, 10) }
func scheduleID(id uint64) string { return strconv.FormatUint(id, 10) }

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
