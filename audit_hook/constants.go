package audithook

// Action constants for audit events.
const (
	// Vault actions
	ActionVaultCreated    = "vault.created"
	ActionOperatorUpdated = "vault.operator_updated"
	ActionTokenDeposited  = "vault.token_deposited"

	// Schedule actions
	ActionTokenAllocated = "schedule.token_allocated"
	ActionTokenInvested  = "schedule.token_invested"
	ActionTokenClaimed   = "schedule.token_claimed"
	ActionTokenRefunded  = "schedule.token_refunded"
	ActionRefundWaived   = "schedule.refund_waived"

	// Payout actions
	ActionTokenPaid        = "vault.token_paid"
	ActionPaymentWithdrawn = "vault.payment_withdrawn"
)

// Resource constants for audit events.
const (
	ResourceVault    = "vault"
	ResourceSchedule = "schedule"
)

// Category constants for audit events.
const (
	CategoryCustody = "custody"
	CategoryVesting = "vesting"
	CategoryPayout  = "payout"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
