package unlocker

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// Authorization errors
	ErrCallerIsNotAuthorized     = errors.New("unlocker: caller is not authorized")
	ErrEnforcedPause             = errors.New("unlocker: enforced pause")
	ErrVerifySignatureFailed     = errors.New("unlocker: verify signature failed")
	ErrNonceHasBeenUsed          = errors.New("unlocker: nonce has been used")
	ErrPayoutTemporarilyDisabled = errors.New("unlocker: payout temporarily disabled")

	// Vault errors
	ErrInvalidVaultID             = errors.New("unlocker: invalid vault id")
	ErrInvalidVaultType           = errors.New("unlocker: invalid vault type")
	ErrInsufficientVaultBalance   = errors.New("unlocker: insufficient vault balance")
	ErrInsufficientBalance        = errors.New("unlocker: insufficient balance")
	ErrInvalidPaymentTokenAddress = errors.New("unlocker: invalid payment token address")
	ErrInsufficientPaymentBalance = errors.New("unlocker: insufficient payment balance")

	// Allocation errors
	ErrPaymentAmountNotZero = errors.New("unlocker: payment amount should be zero")
	ErrCanRefundNotFalse    = errors.New("unlocker: can refund should be false")
	ErrCannotShareRevenue   = errors.New("unlocker: can not share revenue")

	// Schedule errors
	ErrInvalidScheduleID           = errors.New("unlocker: invalid schedule id")
	ErrScheduleAlreadyRefunded     = errors.New("unlocker: schedule already refunded")
	ErrInsufficientClaimableAmount = errors.New("unlocker: insufficient claimable amount")
	ErrInsufficientAvailableAmount = errors.New("unlocker: insufficient available amount")

	// Refund errors
	ErrNonRefundable        = errors.New("unlocker: this investment is non-refundable")
	ErrAlreadyRefunded      = errors.New("unlocker: this investment has already been refunded")
	ErrRefundWindowNotReach = errors.New("unlocker: refund waiting time span not reached yet")

	// Store errors
	ErrNotFound          = errors.New("unlocker: not found")
	ErrAlreadyExists     = errors.New("unlocker: already exists")
	ErrStoreNotReady     = errors.New("unlocker: store not ready")
	ErrStoreClosed       = errors.New("unlocker: store is closed")
	ErrTransactionFailed = errors.New("unlocker: transaction failed")
	ErrMigrationFailed   = errors.New("unlocker: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("unlocker: validation failed for %s: %s", e.Field, e.Message)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidVaultID) ||
		errors.Is(err, ErrInvalidScheduleID)
}

// IsAuthorizationError returns true if the caller lacked the right to perform
// the operation, independent of the operation's arguments.
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrCallerIsNotAuthorized) ||
		errors.Is(err, ErrEnforcedPause) ||
		errors.Is(err, ErrPayoutTemporarilyDisabled)
}

// IsSignatureError returns true if a signed payload was rejected, either for
// a bad signature or a replayed nonce.
func IsSignatureError(err error) bool {
	return errors.Is(err, ErrVerifySignatureFailed) ||
		errors.Is(err, ErrNonceHasBeenUsed)
}

// IsValidationError returns true if the arguments of an otherwise authorized
// call violated a domain rule. These are terminal; retrying does not help.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidVaultType) ||
		errors.Is(err, ErrInsufficientVaultBalance) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInvalidPaymentTokenAddress) ||
		errors.Is(err, ErrInsufficientPaymentBalance) ||
		errors.Is(err, ErrPaymentAmountNotZero) ||
		errors.Is(err, ErrCanRefundNotFalse) ||
		errors.Is(err, ErrCannotShareRevenue) ||
		errors.Is(err, ErrScheduleAlreadyRefunded) ||
		errors.Is(err, ErrInsufficientClaimableAmount) ||
		errors.Is(err, ErrInsufficientAvailableAmount) ||
		errors.Is(err, ErrNonRefundable) ||
		errors.Is(err, ErrAlreadyRefunded) ||
		errors.Is(err, ErrRefundWindowNotReach)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed)
}
