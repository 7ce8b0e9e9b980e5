// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired     = "auth.required"
	KeyAuthInvalidToken = "auth.invalid_token"
	KeyAuthTokenExpired = "auth.token_expired"

	// Orders
	KeyOrderCreated   = "order.created"
	KeyOrderNotFound  = "order.not_found"
	KeyOrderPaid      = "order.paid"
	KeyOrderCancelled = "order.cancelled"
	KeyOrderConflict  = "order.already_processed"

	// Payments
	KeyPaymentSuccess       = "payment.success"
	KeyPaymentFailed        = "payment.failed"
	KeyPaymentPending       = "payment.pending"
	KeyPaymentInvalidAmount = "payment.invalid_amount"

	// Payouts
	KeyPayoutRequested    = "payout.requested"
	KeyPayoutApproved     = "payout.approved"
	KeyPayoutRejected     = "payout.rejected"
	KeyPayoutNotFound     = "payout.not_found"
	KeyPayoutInsufficient = "payout.insufficient_balance"
	KeyPayoutBelowMinimum = "payout.below_minimum"

	// Reconciliation
	KeyReconMatched     = "reconciliation.matched"
	KeyReconPartial     = "reconciliation.partial"
	KeyReconUnmatched   = "reconciliation.unmatched"
	KeyReconUnparseable = "reconciliation.unparseable"

	// Admin
	KeyAdminActionSuccess = "admin.action_success"
	KeyAdminAccessDenied  = "admin.access_denied"
	KeyAdminSweepDone     = "admin.sweep_done"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"

	// File Upload
	KeyFileUploadSuccess = "file.upload_success"
	KeyFileUploadFailed  = "file.upload_failed"
	KeyFileInvalidType   = "file.invalid_type"
	KeyFileTooLarge      = "file.too_large"
)
