// internal/services/errors.go
package services

import "errors"

// Sentinel errors returned by the ledger, reconciliation, and payout
// services. Handlers map these with errors.Is; callers can rely on
// "nothing happened" semantics for every non-nil return.
var (
	ErrValidation        = errors.New("invalid input")
	ErrInvalidState      = errors.New("operation not allowed from current state")
	ErrAlreadyProcessed  = errors.New("already processed")
	ErrInsufficientFunds = errors.New("insufficient available balance")
	ErrOrderNotFound     = errors.New("order not found")
	ErrPayoutNotFound    = errors.New("payout not found")
	ErrUnparseableSignal = errors.New("no payment reference could be extracted")
)
