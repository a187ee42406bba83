package model

import "errors"

// Error taxonomy shared by the lifecycle, ledger and orchestrator. Callers
// match with errors.Is; wrapped messages carry the detail.
var (
	// ErrNotFound signals a missing wallet, request, reward or participant.
	ErrNotFound = errors.New("not found")
	// ErrConflict signals a failed lifecycle guard, a lost acceptance race or
	// a transition attempted on a terminal state.
	ErrConflict = errors.New("conflict")
	// ErrInsufficientBalance signals a redemption exceeding the balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrValidation signals a malformed payload or a non-positive amount.
	ErrValidation = errors.New("validation error")
	// ErrTransport signals a send failure on one connection handle. It is
	// recovered locally and never fails a business operation.
	ErrTransport = errors.New("transport error")
)
