package reconcile

import "errors"

var (
	// ErrTransaction wraps any failure inside the fixture transaction.
	// When it is reported the transaction has been rolled back.
	ErrTransaction = errors.New("reconcile: fixture transaction failed")

	// ErrUnknownClass is reported for serials matching no class prefix.
	ErrUnknownClass = errors.New("asset class not recognized")

	// ErrPanic marks a report produced by recovering from a panic.
	ErrPanic = errors.New("reconcile: internal error")
)
