package types

import "errors"

// Validation errors. These are always returned before any external call or
// persisted mutation takes place.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("not found")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrAlreadyInState      = errors.New("already in state")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrConfirmationExpired = errors.New("confirmation expired")
	ErrMaintenance         = errors.New("maintenance mode")
)
