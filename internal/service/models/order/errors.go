package order

import "errors"

var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrNotFound             = errors.New("order not found")
	ErrAlreadyConfirmed     = errors.New("order has already been confirmed")
	ErrVerificationMismatch = errors.New("verification code is incorrect")
	ErrTooManyAttempts      = errors.New("too many verification attempts")
)
