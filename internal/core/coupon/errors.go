package coupon

import (
	"errors"
)

// =============================================================================
// Error Kinds
// =============================================================================

var (
	// ErrInvalidCode is returned for a malformed or missing coupon code.
	ErrInvalidCode = errors.New("invalid coupon code")

	// ErrInvalidDiscount is returned for a missing discount or one below the minimum.
	ErrInvalidDiscount = errors.New("invalid discount")

	// ErrInvalidCoupon is returned for an invalid description or expiration date.
	ErrInvalidCoupon = errors.New("invalid coupon")

	// ErrAlreadyDeleted is returned when deleting a coupon that is already soft-deleted.
	ErrAlreadyDeleted = errors.New("coupon already deleted")
)

// ValidationError carries the human-readable reason behind an error kind.
// Error returns only the message; errors.Is matches the wrapped kind.
type ValidationError struct {
	Field   string // e.g., "code", "discount_value"
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func newValidationError(field, message string, kind error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     kind,
	}
}
