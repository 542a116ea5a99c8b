// Package store provides persistence for coupons.
package store

import (
	"errors"
	"fmt"
	"strconv"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrNotFound is returned when a coupon is not found.
	ErrNotFound = errors.New("coupon not found")

	// ErrDuplicateCode is returned when an insert violates the unique code constraint.
	ErrDuplicateCode = errors.New("coupon with this code already exists")

	// ErrVersionConflict is returned when an update finds a newer stored version.
	ErrVersionConflict = errors.New("coupon version conflict")

	// ErrConnectionFailed is returned when database connection fails.
	ErrConnectionFailed = errors.New("database connection failed")

	// ErrMigrationFailed is returned when database migration fails.
	ErrMigrationFailed = errors.New("database migration failed")

	// ErrInvalidData is returned when a stored value cannot be decoded.
	ErrInvalidData = errors.New("invalid data format")

	// ErrTxFailed is returned when a transaction operation fails.
	ErrTxFailed = errors.New("transaction failed")
)

// StoreError wraps errors with additional context.
type StoreError struct {
	Op      string // Operation that failed (e.g., "Save")
	Entity  string
	ID      string // Coupon id or code if applicable
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s %s: %s", e.Op, e.Entity, e.ID, e.Message)
	}
	if e.Entity != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Entity, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(op, entity, id, message string, err error) *StoreError {
	return &StoreError{
		Op:      op,
		Entity:  entity,
		ID:      id,
		Message: message,
		Err:     err,
	}
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}
