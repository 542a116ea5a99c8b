// Package coupons holds the coupon use cases. Each use case is built with an
// explicit store and runs its reads and writes in one store transaction.
package coupons

import (
	"errors"
)

// =============================================================================
// Use Case Errors
// =============================================================================

var (
	// ErrDuplicateCode is returned when a coupon with the normalized code already exists.
	ErrDuplicateCode = errors.New("a coupon with this code already exists")

	// ErrNotFound is returned when the coupon to delete does not exist.
	ErrNotFound = errors.New("coupon to delete was not found")

	// ErrConcurrencyConflict is returned when another writer changed the coupon first.
	ErrConcurrencyConflict = errors.New("coupon was modified by another transaction")
)
