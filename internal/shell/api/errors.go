package api

import (
	"errors"
	"net/http"

	"github.com/artpar/coupons/internal/core/coupon"
	"github.com/artpar/coupons/internal/shell/coupons"
)

// statusFor maps a use case error to its HTTP status. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, coupon.ErrInvalidCode),
		errors.Is(err, coupon.ErrInvalidDiscount),
		errors.Is(err, coupon.ErrInvalidCoupon),
		errors.Is(err, coupons.ErrDuplicateCode),
		errors.Is(err, coupons.ErrConcurrencyConflict):
		return http.StatusBadRequest
	case errors.Is(err, coupon.ErrAlreadyDeleted):
		return http.StatusUnprocessableEntity
	case errors.Is(err, coupons.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// outcomeFor is the metrics label for an operation result.
func outcomeFor(err error) string {
	switch statusFor(err) {
	case http.StatusBadRequest:
		if errors.Is(err, coupons.ErrConcurrencyConflict) {
			return "conflict"
		}
		if errors.Is(err, coupons.ErrDuplicateCode) {
			return "duplicate"
		}
		return "invalid"
	case http.StatusUnprocessableEntity:
		return "already_deleted"
	case http.StatusNotFound:
		return "not_found"
	default:
		return "error"
	}
}
