package coupon

import (
	"github.com/shopspring/decimal"
)

// MinDiscount is the smallest accepted discount amount (inclusive).
var MinDiscount = decimal.RequireFromString("0.5")

// Discount is a validated monetary discount amount.
type Discount struct {
	amount decimal.Decimal
}

// NewDiscount validates value against MinDiscount using exact decimal comparison.
func NewDiscount(value decimal.NullDecimal) (Discount, error) {
	if !value.Valid {
		return Discount{}, newValidationError("discount_value", "value must not be null", ErrInvalidDiscount)
	}
	if value.Decimal.LessThan(MinDiscount) {
		return Discount{}, newValidationError("discount_value", "value must be at least 0.5", ErrInvalidDiscount)
	}
	return Discount{amount: value.Decimal}, nil
}

// Amount returns the discount value.
func (d Discount) Amount() decimal.Decimal {
	return d.amount
}
