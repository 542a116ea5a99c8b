package coupons

import (
	"time"

	"github.com/artpar/coupons/internal/core/coupon"
	"github.com/shopspring/decimal"
)

// CouponView is the read model returned after a successful creation.
type CouponView struct {
	ID             int64           `json:"id"`
	Code           string          `json:"code"`
	Description    string          `json:"description"`
	DiscountValue  decimal.Decimal `json:"discount_value"`
	ExpirationDate time.Time       `json:"expiration_date"`
	Published      bool            `json:"published"`
	DeletedAt      *time.Time      `json:"deleted_at,omitempty"`
}

// NewCouponView projects a coupon into its view.
func NewCouponView(c *coupon.Coupon) *CouponView {
	return &CouponView{
		ID:             c.ID(),
		Code:           c.Code(),
		Description:    c.Description(),
		DiscountValue:  c.Discount(),
		ExpirationDate: c.ExpirationDate(),
		Published:      c.Published(),
		DeletedAt:      c.DeletedAt(),
	}
}
