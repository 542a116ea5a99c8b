package coupons

import (
	"context"
	"errors"

	"github.com/artpar/coupons/internal/core/coupon"
	"github.com/artpar/coupons/internal/shell/store"
)

// =============================================================================
// FindCoupon
// =============================================================================

// FindCoupon looks coupons up without changing them. Deleted coupons are
// returned like any other; callers inspect IsDeleted.
type FindCoupon struct {
	store store.CouponStore
}

// NewFindCoupon creates the use case.
func NewFindCoupon(s store.CouponStore) *FindCoupon {
	return &FindCoupon{store: s}
}

// Execute returns the coupon with the given id, or nil and no error when
// there is none.
func (uc *FindCoupon) Execute(ctx context.Context, id int64) (*coupon.Coupon, error) {
	return absentAsNil(uc.store.FindByID(ctx, id))
}

// ByCode normalizes raw and returns the coupon holding that code, or nil
// and no error when there is none.
func (uc *FindCoupon) ByCode(ctx context.Context, raw string) (*coupon.Coupon, error) {
	code, err := coupon.NewCode(raw)
	if err != nil {
		return nil, err
	}
	return absentAsNil(uc.store.FindByCode(ctx, code.String()))
}

func absentAsNil(c *coupon.Coupon, err error) (*coupon.Coupon, error) {
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}
