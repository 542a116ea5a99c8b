package coupons

import (
	"context"
	"errors"

	"github.com/artpar/coupons/internal/shell/store"
	"go.uber.org/zap"
)

// =============================================================================
// DeleteCoupon
// =============================================================================

// DeleteCoupon soft-deletes a coupon under optimistic concurrency control.
type DeleteCoupon struct {
	store  store.Store
	logger *zap.Logger
}

// NewDeleteCoupon creates the use case. logger may be nil.
func NewDeleteCoupon(s store.Store, logger *zap.Logger) *DeleteCoupon {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeleteCoupon{store: s, logger: logger}
}

// Execute loads the coupon, marks it deleted and saves it. A version
// mismatch at save time becomes ErrConcurrencyConflict; nothing is retried.
func (uc *DeleteCoupon) Execute(ctx context.Context, id int64) error {
	err := uc.store.WithTx(ctx, func(tx store.CouponStore) error {
		c, err := tx.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := c.Delete(); err != nil {
			return err
		}

		if _, err := tx.Save(ctx, c); err != nil {
			switch {
			case errors.Is(err, store.ErrVersionConflict):
				uc.logger.Warn("coupon delete lost a concurrent update",
					zap.Int64("id", id), zap.Error(err))
				return ErrConcurrencyConflict
			case errors.Is(err, store.ErrNotFound):
				return ErrNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	uc.logger.Info("coupon deleted", zap.Int64("id", id))
	return nil
}
