package coupons

import (
	"context"
	"errors"
	"time"

	"github.com/artpar/coupons/internal/core/coupon"
	"github.com/artpar/coupons/internal/shell/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Options tunes the use cases.
type Options struct {
	// LockDuplicateCheck makes CreateCoupon use ExistsByCodeWithLock, which
	// serializes concurrent creators of the same code. The storage unique
	// constraint rejects duplicates either way.
	LockDuplicateCheck bool
}

// =============================================================================
// CreateCoupon
// =============================================================================

// CreateInput carries the raw, unvalidated fields of a new coupon.
// Published is optional and defaults to false.
type CreateInput struct {
	Code           string
	Description    string
	DiscountValue  decimal.NullDecimal
	ExpirationDate time.Time
	Published      *bool
}

// CreateCoupon validates and persists a new coupon.
type CreateCoupon struct {
	store  store.Store
	opts   Options
	logger *zap.Logger
}

// NewCreateCoupon creates the use case. logger may be nil.
func NewCreateCoupon(s store.Store, opts Options, logger *zap.Logger) *CreateCoupon {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CreateCoupon{store: s, opts: opts, logger: logger}
}

// Execute normalizes the code, rejects known duplicates, builds the coupon
// and saves it. A uniqueness violation raised by the store (a concurrent
// creator won the race) is reported as an invalid code.
func (uc *CreateCoupon) Execute(ctx context.Context, in CreateInput) (*CouponView, error) {
	code, err := coupon.NewCode(in.Code)
	if err != nil {
		return nil, err
	}

	published := false
	if in.Published != nil {
		published = *in.Published
	}

	var saved *coupon.Coupon
	err = uc.store.WithTx(ctx, func(tx store.CouponStore) error {
		exists, err := uc.exists(ctx, tx, code.String())
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateCode
		}

		c, err := coupon.New(code.String(), in.Description, in.DiscountValue, in.ExpirationDate, published)
		if err != nil {
			return err
		}

		saved, err = tx.Save(ctx, c)
		if err != nil {
			if errors.Is(err, store.ErrDuplicateCode) {
				uc.logger.Warn("coupon code taken by concurrent create",
					zap.String("code", code.String()), zap.Error(err))
				return &coupon.ValidationError{
					Field:   "code",
					Message: "coupon already exists",
					Err:     coupon.ErrInvalidCode,
				}
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("coupon created",
		zap.Int64("id", saved.ID()),
		zap.String("code", saved.Code()),
	)
	return NewCouponView(saved), nil
}

func (uc *CreateCoupon) exists(ctx context.Context, tx store.CouponStore, code string) (bool, error) {
	if uc.opts.LockDuplicateCheck {
		return tx.ExistsByCodeWithLock(ctx, code)
	}
	return tx.ExistsByCode(ctx, code)
}
