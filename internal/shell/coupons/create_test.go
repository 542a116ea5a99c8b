package coupons

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/artpar/coupons/internal/core/coupon"
	"github.com/artpar/coupons/internal/shell/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// CreateCoupon Tests
// =============================================================================

func TestCreateCoupon_Success(t *testing.T) {
	s := newStubStore()
	uc := NewCreateCoupon(s, Options{}, nil)

	view, err := uc.Execute(context.Background(), validInput("AB-12.cd"))
	require.NoError(t, err)

	assert.Equal(t, int64(1), view.ID)
	assert.Equal(t, "AB12cd", view.Code)
	assert.Equal(t, "Ten off", view.Description)
	assert.True(t, view.DiscountValue.Equal(decimal.RequireFromString("10")))
	assert.False(t, view.Published)
	assert.Nil(t, view.DeletedAt)
	assert.Equal(t, 1, s.saveCalls)
	assert.Equal(t, 1, s.existsCalls)
	assert.Equal(t, 0, s.lockedExistsCalls)
}

func TestCreateCoupon_PublishedFlag(t *testing.T) {
	uc := NewCreateCoupon(newStubStore(), Options{}, nil)

	in := validInput("ABC123")
	in.Published = boolPtr(true)

	view, err := uc.Execute(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, view.Published)
}

func TestCreateCoupon_InvalidCode(t *testing.T) {
	s := newStubStore()
	uc := NewCreateCoupon(s, Options{}, nil)

	_, err := uc.Execute(context.Background(), validInput("AB-12"))
	assert.ErrorIs(t, err, coupon.ErrInvalidCode)
	assert.Equal(t, 0, s.existsCalls)
	assert.Equal(t, 0, s.saveCalls)
}

func TestCreateCoupon_DuplicateCode(t *testing.T) {
	s := newStubStore()
	seedCoupon(t, s, "ABC123")
	s.saveCalls = 0

	uc := NewCreateCoupon(s, Options{}, nil)

	_, err := uc.Execute(context.Background(), validInput("abc-123"))
	require.NoError(t, err, "codes are case sensitive")

	_, err = uc.Execute(context.Background(), validInput("A.B.C.1.2.3"))
	assert.ErrorIs(t, err, ErrDuplicateCode)
	assert.Equal(t, "a coupon with this code already exists", err.Error())
	assert.Equal(t, 1, s.saveCalls)
}

func TestCreateCoupon_LockedDuplicateCheck(t *testing.T) {
	s := newStubStore()
	uc := NewCreateCoupon(s, Options{LockDuplicateCheck: true}, nil)

	_, err := uc.Execute(context.Background(), validInput("ABC123"))
	require.NoError(t, err)
	assert.Equal(t, 1, s.lockedExistsCalls)
	assert.Equal(t, 0, s.existsCalls)
}

func TestCreateCoupon_DomainErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CreateInput)
		wantErr error
	}{
		{
			name:    "blank description",
			mutate:  func(in *CreateInput) { in.Description = "   " },
			wantErr: coupon.ErrInvalidCoupon,
		},
		{
			name:    "missing discount",
			mutate:  func(in *CreateInput) { in.DiscountValue = decimal.NullDecimal{} },
			wantErr: coupon.ErrInvalidDiscount,
		},
		{
			name: "discount below minimum",
			mutate: func(in *CreateInput) {
				in.DiscountValue = decimal.NewNullDecimal(decimal.RequireFromString("0.49"))
			},
			wantErr: coupon.ErrInvalidDiscount,
		},
		{
			name:    "expired",
			mutate:  func(in *CreateInput) { in.ExpirationDate = time.Now().Add(-time.Hour) },
			wantErr: coupon.ErrInvalidCoupon,
		},
		{
			name:    "missing expiration",
			mutate:  func(in *CreateInput) { in.ExpirationDate = time.Time{} },
			wantErr: coupon.ErrInvalidCoupon,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStubStore()
			uc := NewCreateCoupon(s, Options{}, nil)

			in := validInput("ABC123")
			tt.mutate(&in)

			_, err := uc.Execute(context.Background(), in)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, s.saveCalls)
		})
	}
}

func TestCreateCoupon_UniquenessViolationOnSave(t *testing.T) {
	s := newStubStore()
	no := false
	s.existsResult = &no
	s.saveErr = store.NewStoreError("Save", "coupon", "ABC123", "duplicate", store.ErrDuplicateCode)

	uc := NewCreateCoupon(s, Options{}, nil)

	_, err := uc.Execute(context.Background(), validInput("ABC123"))
	require.Error(t, err)
	assert.ErrorIs(t, err, coupon.ErrInvalidCode)
	assert.Equal(t, "coupon already exists", err.Error())
}

func TestCreateCoupon_StoreFailurePropagates(t *testing.T) {
	s := newStubStore()
	boom := errors.New("disk full")
	s.saveErr = boom

	uc := NewCreateCoupon(s, Options{}, nil)

	_, err := uc.Execute(context.Background(), validInput("ABC123"))
	assert.ErrorIs(t, err, boom)
}

func TestCreateCoupon_SQLite(t *testing.T) {
	s := sqliteStore(t)
	uc := NewCreateCoupon(s, Options{LockDuplicateCheck: true}, nil)
	ctx := context.Background()

	view, err := uc.Execute(ctx, validInput("ABC123"))
	require.NoError(t, err)
	assert.NotZero(t, view.ID)

	_, err = uc.Execute(ctx, validInput("ABC123"))
	assert.ErrorIs(t, err, ErrDuplicateCode)
}
