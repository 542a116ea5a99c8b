package coupons

import (
	"context"
	"testing"
	"time"

	"github.com/artpar/coupons/internal/core/coupon"
	"github.com/artpar/coupons/internal/shell/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

// stubStore is an in-memory store.Store that records calls and can be told
// to fail.
type stubStore struct {
	coupons map[int64]*coupon.Coupon
	nextID  int64

	saveCalls         int
	existsCalls       int
	lockedExistsCalls int

	existsResult *bool
	saveErr      error
	findErr      error
}

func newStubStore() *stubStore {
	return &stubStore{coupons: make(map[int64]*coupon.Coupon), nextID: 1}
}

func (s *stubStore) Save(_ context.Context, c *coupon.Coupon) (*coupon.Coupon, error) {
	s.saveCalls++
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	if c.ID() == 0 {
		c.Persisted(s.nextID, 0)
		s.nextID++
	} else {
		c.Persisted(c.ID(), c.Version()+1)
	}
	s.coupons[c.ID()] = c
	return c, nil
}

func (s *stubStore) FindByID(_ context.Context, id int64) (*coupon.Coupon, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	c, ok := s.coupons[id]
	if !ok {
		return nil, store.NewStoreError("FindByID", "coupon", "", "coupon not found", store.ErrNotFound)
	}
	return c, nil
}

func (s *stubStore) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, c := range s.coupons {
		if c.Code() == code {
			return c, nil
		}
	}
	return nil, store.NewStoreError("FindByCode", "coupon", code, "coupon not found", store.ErrNotFound)
}

func (s *stubStore) ExistsByCode(_ context.Context, code string) (bool, error) {
	s.existsCalls++
	return s.exists(code), nil
}

func (s *stubStore) ExistsByCodeWithLock(_ context.Context, code string) (bool, error) {
	s.lockedExistsCalls++
	return s.exists(code), nil
}

func (s *stubStore) exists(code string) bool {
	if s.existsResult != nil {
		return *s.existsResult
	}
	for _, c := range s.coupons {
		if c.Code() == code {
			return true
		}
	}
	return false
}

func (s *stubStore) WithTx(_ context.Context, fn func(store.CouponStore) error) error {
	return fn(s)
}

func (s *stubStore) Ping(context.Context) error { return nil }
func (s *stubStore) Close() error               { return nil }

func validInput(code string) CreateInput {
	return CreateInput{
		Code:           code,
		Description:    "Ten off",
		DiscountValue:  decimal.NewNullDecimal(decimal.RequireFromString("10")),
		ExpirationDate: time.Now().Add(7 * 24 * time.Hour),
	}
}

func seedCoupon(t *testing.T, s store.CouponStore, code string) *coupon.Coupon {
	t.Helper()
	c, err := coupon.New(code, "Seeded", decimal.NewNullDecimal(decimal.RequireFromString("5")), time.Now().Add(time.Hour), false)
	require.NoError(t, err)
	c, err = s.Save(context.Background(), c)
	require.NoError(t, err)
	return c
}

func sqliteStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func boolPtr(b bool) *bool { return &b }
