// Package coupon is the functional core of the coupons service.
//
// It holds the value objects (Code, Discount) and the Coupon entity, and
// enforces every business rule at construction or mutation time. Nothing in
// this package performs I/O: persistence and orchestration live in the
// imperative shell (internal/shell/store and internal/shell/coupons).
//
// # Construction paths
//
// A coupon is built in exactly one of two ways:
//
//   - New builds a fresh coupon for the create path (id 0, version 0,
//     not deleted).
//   - Rehydrate rebuilds a stored coupon from a Snapshot, carrying its
//     persisted id, version and deletion marker.
//
//	c, err := coupon.New("ABC-123", "Black friday", amount, expires, nil)
//	if errors.Is(err, coupon.ErrInvalidCode) { ... }
package coupon
