package coupon

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// now is the clock used for expiration checks and deletion timestamps.
var now = time.Now

// =============================================================================
// Coupon
// =============================================================================

// Coupon is a promotional coupon. All fields are validated on construction;
// the only state change after that is the one-way transition to deleted.
type Coupon struct {
	id             int64
	version        int64
	code           Code
	description    string
	discount       Discount
	expirationDate time.Time
	published      bool
	deletedAt      *time.Time
}

// New builds a coupon that has never been persisted: id 0, version 0,
// not deleted.
func New(code, description string, discountValue decimal.NullDecimal, expirationDate time.Time, published bool) (*Coupon, error) {
	return build(code, description, discountValue, expirationDate, published)
}

// Snapshot is the persisted state of a coupon, as read by a store adapter.
type Snapshot struct {
	ID             int64
	Version        int64
	Code           string
	Description    string
	DiscountValue  decimal.NullDecimal
	ExpirationDate time.Time
	Published      bool
	DeletedAt      *time.Time
}

// Rehydrate rebuilds a stored coupon. It runs the same validation as New
// but keeps the persisted id, version and deletion marker. Only store
// adapters should call it.
func Rehydrate(s Snapshot) (*Coupon, error) {
	c, err := build(s.Code, s.Description, s.DiscountValue, s.ExpirationDate, s.Published)
	if err != nil {
		return nil, err
	}
	c.id = s.ID
	c.version = s.Version
	if s.DeletedAt != nil {
		deletedAt := *s.DeletedAt
		c.deletedAt = &deletedAt
	}
	return c, nil
}

func build(rawCode, description string, discountValue decimal.NullDecimal, expirationDate time.Time, published bool) (*Coupon, error) {
	code, err := NewCode(rawCode)
	if err != nil {
		return nil, err
	}
	if err := validateDescription(description); err != nil {
		return nil, err
	}
	discount, err := NewDiscount(discountValue)
	if err != nil {
		return nil, err
	}
	if err := validateExpirationDate(expirationDate); err != nil {
		return nil, err
	}

	return &Coupon{
		code:           code,
		description:    description,
		discount:       discount,
		expirationDate: expirationDate,
		published:      published,
	}, nil
}

func validateDescription(description string) error {
	if strings.TrimSpace(description) == "" {
		return newValidationError("description", "description must not be blank", ErrInvalidCoupon)
	}
	return nil
}

// validateExpirationDate rejects dates strictly before now. A date equal to
// now is accepted.
func validateExpirationDate(expirationDate time.Time) error {
	if expirationDate.IsZero() {
		return newValidationError("expiration_date", "expiration date must not be null", ErrInvalidCoupon)
	}
	if expirationDate.Before(now()) {
		return newValidationError("expiration_date", "expiration date must not be in the past", ErrInvalidCoupon)
	}
	return nil
}

// =============================================================================
// Lifecycle
// =============================================================================

// Delete soft-deletes an active coupon. Deleting twice is an error and
// leaves the original deletion timestamp in place.
func (c *Coupon) Delete() error {
	if c.IsDeleted() {
		return ErrAlreadyDeleted
	}
	t := now()
	c.deletedAt = &t
	return nil
}

// IsDeleted reports whether the coupon has been soft-deleted.
func (c *Coupon) IsDeleted() bool {
	return c.deletedAt != nil
}

// Persisted records the identity assigned by a store after a successful
// write. Business logic must not call it.
func (c *Coupon) Persisted(id, version int64) {
	c.id = id
	c.version = version
}

// =============================================================================
// Accessors
// =============================================================================

func (c *Coupon) ID() int64                 { return c.id }
func (c *Coupon) Version() int64            { return c.version }
func (c *Coupon) Code() string              { return c.code.String() }
func (c *Coupon) Description() string       { return c.description }
func (c *Coupon) Discount() decimal.Decimal { return c.discount.Amount() }
func (c *Coupon) ExpirationDate() time.Time { return c.expirationDate }
func (c *Coupon) Published() bool           { return c.published }

// DeletedAt returns the soft-deletion time, or nil while the coupon is active.
func (c *Coupon) DeletedAt() *time.Time {
	if c.deletedAt == nil {
		return nil
	}
	t := *c.deletedAt
	return &t
}
