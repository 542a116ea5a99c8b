package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/artpar/coupons/internal/core/coupon"
	"github.com/artpar/coupons/internal/shell/coupons"
	"github.com/shopspring/decimal"
)

// =============================================================================
// Request Types
// =============================================================================

// CreateCouponRequest is the request body for creating a coupon. Missing
// fields are left to the domain validation, which rejects them.
type CreateCouponRequest struct {
	Code           string              `json:"code"`
	Description    string              `json:"description"`
	DiscountValue  decimal.NullDecimal `json:"discount_value"`
	ExpirationDate Timestamp           `json:"expiration_date"`
	Published      *bool               `json:"published,omitempty"`
}

func (r CreateCouponRequest) toInput() coupons.CreateInput {
	return coupons.CreateInput{
		Code:           r.Code,
		Description:    r.Description,
		DiscountValue:  r.DiscountValue,
		ExpirationDate: time.Time(r.ExpirationDate),
		Published:      r.Published,
	}
}

// Timestamp accepts RFC 3339 as well as zone-less local date-times and
// plain dates, which are read as UTC.
type Timestamp time.Time

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*ts = Timestamp{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			*ts = Timestamp(t)
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", raw)
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(ts))
}

// =============================================================================
// Response Types
// =============================================================================

// CouponResponse is the full state of a stored coupon.
type CouponResponse struct {
	ID             int64           `json:"id"`
	Code           string          `json:"code"`
	Description    string          `json:"description"`
	DiscountValue  decimal.Decimal `json:"discount_value"`
	ExpirationDate time.Time       `json:"expiration_date"`
	Published      bool            `json:"published"`
	Deleted        bool            `json:"deleted"`
	DeletedAt      *time.Time      `json:"deleted_at,omitempty"`
	Version        int64           `json:"version"`
}

func couponToResponse(c *coupon.Coupon) CouponResponse {
	return CouponResponse{
		ID:             c.ID(),
		Code:           c.Code(),
		Description:    c.Description(),
		DiscountValue:  c.Discount(),
		ExpirationDate: c.ExpirationDate(),
		Published:      c.Published(),
		Deleted:        c.IsDeleted(),
		DeletedAt:      c.DeletedAt(),
		Version:        c.Version(),
	}
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Message   string    `json:"message"`
	Status    int       `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse is the response for health checks.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is the response for readiness checks.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
