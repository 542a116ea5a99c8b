// Package seed imports coupons from a YAML file through the CreateCoupon
// use case, so seeded coupons obey the same rules as API-created ones.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/artpar/coupons/internal/shell/coupons"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// File is the layout of a seed file.
type File struct {
	Coupons []Entry `yaml:"coupons"`
}

// Entry is one coupon in a seed file. DiscountValue is a string so that
// amounts keep their exact decimal form.
type Entry struct {
	Code           string    `yaml:"code"`
	Description    string    `yaml:"description"`
	DiscountValue  string    `yaml:"discount_value"`
	ExpirationDate time.Time `yaml:"expiration_date"`
	Published      *bool     `yaml:"published"`
}

// Result summarizes an import.
type Result struct {
	Created int
	Skipped int
}

// Creator is the part of CreateCoupon the importer needs.
type Creator interface {
	Execute(ctx context.Context, in coupons.CreateInput) (*coupons.CouponView, error)
}

// Importer creates the coupons listed in seed files.
type Importer struct {
	creator Creator
	logger  *zap.Logger
}

// NewImporter creates an importer. logger may be nil.
func NewImporter(creator Creator, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{creator: creator, logger: logger}
}

// ImportFile imports the seed file at path.
func (im *Importer) ImportFile(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return im.Import(ctx, f)
}

// Import creates every entry in order. Entries whose code already exists are
// skipped; any other failure stops the import.
func (im *Importer) Import(ctx context.Context, r io.Reader) (Result, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return Result{}, fmt.Errorf("decode seed file: %w", err)
	}

	var res Result
	for i, entry := range file.Coupons {
		in, err := entry.toInput()
		if err != nil {
			return res, fmt.Errorf("entry %d (%s): %w", i, entry.Code, err)
		}

		view, err := im.creator.Execute(ctx, in)
		switch {
		case errors.Is(err, coupons.ErrDuplicateCode):
			im.logger.Info("seed coupon already exists", zap.String("code", entry.Code))
			res.Skipped++
		case err != nil:
			return res, fmt.Errorf("entry %d (%s): %w", i, entry.Code, err)
		default:
			im.logger.Debug("seed coupon created", zap.Int64("id", view.ID), zap.String("code", view.Code))
			res.Created++
		}
	}
	return res, nil
}

func (e Entry) toInput() (coupons.CreateInput, error) {
	var discount decimal.NullDecimal
	if e.DiscountValue != "" {
		d, err := decimal.NewFromString(e.DiscountValue)
		if err != nil {
			return coupons.CreateInput{}, fmt.Errorf("discount_value %q: %w", e.DiscountValue, err)
		}
		discount = decimal.NewNullDecimal(d)
	}
	return coupons.CreateInput{
		Code:           e.Code,
		Description:    e.Description,
		DiscountValue:  discount,
		ExpirationDate: e.ExpirationDate,
		Published:      e.Published,
	}, nil
}
