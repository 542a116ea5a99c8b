package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/artpar/coupons/internal/core/coupon"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// =============================================================================
// PostgresStore
// =============================================================================

// PostgresStore implements Store on top of gorm. It is used with the
// Postgres dialector in production; any gorm dialector works for the
// parts that do not depend on advisory locks.
type PostgresStore struct {
	db *gorm.DB
}

// couponModel is the gorm mapping of the coupons table.
type couponModel struct {
	ID             int64           `gorm:"primaryKey;autoIncrement"`
	Code           string          `gorm:"size:6;not null;uniqueIndex:uk_coupons_code"`
	Description    string          `gorm:"not null"`
	DiscountValue  decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	ExpirationDate time.Time       `gorm:"not null"`
	Published      bool            `gorm:"not null;default:false"`
	DeletedAt      *time.Time      `gorm:"index"`
	Version        int64           `gorm:"not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (couponModel) TableName() string {
	return "coupons"
}

// NewPostgresStore connects to Postgres, applies pool settings and migrates
// the schema.
func NewPostgresStore(opts Options) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(opts.DSN), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, NewStoreError("NewPostgresStore", "", "", "failed to open database", ErrConnectionFailed)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, NewStoreError("NewPostgresStore", "", "", err.Error(), ErrConnectionFailed)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	s, err := newGormStore(db)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// newGormStore migrates the schema on an already opened gorm connection.
func newGormStore(db *gorm.DB) (*PostgresStore, error) {
	if err := db.AutoMigrate(&couponModel{}); err != nil {
		return nil, NewStoreError("newGormStore", "", "", err.Error(), ErrMigrationFailed)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		return NewStoreError("Ping", "", "", err.Error(), ErrConnectionFailed)
	}
	return nil
}

// WithTx runs fn inside a gorm transaction. A store obtained from WithTx
// runs nested calls in the same transaction.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(CouponStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PostgresStore{db: tx})
	})
}

// =============================================================================
// Coupon Operations
// =============================================================================

func (s *PostgresStore) Save(ctx context.Context, c *coupon.Coupon) (*coupon.Coupon, error) {
	if c.ID() == 0 {
		return s.insert(ctx, c)
	}
	return s.update(ctx, c)
}

func (s *PostgresStore) insert(ctx context.Context, c *coupon.Coupon) (*coupon.Coupon, error) {
	m := couponToModel(c)
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, NewStoreError("Save", "coupon", c.Code(), "coupon with this code already exists", ErrDuplicateCode)
		}
		return nil, NewStoreError("Save", "coupon", c.Code(), err.Error(), err)
	}
	c.Persisted(m.ID, m.Version)
	return c, nil
}

func (s *PostgresStore) update(ctx context.Context, c *coupon.Coupon) (*coupon.Coupon, error) {
	m := couponToModel(c)
	result := s.db.WithContext(ctx).
		Model(&couponModel{}).
		Where("id = ? AND version = ?", c.ID(), c.Version()).
		Updates(map[string]any{
			"code":            m.Code,
			"description":     m.Description,
			"discount_value":  m.DiscountValue,
			"expiration_date": m.ExpirationDate,
			"published":       m.Published,
			"deleted_at":      m.DeletedAt,
			"version":         gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		if isDuplicateKey(result.Error) {
			return nil, NewStoreError("Save", "coupon", idString(c.ID()), "coupon with this code already exists", ErrDuplicateCode)
		}
		return nil, NewStoreError("Save", "coupon", idString(c.ID()), result.Error.Error(), result.Error)
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&couponModel{}).Where("id = ?", c.ID()).Count(&count).Error; err != nil {
			return nil, NewStoreError("Save", "coupon", idString(c.ID()), err.Error(), err)
		}
		if count == 0 {
			return nil, NewStoreError("Save", "coupon", idString(c.ID()), "coupon not found", ErrNotFound)
		}
		return nil, NewStoreError("Save", "coupon", idString(c.ID()),
			fmt.Sprintf("stored version differs from %d", c.Version()), ErrVersionConflict)
	}

	c.Persisted(c.ID(), c.Version()+1)
	return c, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*coupon.Coupon, error) {
	var m couponModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewStoreError("FindByID", "coupon", idString(id), "coupon not found", ErrNotFound)
		}
		return nil, NewStoreError("FindByID", "coupon", idString(id), err.Error(), err)
	}
	return modelToCoupon(&m)
}

func (s *PostgresStore) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	var m couponModel
	if err := s.db.WithContext(ctx).Where("code = ?", code).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewStoreError("FindByCode", "coupon", code, "coupon not found", ErrNotFound)
		}
		return nil, NewStoreError("FindByCode", "coupon", code, err.Error(), err)
	}
	return modelToCoupon(&m)
}

func (s *PostgresStore) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&couponModel{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, NewStoreError("ExistsByCode", "coupon", code, err.Error(), err)
	}
	return count > 0, nil
}

// ExistsByCodeWithLock takes a transaction-scoped advisory lock keyed on the
// code before checking. Other dialectors fall back to ExistsByCode.
func (s *PostgresStore) ExistsByCodeWithLock(ctx context.Context, code string) (bool, error) {
	if s.db.Dialector.Name() == "postgres" {
		if err := s.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", code).Error; err != nil {
			return false, NewStoreError("ExistsByCodeWithLock", "coupon", code, err.Error(), err)
		}
	}
	return s.ExistsByCode(ctx, code)
}

// =============================================================================
// Conversion Helpers
// =============================================================================

func couponToModel(c *coupon.Coupon) couponModel {
	return couponModel{
		ID:             c.ID(),
		Code:           c.Code(),
		Description:    c.Description(),
		DiscountValue:  c.Discount(),
		ExpirationDate: c.ExpirationDate().UTC(),
		Published:      c.Published(),
		DeletedAt:      c.DeletedAt(),
		Version:        c.Version(),
	}
}

func modelToCoupon(m *couponModel) (*coupon.Coupon, error) {
	return coupon.Rehydrate(coupon.Snapshot{
		ID:             m.ID,
		Version:        m.Version,
		Code:           m.Code,
		Description:    m.Description,
		DiscountValue:  decimal.NewNullDecimal(m.DiscountValue),
		ExpirationDate: m.ExpirationDate,
		Published:      m.Published,
		DeletedAt:      m.DeletedAt,
	})
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	// Dialectors without an error translator.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
