package store

import (
	"context"
	"time"

	"github.com/artpar/coupons/internal/core/coupon"
)

// =============================================================================
// Store Interface
// =============================================================================

// CouponStore is the persistence contract consumed by the coupon use cases.
type CouponStore interface {
	// Save inserts a coupon whose ID is 0, or updates an existing one when
	// its version still matches the stored version. On success the coupon's
	// id and version are refreshed and the same coupon is returned.
	//
	// Fails with ErrDuplicateCode on a code uniqueness violation and with
	// ErrVersionConflict when another writer bumped the version first.
	Save(ctx context.Context, c *coupon.Coupon) (*coupon.Coupon, error)

	// FindByID returns ErrNotFound when no coupon has the given id.
	FindByID(ctx context.Context, id int64) (*coupon.Coupon, error)

	// FindByCode returns ErrNotFound when no coupon has the given canonical code.
	FindByCode(ctx context.Context, code string) (*coupon.Coupon, error)

	ExistsByCode(ctx context.Context, code string) (bool, error)

	// ExistsByCodeWithLock is ExistsByCode serialized against concurrent
	// callers checking the same code. Meaningful only inside WithTx; the
	// lock is released when the transaction ends.
	ExistsByCodeWithLock(ctx context.Context, code string) (bool, error)
}

// Store is a CouponStore with transaction and lifecycle support.
type Store interface {
	CouponStore

	// WithTx runs fn in a single transaction, committing when fn returns nil
	// and rolling back otherwise.
	WithTx(ctx context.Context, fn func(CouponStore) error) error

	Ping(ctx context.Context) error
	Close() error
}

// =============================================================================
// Drivers
// =============================================================================

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options configures a store connection.
type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to the backend named by opts.Driver and prepares its schema.
func Open(opts Options) (Store, error) {
	switch opts.Driver {
	case DriverSQLite, "":
		s, err := NewSQLiteStore(opts.DSN)
		if err != nil {
			return nil, err
		}
		if opts.MaxOpenConns > 0 && !isMemoryDSN(opts.DSN) {
			s.db.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.MaxIdleConns > 0 {
			s.db.SetMaxIdleConns(opts.MaxIdleConns)
		}
		if opts.ConnMaxLifetime > 0 {
			s.db.SetConnMaxLifetime(opts.ConnMaxLifetime)
		}
		return s, nil
	case DriverPostgres:
		s, err := NewPostgresStore(opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, NewStoreError("Open", "", "", "unsupported driver "+opts.Driver, ErrConnectionFailed)
	}
}
