package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/artpar/coupons/internal/core/coupon"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	gosqlite3 "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// Executor Interface - Shared by DB and Transaction
// =============================================================================

// executor abstracts database operations that can be performed on both
// a database connection and a transaction.
type executor interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
//
// Transactions are opened with BEGIN IMMEDIATE, so a transaction holds the
// database write lock from its first statement. That is what makes
// ExistsByCodeWithLock serialize concurrent creators.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", sqliteDSN(dsn))
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to open database", ErrConnectionFailed)
	}

	// Every connection to ":memory:" is a separate database.
	if isMemoryDSN(dsn) {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

func sqliteDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on&_txlock=immediate&_busy_timeout=5000"
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return NewStoreError("Ping", "", "", err.Error(), ErrConnectionFailed)
	}
	return nil
}

// =============================================================================
// Coupon Operations
// =============================================================================

// couponRow represents a coupon row in the database.
type couponRow struct {
	ID             int64   `db:"id"`
	Code           string  `db:"code"`
	Description    string  `db:"description"`
	DiscountValue  string  `db:"discount_value"`
	ExpirationDate string  `db:"expiration_date"`
	Published      bool    `db:"published"`
	DeletedAt      *string `db:"deleted_at"`
	Version        int64   `db:"version"`
	CreatedAt      string  `db:"created_at"`
	UpdatedAt      string  `db:"updated_at"`
}

const couponColumns = `id, code, description, discount_value, expiration_date,
	published, deleted_at, version, created_at, updated_at`

func (s *SQLiteStore) Save(ctx context.Context, c *coupon.Coupon) (*coupon.Coupon, error) {
	return saveCoupon(ctx, s.db, c)
}

func (s *SQLiteStore) FindByID(ctx context.Context, id int64) (*coupon.Coupon, error) {
	return findCouponByID(ctx, s.db, id)
}

func (s *SQLiteStore) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	return findCouponByCode(ctx, s.db, code)
}

func (s *SQLiteStore) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return couponExistsByCode(ctx, s.db, code)
}

// ExistsByCodeWithLock outside a transaction cannot hold a lock past the
// query, so it behaves like ExistsByCode.
func (s *SQLiteStore) ExistsByCodeWithLock(ctx context.Context, code string) (bool, error) {
	return couponExistsByCode(ctx, s.db, code)
}

// =============================================================================
// Transaction Support
// =============================================================================

func (s *SQLiteStore) WithTx(ctx context.Context, fn func(CouponStore) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return NewStoreError("WithTx", "", "", "failed to begin transaction", ErrTxFailed)
	}

	txS := &txSQLiteStore{tx: tx}

	if err := fn(txS); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return NewStoreError("WithTx", "", "", fmt.Sprintf("rollback failed after error: %v", err), ErrTxFailed)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return NewStoreError("WithTx", "", "", "failed to commit transaction", ErrTxFailed)
	}

	return nil
}

// =============================================================================
// Transaction Store
// =============================================================================

// txSQLiteStore implements CouponStore within a transaction.
type txSQLiteStore struct {
	tx *sqlx.Tx
}

func (s *txSQLiteStore) Save(ctx context.Context, c *coupon.Coupon) (*coupon.Coupon, error) {
	return saveCoupon(ctx, s.tx, c)
}

func (s *txSQLiteStore) FindByID(ctx context.Context, id int64) (*coupon.Coupon, error) {
	return findCouponByID(ctx, s.tx, id)
}

func (s *txSQLiteStore) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	return findCouponByCode(ctx, s.tx, code)
}

func (s *txSQLiteStore) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return couponExistsByCode(ctx, s.tx, code)
}

// The transaction already owns the write lock (BEGIN IMMEDIATE).
func (s *txSQLiteStore) ExistsByCodeWithLock(ctx context.Context, code string) (bool, error) {
	return couponExistsByCode(ctx, s.tx, code)
}

// =============================================================================
// Shared Implementation Functions
// =============================================================================

func saveCoupon(ctx context.Context, exec executor, c *coupon.Coupon) (*coupon.Coupon, error) {
	if c.ID() == 0 {
		return insertCoupon(ctx, exec, c)
	}
	return updateCoupon(ctx, exec, c)
}

func insertCoupon(ctx context.Context, exec executor, c *coupon.Coupon) (*coupon.Coupon, error) {
	query := `
		INSERT INTO coupons (
			code, description, discount_value, expiration_date,
			published, deleted_at, version, created_at, updated_at
		) VALUES (
			:code, :description, :discount_value, :expiration_date,
			:published, :deleted_at, :version, :created_at, :updated_at
		)`

	stamp := formatTime(time.Now())
	row := couponParams(c)
	row["version"] = c.Version()
	row["created_at"] = stamp
	row["updated_at"] = stamp

	result, err := exec.NamedExecContext(ctx, query, row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, NewStoreError("Save", "coupon", c.Code(), "coupon with this code already exists", ErrDuplicateCode)
		}
		return nil, NewStoreError("Save", "coupon", c.Code(), err.Error(), err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, NewStoreError("Save", "coupon", c.Code(), "failed to read inserted id", err)
	}

	c.Persisted(id, c.Version())
	return c, nil
}

func updateCoupon(ctx context.Context, exec executor, c *coupon.Coupon) (*coupon.Coupon, error) {
	query := `
		UPDATE coupons SET
			code = :code,
			description = :description,
			discount_value = :discount_value,
			expiration_date = :expiration_date,
			published = :published,
			deleted_at = :deleted_at,
			version = version + 1,
			updated_at = :updated_at
		WHERE id = :id AND version = :version`

	row := couponParams(c)
	row["id"] = c.ID()
	row["version"] = c.Version()
	row["updated_at"] = formatTime(time.Now())

	result, err := exec.NamedExecContext(ctx, query, row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, NewStoreError("Save", "coupon", idString(c.ID()), "coupon with this code already exists", ErrDuplicateCode)
		}
		return nil, NewStoreError("Save", "coupon", idString(c.ID()), err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		var count int
		if err := exec.GetContext(ctx, &count, `SELECT COUNT(*) FROM coupons WHERE id = ?`, c.ID()); err != nil {
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

func findCouponByID(ctx context.Context, exec executor, id int64) (*coupon.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = ?`

	var row couponRow
	err := exec.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("FindByID", "coupon", idString(id), "coupon not found", ErrNotFound)
		}
		return nil, NewStoreError("FindByID", "coupon", idString(id), err.Error(), err)
	}

	return rowToCoupon(&row)
}

func findCouponByCode(ctx context.Context, exec executor, code string) (*coupon.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = ?`

	var row couponRow
	err := exec.GetContext(ctx, &row, query, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("FindByCode", "coupon", code, "coupon not found", ErrNotFound)
		}
		return nil, NewStoreError("FindByCode", "coupon", code, err.Error(), err)
	}

	return rowToCoupon(&row)
}

func couponExistsByCode(ctx context.Context, exec executor, code string) (bool, error) {
	var exists bool
	err := exec.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM coupons WHERE code = ?)`, code)
	if err != nil {
		return false, NewStoreError("ExistsByCode", "coupon", code, err.Error(), err)
	}
	return exists, nil
}

// =============================================================================
// Conversion Helpers
// =============================================================================

func couponParams(c *coupon.Coupon) map[string]any {
	var deletedAt *string
	if t := c.DeletedAt(); t != nil {
		s := formatTime(*t)
		deletedAt = &s
	}
	return map[string]any{
		"code":            c.Code(),
		"description":     c.Description(),
		"discount_value":  c.Discount().String(),
		"expiration_date": formatTime(c.ExpirationDate()),
		"published":       c.Published(),
		"deleted_at":      deletedAt,
	}
}

// rowToCoupon converts a database row to a coupon.Coupon.
func rowToCoupon(row *couponRow) (*coupon.Coupon, error) {
	discount, err := decimal.NewFromString(row.DiscountValue)
	if err != nil {
		return nil, NewStoreError("rowToCoupon", "coupon", idString(row.ID), "failed to parse discount value", ErrInvalidData)
	}
	expiration, err := time.Parse(time.RFC3339Nano, row.ExpirationDate)
	if err != nil {
		return nil, NewStoreError("rowToCoupon", "coupon", idString(row.ID), "failed to parse expiration date", ErrInvalidData)
	}

	var deletedAt *time.Time
	if row.DeletedAt != nil && *row.DeletedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, *row.DeletedAt)
		if err != nil {
			return nil, NewStoreError("rowToCoupon", "coupon", idString(row.ID), "failed to parse deleted_at", ErrInvalidData)
		}
		deletedAt = &t
	}

	return coupon.Rehydrate(coupon.Snapshot{
		ID:             row.ID,
		Version:        row.Version,
		Code:           row.Code,
		Description:    row.Description,
		DiscountValue:  decimal.NewNullDecimal(discount),
		ExpirationDate: expiration,
		Published:      row.Published,
		DeletedAt:      deletedAt,
	})
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func isUniqueViolation(err error) bool {
	var sqliteErr gosqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == gosqlite3.ErrConstraintUnique
	}
	return false
}
