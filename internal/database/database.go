package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"datalib/internal/config"
	"datalib/internal/models"
)

// Options tunes the connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Logger          logger.Interface
}

// Open connects to the database named by driver and dsn and migrates the schema.
func Open(driver, dsn string, opts Options) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case config.DriverPostgres:
		dialector = postgres.Open(dsn)
	case config.DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	gormCfg := &gorm.Config{
		// Items keep referring to books and users that were deleted.
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	}
	if opts.Logger != nil {
		gormCfg.Logger = opts.Logger
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get generic DB: %w", err)
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

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// outstandingItemIndex allows at most one outstanding item per book. Both
// postgres and sqlite support partial indexes with this syntax.
const outstandingItemIndex = `CREATE UNIQUE INDEX IF NOT EXISTS uniq_outstanding_item
	ON checkout_items (book_id) WHERE returned_at IS NULL`

// Migrate creates or updates the tables of all records.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Book{}, &models.User{}, &models.Checkout{}, &models.CheckoutItem{}); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	if err := db.Exec(outstandingItemIndex).Error; err != nil {
		return fmt.Errorf("create index uniq_outstanding_item: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
