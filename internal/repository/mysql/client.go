package mysql

import (
	"time"

	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/orderkit/orderkit/internal/config"
	ierr "github.com/orderkit/orderkit/internal/errors"
	"github.com/orderkit/orderkit/internal/logger"
)

// NewClient opens the MySQL connection described by the configuration and
// tunes the underlying pool
func NewClient(cfg *config.Configuration, log *logger.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(gormmysql.Open(cfg.Database.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: false,
		},
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to connect to the database").
			WithReportableDetails(map[string]any{
				"host":     cfg.Database.Host,
				"database": cfg.Database.DBName,
			}).
			Mark(ierr.ErrDatabase)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to access the database connection pool").
			Mark(ierr.ErrDatabase)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Infow("connected to mysql",
		"host", cfg.Database.Host,
		"database", cfg.Database.DBName,
	)
	return db, nil
}

// Migrate creates or updates the schema for every table the repositories use
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&promotionRuleRow{},
		&orderRow{},
		&orderLineRow{},
		&lineOptionRow{},
		&productRow{},
		&bomLineRow{},
		&customerRow{},
		&pricelistRow{},
		&pricelistItemRow{},
		&taxRateRow{},
		&fiscalPositionRow{},
		&paymentLineRow{},
	)
}
