package datastore

import (
	"log"
	"os"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/platewatch/platewatch-go/internal/errors"
)

// slowQueryThreshold is the duration after which GORM logs a query as slow.
const slowQueryThreshold = 1 * time.Second

// createGormLogger configures the GORM logger. Debug mode logs every
// statement, otherwise only warnings and slow queries surface.
func createGormLogger(debug bool) gormlogger.Interface {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}

	return gormlogger.New(
		log.New(os.Stderr, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		},
	)
}

// performAutoMigration runs schema migration for the plate record table.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&PlateRecord{}); err != nil {
		return errors.New(err).
			Category(errors.CategoryDatabase).
			Context("db_type", dbType).
			Context("operation", "auto_migrate").
			Build()
	}

	if debug {
		getLogger().Debug("database connection initialized",
			"db_type", dbType, "connection", connectionInfo)
	}

	return nil
}
