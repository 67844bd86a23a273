package model

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the configured database.
// Supported drivers: sqlite (default), mysql, postgres.
// Timestamps written by gorm are taken in loc, the business time zone.
func Open(driver string, dsn string, loc *time.Location, debug bool) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "", "sqlite", "sqlite3":
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	default:
		return nil, errors.Errorf("unsupported database driver %q", driver)
	}
	if loc == nil {
		loc = time.Local
	}
	config := &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().In(loc) },
	}
	if debug {
		config.Logger = logger.Default.LogMode(logger.Info)
	}
	db, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s database", driver)
	}
	if dialector.Name() == "sqlite" {
		// sqlite allows a single writer; cascades need foreign keys on
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errors.WithStack(err)
		}
		sqlDB.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, errors.Wrap(err, "enable foreign keys")
		}
	}
	return db, nil
}

// Migrate creates or updates every table of the service
func Migrate(db *gorm.DB) error {
	return errors.Wrap(db.AutoMigrate(Tables...), "migrate tables")
}
