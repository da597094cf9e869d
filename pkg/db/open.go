package db

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/smith3v/sprachninja/pkg/config"
	"github.com/smith3v/sprachninja/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open connects to the configured store and migrates the schema. The
// returned handle is the only one the process should hold.
func Open(cfg config.DatabaseConfig, gormLevel string) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	gormLogger, gormErr := newGormLogger(gormLevel)
	if gormErr != nil {
		logger.Error("invalid gorm log level", "value", gormLevel, "error", gormErr)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		logger.Error("failed to connect to database", "driver", cfg.Driver, "error", err)
		return nil, err
	}

	if gdb.Dialector.Name() == config.DriverSQLite {
		// sqlite serialises writers; a single connection avoids SQLITE_BUSY.
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := gdb.AutoMigrate(Models()...); err != nil {
		logger.Error("failed to auto-migrate database", "error", err)
		Close(gdb)
		return nil, err
	}
	return gdb, nil
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", config.DriverSQLite:
		path := cfg.Path
		if strings.TrimSpace(path) == "" {
			path = config.DefaultSQLitePath
		}
		return sqlite.Open(path), nil
	case config.DriverPostgres:
		return postgres.Open(postgresDSN(cfg)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func postgresDSN(cfg config.DatabaseConfig) string {
	return "host=" + cfg.Host +
		" user=" + cfg.User +
		" password=" + cfg.Password +
		" dbname=" + cfg.DBName +
		" port=" + strconv.Itoa(cfg.Port) +
		" sslmode=" + cfg.SSLMode
}

// Close releases the underlying connection pool.
func Close(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
