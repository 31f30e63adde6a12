package database

import (
	"fmt"

	"invoicegen/internal/config"
	"invoicegen/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewConnection opens the SQL backend named by cfg.StorageDriver and migrates the KV table
func NewConnection(cfg *config.Config, log *logrus.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		dialector = postgres.Open(cfg.DB.PostgresDSN())
	case config.StorageMySQL:
		dialector = mysql.Open(cfg.DB.MySQLDSN())
	default:
		return nil, fmt.Errorf("storage driver %q is not a SQL backend", cfg.StorageDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.StorageDriver, err)
	}

	if err := db.AutoMigrate(&model.KVEntry{}); err != nil {
		log.WithError(err).Warn("Failed to auto-migrate kv_entries")
	}
	return db, nil
}
