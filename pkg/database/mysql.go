// Package database opens the relational store for document records.
package database

import (
	"fmt"
	"time"

	"docbrain-go/internal/config"
	"docbrain-go/internal/model"
	"docbrain-go/pkg/log"
	"docbrain-go/pkg/metrics"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the configured database, sizes the connection pool and
// migrates the documents table.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&model.Document{}); err != nil {
		return nil, fmt.Errorf("migrate documents: %w", err)
	}
	if err := metrics.RegisterDBStats(sqlDB, cfg.Driver); err != nil {
		log.Warnf("registering database metrics failed: %v", err)
	}

	log.Infof("%s database connected", cfg.Driver)
	return db, nil
}
