// Package repo implements the data persistence layer for users, companions,
// chat turns and idempotency records, backed by GORM. This file contains
// database bootstrapping for SQLite (pure Go driver) and Postgres, plus schema
// migrations.
package repo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/ai-companion-backend/internal/config"
	"github.com/tbourn/ai-companion-backend/internal/domain"
)

// Options tunes Open beyond the datastore config.
type Options struct {
	Tracing bool // register the GORM OpenTelemetry plugin
	Debug   bool // log every statement
}

// Open connects to the configured datastore.
func Open(cfg config.DatabaseConfig, opts Options) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	}
	if opts.Debug {
		gcfg.Logger = logger.Default.LogMode(logger.Info)
	}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err = gorm.Open(postgres.Open(cfg.DSN()), gcfg)
	case config.DriverSQLite, "":
		db, err = openSQLite(cfg.DSN(), gcfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if opts.Tracing {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, fmt.Errorf("gorm tracing: %w", err)
		}
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, nil
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	return openSQLite(path, &gorm.Config{TranslateError: true})
}

func openSQLite(path string, gcfg *gorm.Config) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if !strings.HasPrefix(path, "file:") {
		if dir := filepath.Dir(path); dir != "." {
			if _, err := os.Stat(dir); err != nil {
				return nil, err
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(path), gcfg)
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA busy_timeout=5000;")
	return db, nil
}

// AutoMigrate creates or updates every table the service uses.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Companion{},
		&domain.ChatTurn{},
		&domain.Idempotency{},
	)
}

// Ping checks that the database answers.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
