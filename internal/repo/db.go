// Package repo persists profiles, history, quota counters, one-time codes
// and replay records with GORM. SQLite (pure Go driver) serves local and test
// setups; PostgreSQL serves shared deployments where several instances must
// agree on the quota counters.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-mms-backend/internal/domain"
)

// pool sizes the database/sql pool of one driver.
type pool struct {
	maxConns    int
	idleTime    time.Duration
	maxLifetime time.Duration
}

var (
	sqlitePool   = pool{maxConns: 10, idleTime: 5 * time.Minute, maxLifetime: 30 * time.Minute}
	postgresPool = pool{maxConns: 25, idleTime: 5 * time.Minute, maxLifetime: 30 * time.Minute}
)

// sqlitePragmas run on every new SQLite database. busy_timeout lets the
// conditional quota updates wait for a competing writer instead of failing.
var sqlitePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
	"PRAGMA busy_timeout=5000",
}

// Open connects to driver "sqlite" (the default) or "postgres".
func Open(driver, sqlitePath, databaseURL string) (*gorm.DB, error) {
	switch driver {
	case "", "sqlite":
		return OpenSQLite(sqlitePath)
	case "postgres":
		return OpenPostgres(databaseURL)
	}
	return nil, fmt.Errorf("unsupported db driver %q", driver)
}

// OpenSQLite opens or creates the database file at path. The parent
// directory must exist.
func OpenSQLite(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("sqlite dir: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	for _, p := range sqlitePragmas {
		if err := db.Exec(p).Error; err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	return instrument(db, sqlitePool)
}

// OpenPostgres connects with a key=value DSN or a postgres:// URL.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return instrument(db, postgresPool)
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

// instrument adds query spans and applies the pool settings.
func instrument(db *gorm.DB, p pool) (*gorm.DB, error) {
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, fmt.Errorf("gorm tracing: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(p.maxConns)
	sqlDB.SetMaxIdleConns(p.maxConns)
	sqlDB.SetConnMaxIdleTime(p.idleTime)
	sqlDB.SetConnMaxLifetime(p.maxLifetime)
	return db, nil
}

// AutoMigrate creates or updates every table the service owns. It is safe to
// run repeatedly.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Profile{},
		&domain.HistoryRecord{},
		&domain.DailyGlobalStat{},
		&domain.OTPChallenge{},
		&domain.Idempotency{},
	)
}
