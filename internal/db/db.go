package db

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"

	"github.com/oggyb/muzz-match/internal/config"
)

// NewDB initializes the database connection using the configured driver and DSN.
//
// Behavior:
//   - TranslateError is on, so uniqueness violations surface as gorm.ErrDuplicatedKey.
//   - Foreign keys are not created; account deletion cascades explicitly.
//   - Replica DSNs (if any) are registered with dbresolver for reads.
func NewDB(cfg *config.Config, log *slog.Logger) (*gorm.DB, error) {
	dialector, err := Dialector(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, GormConfig(log, cfg.DB.Debug))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if len(cfg.DB.ReplicaDSNs) > 0 {
		replicas := make([]gorm.Dialector, 0, len(cfg.DB.ReplicaDSNs))
		for _, dsn := range cfg.DB.ReplicaDSNs {
			d, err := Dialector(cfg.DB.Driver, dsn)
			if err != nil {
				return nil, err
			}
			replicas = append(replicas, d)
		}
		if err := db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		})); err != nil {
			return nil, fmt.Errorf("failed to register replicas: %w", err)
		}
	}

	// AutoMigrate ensures schema is in sync with models.
	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// GormConfig is the gorm configuration shared by the server and tests.
// Timestamps are UTC with millisecond precision so pagination cursors
// (millis) compare exactly against stored values.
func GormConfig(log *slog.Logger, debug bool) *gorm.Config {
	return &gorm.Config{
		Logger:                                   NewGormLogger(log, debug),
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC().Truncate(time.Millisecond)
		},
	}
}

// Dialector picks the gorm dialector for driver.
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "mysql", "":
		return mysql.Open(dsn), nil
	case "postgres", "postgresql":
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
