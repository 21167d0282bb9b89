package app

import (
	"context"
	"fmt"

	"go-school-admin/internal/cache"
	"go-school-admin/internal/config"
	"go-school-admin/internal/data"
	"go-school-admin/internal/logger"

	"github.com/jmoiron/sqlx"
)

// Open connects to the database and cache named by cfg and brings the schema up
// to date. The returned close func releases both.
func Open(ctx context.Context, cfg *config.Config, log logger.Logger) (Deps, func(), error) {
	log.Info("Connecting to the database...")
	db, err := data.NewDB(cfg.DB)
	if err != nil {
		return Deps{}, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(ctx, cfg, db, log); err != nil {
		db.Close()
		return Deps{}, nil, err
	}

	log.Info("Initializing cache...")
	c, err := cache.New(cfg.Cache)
	if err != nil {
		db.Close()
		return Deps{}, nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	closeAll := func() {
		if err := c.Close(); err != nil {
			log.Error(err, "Failed to close cache")
		}
		if err := db.Close(); err != nil {
			log.Error(err, "Failed to close database")
		}
	}
	return Deps{DB: db, Cache: c, TTL: cfg.Cache.TTL, Log: log}, closeAll, nil
}

// Migrate applies the shared migrations and then the tables of every owner type.
func Migrate(ctx context.Context, cfg *config.Config, db *sqlx.DB, log logger.Logger) error {
	dialect, err := data.DialectFor(cfg.DB.Driver)
	if err != nil {
		return err
	}
	log.Info("Applying database migrations...")
	if err := data.ApplyMigrations(cfg.DB, db); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	if err := data.ApplyOwnerSchemas(ctx, db, dialect, data.OwnerTypes()...); err != nil {
		return fmt.Errorf("failed to apply owner schemas: %w", err)
	}
	log.Info("Migrations applied successfully.")
	return nil
}
