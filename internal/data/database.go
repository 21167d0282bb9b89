package data

import (
	"database/sql"
	"errors"
	"fmt"

	"go-school-admin/internal/config"
	"go-school-admin/migrations"

	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// driverName maps a configured driver to the database/sql driver name.
func driverName(driver string) (string, error) {
	switch driver {
	case "sqlite3", "sqlite":
		return "sqlite3", nil
	case "mysql":
		return "mysql", nil
	case "postgres", "pgx":
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// NewDB creates a new database connection pool.
func NewDB(cfg config.DBConfig) (*sqlx.DB, error) {
	name, err := driverName(cfg.Driver)
	if err != nil {
		return nil, err
	}
	// sqlx.Connect opens a connection and pings it to verify it's alive.
	db, err := sqlx.Connect(name, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if name == "sqlite3" {
		// SQLite serializes writers anyway; one connection also keeps an
		// in-memory database alive and foreign keys switched on.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	return db, nil
}

// ApplyMigrations runs all up migrations of the shared tables for the
// database's driver. The migrations are embedded in the binary.
//
// The mysql and pgx migrate drivers pin a connection and close the pool they are
// given, so those dialects migrate through a short-lived pool of their own.
// SQLite migrates through db itself, which keeps an in-memory database visible.
func ApplyMigrations(cfg config.DBConfig, db *sqlx.DB) (err error) {
	var (
		dir    string
		driver database.Driver
	)
	switch db.DriverName() {
	case "sqlite3":
		dir = "sqlite3"
		driver, err = migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	case "mysql":
		dir = "mysql"
		var own *sql.DB
		if own, err = sql.Open("mysql", cfg.DSN); err == nil {
			if driver, err = migratemysql.WithInstance(own, &migratemysql.Config{}); err != nil {
				own.Close()
			}
		}
	case "pgx":
		dir = "postgres"
		var own *sql.DB
		if own, err = sql.Open("pgx", cfg.DSN); err == nil {
			if driver, err = migratepgx.WithInstance(own, &migratepgx.Config{}); err != nil {
				own.Close()
			}
		}
	default:
		return fmt.Errorf("no migrations for driver %q", db.DriverName())
	}
	if err != nil {
		return fmt.Errorf("failed to create migrate driver: %w", err)
	}

	owned := dir != "sqlite3"

	source, err := iofs.New(migrations.FS, dir)
	if err != nil {
		if owned {
			driver.Close()
		}
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, dir, driver)
	if err != nil {
		if owned {
			driver.Close()
		}
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	if owned {
		defer func() {
			if _, dbErr := m.Close(); dbErr != nil && err == nil {
				err = fmt.Errorf("failed to close migration connection: %w", dbErr)
			}
		}()
	}

	// Up applies all available up migrations.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}
