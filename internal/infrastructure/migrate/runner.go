// Package migrate runs the schema migrations that define the campaign,
// ledger, contact and instance tables.
package migrate

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file" // file source for migrations
)

type Config struct {
	DatabaseURL    string
	MigrationsPath string
}

// Runner applies, rolls back and reports schema migrations against the
// configured database.
type Runner struct {
	config *Config
}

func NewRunner(config *Config) *Runner {
	return &Runner{
		config: config,
	}
}

// Run applies all pending migrations. A dirty database is reported as an
// error rather than silently left behind.
func (r *Runner) Run() error {
	return r.withMigrate(func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		version, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			return fmt.Errorf("failed to get version: %w", err)
		}
		if dirty {
			return fmt.Errorf("database is in dirty state at version %d", version)
		}

		return nil
	})
}

// Rollback undoes the most recent migration.
func (r *Runner) Rollback() error {
	return r.withMigrate(func(m *migrate.Migrate) error {
		if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to rollback migration: %w", err)
		}
		return nil
	})
}

// Version reports the current schema version and whether the database is
// dirty. A never-migrated database reports version 0, clean.
func (r *Runner) Version() (uint, bool, error) {
	var version uint
	var dirty bool

	err := r.withMigrate(func(m *migrate.Migrate) error {
		v, d, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get version: %w", err)
		}

		version, dirty = v, d
		return nil
	})

	return version, dirty, err
}

// withMigrate opens a connection, builds the migrate instance for the
// configured source path and runs fn against it.
func (r *Runner) withMigrate(fn func(*migrate.Migrate) error) error {
	db, err := sql.Open("postgres", r.config.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			fmt.Printf("Failed to close database connection: %v\n", closeErr)
		}
	}()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", r.config.MigrationsPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return fn(m)
}
