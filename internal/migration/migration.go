package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/railzwaylabs/ratebook/internal/resolver"
)

// RunMigrations brings a postgres schema up to the embedded version, upserts
// the registered product types and records the binary's manifest so the
// schema gate admits it. Only the migrator entrypoints call it.
func RunMigrations(db *sql.DB, products []resolver.Registration) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	manifest, err := BuildManifest(products)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	return withMigrateLock(ctx, db, func() error {
		if err := migrateUp(db, manifest.SchemaVersion); err != nil {
			return err
		}
		if err := seedSystemImmutableData(ctx, db, products); err != nil {
			return err
		}
		return recordManifest(ctx, db, manifest)
	})
}

func migrateUp(db *sql.DB, want uint) error {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}
	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if _, err := cleanVersion(migrator); err != nil {
		return err
	}
	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	got, err := cleanVersion(migrator)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("schema version mismatch after migrate: got %d want %d", got, want)
	}
	return nil
}

// cleanVersion returns the applied version, or an error when a previous run
// left the schema dirty.
func cleanVersion(migrator *migrate.Migrate) (uint, error) {
	version, dirty, err := migrator.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return 0, fmt.Errorf("database migrations are dirty at version %d", version)
	}
	return version, nil
}
