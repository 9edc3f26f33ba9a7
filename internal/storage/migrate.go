package storage

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/parting-gifts/internal/config"
	"github.com/parting-gifts/internal/logging"
)

// RunMigrations applies all pending migrations from the given directory.
func RunMigrations(cfg *config.PostgresConfig, migrationsPath string) error {
	logger := logging.GetGlobalLogger()

	m, err := migrate.New(
		fmt.Sprintf("file://%s", migrationsPath),
		cfg.URL(),
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			logger.WithError(srcErr).Warn("failed to close migration source")
		}
		if dbErr != nil {
			logger.WithError(dbErr).Warn("failed to close migration database")
		}
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("no migrations to apply")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	logger.Info("migrations applied successfully")
	return nil
}

// RollbackMigrations rolls back the most recent migration.
func RollbackMigrations(cfg *config.PostgresConfig, migrationsPath string) error {
	m, err := migrate.New(
		fmt.Sprintf("file://%s", migrationsPath),
		cfg.URL(),
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Steps(-1); err != nil {
		return fmt.Errorf("failed to rollback migration: %w", err)
	}

	logging.GetGlobalLogger().Info("migration rolled back")
	return nil
}
