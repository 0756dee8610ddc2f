package persistence

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// ErrDirtySchema means a previous migration stopped halfway and needs an operator
var ErrDirtySchema = errors.New("schema is dirty")

// schemaMigrator is the part of *migrate.Migrate the engine drives
type schemaMigrator interface {
	Up() error
	Version() (uint, bool, error)
	Close() (error, error)
}

var _ schemaMigrator = (*migrate.Migrate)(nil)

var openMigrator = func(sourceURL, databaseURL string) (schemaMigrator, error) {
	return migrate.New(sourceURL, databaseURL)
}

// migrationsSourceURL accepts either a bare directory or a file:// URL
func migrationsSourceURL(migrationsPath string) string {
	if strings.HasPrefix(migrationsPath, "file://") {
		return migrationsPath
	}
	return "file://" + migrationsPath
}

// RunMigrations brings the accounts, factors, transfers and outbox tables up
// to the newest version under migrationsPath. A dirty schema is refused
// rather than forced.
func RunMigrations(logger *slog.Logger, databaseURL, migrationsPath string) error {
	if migrationsPath == "" {
		return errors.New("migrations path cannot be empty")
	}
	if databaseURL == "" {
		return errors.New("database URL cannot be empty")
	}

	m, err := openMigrator(migrationsSourceURL(migrationsPath), databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open schema migrator: %w", err)
	}

	applyErr := applyMigrations(logger, m)

	sourceErr, dbErr := m.Close()
	if applyErr != nil {
		return applyErr
	}
	if sourceErr != nil {
		return fmt.Errorf("migration source error: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("migration database error: %w", dbErr)
	}
	return nil
}

func applyMigrations(logger *slog.Logger, m schemaMigrator) error {
	from, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("%w at version %d", ErrDirtySchema, from)
	}

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("Schema up to date", "version", from)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	to, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	logger.Info("Schema migrated", "from_version", from, "to_version", to)
	return nil
}
