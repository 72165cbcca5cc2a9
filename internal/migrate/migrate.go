package migrate

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/OFFIS-RIT/amrlink/pkg/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// SourceURL turns a migrations directory into a file:// source URL.
func SourceURL(dir string) (string, error) {
	if dir == "" {
		dir = "migrations"
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	return "file://" + filepath.ToSlash(abs), nil
}

// Up applies every pending migration in dir to the database at
// databaseURL. An up-to-date database is not an error.
func Up(dir, databaseURL string) error {
	source, err := SourceURL(dir)
	if err != nil {
		return err
	}
	m, err := migrate.New(source, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if err := errors.Join(srcErr, dbErr); err != nil {
			logger.Warn("[Migrate] Failed to close migrations", "err", err)
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return err
	}
	logger.Info("[Migrate] Database schema up to date", "version", version, "dirty", dirty)
	return nil
}
