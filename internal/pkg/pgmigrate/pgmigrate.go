// Package pgmigrate applies embedded SQL migrations to Postgres with golang-migrate.
package pgmigrate

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

var ErrDSNRequired = errors.New("pgmigrate: dsn is required")

// Up applies every pending migration found under dir in fsys. Being already
// at the latest version is not an error.
func Up(dsn string, fsys fs.FS, dir string) error {
	m, err := open(dsn, fsys, dir)
	if err != nil {
		return err
	}
	defer closeMigrate(m)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("pgmigrate: up: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("pgmigrate: version: %w", err)
	}
	slog.Info("database migrated", "version", version, "dirty", dirty)

	return nil
}

// Down rolls back every applied migration.
func Down(dsn string, fsys fs.FS, dir string) error {
	m, err := open(dsn, fsys, dir)
	if err != nil {
		return err
	}
	defer closeMigrate(m)

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("pgmigrate: down: %w", err)
	}

	return nil
}

func open(dsn string, fsys fs.FS, dir string) (*migrate.Migrate, error) {
	if dsn == "" {
		return nil, ErrDSNRequired
	}

	src, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("pgmigrate: source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgmigrate: open: %w", err)
	}

	return m, nil
}

func closeMigrate(m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if err := errors.Join(srcErr, dbErr); err != nil {
		slog.Warn("failed to close migrator", "error", err)
	}
}
