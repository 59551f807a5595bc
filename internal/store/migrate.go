package store

import (
	"embed"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrateResult describes a finished migration.
type MigrateResult struct {
	From    uint
	To      uint
	Changed bool
}

// Migrate runs the embedded schema migrations. A negative target migrates to
// the latest version, 0 rolls everything back, and a positive target migrates
// to that exact version.
func (s *Store) Migrate(target int) (MigrateResult, error) {
	m, err := s.migrator()
	if err != nil {
		return MigrateResult{}, err
	}

	from, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return MigrateResult{}, errors.Wrap(err, "failed to get migration version")
	}

	if dirty {
		return MigrateResult{}, errors.Errorf("database is dirty at version %d", from)
	}

	switch {
	case target < 0:
		err = m.Up()
	case target == 0:
		err = m.Down()
	default:
		err = m.Migrate(uint(target))
	}

	if err == migrate.ErrNoChange {
		return MigrateResult{From: from, To: from}, nil
	}
	if err != nil {
		return MigrateResult{}, errors.Wrap(err, "failed to migrate")
	}

	to, _, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return MigrateResult{}, errors.Wrap(err, "failed to get migration version")
	}

	return MigrateResult{From: from, To: to, Changed: true}, nil
}

func (s *Store) migrator() (*migrate.Migrate, error) {
	var driver database.Driver
	var err error

	switch s.driver {
	case SQLite:
		driver, err = sqlite.WithInstance(s.db, &sqlite.Config{})
	case Postgres:
		driver, err = postgres.WithInstance(s.db, &postgres.Config{})
	default:
		err = errors.Errorf("unsupported driver %q", s.driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create migrate driver")
	}

	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, errors.Wrap(err, "failed to access migrations")
	}

	src, err := iofs.New(sub, ".")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create migration source")
	}

	m, err := migrate.NewWithInstance("iofs", src, s.driver, driver)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create migrator")
	}

	return m, nil
}
