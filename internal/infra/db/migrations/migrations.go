// Package migrations applies the embedded schema with golang-migrate.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql
var sqlFS embed.FS

// Supported drivers.
const (
	MySQL    = "mysql"
	Postgres = "postgres"
	SQLite   = "sqlite"
)

// Up migrates the database behind dsn to the latest version.
func Up(driver, dsn string) error {
	return run(driver, dsn, func(m *migrate.Migrate) error { return m.Up() })
}

// Down rolls every migration back.
func Down(driver, dsn string) error {
	return run(driver, dsn, func(m *migrate.Migrate) error { return m.Down() })
}

// Apply migrates an already open database to the latest version and leaves it open.
// Only SQLite is supported here; the server drivers pin a connection until closed.
func Apply(db *sql.DB, driver string) error {
	if driver != SQLite {
		return fmt.Errorf("apply on open handle: unsupported driver %q", driver)
	}
	inst, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create SQLite migrate driver: %w", err)
	}
	m, err := newMigrate(driver, inst)
	if err != nil {
		return err
	}
	return ignoreNoChange(m.Up())
}

func run(driver, dsn string, step func(*migrate.Migrate) error) error {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	var inst database.Driver
	switch driver {
	case MySQL:
		inst, err = mysql.WithInstance(db, &mysql.Config{})
	case Postgres:
		inst, err = postgres.WithInstance(db, &postgres.Config{})
	case SQLite:
		inst, err = sqlite.WithInstance(db, &sqlite.Config{})
	default:
		err = fmt.Errorf("unsupported driver %q", driver)
	}
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create migrate driver: %w", err)
	}

	m, err := newMigrate(driver, inst)
	if err != nil {
		db.Close()
		return err
	}
	defer m.Close()

	_, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in a dirty state, fix manually or force version")
	}
	return ignoreNoChange(step(m))
}

func newMigrate(driver string, inst database.Driver) (*migrate.Migrate, error) {
	sub, err := fs.Sub(sqlFS, "sql/"+driver)
	if err != nil {
		return nil, fmt.Errorf("failed to access migrations directory: %w", err)
	}
	src, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "rdflg", inst)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

func ignoreNoChange(err error) error {
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
