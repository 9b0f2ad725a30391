// Package migration applies the versioned PostgreSQL schema for the gateway
// tables. SQLite deployments use gorm AutoMigrate instead.
package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

//go:embed sql/*.sql
var embedded embed.FS

const scriptDir = "sql"

// Files exposes the embedded scripts with scriptDir as the root.
func Files() fs.FS {
	sub, err := fs.Sub(embedded, scriptDir)
	if err != nil {
		panic(err)
	}
	return sub
}

// Migrator drives golang-migrate over the embedded scripts.
type Migrator struct {
	m   *migrate.Migrate
	log *zap.Logger
}

// Open dials dsn through lib/pq. The returned Migrator owns the connection.
func Open(dsn string, log *zap.Logger) (*Migrator, error) {
	db, err := sql.Open("postgres", dsn)
	if err == nil {
		err = db.Ping()
	}
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, fmt.Errorf("migration: connect: %w", err)
	}

	mg, err := attach(db, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return mg, nil
}

func attach(db *sql.DB, log *zap.Logger) (*Migrator, error) {
	if log == nil {
		log = zap.NewNop()
	}
	src, err := iofs.New(embedded, scriptDir)
	if err != nil {
		return nil, fmt.Errorf("migration: load scripts: %w", err)
	}
	target, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration: postgres driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", target)
	if err != nil {
		return nil, fmt.Errorf("migration: init: %w", err)
	}
	return &Migrator{m: m, log: log.Named("migration")}, nil
}

// Up applies every pending script.
func (mg *Migrator) Up() error { return mg.run("up", mg.m.Up) }

// Down reverts every applied script.
func (mg *Migrator) Down() error { return mg.run("down", mg.m.Down) }

// Steps moves n scripts forward, or back when n is negative.
func (mg *Migrator) Steps(n int) error {
	return mg.run(fmt.Sprintf("steps %d", n), func() error { return mg.m.Steps(n) })
}

// run treats migrate.ErrNoChange as success and logs the resulting version.
func (mg *Migrator) run(op string, fn func() error) error {
	err := fn()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		mg.log.Info("Schema already current", zap.String("op", op))
		return nil
	case err != nil:
		return fmt.Errorf("migration: %s: %w", op, err)
	}

	version, dirty, err := mg.Version()
	if err != nil {
		return err
	}
	mg.log.Info("Schema migrated", zap.String("op", op), zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// Version reports the applied version, which is 0 on an empty database.
func (mg *Migrator) Version() (uint, bool, error) {
	version, dirty, err := mg.m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("migration: read version: %w", err)
	}
	return version, dirty, nil
}

// Force records version as applied without running it. It clears a dirty flag
// left by a failed script.
func (mg *Migrator) Force(version int) error {
	mg.log.Warn("Forcing schema version", zap.Int("version", version))
	if err := mg.m.Force(version); err != nil {
		return fmt.Errorf("migration: force %d: %w", version, err)
	}
	return nil
}

func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}
