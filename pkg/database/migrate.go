package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/BartekS5/steampulse/pkg/logger"
	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlserver"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationFiles embed.FS

// MigrationsTable keeps the schema version apart from any other migrate user in the same database.
const MigrationsTable = "steampulse_schema_migrations"

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	logger.Infof("[MIGRATE] "+format, v...)
}

func (migrateLogger) Verbose() bool { return false }

// Migrate applies every pending checkpoint schema migration for dialect.
func Migrate(db *sql.DB, dialect Dialect) error {
	sub, err := fs.Sub(migrationFiles, "migrations/"+string(dialect))
	if err != nil {
		return fmt.Errorf("no migrations for %s: %w", dialect, err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("failed to create embedded migration source: %w", err)
	}

	var driver migratedb.Driver
	switch dialect {
	case Postgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{MigrationsTable: MigrationsTable})
	case SQLServer:
		driver, err = sqlserver.WithInstance(db, &sqlserver.Config{MigrationsTable: MigrationsTable})
	default:
		return fmt.Errorf("unsupported SQL dialect %q", dialect)
	}
	if err != nil {
		return fmt.Errorf("failed to create %s migration driver: %w", dialect, err)
	}

	m, err := migrate.NewWithInstance("iofs", source, string(dialect), driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warnf("closing migrate instance: source=%v db=%v", srcErr, dbErr)
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Errorf("[MIGRATE] %s schema migration failed: %v", dialect, err)
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	ver, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	logger.Info("checkpoint schema up to date", "dialect", dialect, "version", ver, "dirty", dirty)

	return nil
}
