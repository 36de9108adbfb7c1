package db

import (
	"embed"
	"errors"
	"fmt"

	"subscription-bot/pkg/logger"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v4/stdlib"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies every embedded migration that has not run yet.
func (db *PostgresDB) Migrate(l *logger.Logger) error {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}

	sqlDB := stdlib.OpenDB(*db.pool.Config().ConnConfig)
	driver, err := pgxmigrate.WithInstance(sqlDB, &pgxmigrate.Config{})
	if err != nil {
		sqlDB.Close()
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "pgx", driver)
	if err != nil {
		sqlDB.Close()
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	m.Log = logger.MigrationLogger{Logger: l}

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		l.Info("No new migrations to apply")
		return nil
	}
	if err != nil {
		version, dirty, _ := m.Version()
		return fmt.Errorf("failed to apply migrations (version=%d dirty=%t): %w", version, dirty, err)
	}

	l.Info("Successfully applied migrations")
	return nil
}
