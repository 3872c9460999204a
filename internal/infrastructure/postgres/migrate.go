package postgres

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrator aplica el esquema embebido con golang-migrate.
type Migrator struct {
	m   *migrate.Migrate
	log *logger.Logger
}

// NewMigrator construye el migrador sobre una conexión database/sql abierta desde el pool.
func NewMigrator(pool *pgxpool.Pool, log *logger.Logger) (*Migrator, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("abrir migraciones embebidas: %w", err)
	}
	driver, err := pgxmigrate.WithInstance(stdlib.OpenDBFromPool(pool), &pgxmigrate.Config{})
	if err != nil {
		return nil, fmt.Errorf("crear driver de migración: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return nil, fmt.Errorf("crear migrador: %w", err)
	}
	return &Migrator{m: m, log: log.Component("migrate")}, nil
}

// Up aplica todas las migraciones pendientes.
func (m *Migrator) Up() error {
	err := m.m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		m.log.Info().Msg("esquema al día")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migración up: %w", err)
	}
	version, dirty, _ := m.Version()
	m.log.Info().Uint("version", version).Bool("dirty", dirty).Msg("migraciones aplicadas")
	return nil
}

// Down revierte todas las migraciones.
func (m *Migrator) Down() error {
	err := m.m.Down()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migración down: %w", err)
	}
	m.log.Info().Msg("migraciones revertidas")
	return nil
}

// Steps aplica n migraciones (negativo = hacia atrás).
func (m *Migrator) Steps(n int) error {
	err := m.m.Steps(n)
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migración steps %d: %w", n, err)
	}
	return nil
}

// Force marca la versión sin ejecutar SQL; limpia el estado dirty tras una migración fallida.
func (m *Migrator) Force(version int) error {
	if err := m.m.Force(version); err != nil {
		return fmt.Errorf("migración force %d: %w", version, err)
	}
	return nil
}

// Version versión actual del esquema (0 si nunca se migró).
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// Close libera la fuente y la conexión del migrador.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	if srcErr != nil {
		return srcErr
	}
	return dbErr
}
