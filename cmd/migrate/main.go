package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func main() {
	var logLevel string
	flag.StringVar(&logLevel, "log-level", "info", "nivel de log (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: logLevel})

	// Las migraciones crean tablas y el trigger del libro: usan la credencial privilegiada.
	pool, err := postgres.NewPrivilegedPool(context.Background(), cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	m, err := postgres.NewMigrator(pool, log)
	if err != nil {
		log.Fatal().Err(err).Msg("crear migrador")
	}
	defer m.Close()

	switch command {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "step":
		err = withInt(args, "step", m.Steps)
	case "force":
		err = withInt(args, "force", m.Force)
	case "version":
		version, dirty, verr := m.Version()
		if verr != nil {
			err = verr
			break
		}
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("versión del esquema")
	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", command).Msg("migración fallida")
	}
}

func withInt(args []string, name string, fn func(int) error) error {
	if len(args) < 2 {
		return fmt.Errorf("uso: migrate %s <n>", name)
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("valor inválido %q: %w", args[1], err)
	}
	return fn(n)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `uso: migrate [-log-level info] <comando>

comandos:
  up            aplica todas las migraciones pendientes
  down          revierte todas las migraciones
  step <n>      aplica n migraciones (negativo = hacia atrás)
  force <v>     fija la versión sin ejecutar SQL (limpia dirty)
  version       muestra la versión actual`)
}
