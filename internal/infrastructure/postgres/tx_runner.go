package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var (
	_ repository.TxRunner           = (*TxRunner)(nil)
	_ repository.PrivilegedTxRunner = (*PrivilegedTxRunner)(nil)
)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL con repositorios de tenant.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool de tenant.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción READ COMMITTED, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(repos repository.TxRepos) error) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(repository.TxRepos{
			Products:  NewProductRepository(tx),
			Ledger:    NewLedgerRepository(tx),
			Documents: NewDocumentRepository(tx),
			Links:     NewTenantLinkRepository(tx),
			Masters:   NewMasterCustomerRepository(tx),
		})
	})
}

// PrivilegedTxRunner transacciones del registro maestro sobre el pool privilegiado.
type PrivilegedTxRunner struct {
	pool *pgxpool.Pool
}

// NewPrivilegedTxRunner construye el runner con el pool privilegiado.
func NewPrivilegedTxRunner(pool *pgxpool.Pool) *PrivilegedTxRunner {
	return &PrivilegedTxRunner{pool: pool}
}

// RunPrivileged ejecuta fn con el escritor del registro maestro.
func (r *PrivilegedTxRunner) RunPrivileged(ctx context.Context, fn func(masters repository.MasterCustomerWriter) error) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(NewMasterCustomerRepository(tx))
	})
}

func inTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
