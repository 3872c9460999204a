package repository

import "context"

// TxRepos repositorios de tenant atados a una misma transacción.
type TxRepos struct {
	Products  ProductRepository
	Ledger    LedgerRepository
	Documents DocumentRepository
	Links     TenantLinkRepository
	Masters   MasterCustomerReader
}

// TxRunner ejecuta fn dentro de una transacción con la credencial de tenant.
// Commit si fn devuelve nil; Rollback en cualquier otro caso.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos TxRepos) error) error
}

// PrivilegedTxRunner ejecuta fn en una transacción con la credencial del registro maestro.
// Es el único camino que entrega un MasterCustomerWriter.
type PrivilegedTxRunner interface {
	RunPrivileged(ctx context.Context, fn func(masters MasterCustomerWriter) error) error
}
