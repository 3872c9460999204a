package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// LedgerRepository puerto del libro de stock. Solo existe una operación de escritura: Append.
type LedgerRepository interface {
	Append(ctx context.Context, entry *entity.LedgerEntry) error
	// CurrentStock suma con signo de todas las entradas del producto para el tenant.
	CurrentStock(ctx context.Context, tenantID, productID string) (int64, error)
	ListByDocument(ctx context.Context, tenantID, documentID string) ([]*entity.LedgerEntry, error)
	ListByProduct(ctx context.Context, tenantID, productID string, limit, offset int) ([]*entity.LedgerEntry, error)
	BelowMinimum(ctx context.Context, tenantID string) ([]entity.LowStockItem, error)
}
