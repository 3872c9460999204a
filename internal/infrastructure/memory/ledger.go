package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

type ledgerRepo struct {
	st *state
}

// Append emula las restricciones de stock_ledger: delta distinto de cero, tipo válido,
// producto del mismo tenant y una sola entrada por línea de documento.
func (r *ledgerRepo) Append(_ context.Context, e *entity.LedgerEntry) error {
	if e.Delta == 0 {
		return fmt.Errorf("stock_ledger: check delta <> 0 violado")
	}
	if !entity.IsValidMovementKind(e.Kind) {
		return fmt.Errorf("stock_ledger: kind %q inválido", e.Kind)
	}
	p, ok := r.st.products[e.ProductID]
	if !ok || p.TenantID != e.TenantID {
		return errForeignKey("stock_ledger.product_id")
	}
	if e.DocumentLineID != nil {
		for _, existing := range r.st.ledger {
			if existing.DocumentLineID != nil && *existing.DocumentLineID == *e.DocumentLineID {
				return errUnique("stock_ledger.document_line_id")
			}
		}
	}
	c := *e
	r.st.ledger = append(r.st.ledger, &c)
	return nil
}

func (r *ledgerRepo) CurrentStock(_ context.Context, tenantID, productID string) (int64, error) {
	var sum int64
	for _, e := range r.st.ledger {
		if e.TenantID == tenantID && e.ProductID == productID {
			sum += e.Delta
		}
	}
	return sum, nil
}

func (r *ledgerRepo) ListByDocument(_ context.Context, tenantID, documentID string) ([]*entity.LedgerEntry, error) {
	var out []*entity.LedgerEntry
	for _, e := range r.st.ledger {
		if e.TenantID == tenantID && e.DocumentID != nil && *e.DocumentID == documentID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

// ListByProduct historial del producto, más reciente primero.
func (r *ledgerRepo) ListByProduct(_ context.Context, tenantID, productID string, limit, offset int) ([]*entity.LedgerEntry, error) {
	var out []*entity.LedgerEntry
	for i := len(r.st.ledger) - 1; i >= 0; i-- {
		e := r.st.ledger[i]
		if e.TenantID == tenantID && e.ProductID == productID {
			c := *e
			out = append(out, &c)
		}
	}
	return page(out, limit, offset), nil
}

func (r *ledgerRepo) BelowMinimum(ctx context.Context, tenantID string) ([]entity.LowStockItem, error) {
	var out []entity.LowStockItem
	for _, p := range r.st.products {
		if p.TenantID != tenantID {
			continue
		}
		stock, _ := r.CurrentStock(ctx, tenantID, p.ID)
		if stock < p.MinStock {
			out = append(out, entity.LowStockItem{
				ProductID:    p.ID,
				SKU:          p.SKU,
				Name:         p.Name,
				CurrentStock: stock,
				MinStock:     p.MinStock,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := out[i].MinStock-out[i].CurrentStock, out[j].MinStock-out[j].CurrentStock
		if di == dj {
			return out[i].SKU < out[j].SKU
		}
		return di > dj
	})
	return out, nil
}
