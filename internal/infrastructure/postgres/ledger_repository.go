package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

// LedgerRepo libro de stock append-only. La tabla rechaza UPDATE y DELETE con un trigger.
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

const ledgerColumns = `id, tenant_id, product_id, delta, kind, document_id, document_line_id, reason, actor, created_at`

func scanEntry(row pgx.Row) (*entity.LedgerEntry, error) {
	var e entity.LedgerEntry
	if err := row.Scan(&e.ID, &e.TenantID, &e.ProductID, &e.Delta, &e.Kind, &e.DocumentID,
		&e.DocumentLineID, &e.Reason, &e.Actor, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// Append inserta la entrada. La llave foránea compuesta impide referenciar productos de otro tenant
// y el índice único parcial sobre document_line_id impide contabilizar dos veces la misma línea.
func (r *LedgerRepo) Append(ctx context.Context, e *entity.LedgerEntry) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_ledger (`+ledgerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.TenantID, e.ProductID, e.Delta, e.Kind, e.DocumentID, e.DocumentLineID, e.Reason, e.Actor, e.CreatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return fmt.Errorf("%s: %w", constraintName(err), domain.ErrConflict)
		case isForeignKeyViolation(err):
			return fmt.Errorf("%s: %w", constraintName(err), domain.ErrNotFound)
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// CurrentStock SUM(delta) del producto para el tenant.
func (r *LedgerRepo) CurrentStock(ctx context.Context, tenantID, productID string) (int64, error) {
	if !validID(productID) {
		return 0, nil
	}
	var stock int64
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(delta), 0)::bigint FROM stock_ledger
		WHERE tenant_id = $1 AND product_id = $2`, tenantID, productID).Scan(&stock)
	if err != nil {
		return 0, fmt.Errorf("current stock: %w", err)
	}
	return stock, nil
}

// ListByDocument entradas del documento en orden de inserción.
func (r *LedgerRepo) ListByDocument(ctx context.Context, tenantID, documentID string) ([]*entity.LedgerEntry, error) {
	if !validID(documentID) {
		return []*entity.LedgerEntry{}, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+ledgerColumns+` FROM stock_ledger
		WHERE tenant_id = $1 AND document_id = $2
		ORDER BY seq`, tenantID, documentID)
	if err != nil {
		return nil, fmt.Errorf("list ledger by document: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// ListByProduct historial del producto, más reciente primero.
func (r *LedgerRepo) ListByProduct(ctx context.Context, tenantID, productID string, limit, offset int) ([]*entity.LedgerEntry, error) {
	if !validID(productID) {
		return []*entity.LedgerEntry{}, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+ledgerColumns+` FROM stock_ledger
		WHERE tenant_id = $1 AND product_id = $2
		ORDER BY created_at DESC, seq DESC
		LIMIT $3 OFFSET $4`, tenantID, productID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list ledger by product: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// BelowMinimum productos cuyo stock derivado es menor que min_stock, mayor déficit primero.
func (r *LedgerRepo) BelowMinimum(ctx context.Context, tenantID string) ([]entity.LowStockItem, error) {
	rows, err := r.q.Query(ctx, `
		SELECT p.id, p.sku, p.name, COALESCE(SUM(l.delta), 0)::bigint AS stock, p.min_stock
		FROM products p
		LEFT JOIN stock_ledger l ON l.tenant_id = p.tenant_id AND l.product_id = p.id
		WHERE p.tenant_id = $1
		GROUP BY p.id, p.sku, p.name, p.min_stock
		HAVING COALESCE(SUM(l.delta), 0) < p.min_stock
		ORDER BY p.min_stock - COALESCE(SUM(l.delta), 0) DESC, p.sku`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("below minimum: %w", err)
	}
	defer rows.Close()

	out := []entity.LowStockItem{}
	for rows.Next() {
		var it entity.LowStockItem
		if err := rows.Scan(&it.ProductID, &it.SKU, &it.Name, &it.CurrentStock, &it.MinStock); err != nil {
			return nil, fmt.Errorf("scan low stock: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func collectEntries(rows pgx.Rows) ([]*entity.LedgerEntry, error) {
	out := []*entity.LedgerEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
