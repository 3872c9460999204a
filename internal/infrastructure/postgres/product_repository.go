package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

const productColumns = `id, tenant_id, sku, name, tax_code, price, tax_rate, min_stock, created_at, updated_at`

func scanProduct(row pgx.Row) (*entity.Product, error) {
	var p entity.Product
	if err := row.Scan(&p.ID, &p.TenantID, &p.SKU, &p.Name, &p.TaxCode, &p.Price, &p.TaxRate,
		&p.MinStock, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create persiste un nuevo producto.
func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	query := `
		INSERT INTO products (id, tenant_id, sku, name, tax_code, price, tax_rate, min_stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query, p.ID, p.TenantID, p.SKU, p.Name, p.TaxCode, p.Price, p.TaxRate,
		p.MinStock, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *ProductRepo) getOne(ctx context.Context, where string, args ...any) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE `+where, args...))
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// GetByID obtiene un producto del tenant por ID.
func (r *ProductRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.Product, error) {
	if !validID(id) {
		return nil, nil
	}
	return r.getOne(ctx, "tenant_id = $1 AND id = $2", tenantID, id)
}

// GetByTenantAndSKU obtiene un producto por tenant y SKU.
func (r *ProductRepo) GetByTenantAndSKU(ctx context.Context, tenantID, sku string) (*entity.Product, error) {
	return r.getOne(ctx, "tenant_id = $1 AND sku = $2", tenantID, sku)
}

// ListByTenant productos del tenant ordenados por SKU.
func (r *ProductRepo) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*entity.Product, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE tenant_id = $1
		ORDER BY sku
		LIMIT $2 OFFSET $3`, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

// OwnerOf tenant dueño del producto.
func (r *ProductRepo) OwnerOf(ctx context.Context, id string) (string, error) {
	return ownerOf(ctx, r.q, "products", id)
}

// LockForPosting SELECT ... FOR UPDATE en orden de ID para que dos contabilizaciones concurrentes
// bloqueen los mismos productos siempre en el mismo orden.
func (r *ProductRepo) LockForPosting(ctx context.Context, tenantID string, ids []string) (map[string]*entity.Product, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			valid = append(valid, id)
		}
	}
	out := make(map[string]*entity.Product, len(valid))
	if len(valid) == 0 {
		return out, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE tenant_id = $1 AND id = ANY($2::uuid[])
		ORDER BY id
		FOR UPDATE`, tenantID, valid)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	defer rows.Close()
	products, err := collectProducts(rows)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func collectProducts(rows pgx.Rows) ([]*entity.Product, error) {
	out := []*entity.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
