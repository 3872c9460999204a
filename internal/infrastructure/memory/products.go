package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

type productRepo struct {
	st *state
}

func (r *productRepo) Create(_ context.Context, p *entity.Product) error {
	for _, existing := range r.st.products {
		if existing.TenantID == p.TenantID && existing.SKU == p.SKU {
			return domain.ErrDuplicate
		}
	}
	r.st.products[p.ID] = copyProduct(p)
	return nil
}

func (r *productRepo) GetByID(_ context.Context, tenantID, id string) (*entity.Product, error) {
	if p, ok := r.st.products[id]; ok && p.TenantID == tenantID {
		return copyProduct(p), nil
	}
	return nil, nil
}

func (r *productRepo) GetByTenantAndSKU(_ context.Context, tenantID, sku string) (*entity.Product, error) {
	for _, p := range r.st.products {
		if p.TenantID == tenantID && p.SKU == sku {
			return copyProduct(p), nil
		}
	}
	return nil, nil
}

func (r *productRepo) ListByTenant(_ context.Context, tenantID string, limit, offset int) ([]*entity.Product, error) {
	var out []*entity.Product
	for _, p := range r.st.products {
		if p.TenantID == tenantID {
			out = append(out, copyProduct(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return page(out, limit, offset), nil
}

func (r *productRepo) OwnerOf(_ context.Context, id string) (string, error) {
	if p, ok := r.st.products[id]; ok {
		return p.TenantID, nil
	}
	return "", nil
}

// LockForPosting no necesita bloquear: la transacción en memoria ya es exclusiva.
func (r *productRepo) LockForPosting(_ context.Context, tenantID string, ids []string) (map[string]*entity.Product, error) {
	out := make(map[string]*entity.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.st.products[id]; ok && p.TenantID == tenantID {
			out[id] = copyProduct(p)
		}
	}
	return out, nil
}
