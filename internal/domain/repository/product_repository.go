package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para Product (DIP).
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.Product, error)
	GetByTenantAndSKU(ctx context.Context, tenantID, sku string) (*entity.Product, error)
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*entity.Product, error)

	// OwnerOf devuelve el tenant dueño del producto ("" si no existe). Solo para detectar
	// accesos entre tenants; nunca expone datos del producto.
	OwnerOf(ctx context.Context, id string) (string, error)

	// LockForPosting bloquea (FOR UPDATE, en orden de ID) los productos del tenant indicados y
	// los devuelve indexados por ID. Los IDs inexistentes simplemente no aparecen en el mapa.
	LockForPosting(ctx context.Context, tenantID string, ids []string) (map[string]*entity.Product, error)
}
