package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// TenantLinkRepository puerto de persistencia para TenantLink. Todas las operaciones filtran por tenant.
type TenantLinkRepository interface {
	// InsertIfAbsent crea el link salvo que ya exista uno para (tenant, master).
	InsertIfAbsent(ctx context.Context, link *entity.TenantLink) (inserted bool, err error)
	GetByMaster(ctx context.Context, tenantID, masterID string) (*entity.TenantLink, error)
	GetByID(ctx context.Context, tenantID, id string) (*entity.TenantLink, error)
	UpdateAnnotations(ctx context.Context, link *entity.TenantLink) error
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*entity.TenantLink, error)
	// OwnerOf devuelve el tenant dueño del link ("" si no existe).
	OwnerOf(ctx context.Context, id string) (string, error)
}
