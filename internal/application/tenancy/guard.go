// Package tenancy distingue entre recursos inexistentes y accesos a recursos de otro tenant.
package tenancy

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/metrics"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// OwnerFunc devuelve el tenant dueño del recurso id ("" si no existe).
type OwnerFunc func(ctx context.Context, id string) (string, error)

// Access datos del acceso que se está evaluando.
type Access struct {
	TenantID string
	Actor    string
	Resource string // product, document, link
	ID       string
}

// Missing se llama cuando una lectura filtrada por tenant no encontró el recurso.
// Devuelve ErrNotFound si no existe en ningún tenant y ErrTenantIsolationViolation (siempre
// registrado) si pertenece a otro.
func Missing(ctx context.Context, log *logger.Logger, owner OwnerFunc, a Access) error {
	ownerTenant, err := owner(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("buscar dueño de %s: %w", a.Resource, err)
	}
	if ownerTenant == "" || ownerTenant == a.TenantID {
		return fmt.Errorf("%s %s: %w", a.Resource, a.ID, domain.ErrNotFound)
	}
	return Violation(log, a, ownerTenant)
}

// CheckRequested compara un tenant recibido en el cuerpo de la petición con el autenticado.
// Vacío significa "el del token".
func CheckRequested(log *logger.Logger, a Access, requestedTenant string) error {
	if requestedTenant == "" || requestedTenant == a.TenantID {
		return nil
	}
	return Violation(log, a, requestedTenant)
}

// Violation registra el intento y devuelve ErrTenantIsolationViolation.
func Violation(log *logger.Logger, a Access, otherTenant string) error {
	log.Error().
		Str("tenant_id", a.TenantID).
		Str("user_id", a.Actor).
		Str("resource", a.Resource).
		Str("resource_id", a.ID).
		Str("target_tenant_id", otherTenant).
		Msg("acceso a datos de otro tenant")
	metrics.ObserveIsolationViolation(a.Resource)
	return fmt.Errorf("%s %s: %w", a.Resource, a.ID, domain.ErrTenantIsolationViolation)
}
