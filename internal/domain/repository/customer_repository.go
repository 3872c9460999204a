package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// MasterCustomerReader lecturas del registro maestro, sin restricción de tenant.
// Las lecturas devuelven (nil, nil) si no existe el registro.
type MasterCustomerReader interface {
	GetByID(ctx context.Context, id string) (*entity.MasterCustomer, error)
	GetByPhone(ctx context.Context, phone string) (*entity.MasterCustomer, error)
	GetByTaxID(ctx context.Context, taxID string) (*entity.MasterCustomer, error)
}

// MasterCustomerWriter puerto de escritura del registro maestro. Solo lo recibe el registro
// privilegiado; las sesiones de tenant nunca tienen acceso a esta interfaz.
type MasterCustomerWriter interface {
	MasterCustomerReader

	// InsertIfAbsent inserta el maestro salvo que choque con un índice único (teléfono o GSTIN).
	// inserted=false indica que otro escritor ganó la carrera; el llamador debe volver a buscar.
	InsertIfAbsent(ctx context.Context, m *entity.MasterCustomer) (inserted bool, err error)

	// Touch avanza last_seen_at (nunca retrocede) y completa identificadores nulos con los de merge
	// sin sobrescribir valores existentes. Devuelve la fila canónica resultante.
	Touch(ctx context.Context, id string, merge MasterMerge, seenAt time.Time) (*entity.MasterCustomer, error)

	// ApplyEnrichment guarda los datos del servicio externo de GSTIN.
	ApplyEnrichment(ctx context.Context, id string, e entity.MasterEnrichment, at time.Time) (*entity.MasterCustomer, error)

	// ListPendingEnrichment maestros con GSTIN que nunca fueron enriquecidos.
	ListPendingEnrichment(ctx context.Context, limit int) ([]*entity.MasterCustomer, error)
}

// MasterMerge identificadores y campos derivados que se adjuntan a un maestro existente.
type MasterMerge struct {
	Phone             *string
	TaxID             *string
	JurisdictionCode  string
	RegistrationClass string
}
