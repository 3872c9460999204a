package identity

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Enricher consulta el servicio externo de GSTIN. (nil, nil) significa "no encontrado".
type Enricher interface {
	Lookup(ctx context.Context, taxID string) (*entity.MasterEnrichment, error)
}
