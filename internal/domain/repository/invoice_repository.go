package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// DocumentRepository define el puerto de persistencia para documentos y sus líneas.
type DocumentRepository interface {
	// Create persiste cabecera y líneas. Devuelve domain.ErrDuplicateDocumentNumber si el
	// número normalizado ya existe para el tenant.
	Create(ctx context.Context, doc *entity.Document) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.Document, error)
	// GetForUpdate igual que GetByID pero bloquea la cabecera hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, tenantID, id string) (*entity.Document, error)
	OwnerOf(ctx context.Context, id string) (string, error)
	// UpdateState persiste estado, campos de mismatch y auditoría solo si el estado actual es
	// fromState; si no, devuelve domain.ErrConflict.
	UpdateState(ctx context.Context, doc *entity.Document, fromState string) error
	ReplaceLines(ctx context.Context, doc *entity.Document) error
}
