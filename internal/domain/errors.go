package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")

	// ErrInvalidIdentifier el identificador no es ni teléfono ni GSTIN válido (corregible por el usuario).
	ErrInvalidIdentifier = errors.New("identificador inválido")
	// ErrConflictResolved carrera de inserción resuelta por la restricción única; uso interno, nunca llega al cliente.
	ErrConflictResolved = errors.New("conflicto de inserción concurrente resuelto")
	// ErrValidationMismatch el documento quedó retenido en estado mismatch.
	ErrValidationMismatch = errors.New("documento inconsistente con el catálogo")
	// ErrAlreadyPosted el documento ya estaba contabilizado; se trata como éxito.
	ErrAlreadyPosted = errors.New("documento ya contabilizado")
	// ErrDuplicateDocumentNumber el número de documento ya existe para el tenant.
	ErrDuplicateDocumentNumber = errors.New("número de documento duplicado")
	// ErrTenantIsolationViolation acceso a datos de otro tenant. Siempre se registra.
	ErrTenantIsolationViolation = errors.New("violación de aislamiento entre tenants")
	// ErrInvalidTransition transición de estado no permitida por el ciclo de vida del documento.
	ErrInvalidTransition = errors.New("transición de estado inválida")
)

// MismatchError detalla los campos que no pasaron la validación de aprobación.
type MismatchError struct {
	Fields []string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidationMismatch.Error(), strings.Join(e.Fields, ", "))
}

// Is permite errors.Is(err, ErrValidationMismatch).
func (e *MismatchError) Is(target error) bool {
	return target == ErrValidationMismatch
}

// InsufficientStockError salida que dejaría el stock negativo bajo la política estricta.
type InsufficientStockError struct {
	ProductID string
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s: producto %s disponible %d, solicitado %d",
		ErrInsufficientStock.Error(), e.ProductID, e.Available, e.Requested)
}

// Is permite errors.Is(err, ErrInsufficientStock).
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
