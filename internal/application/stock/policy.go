package stock

import (
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// NegativePolicy decide qué hacer cuando un movimiento deja el stock por debajo de cero.
type NegativePolicy string

const (
	// PolicyBlock aborta la operación con InsufficientStockError.
	PolicyBlock NegativePolicy = "block"
	// PolicyWarn acepta el movimiento y devuelve una advertencia.
	PolicyWarn NegativePolicy = "warn"
)

// ParsePolicy convierte el valor de configuración; cualquier valor desconocido es block.
func ParsePolicy(s string) NegativePolicy {
	if NegativePolicy(s) == PolicyWarn {
		return PolicyWarn
	}
	return PolicyBlock
}

// Warning movimiento aceptado bajo PolicyWarn que dejó stock negativo.
type Warning struct {
	ProductID string `json:"product_id"`
	Available int64  `json:"available"`
	Requested int64  `json:"requested"`
	Resulting int64  `json:"resulting"`
}

func (w Warning) String() string {
	return fmt.Sprintf("producto %s queda en %d (disponible %d, solicitado %d)", w.ProductID, w.Resulting, w.Available, w.Requested)
}

// Evaluate aplica la política a un movimiento de delta sobre available.
// Los movimientos que no reducen el stock o no lo dejan negativo siempre pasan.
func (p NegativePolicy) Evaluate(productID string, available, delta int64) (*Warning, error) {
	resulting := available + delta
	if delta >= 0 || resulting >= 0 {
		return nil, nil
	}
	if p == PolicyWarn {
		return &Warning{ProductID: productID, Available: available, Requested: -delta, Resulting: resulting}, nil
	}
	return nil, &domain.InsufficientStockError{ProductID: productID, Available: available, Requested: -delta}
}
