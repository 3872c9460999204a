package entity

import "time"

// Tipos de movimiento del libro de stock.
const (
	MovementKindInbound    = "inbound"    // entrada por factura de compra
	MovementKindOutbound   = "outbound"   // salida por factura de venta
	MovementKindAdjustment = "adjustment" // corrección manual
)

// MaxMovementQuantity magnitud máxima de un delta o cantidad de línea.
// Acota la suma del libro lejos del desbordamiento de int64.
const MaxMovementQuantity int64 = 1_000_000_000

// ValidMovementDelta indica si delta es distinto de cero y está dentro de ±MaxMovementQuantity.
func ValidMovementDelta(delta int64) bool {
	return delta != 0 && delta >= -MaxMovementQuantity && delta <= MaxMovementQuantity
}

// LedgerEntry es un hecho inmutable del libro de stock. Append-only: nunca se actualiza ni se borra.
// El stock actual de un producto es la suma de Delta de todas sus entradas para el tenant.
type LedgerEntry struct {
	ID             string
	TenantID       string
	ProductID      string
	Delta          int64 // positivo entrada, negativo salida
	Kind           string
	DocumentID     *string // documento de origen (nil en ajustes manuales)
	DocumentLineID *string
	Reason         string // obligatorio en ajustes
	Actor          string // UserID
	CreatedAt      time.Time
}

// IsValidMovementKind indica si kind es uno de los tipos admitidos.
func IsValidMovementKind(kind string) bool {
	switch kind {
	case MovementKindInbound, MovementKindOutbound, MovementKindAdjustment:
		return true
	}
	return false
}

// LowStockItem producto cuyo stock derivado está por debajo de su mínimo.
type LowStockItem struct {
	ProductID    string
	SKU          string
	Name         string
	CurrentStock int64
	MinStock     int64
}
