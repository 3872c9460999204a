package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del ciclo de vida de un documento (coinciden con el CHECK de la tabla documents).
const (
	DocumentStateDraft    = "draft"    // editable
	DocumentStateApproved = "approved" // validado, listo para contabilizar
	DocumentStatePosted   = "posted"   // terminal: movimientos registrados en el libro
	DocumentStateMismatch = "mismatch" // retenido por inconsistencias de validación
)

// Dirección del documento respecto al inventario.
const (
	DirectionInbound  = "inbound"  // factura de compra: suma stock
	DirectionOutbound = "outbound" // factura de venta: resta stock
)

// Document representa la cabecera de una factura de compra o de venta.
type Document struct {
	ID                 string
	TenantID           string
	Direction          string
	Number             string // tal como lo digitó el usuario
	NormalizedNumber   string // clave de unicidad por tenant
	CounterpartyLinkID string // TenantLink del cliente (ventas)
	CounterpartyRef    string // referencia libre del proveedor (compras)
	Date               time.Time
	State              string
	MismatchFields     []string
	Lines              []DocumentLine
	CreatedBy          string
	ApprovedBy         string
	PostedBy           string
	PostedAt           *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Sign devuelve +1 para entradas y -1 para salidas.
func (d *Document) Sign() int64 {
	if d.Direction == DirectionOutbound {
		return -1
	}
	return 1
}

// MovementKind tipo de movimiento que genera el documento al contabilizarse.
func (d *Document) MovementKind() string {
	if d.Direction == DirectionOutbound {
		return MovementKindOutbound
	}
	return MovementKindInbound
}

// Totals calcula subtotal neto e impuesto (TaxRate en porcentaje).
func (d *Document) Totals() (net, tax decimal.Decimal) {
	hundred := decimal.NewFromInt(100)
	for _, l := range d.Lines {
		sub := l.Subtotal()
		net = net.Add(sub)
		tax = tax.Add(sub.Mul(l.TaxRate).Div(hundred))
	}
	return net.Round(2), tax.Round(2)
}
