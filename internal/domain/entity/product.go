package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto del catálogo de un tenant.
// No guarda existencias: el stock se deriva siempre del libro de movimientos (stock_ledger).
type Product struct {
	ID        string
	TenantID  string
	SKU       string // único por tenant
	Name      string
	TaxCode   string          // clasificación tributaria (HSN/SAC)
	Price     decimal.Decimal // precio de venta
	TaxRate   decimal.Decimal // tasa de impuesto en porcentaje (0, 5, 12, 18, 28)
	MinStock  int64           // umbral de stock mínimo para el reporte de bajo stock
	CreatedAt time.Time
	UpdatedAt time.Time
}
