package entity

import "github.com/shopspring/decimal"

// DocumentLine representa una línea de un documento.
type DocumentLine struct {
	ID         string
	DocumentID string
	LineNo     int
	ProductID  string
	Quantity   int64
	UnitPrice  decimal.Decimal
	TaxRate    decimal.Decimal
	TaxCode    string // debe coincidir con Product.TaxCode al aprobar
}

// Subtotal cantidad * precio unitario.
func (l DocumentLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}
