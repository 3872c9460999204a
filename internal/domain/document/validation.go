package document

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Validate revisa campos obligatorios y la consistencia tributaria de las líneas contra el catálogo.
// products debe contener los productos del tenant indexados por ID. Devuelve los campos en
// conflicto (vacío si el documento es aprobable).
func Validate(doc *entity.Document, products map[string]*entity.Product) []string {
	var fields []string
	if NormalizeNumber(doc.Number) == "" {
		fields = append(fields, "number")
	}
	if doc.Date.IsZero() {
		fields = append(fields, "date")
	}
	if !IsValidDirection(doc.Direction) {
		fields = append(fields, "direction")
	}
	switch doc.Direction {
	case entity.DirectionOutbound:
		if doc.CounterpartyLinkID == "" {
			fields = append(fields, "counterparty_link_id")
		}
	case entity.DirectionInbound:
		if strings.TrimSpace(doc.CounterpartyRef) == "" {
			fields = append(fields, "counterparty_ref")
		}
	}
	if len(doc.Lines) == 0 {
		fields = append(fields, "lines")
	}
	for i, l := range doc.Lines {
		prefix := fmt.Sprintf("lines[%d].", i)
		if l.Quantity <= 0 || l.Quantity > entity.MaxMovementQuantity {
			fields = append(fields, prefix+"quantity")
		}
		if l.UnitPrice.LessThan(decimal.Zero) {
			fields = append(fields, prefix+"unit_price")
		}
		p, ok := products[l.ProductID]
		if !ok || p == nil {
			fields = append(fields, prefix+"product_id")
			continue
		}
		if !sameTaxCode(l.TaxCode, p.TaxCode) {
			fields = append(fields, prefix+"tax_code")
		}
	}
	return fields
}

func sameTaxCode(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
