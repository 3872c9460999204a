package dto

import (
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// DocumentLineRequest línea de un documento.
type DocumentLineRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  int64           `json:"quantity" validate:"required,gt=0,max=1000000000"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
	TaxCode   string          `json:"tax_code" validate:"required"`
}

// CreateDocumentRequest cabecera y líneas de una factura de compra (inbound) o venta (outbound).
type CreateDocumentRequest struct {
	Direction          string                `json:"direction" validate:"required,oneof=inbound outbound"`
	Number             string                `json:"number" validate:"required,max=64"`
	CounterpartyLinkID string                `json:"counterparty_link_id" validate:"required_if=Direction outbound"`
	CounterpartyRef    string                `json:"counterparty_ref" validate:"omitempty,max=200"`
	Date               time.Time             `json:"date" validate:"required"`
	Lines              []DocumentLineRequest `json:"lines" validate:"dive"`
}

// ReplaceLinesRequest corrección de líneas de un documento en draft o mismatch.
type ReplaceLinesRequest struct {
	Lines []DocumentLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// DocumentLineResponse línea devuelta.
type DocumentLineResponse struct {
	ID        string          `json:"id"`
	LineNo    int             `json:"line_no"`
	ProductID string          `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
	TaxCode   string          `json:"tax_code"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// DocumentResponse documento con estado y totales.
type DocumentResponse struct {
	ID                 string                 `json:"id"`
	Direction          string                 `json:"direction"`
	Number             string                 `json:"number"`
	CounterpartyLinkID string                 `json:"counterparty_link_id,omitempty"`
	CounterpartyRef    string                 `json:"counterparty_ref,omitempty"`
	Date               time.Time              `json:"date"`
	State              string                 `json:"state"`
	MismatchFields     []string               `json:"mismatch_fields,omitempty"`
	Lines              []DocumentLineResponse `json:"lines"`
	NetTotal           decimal.Decimal        `json:"net_total"`
	TaxTotal           decimal.Decimal        `json:"tax_total"`
	CreatedBy          string                 `json:"created_by"`
	ApprovedBy         string                 `json:"approved_by,omitempty"`
	PostedBy           string                 `json:"posted_by,omitempty"`
	PostedAt           *time.Time             `json:"posted_at,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

// PostDocumentResponse resultado de contabilizar. AlreadyPosted indica un reintento sin efectos nuevos.
type PostDocumentResponse struct {
	Document      DocumentResponse      `json:"document"`
	Entries       []LedgerEntryResponse `json:"entries"`
	AlreadyPosted bool                  `json:"already_posted"`
	Warnings      []StockWarning        `json:"warnings,omitempty"`
}

// ToDocumentResponse convierte la entidad.
func ToDocumentResponse(d *entity.Document) DocumentResponse {
	net, tax := d.Totals()
	out := DocumentResponse{
		ID:                 d.ID,
		Direction:          d.Direction,
		Number:             d.Number,
		CounterpartyLinkID: d.CounterpartyLinkID,
		CounterpartyRef:    d.CounterpartyRef,
		Date:               d.Date,
		State:              d.State,
		MismatchFields:     d.MismatchFields,
		Lines:              make([]DocumentLineResponse, 0, len(d.Lines)),
		NetTotal:           net,
		TaxTotal:           tax,
		CreatedBy:          d.CreatedBy,
		ApprovedBy:         d.ApprovedBy,
		PostedBy:           d.PostedBy,
		PostedAt:           d.PostedAt,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
	for _, l := range d.Lines {
		out.Lines = append(out.Lines, DocumentLineResponse{
			ID:        l.ID,
			LineNo:    l.LineNo,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			TaxRate:   l.TaxRate,
			TaxCode:   l.TaxCode,
			Subtotal:  l.Subtotal(),
		})
	}
	return out
}

// MismatchResponse 422 de una aprobación retenida: el error y el documento en estado mismatch.
type MismatchResponse struct {
	ErrorResponse
	Document DocumentResponse `json:"document"`
}
