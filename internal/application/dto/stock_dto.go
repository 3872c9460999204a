package dto

import (
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// AdjustStockRequest corrección manual. TenantID es opcional; si viene debe coincidir con el del token.
type AdjustStockRequest struct {
	TenantID  string `json:"tenant_id"`
	ProductID string `json:"product_id" validate:"required"`
	Delta     int64  `json:"delta" validate:"required,ne=0,min=-1000000000,max=1000000000"`
	Reason    string `json:"reason" validate:"required,max=500"`
}

// StockWarning movimiento aceptado con stock resultante negativo.
type StockWarning struct {
	ProductID string `json:"product_id"`
	Available int64  `json:"available"`
	Requested int64  `json:"requested"`
	Resulting int64  `json:"resulting"`
}

// LedgerEntryResponse entrada del libro de stock.
type LedgerEntryResponse struct {
	ID             string    `json:"id"`
	ProductID      string    `json:"product_id"`
	Delta          int64     `json:"delta"`
	Kind           string    `json:"kind"`
	DocumentID     *string   `json:"document_id,omitempty"`
	DocumentLineID *string   `json:"document_line_id,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	Actor          string    `json:"actor"`
	CreatedAt      time.Time `json:"created_at"`
}

// AdjustStockResponse entrada creada y stock resultante.
type AdjustStockResponse struct {
	Entry    LedgerEntryResponse `json:"entry"`
	Stock    int64               `json:"stock"`
	Warnings []StockWarning      `json:"warnings,omitempty"`
}

// CurrentStockResponse stock derivado de un producto.
type CurrentStockResponse struct {
	ProductID string `json:"product_id"`
	Stock     int64  `json:"stock"`
}

// LowStockResponse producto por debajo de su mínimo.
type LowStockResponse struct {
	ProductID    string `json:"product_id"`
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	CurrentStock int64  `json:"current_stock"`
	MinStock     int64  `json:"min_stock"`
}

// ToLedgerEntryResponses convierte las entradas.
func ToLedgerEntryResponses(entries []*entity.LedgerEntry) []LedgerEntryResponse {
	out := make([]LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, LedgerEntryResponse{
			ID:             e.ID,
			ProductID:      e.ProductID,
			Delta:          e.Delta,
			Kind:           e.Kind,
			DocumentID:     e.DocumentID,
			DocumentLineID: e.DocumentLineID,
			Reason:         e.Reason,
			Actor:          e.Actor,
			CreatedAt:      e.CreatedAt,
		})
	}
	return out
}
