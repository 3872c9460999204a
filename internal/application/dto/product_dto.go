package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateProductRequest entrada para crear un producto.
type CreateProductRequest struct {
	SKU      string          `json:"sku" validate:"required,min=1,max=100"`
	Name     string          `json:"name" validate:"required,min=1,max=200"`
	TaxCode  string          `json:"tax_code" validate:"required,min=2,max=20"`
	Price    decimal.Decimal `json:"price"`
	TaxRate  decimal.Decimal `json:"tax_rate"`
	MinStock int64           `json:"min_stock" validate:"min=0"`
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID        string          `json:"id"`
	TenantID  string          `json:"tenant_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	TaxCode   string          `json:"tax_code"`
	Price     decimal.Decimal `json:"price"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
	MinStock  int64           `json:"min_stock"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ProductListResponse lista paginada de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
