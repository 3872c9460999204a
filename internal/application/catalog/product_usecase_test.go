package catalog

import (
	"context"
	"testing"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductUseCase(t *testing.T) {
	uc := NewProductUseCase(memory.NewStore(), logger.Nop())
	ctx := context.Background()

	req := dto.CreateProductRequest{SKU: " LAP-01 ", Name: "Laptop", TaxCode: "8471", Price: decimal.NewFromInt(55000), TaxRate: decimal.NewFromInt(18), MinStock: 2}
	p, err := uc.Create(ctx, "A", req)
	require.NoError(t, err)
	assert.Equal(t, "LAP-01", p.SKU)
	assert.Equal(t, "A", p.TenantID)

	_, err = uc.Create(ctx, "A", req)
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = uc.Create(ctx, "B", req)
	assert.NoError(t, err, "otro tenant puede reutilizar el SKU")

	got, err := uc.GetByID(ctx, "A", "u1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = uc.GetByID(ctx, "B", "u2", p.ID)
	assert.ErrorIs(t, err, domain.ErrTenantIsolationViolation)

	list, err := uc.List(ctx, "A", dto.PageRequest{})
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)
	assert.Equal(t, 20, list.Page.Limit)
}

func TestProductUseCase_InvalidInput(t *testing.T) {
	uc := NewProductUseCase(memory.NewStore(), logger.Nop())
	for name, req := range map[string]dto.CreateProductRequest{
		"sin sku":        {Name: "x", TaxCode: "8471"},
		"sin tax code":   {SKU: "x", Name: "x"},
		"precio negativo": {SKU: "x", Name: "x", TaxCode: "8471", Price: decimal.NewFromInt(-1)},
		"tasa > 100":     {SKU: "x", Name: "x", TaxCode: "8471", TaxRate: decimal.NewFromInt(101)},
		"mínimo negativo": {SKU: "x", Name: "x", TaxCode: "8471", MinStock: -1},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := uc.Create(context.Background(), "A", req)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}
