package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/tenancy"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// ProductUseCase alta y consulta del catálogo. El stock nunca se guarda en el producto.
type ProductUseCase struct {
	runner repository.TxRunner
	log    *logger.Logger
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(runner repository.TxRunner, log *logger.Logger) *ProductUseCase {
	return &ProductUseCase{runner: runner, log: log.Component("catalog")}
}

// Create crea un producto. SKU único por tenant (ErrDuplicate).
func (uc *ProductUseCase) Create(ctx context.Context, tenantID string, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	sku := strings.TrimSpace(in.SKU)
	name := strings.TrimSpace(in.Name)
	taxCode := strings.TrimSpace(in.TaxCode)
	if sku == "" || name == "" || taxCode == "" || in.MinStock < 0 {
		return nil, domain.ErrInvalidInput
	}
	if in.Price.LessThan(decimal.Zero) || in.TaxRate.LessThan(decimal.Zero) || in.TaxRate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, domain.ErrInvalidInput
	}
	now := time.Now()
	product := &entity.Product{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		SKU:       sku,
		Name:      name,
		TaxCode:   taxCode,
		Price:     in.Price,
		TaxRate:   in.TaxRate,
		MinStock:  in.MinStock,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := uc.runner.Run(ctx, func(repos repository.TxRepos) error {
		return repos.Products.Create(ctx, product)
	})
	if err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// GetByID obtiene un producto del tenant.
func (uc *ProductUseCase) GetByID(ctx context.Context, tenantID, actor, id string) (*dto.ProductResponse, error) {
	var product *entity.Product
	err := uc.runner.Run(ctx, func(repos repository.TxRepos) error {
		var err error
		product, err = repos.Products.GetByID(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if product == nil {
			return tenancy.Missing(ctx, uc.log, repos.Products.OwnerOf, tenancy.Access{TenantID: tenantID, Actor: actor, Resource: "product", ID: id})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// List lista los productos del tenant ordenados por SKU.
func (uc *ProductUseCase) List(ctx context.Context, tenantID string, page dto.PageRequest) (*dto.ProductListResponse, error) {
	page.DefaultPage()
	var list []*entity.Product
	err := uc.runner.Run(ctx, func(repos repository.TxRepos) error {
		var err error
		list, err = repos.Products.ListByTenant(ctx, tenantID, page.Limit, page.Offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := &dto.ProductListResponse{
		Items: make([]dto.ProductResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}
	for _, p := range list {
		out.Items = append(out.Items, *toProductResponse(p))
	}
	return out, nil
}

func toProductResponse(p *entity.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:        p.ID,
		TenantID:  p.TenantID,
		SKU:       p.SKU,
		Name:      p.Name,
		TaxCode:   p.TaxCode,
		Price:     p.Price,
		TaxRate:   p.TaxRate,
		MinStock:  p.MinStock,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
