package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/stock"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// StockHandler consultas del libro de stock y ajustes manuales.
type StockHandler struct {
	svc *stock.Service
	log *logger.Logger
}

// NewStockHandler construye el handler.
func NewStockHandler(svc *stock.Service, log *logger.Logger) *StockHandler {
	return &StockHandler{svc: svc, log: log}
}

// Current godoc
// @Summary      Stock actual de un producto
// @Description  Suma de los deltas del libro.
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        productId  path  string  true  "ID del producto (UUID)"
// @Success      200  {object}  dto.CurrentStockResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/{productId} [get]
func (h *StockHandler) Current(c *fiber.Ctx) error {
	productID := c.Params("productId")
	qty, err := h.svc.CurrentStock(c.UserContext(), GetTenantID(c), GetUserID(c), productID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.CurrentStockResponse{ProductID: productID, Stock: qty})
}

// Entries godoc
// @Summary      Historial del libro de un producto
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        productId  path   string  true   "ID del producto (UUID)"
// @Param        limit      query  int     false  "Máximo 500 (default 50)"
// @Param        offset     query  int     false  "Desplazamiento"
// @Success      200  {array}   dto.LedgerEntryResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/{productId}/entries [get]
func (h *StockHandler) Entries(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit > 500 {
		limit = 500
	}
	entries, err := h.svc.History(c.UserContext(), GetTenantID(c), GetUserID(c), c.Params("productId"), limit, c.QueryInt("offset", 0))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.ToLedgerEntryResponses(entries))
}

// Low godoc
// @Summary      Productos bajo su stock mínimo
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Success      200  {array}   dto.LowStockResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/stock/low [get]
func (h *StockHandler) Low(c *fiber.Ctx) error {
	items, err := h.svc.LowStock(c.UserContext(), GetTenantID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	out := make([]dto.LowStockResponse, 0, len(items))
	for _, it := range items {
		out = append(out, dto.LowStockResponse{
			ProductID:    it.ProductID,
			SKU:          it.SKU,
			Name:         it.Name,
			CurrentStock: it.CurrentStock,
			MinStock:     it.MinStock,
		})
	}
	return c.JSON(out)
}

// Adjust godoc
// @Summary      Ajuste manual de stock
// @Description  Un tenant_id en el cuerpo distinto al del token es una violación de aislamiento.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustStockRequest  true  "product_id, delta, reason"
// @Success      201   {object}  dto.AdjustStockResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/adjustments [post]
func (h *StockHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustStockRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	res, err := h.svc.Adjust(c.UserContext(), stock.AdjustInput{
		TenantID:          GetTenantID(c),
		RequestedTenantID: in.TenantID,
		ProductID:         in.ProductID,
		Delta:             in.Delta,
		Reason:            in.Reason,
		Actor:             GetUserID(c),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	out := dto.AdjustStockResponse{
		Entry: dto.ToLedgerEntryResponses([]*entity.LedgerEntry{res.Entry})[0],
		Stock: res.Stock,
	}
	for _, w := range res.Warnings {
		out.Warnings = append(out.Warnings, dto.StockWarning(w))
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}
