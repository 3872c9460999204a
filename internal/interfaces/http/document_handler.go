package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/posting"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// DocumentHandler ciclo de vida de facturas de compra y venta.
type DocumentHandler struct {
	engine *posting.Engine
	log    *logger.Logger
}

// NewDocumentHandler construye el handler.
func NewDocumentHandler(engine *posting.Engine, log *logger.Logger) *DocumentHandler {
	return &DocumentHandler{engine: engine, log: log}
}

func toLineInputs(lines []dto.DocumentLineRequest) []posting.LineInput {
	out := make([]posting.LineInput, 0, len(lines))
	for _, l := range lines {
		out = append(out, posting.LineInput{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			TaxRate:   l.TaxRate,
			TaxCode:   l.TaxCode,
		})
	}
	return out
}

// Create godoc
// @Summary      Crear documento
// @Description  Factura de compra (inbound) o venta (outbound). Queda en draft.
// @Tags         documents
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateDocumentRequest  true  "cabecera y líneas"
// @Success      201   {object}  dto.DocumentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/documents [post]
func (h *DocumentHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateDocumentRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	doc, err := h.engine.Create(c.UserContext(), posting.CreateInput{
		TenantID:           GetTenantID(c),
		Actor:              GetUserID(c),
		Direction:          in.Direction,
		Number:             in.Number,
		CounterpartyLinkID: in.CounterpartyLinkID,
		CounterpartyRef:    in.CounterpartyRef,
		Date:               in.Date,
		Lines:              toLineInputs(in.Lines),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToDocumentResponse(doc))
}

// Get godoc
// @Summary      Obtener documento
// @Tags         documents
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del documento (UUID)"
// @Success      200  {object}  dto.DocumentResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/documents/{id} [get]
func (h *DocumentHandler) Get(c *fiber.Ctx) error {
	doc, err := h.engine.Get(c.UserContext(), GetTenantID(c), GetUserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.ToDocumentResponse(doc))
}

// ReplaceLines godoc
// @Summary      Corregir líneas
// @Description  Reemplaza las líneas de un documento en draft o mismatch; vuelve a draft.
// @Tags         documents
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "ID del documento (UUID)"
// @Param        body  body  dto.ReplaceLinesRequest  true  "líneas nuevas"
// @Success      200   {object}  dto.DocumentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/lines [put]
func (h *DocumentHandler) ReplaceLines(c *fiber.Ctx) error {
	var in dto.ReplaceLinesRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	doc, err := h.engine.Correct(c.UserContext(), GetTenantID(c), c.Params("id"), GetUserID(c), toLineInputs(in.Lines))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.ToDocumentResponse(doc))
}

// Approve godoc
// @Summary      Aprobar documento
// @Description  Un mismatch responde 422 con los campos; el documento queda retenido y puede consultarse.
// @Tags         documents
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del documento (UUID)"
// @Success      200  {object}  dto.DocumentResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.MismatchResponse
// @Router       /api/documents/{id}/approve [post]
func (h *DocumentHandler) Approve(c *fiber.Ctx) error {
	doc, err := h.engine.Approve(c.UserContext(), GetTenantID(c), c.Params("id"), GetUserID(c))
	if err != nil {
		var mismatch *domain.MismatchError
		if errors.As(err, &mismatch) && doc != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.MismatchResponse{
				ErrorResponse: dto.ErrorResponse{
					Code:    "VALIDATION_MISMATCH",
					Message: domain.ErrValidationMismatch.Error(),
					Fields:  mismatch.Fields,
				},
				Document: dto.ToDocumentResponse(doc),
			})
		}
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.ToDocumentResponse(doc))
}

// Reopen godoc
// @Summary      Reabrir documento retenido
// @Tags         documents
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del documento (UUID)"
// @Success      200  {object}  dto.DocumentResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/reopen [post]
func (h *DocumentHandler) Reopen(c *fiber.Ctx) error {
	doc, err := h.engine.Reopen(c.UserContext(), GetTenantID(c), c.Params("id"), GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.ToDocumentResponse(doc))
}

// Post godoc
// @Summary      Contabilizar documento
// @Description  Escribe una entrada del libro por línea. Un reintento sobre un documento ya contabilizado responde 200 con already_posted=true.
// @Tags         documents
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del documento (UUID)"
// @Success      200  {object}  dto.PostDocumentResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/post [post]
func (h *DocumentHandler) Post(c *fiber.Ctx) error {
	res, err := h.engine.Post(c.UserContext(), GetTenantID(c), c.Params("id"), GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	out := dto.PostDocumentResponse{
		Document:      dto.ToDocumentResponse(res.Document),
		Entries:       dto.ToLedgerEntryResponses(res.Entries),
		AlreadyPosted: res.AlreadyPosted,
	}
	for _, w := range res.Warnings {
		out.Warnings = append(out.Warnings, dto.StockWarning(w))
	}
	return c.JSON(out)
}
