package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/identity"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// IdentityHandler resolución de clientes y anotaciones de links del tenant.
type IdentityHandler struct {
	resolver *identity.Resolver
	links    *identity.LinkStore
	log      *logger.Logger
}

// NewIdentityHandler construye el handler.
func NewIdentityHandler(resolver *identity.Resolver, links *identity.LinkStore, log *logger.Logger) *IdentityHandler {
	return &IdentityHandler{resolver: resolver, links: links, log: log}
}

// Resolve godoc
// @Summary      Resolver identidad de cliente
// @Description  Normaliza el teléfono o GSTIN, obtiene o crea el maestro global y el link del tenant.
// @Tags         identity
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ResolveIdentityRequest  true  "identifier y display_name opcional"
// @Success      200   {object}  dto.ResolveIdentityResponse
// @Success      201   {object}  dto.ResolveIdentityResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/identity/resolve [post]
func (h *IdentityHandler) Resolve(c *fiber.Ctx) error {
	var in dto.ResolveIdentityRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	res, err := h.resolver.Resolve(c.UserContext(), GetTenantID(c), in.Identifier, GetUserID(c), in.DisplayName)
	if err != nil {
		return respondError(c, h.log, err)
	}
	status := fiber.StatusOK
	if res.LinkCreated {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(dto.ResolveIdentityResponse{
		Kind:          res.Kind.String(),
		Master:        dto.ToMasterResponse(res.Master),
		Link:          dto.ToLinkResponse(res.Link, nil),
		MasterCreated: res.MasterCreated,
		LinkCreated:   res.LinkCreated,
	})
}

// ListLinks godoc
// @Summary      Listar links del tenant
// @Tags         identity
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Máximo 100 (default 20)"
// @Param        offset  query  int  false  "Desplazamiento"
// @Success      200  {object}  dto.LinkListResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/links [get]
func (h *IdentityHandler) ListLinks(c *fiber.Ctx) error {
	page := dto.PageRequest{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
	if page.Limit > 100 {
		page.Limit = 100
	}
	page.DefaultPage()
	list, err := h.links.ListLinks(c.UserContext(), GetTenantID(c), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, h.log, err)
	}
	out := dto.LinkListResponse{
		Items: make([]dto.LinkResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}
	for _, l := range list {
		out.Items = append(out.Items, dto.ToLinkResponse(l, nil))
	}
	return c.JSON(out)
}

// GetLink godoc
// @Summary      Obtener link con su maestro
// @Tags         identity
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del link (UUID)"
// @Success      200  {object}  dto.LinkResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/links/{id} [get]
func (h *IdentityHandler) GetLink(c *fiber.Ctx) error {
	link, master, err := h.links.GetLink(c.UserContext(), GetTenantID(c), GetUserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.ToLinkResponse(link, master))
}

// UpdateLink godoc
// @Summary      Actualizar anotaciones del link
// @Description  Solo modifica los campos presentes. El maestro no es editable desde el tenant.
// @Tags         identity
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true  "ID del link (UUID)"
// @Param        body  body  dto.UpdateLinkRequest  true  "nickname, billing_address, shipping_address, notes"
// @Success      200   {object}  dto.LinkResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/links/{id} [patch]
func (h *IdentityHandler) UpdateLink(c *fiber.Ctx) error {
	var in dto.UpdateLinkRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	link, err := h.links.UpdateLink(c.UserContext(), GetTenantID(c), GetUserID(c), c.Params("id"), entity.LinkAnnotations{
		Nickname:        in.Nickname,
		BillingAddress:  in.BillingAddress,
		ShippingAddress: in.ShippingAddress,
		Notes:           in.Notes,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.ToLinkResponse(link, nil))
}
