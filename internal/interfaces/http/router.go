package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jhoicas/stock-ledger/internal/application/catalog"
	"github.com/jhoicas/stock-ledger/internal/application/identity"
	"github.com/jhoicas/stock-ledger/internal/application/posting"
	"github.com/jhoicas/stock-ledger/internal/application/stock"
	"github.com/jhoicas/stock-ledger/pkg/jwt"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Resolver    *identity.Resolver
	Links       *identity.LinkStore
	ProductUC   *catalog.ProductUseCase
	Stock       *stock.Service
	Posting     *posting.Engine
	JWTSecret   string
	ServiceName string
	// Health comprueba dependencias externas (DB, Redis). nil = siempre ok.
	Health func(ctx context.Context) error
	Log    *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Log.Component("http")
	app.Use(MetricsMiddleware())

	// Públicas
	app.Get("/health", func(c *fiber.Ctx) error {
		if deps.Health != nil {
			if err := deps.Health(c.UserContext()); err != nil {
				log.Warn().Err(err).Msg("health check fallido")
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "service": deps.ServiceName})
			}
		}
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	anyRole := RequireRole(jwt.RoleAdmin, jwt.RoleOperator, jwt.RoleViewer)
	writers := RequireRole(jwt.RoleAdmin, jwt.RoleOperator)
	admins := RequireRole(jwt.RoleAdmin)

	// Identidad de clientes
	identityHandler := NewIdentityHandler(deps.Resolver, deps.Links, log)
	protected.Post("/identity/resolve", writers, identityHandler.Resolve)
	links := protected.Group("/links")
	links.Get("/", anyRole, identityHandler.ListLinks)
	links.Get("/:id", anyRole, identityHandler.GetLink)
	links.Patch("/:id", writers, identityHandler.UpdateLink)

	// Catálogo
	products := protected.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC, log)
	products.Post("/", admins, productHandler.Create)
	products.Get("/", anyRole, productHandler.List)
	products.Get("/:id", anyRole, productHandler.GetByID)

	// Documentos
	documents := protected.Group("/documents")
	documentHandler := NewDocumentHandler(deps.Posting, log)
	documents.Post("/", writers, documentHandler.Create)
	documents.Get("/:id", anyRole, documentHandler.Get)
	documents.Put("/:id/lines", writers, documentHandler.ReplaceLines)
	documents.Post("/:id/approve", writers, documentHandler.Approve)
	documents.Post("/:id/reopen", writers, documentHandler.Reopen)
	documents.Post("/:id/post", admins, documentHandler.Post)

	// Libro de stock (/low antes de /:productId)
	stockGroup := protected.Group("/stock")
	stockHandler := NewStockHandler(deps.Stock, log)
	stockGroup.Get("/low", anyRole, stockHandler.Low)
	stockGroup.Post("/adjustments", admins, stockHandler.Adjust)
	stockGroup.Get("/:productId", anyRole, stockHandler.Current)
	stockGroup.Get("/:productId/entries", anyRole, stockHandler.Entries)
}
