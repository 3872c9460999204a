package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/metrics"
)

// MetricsMiddleware registra conteo y duración de cada petición, etiquetada con la ruta registrada.
func MetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		metrics.ObserveHTTPRequest(c.Method(), c.Route().Path, status, time.Since(start))
		return err
	}
}
