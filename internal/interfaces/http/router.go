package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jhoicas/ecount-sync/pkg/metrics"
)

// RouterDeps dependencias para el router de operación.
type RouterDeps struct {
	Sync    *SyncHandler
	Metrics *metrics.Registry
	AppName string
}

// Router registra las rutas del servidor de operación. No es una UI: solo
// disparo manual, estado de la última ejecución, salud y métricas.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")
	api.Post("/sync", deps.Sync.Trigger)
	api.Get("/runs/latest", deps.Sync.Latest)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.AppName})
	})
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}
}
