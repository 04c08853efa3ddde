package router

import (
	"github.com/gofiber/fiber/v2"
)

type HttpRouter struct {
	deps Deps
}

func NewHttpRouter(deps Deps) *HttpRouter {
	return &HttpRouter{deps: deps}
}

func (h *HttpRouter) InstallRouter(app *fiber.App) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	// Provider webhooks: no CSRF, no rate limit, signature-verified in the
	// controller before anything else runs.
	app.Post("/webhooks/"+h.deps.Cfg.Provider.Name, h.deps.Webhooks.HandleProviderWebhook)
}
