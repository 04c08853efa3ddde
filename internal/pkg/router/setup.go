package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/paysync-io/paysync/app/controllers"
	apiv1 "github.com/paysync-io/paysync/internal/api/v1"
	"github.com/paysync-io/paysync/internal/pkg/cache"
	"github.com/paysync-io/paysync/internal/pkg/config"
)

// Router installs one slice of the route table.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Deps carries the constructed components the routers wire up.
type Deps struct {
	Cfg       *config.Config
	Cache     *cache.Cache
	Webhooks  *controllers.WebhookController
	APIServer *apiv1.APIServer
}

// InstallRouter registers all routes on the app.
func InstallRouter(app *fiber.App, deps Deps) {
	setup(app, NewHttpRouter(deps), NewApiRouter(deps))
}

func setup(app *fiber.App, routers ...Router) {
	for _, r := range routers {
		r.InstallRouter(app)
	}
}
