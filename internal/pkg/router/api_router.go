package router

import (
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"

	apiv1 "github.com/paysync-io/paysync/internal/api/v1"
	"github.com/paysync-io/paysync/internal/pkg/middleware"
)

type ApiRouter struct {
	deps Deps
}

func NewApiRouter(deps Deps) *ApiRouter {
	return &ApiRouter{deps: deps}
}

func (h *ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		Storage:    h.limiterStorage(),
	}))

	// API v1 routes, operator API key required.
	v1 := api.Group("/v1", middleware.APIKeyAuth(h.deps.Cfg))
	apiv1.RegisterHandlers(v1, h.deps.APIServer)
}

// limiterStorage backs the rate limiter with Redis so limits hold across
// instances; nil falls back to fiber's in-memory store.
func (h *ApiRouter) limiterStorage() fiber.Storage {
	port, err := strconv.Atoi(h.deps.Cfg.Cache.Port)
	if err != nil {
		log.Printf("router: invalid cache port %q, using in-memory rate limits", h.deps.Cfg.Cache.Port)
		return nil
	}
	return redisstorage.New(redisstorage.Config{
		Host: h.deps.Cfg.Cache.Host,
		Port: port,
	})
}
