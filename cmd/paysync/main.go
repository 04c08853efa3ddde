package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/paysync-io/paysync/app/controllers"
	apiv1 "github.com/paysync-io/paysync/internal/api/v1"
	"github.com/paysync-io/paysync/internal/pkg/cache"
	"github.com/paysync-io/paysync/internal/pkg/config"
	"github.com/paysync-io/paysync/internal/pkg/database"
	"github.com/paysync-io/paysync/internal/pkg/mail"
	"github.com/paysync-io/paysync/internal/pkg/maintenance"
	"github.com/paysync-io/paysync/internal/pkg/payments"
	"github.com/paysync-io/paysync/internal/pkg/reconcile"
	"github.com/paysync-io/paysync/internal/pkg/router"
	"github.com/paysync-io/paysync/internal/pkg/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	app, pruner, err := NewApplication(cfg)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}

	pruner.Start()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Print("shutting down")
		_ = app.Shutdown()
	}()

	// Stop the pruner before exiting on either path; log.Fatal would skip
	// deferred cleanup.
	listenErr := app.Listen(fmt.Sprintf("%s:%s", cfg.AppHost, cfg.AppPort))
	pruner.Stop()
	if listenErr != nil {
		log.Fatal(listenErr)
	}
}

// NewApplication wires every component once at startup; nothing reads
// ambient environment after this point.
func NewApplication(cfg *config.Config) (*fiber.App, *maintenance.Pruner, error) {
	db, err := database.Setup(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database setup: %w", err)
	}
	c := cache.Setup(cfg)

	repo := reconcile.NewRepository(db)
	mailer := mail.NewMailer(cfg)
	svc := reconcile.NewService(repo, cfg.Provider.Name, c, mailer)
	wrouter := webhook.NewRouter(reconcile.Handlers(svc)...)

	webhookController := controllers.NewWebhookController(cfg, svc, wrouter)
	apiServer := apiv1.NewAPIServer(cfg.Provider.Name, repo, c, payments.NewClient(cfg))
	pruner := maintenance.NewPruner(svc, cfg.EventRetention, 0)

	app := fiber.New(fiber.Config{
		// Webhook payloads are small JSON bodies.
		BodyLimit: 1 << 20,
	})
	app.Use(recover.New(), logger.New())

	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			cfg.MetricsUser: cfg.MetricsPass,
		},
	}), monitor.New())

	if _, err := os.Stat("./public/docs/v1/openapi.yml"); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: "./public/docs/v1/openapi.yml",
			Path:     "v1",
		}))
	}

	router.InstallRouter(app, router.Deps{
		Cfg:       cfg,
		Cache:     c,
		Webhooks:  webhookController,
		APIServer: apiServer,
	})

	return app, pruner, nil
}
