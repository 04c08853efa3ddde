package apiv1

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/paysync-io/paysync/internal/pkg/cache"
	"github.com/paysync-io/paysync/internal/pkg/entitlements"
	"github.com/paysync-io/paysync/internal/pkg/payments"
	"github.com/paysync-io/paysync/internal/pkg/reconcile"
)

const entitlementCacheTTL = 60 * time.Second

// APIServer serves the operator read API plus the thin checkout/cancel
// pass-throughs to the provider.
type APIServer struct {
	provider string
	repo     reconcile.Repository
	cache    *cache.Cache
	client   *payments.Client
}

// NewAPIServer creates a new API server instance.
func NewAPIServer(provider string, repo reconcile.Repository, c *cache.Cache, client *payments.Client) *APIServer {
	return &APIServer{provider: provider, repo: repo, cache: c, client: client}
}

// RegisterHandlers wires the v1 routes onto the given router group.
func RegisterHandlers(r fiber.Router, s *APIServer) {
	r.Get("/ping", s.GetPing)
	r.Get("/entitlements/:customer_id", s.GetEntitlement)
	r.Get("/subscriptions/:id", s.GetSubscription)
	r.Post("/checkouts", s.PostCheckout)
	r.Post("/subscriptions/:id/cancel", s.PostCancelSubscription)
}

type Pong struct {
	Ping string `json:"ping"`
}

// GetPing handles the ping endpoint.
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(Pong{Ping: "pong"})
}

// GetEntitlement returns the entitlement decision for a provider customer.
// Decisions are cached briefly; reconciliation invalidates on write.
func (s *APIServer) GetEntitlement(c *fiber.Ctx) error {
	customerID := strings.TrimSpace(c.Params("customer_id"))
	if customerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "customer_id missing"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key := entitlements.CacheKey(s.provider, customerID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key); err == nil {
			var d entitlements.Decision
			if json.Unmarshal([]byte(cached), &d) == nil {
				return c.Status(fiber.StatusOK).JSON(d)
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Printf("api: entitlement cache read failed for %s: %v", key, err)
		}
	}

	subs, err := s.repo.ListSubscriptionsByCustomer(ctx, s.provider, customerID)
	if err != nil {
		log.Printf("api: subscription lookup failed for customer %s: %v", customerID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	decision := entitlements.Decide(subs, time.Now())
	if s.cache != nil {
		if encoded, err := json.Marshal(decision); err == nil {
			if err := s.cache.Set(ctx, key, string(encoded), entitlementCacheTTL); err != nil {
				log.Printf("api: entitlement cache write failed for %s: %v", key, err)
			}
		}
	}
	return c.Status(fiber.StatusOK).JSON(decision)
}

// GetSubscription returns the synced state of one subscription.
func (s *APIServer) GetSubscription(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "id missing"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := s.repo.GetSubscription(ctx, s.provider, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		log.Printf("api: subscription lookup failed for %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	return c.Status(fiber.StatusOK).JSON(sub)
}

type checkoutRequest struct {
	ProductID string                   `json:"product_id"`
	Options   payments.CheckoutOptions `json:"options"`
}

// PostCheckout creates a hosted checkout session via the provider and
// returns its URL. Pure pass-through, no local state.
func (s *APIServer) PostCheckout(c *fiber.Ctx) error {
	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid body"})
	}

	if req.Options.ReferenceID == "" {
		req.Options.ReferenceID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	url, err := s.client.CreateCheckout(ctx, req.ProductID, req.Options)
	if err != nil {
		log.Printf("api: checkout creation failed: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "provider_request_failed"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"checkout_url": url, "reference_id": req.Options.ReferenceID})
}

type cancelRequest struct {
	Mode string `json:"mode"`
}

// PostCancelSubscription asks the provider to cancel a subscription. Local
// state is not touched here; the provider confirms via webhook.
func (s *APIServer) PostCancelSubscription(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "id missing"})
	}

	var req cancelRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid body"})
	}
	mode := req.Mode
	if mode == "" {
		mode = payments.CancelAtPeriodEnd
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := s.client.CancelSubscription(ctx, id, mode); err != nil {
		log.Printf("api: subscription cancel failed for %s: %v", id, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "provider_request_failed"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}
