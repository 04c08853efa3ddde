package controllers

import (
	"context"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/paysync-io/paysync/internal/pkg/config"
	"github.com/paysync-io/paysync/internal/pkg/reconcile"
	"github.com/paysync-io/paysync/internal/pkg/webhook"
)

// WebhookController is the delivery acknowledger: it runs the pipeline
// (verify, dedup, route, reconcile) and maps the outcome to the response
// that drives the sender's retry behavior. 200 suppresses retries, 5xx
// triggers the sender's backoff schedule, 401 rejects before anything else
// runs.
type WebhookController struct {
	cfg    *config.Config
	svc    *reconcile.Service
	router *webhook.Router
}

func NewWebhookController(cfg *config.Config, svc *reconcile.Service, router *webhook.Router) *WebhookController {
	return &WebhookController{cfg: cfg, svc: svc, router: router}
}

// HandleProviderWebhook processes one inbound delivery.
func (wc *WebhookController) HandleProviderWebhook(c *fiber.Ctx) error {
	// The signature covers the exact wire bytes; fiber reuses its buffer, so
	// copy before anything else touches the request.
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := c.Get(wc.cfg.SignatureHeader())

	// Authentication short-circuits before parsing or any side effect.
	if err := webhook.VerifySignature(rawBody, signature, wc.cfg.Provider.WebhookSecret); err != nil {
		switch {
		case errors.Is(err, webhook.ErrMissingSecret):
			log.Printf("webhook: rejected delivery, secret not configured")
		case errors.Is(err, webhook.ErrMissingSignature):
			log.Printf("webhook: rejected delivery without signature header from %s", c.IP())
		case errors.Is(err, webhook.ErrMalformedSignature):
			log.Printf("webhook: rejected delivery with malformed signature from %s", c.IP())
		default:
			log.Printf("webhook: rejected delivery with invalid signature from %s", c.IP())
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	ev, err := webhook.ParseEvent(rawBody)
	if err != nil {
		// Malformed payloads may be a transient sender-side fault; a server
		// error keeps the event on the sender's retry schedule.
		log.Printf("webhook: malformed payload: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "invalid_payload"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), wc.cfg.RequestTimeout)
	defer cancel()

	created, stored, err := wc.svc.RecordEvent(ctx, reconcile.EventInput{
		ProviderEventID: ev.ID,
		EventType:       ev.EventType,
		PayloadJSON:     string(rawBody),
	})
	if err != nil {
		log.Printf("webhook: persisting event %s failed: %v", ev.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !created {
		// A concurrent or earlier delivery already won; success so the
		// sender stops resending.
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}

	outcome, applyErr := wc.router.Dispatch(ctx, ev)
	if err := wc.svc.MarkProcessed(ctx, stored.ID, outcome, applyErr); err != nil {
		log.Printf("webhook: marking event %s processed failed: %v", ev.ID, err)
	}
	if applyErr != nil {
		log.Printf("webhook: applying event %s (%s) failed: %v", ev.ID, ev.EventType, applyErr)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "event_apply_failed"})
	}

	switch outcome {
	case webhook.OutcomeStale:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "stale": true})
	case webhook.OutcomeUnhandled, webhook.OutcomeIgnored:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	default:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	}
}
