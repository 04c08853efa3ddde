package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paysync-io/paysync/app/models"
	"github.com/paysync-io/paysync/internal/pkg/webhook"
)

// Handlers returns the full handler set for the router. Adding a provider
// event type means adding an entry here; dispatch never changes.
func Handlers(svc *Service) []webhook.Handler {
	return []webhook.Handler{
		&checkoutCompletedHandler{svc: svc},
		newSubscriptionHandler(svc, webhook.EventSubscriptionPaid, mutatePaid),
		newSubscriptionHandler(svc, webhook.EventSubscriptionCanceled, mutateCanceled),
		newSubscriptionHandler(svc, webhook.EventSubscriptionExpired, mutateExpired),
		newSubscriptionHandler(svc, webhook.EventSubscriptionPaused, mutatePaused),
		newSubscriptionHandler(svc, webhook.EventSubscriptionTrialing, mutateTrialing),
		newSubscriptionHandler(svc, webhook.EventSubscriptionUpdated, mutateUpdated),
		&refundCreatedHandler{svc: svc},
		&disputeCreatedHandler{svc: svc},
	}
}

type checkoutCompletedHandler struct {
	svc *Service
}

func (h *checkoutCompletedHandler) EventType() string {
	return webhook.EventCheckoutCompleted
}

func (h *checkoutCompletedHandler) Handle(ctx context.Context, ev *webhook.Event) (webhook.Outcome, error) {
	var obj webhook.CheckoutObject
	if err := json.Unmarshal(ev.Object, &obj); err != nil {
		return webhook.OutcomeIgnored, fmt.Errorf("checkout payload decode failed: %w", err)
	}
	return h.svc.SyncCheckout(ctx, CheckoutInput{
		OrderID:        obj.OrderID,
		CustomerID:     obj.CustomerID,
		CustomerEmail:  obj.CustomerEmail,
		CustomerName:   obj.CustomerName,
		ProductID:      obj.ProductID,
		SubscriptionID: obj.SubscriptionID,
		AmountCents:    obj.AmountCents,
		Currency:       obj.Currency,
		PeriodStart:    webhook.MillisToTime(obj.PeriodStart),
		PeriodEnd:      webhook.MillisToTime(obj.PeriodEnd),
		EventID:        ev.ID,
		OccurredAt:     ev.OccurredAt(),
		RawJSON:        string(ev.Raw),
	})
}

// subscriptionHandler covers every subscription.* tag; the mutate func
// encodes the per-event-type policy from the reconciliation table.
type subscriptionHandler struct {
	svc       *Service
	eventType string
	mutate    func(in *SubscriptionInput, obj webhook.SubscriptionObject)
}

func newSubscriptionHandler(svc *Service, eventType string, mutate func(*SubscriptionInput, webhook.SubscriptionObject)) *subscriptionHandler {
	return &subscriptionHandler{svc: svc, eventType: eventType, mutate: mutate}
}

func (h *subscriptionHandler) EventType() string {
	return h.eventType
}

func (h *subscriptionHandler) Handle(ctx context.Context, ev *webhook.Event) (webhook.Outcome, error) {
	var obj webhook.SubscriptionObject
	if err := json.Unmarshal(ev.Object, &obj); err != nil {
		return webhook.OutcomeIgnored, fmt.Errorf("subscription payload decode failed: %w", err)
	}

	in := SubscriptionInput{
		SubscriptionID: obj.SubscriptionID,
		CustomerID:     obj.CustomerID,
		CustomerEmail:  obj.CustomerEmail,
		CustomerName:   obj.CustomerName,
		ProductID:      obj.ProductID,
		PeriodStart:    webhook.MillisToTime(obj.CurrentPeriodStart),
		PeriodEnd:      webhook.MillisToTime(obj.CurrentPeriodEnd),
		EventID:        ev.ID,
		OccurredAt:     ev.OccurredAt(),
		RawJSON:        string(ev.Raw),
	}
	h.mutate(&in, obj)
	return h.svc.SyncSubscription(ctx, in)
}

// Initial and renewal payments are the same path: mark active and take the
// period bounds from the payload.
func mutatePaid(in *SubscriptionInput, obj webhook.SubscriptionObject) {
	in.Status = models.SubStatusActive
}

// Cancellation schedules the loss of entitlement; access stays until the
// current period ends.
func mutateCanceled(in *SubscriptionInput, obj webhook.SubscriptionObject) {
	in.Status = models.SubStatusCanceled
	if in.PeriodEnd != nil && in.OccurredAt.Before(*in.PeriodEnd) {
		in.Status = models.SubStatusScheduledCancel
	}
	t := true
	in.CancelAtPeriodEnd = &t
}

func mutateExpired(in *SubscriptionInput, obj webhook.SubscriptionObject) {
	in.Status = models.SubStatusExpired
}

func mutatePaused(in *SubscriptionInput, obj webhook.SubscriptionObject) {
	in.Status = models.SubStatusPaused
}

func mutateTrialing(in *SubscriptionInput, obj webhook.SubscriptionObject) {
	in.Status = models.SubStatusTrialing
}

// Updates carry whatever fields changed; the status comes from the payload
// and absent fields stay untouched.
func mutateUpdated(in *SubscriptionInput, obj webhook.SubscriptionObject) {
	in.Status = normalizeStatus(obj.Status)
	if obj.CancelAtPeriodEnd {
		t := true
		in.CancelAtPeriodEnd = &t
	}
}

func normalizeStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case models.SubStatusActive:
		return models.SubStatusActive
	case models.SubStatusTrialing:
		return models.SubStatusTrialing
	case models.SubStatusPaused, "on_hold":
		return models.SubStatusPaused
	case models.SubStatusCanceled, "cancelled":
		return models.SubStatusCanceled
	case models.SubStatusScheduledCancel:
		return models.SubStatusScheduledCancel
	case models.SubStatusExpired:
		return models.SubStatusExpired
	case models.SubStatusUnpaid, "past_due", "failed":
		return models.SubStatusUnpaid
	case "":
		return ""
	default:
		return models.SubStatusUnpaid
	}
}

type refundCreatedHandler struct {
	svc *Service
}

func (h *refundCreatedHandler) EventType() string {
	return webhook.EventRefundCreated
}

func (h *refundCreatedHandler) Handle(ctx context.Context, ev *webhook.Event) (webhook.Outcome, error) {
	var obj webhook.RefundObject
	if err := json.Unmarshal(ev.Object, &obj); err != nil {
		return webhook.OutcomeIgnored, fmt.Errorf("refund payload decode failed: %w", err)
	}
	return h.svc.ApplyRefund(ctx, RefundInput{
		RefundID:       obj.RefundID,
		OrderID:        obj.OrderID,
		SubscriptionID: obj.SubscriptionID,
		EventID:        ev.ID,
		OccurredAt:     ev.OccurredAt(),
	})
}

type disputeCreatedHandler struct {
	svc *Service
}

func (h *disputeCreatedHandler) EventType() string {
	return webhook.EventDisputeCreated
}

func (h *disputeCreatedHandler) Handle(ctx context.Context, ev *webhook.Event) (webhook.Outcome, error) {
	var obj webhook.DisputeObject
	if err := json.Unmarshal(ev.Object, &obj); err != nil {
		return webhook.OutcomeIgnored, fmt.Errorf("dispute payload decode failed: %w", err)
	}
	return h.svc.RecordDispute(ctx, DisputeInput{
		DisputeID:      obj.DisputeID,
		OrderID:        obj.OrderID,
		SubscriptionID: obj.SubscriptionID,
		AmountCents:    obj.AmountCents,
		Currency:       obj.Currency,
		Reason:         obj.Reason,
		EventID:        ev.ID,
		OccurredAt:     ev.OccurredAt(),
	})
}
