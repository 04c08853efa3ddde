package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/paysync-io/paysync/app/models"
	"github.com/paysync-io/paysync/internal/pkg/entitlements"
	"github.com/paysync-io/paysync/internal/pkg/webhook"
)

// Notifier surfaces events that need manual handling (disputes).
type Notifier interface {
	NotifyDispute(ctx context.Context, in DisputeInput) error
}

// EntitlementCache invalidates cached entitlement decisions after state
// changes. Implemented by the Redis cache; nil disables invalidation.
type EntitlementCache interface {
	Delete(ctx context.Context, key string) error
}

// Service applies normalized provider events to local customer, order and
// subscription state under the monotonic last-applied-event invariant.
type Service struct {
	repo     Repository
	provider string
	cache    EntitlementCache
	notifier Notifier
}

// NewService creates a reconcile service. cache and notifier may be nil.
func NewService(repo Repository, provider string, cache EntitlementCache, notifier Notifier) *Service {
	return &Service{
		repo:     repo,
		provider: strings.ToLower(strings.TrimSpace(provider)),
		cache:    cache,
		notifier: notifier,
	}
}

// Repo exposes the repository for read-side consumers (API, pruner).
func (s *Service) Repo() Repository {
	return s.repo
}

// Provider returns the provider tag rows are persisted under.
func (s *Service) Provider() string {
	return s.provider
}

// RecordEvent persists the webhook payload idempotently. The insert is the
// dedup point: created=false means another delivery of this event already
// won.
func (s *Service) RecordEvent(ctx context.Context, in EventInput) (bool, *models.WebhookEvent, error) {
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		provider = s.provider
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		eventID = webhook.FallbackEventID([]byte(in.PayloadJSON))
	}

	event := &models.WebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
	}
	return s.repo.CreateEventIfNotExists(ctx, event)
}

// MarkProcessed records the outcome and optional error on an event row.
func (s *Service) MarkProcessed(ctx context.Context, eventID uint, outcome webhook.Outcome, processingErr error) error {
	if eventID == 0 {
		return errors.New("webhook event id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkEventProcessed(ctx, eventID, outcomeColumn(outcome, processingErr), errMsg)
}

// PruneEvents deletes processed events older than the cutoff. The dedup
// window must outlive the sender's redelivery schedule; the caller passes a
// cutoff derived from the configured retention.
func (s *Service) PruneEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.repo.PruneEventsBefore(ctx, cutoff)
}

// SyncCheckout handles checkout.completed: ensure the customer exists,
// record the order, and activate the subscription if one is attached.
func (s *Service) SyncCheckout(ctx context.Context, in CheckoutInput) (webhook.Outcome, error) {
	if strings.TrimSpace(in.OrderID) == "" {
		return webhook.OutcomeIgnored, errors.New("checkout payload missing order id")
	}
	if err := s.ensureCustomer(ctx, in.CustomerID, in.CustomerEmail, in.CustomerName); err != nil {
		return webhook.OutcomeIgnored, err
	}

	if _, err := s.repo.CreateOrderIfNotExists(ctx, &models.Order{
		Provider:               s.provider,
		ProviderOrderID:        strings.TrimSpace(in.OrderID),
		ProviderCustomerID:     strings.TrimSpace(in.CustomerID),
		ProviderSubscriptionID: strings.TrimSpace(in.SubscriptionID),
		ProviderProductID:      strings.TrimSpace(in.ProductID),
		AmountCents:            in.AmountCents,
		Currency:               strings.ToUpper(strings.TrimSpace(in.Currency)),
	}); err != nil {
		return webhook.OutcomeIgnored, fmt.Errorf("order upsert failed: %w", err)
	}

	if strings.TrimSpace(in.SubscriptionID) == "" {
		// One-time purchase, nothing to reconcile beyond the order row.
		return webhook.OutcomeApplied, nil
	}

	return s.applySubscriptionState(ctx, SubscriptionInput{
		SubscriptionID: in.SubscriptionID,
		CustomerID:     in.CustomerID,
		CustomerEmail:  in.CustomerEmail,
		CustomerName:   in.CustomerName,
		ProductID:      in.ProductID,
		Status:         models.SubStatusActive,
		PeriodStart:    in.PeriodStart,
		PeriodEnd:      in.PeriodEnd,
		EventID:        in.EventID,
		OccurredAt:     in.OccurredAt,
		RawJSON:        in.RawJSON,
	})
}

// SyncSubscription applies a subscription lifecycle event.
func (s *Service) SyncSubscription(ctx context.Context, in SubscriptionInput) (webhook.Outcome, error) {
	if strings.TrimSpace(in.SubscriptionID) == "" {
		return webhook.OutcomeIgnored, errors.New("subscription payload missing subscription id")
	}

	// An expiry is informational while the current period still runs:
	// provider-side payment retries may yet resolve it to paid, so it must
	// not change state on its own.
	if in.Status == models.SubStatusExpired {
		sub, err := s.repo.GetSubscription(ctx, s.provider, strings.TrimSpace(in.SubscriptionID))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("reconcile: expiry for unknown subscription %s, ignoring", in.SubscriptionID)
				return webhook.OutcomeIgnored, nil
			}
			return webhook.OutcomeIgnored, err
		}
		if sub.CurrentPeriodEnd != nil && in.OccurredAt.Before(*sub.CurrentPeriodEnd) {
			return webhook.OutcomeIgnored, nil
		}
	}

	if err := s.ensureCustomer(ctx, in.CustomerID, in.CustomerEmail, in.CustomerName); err != nil {
		return webhook.OutcomeIgnored, err
	}
	return s.applySubscriptionState(ctx, in)
}

// ApplyRefund handles refund.created. The refunded flag is persisted
// regardless of the subscription's current status; whether it revokes
// entitlement is decided at read time, which keeps the result independent of
// the order in which refund and cancellation arrive.
func (s *Service) ApplyRefund(ctx context.Context, in RefundInput) (webhook.Outcome, error) {
	subID := strings.TrimSpace(in.SubscriptionID)
	if subID == "" {
		log.Printf("reconcile: refund %s has no linked subscription, ignoring", in.RefundID)
		return webhook.OutcomeIgnored, nil
	}

	changed, err := s.repo.MarkSubscriptionRefunded(ctx, s.provider, subID)
	if err != nil {
		return webhook.OutcomeIgnored, fmt.Errorf("refund flag update failed: %w", err)
	}
	if !changed {
		// Unknown subscription or already flagged; either way a no-op.
		return webhook.OutcomeIgnored, nil
	}
	s.invalidateEntitlementFor(ctx, subID)
	return webhook.OutcomeApplied, nil
}

// RecordDispute handles dispute.created: no automatic entitlement change,
// just an operational notification.
func (s *Service) RecordDispute(ctx context.Context, in DisputeInput) (webhook.Outcome, error) {
	if s.notifier != nil {
		if err := s.notifier.NotifyDispute(ctx, in); err != nil {
			log.Printf("reconcile: dispute notification failed for %s: %v", in.DisputeID, err)
		}
	}
	return webhook.OutcomeIgnored, nil
}

func (s *Service) ensureCustomer(ctx context.Context, customerID, email, name string) error {
	id := strings.TrimSpace(customerID)
	if id == "" {
		return nil
	}
	return s.repo.UpsertCustomer(ctx, &models.Customer{
		Provider:           s.provider,
		ProviderCustomerID: id,
		Email:              strings.TrimSpace(email),
		Name:               strings.TrimSpace(name),
	})
}

func (s *Service) applySubscriptionState(ctx context.Context, in SubscriptionInput) (webhook.Outcome, error) {
	subID := strings.TrimSpace(in.SubscriptionID)
	plan := s.resolvePlan(ctx, in.ProductID)

	sub := &models.Subscription{
		Provider:               s.provider,
		ProviderSubscriptionID: subID,
		ProviderCustomerID:     strings.TrimSpace(in.CustomerID),
		ProviderProductID:      strings.TrimSpace(in.ProductID),
		InternalPlan:           plan,
		Status:                 in.Status,
		CurrentPeriodStart:     in.PeriodStart,
		CurrentPeriodEnd:       in.PeriodEnd,
		LastEventID:            in.EventID,
		LastEventAt:            in.OccurredAt,
		RawPayloadJSON:         in.RawJSON,
	}
	if in.CancelAtPeriodEnd != nil {
		sub.CancelAtPeriodEnd = *in.CancelAtPeriodEnd
	}

	created, err := s.repo.CreateSubscriptionIfNotExists(ctx, sub)
	if err != nil {
		return webhook.OutcomeIgnored, fmt.Errorf("subscription insert failed: %w", err)
	}
	if created {
		s.invalidateEntitlement(ctx, sub.ProviderCustomerID)
		return webhook.OutcomeApplied, nil
	}

	// Merge semantics: only fields the payload carries overwrite the row.
	updates := map[string]interface{}{
		"last_event_id":    in.EventID,
		"last_event_at":    in.OccurredAt,
		"raw_payload_json": in.RawJSON,
	}
	if in.Status != "" {
		updates["status"] = in.Status
	}
	if id := strings.TrimSpace(in.CustomerID); id != "" {
		updates["provider_customer_id"] = id
	}
	if pid := strings.TrimSpace(in.ProductID); pid != "" {
		updates["provider_product_id"] = pid
		updates["internal_plan"] = plan
	}
	if in.PeriodStart != nil {
		updates["current_period_start"] = in.PeriodStart
	}
	if in.PeriodEnd != nil {
		updates["current_period_end"] = in.PeriodEnd
	}
	if in.CancelAtPeriodEnd != nil {
		updates["cancel_at_period_end"] = *in.CancelAtPeriodEnd
	}

	applied, err := s.repo.UpdateSubscriptionIfNewer(ctx, s.provider, subID, in.OccurredAt, updates)
	if err != nil {
		return webhook.OutcomeIgnored, fmt.Errorf("subscription update failed: %w", err)
	}
	if !applied {
		// Equal timestamps skip as well: an event is only newer when its
		// timestamp strictly exceeds the stored one.
		return webhook.OutcomeStale, nil
	}
	s.invalidateEntitlementFor(ctx, subID)
	return webhook.OutcomeApplied, nil
}

func (s *Service) resolvePlan(ctx context.Context, productID string) string {
	pid := strings.TrimSpace(productID)
	if pid == "" {
		return string(entitlements.PlanFree)
	}
	m, err := s.repo.FindActivePlanMapping(ctx, s.provider, pid)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("reconcile: plan mapping lookup failed for product %s: %v", pid, err)
		}
		return string(entitlements.PlanFree)
	}
	return entitlements.NormalizePlan(m.InternalPlan)
}

func (s *Service) invalidateEntitlementFor(ctx context.Context, subscriptionID string) {
	sub, err := s.repo.GetSubscription(ctx, s.provider, subscriptionID)
	if err != nil {
		return
	}
	s.invalidateEntitlement(ctx, sub.ProviderCustomerID)
}

func (s *Service) invalidateEntitlement(ctx context.Context, customerID string) {
	if s.cache == nil || strings.TrimSpace(customerID) == "" {
		return
	}
	key := entitlements.CacheKey(s.provider, customerID)
	if err := s.cache.Delete(ctx, key); err != nil {
		log.Printf("reconcile: entitlement cache invalidation failed for %s: %v", key, err)
	}
}

func outcomeColumn(outcome webhook.Outcome, processingErr error) string {
	if processingErr != nil {
		return models.EventOutcomeFailed
	}
	switch outcome {
	case webhook.OutcomeApplied:
		return models.EventOutcomeApplied
	case webhook.OutcomeStale:
		return models.EventOutcomeStale
	case webhook.OutcomeUnhandled:
		return models.EventOutcomeUnknown
	case webhook.OutcomeIgnored:
		return models.EventOutcomeIgnored
	default:
		return models.EventOutcomeApplied
	}
}
