package webhook

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Event-type tags the provider currently sends. The router tolerates tags
// outside this list; the provider's vocabulary grows over time.
const (
	EventCheckoutCompleted    = "checkout.completed"
	EventSubscriptionPaid     = "subscription.paid"
	EventSubscriptionCanceled = "subscription.canceled"
	EventSubscriptionExpired  = "subscription.expired"
	EventSubscriptionPaused   = "subscription.paused"
	EventSubscriptionTrialing = "subscription.trialing"
	EventSubscriptionUpdated  = "subscription.updated"
	EventRefundCreated        = "refund.created"
	EventDisputeCreated       = "dispute.created"
)

// Event is the provider's webhook envelope. Immutable once parsed; Object
// stays raw until the type-specific handler decodes it. ID may be empty
// (manual resends through provider dashboards omit it); persistence then
// derives a payload-hash fallback for dedup.
type Event struct {
	ID        string          `json:"id"`
	EventType string          `json:"eventType" validate:"required"`
	CreatedAt int64           `json:"created_at"`
	Object    json.RawMessage `json:"object"`

	// Raw holds the exact wire bytes for audit storage.
	Raw []byte `json:"-"`
}

var envelopeValidator = validator.New()

// ParseEvent decodes the envelope from the raw body. Field order and byte
// layout of Raw are preserved from the wire.
func ParseEvent(raw []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("webhook: malformed payload: %w", err)
	}
	ev.ID = strings.TrimSpace(ev.ID)
	ev.EventType = strings.TrimSpace(ev.EventType)
	ev.Raw = raw
	if err := envelopeValidator.Struct(&ev); err != nil {
		return nil, fmt.Errorf("webhook: invalid envelope: %w", err)
	}
	return &ev, nil
}

// OccurredAt converts the envelope's epoch-millis creation timestamp.
func (e *Event) OccurredAt() time.Time {
	return time.UnixMilli(e.CreatedAt).UTC()
}

// FallbackEventID derives a stable identifier from the payload for providers
// or manual resends that omit the event id.
func FallbackEventID(payload []byte) string {
	sum := sha256.Sum256(payload)
	return "hash:" + hex.EncodeToString(sum[:])
}

// Subscription-bearing payload. Timestamps are epoch-millis like the
// envelope; zero means absent.
type SubscriptionObject struct {
	SubscriptionID     string `json:"subscription_id"`
	CustomerID         string `json:"customer_id"`
	CustomerEmail      string `json:"customer_email"`
	CustomerName       string `json:"customer_name"`
	ProductID          string `json:"product_id"`
	Status             string `json:"status"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
}

type CheckoutObject struct {
	OrderID        string `json:"order_id"`
	CustomerID     string `json:"customer_id"`
	CustomerEmail  string `json:"customer_email"`
	CustomerName   string `json:"customer_name"`
	ProductID      string `json:"product_id"`
	SubscriptionID string `json:"subscription_id"`
	AmountCents    int64  `json:"amount"`
	Currency       string `json:"currency"`
	PeriodStart    int64  `json:"current_period_start"`
	PeriodEnd      int64  `json:"current_period_end"`
}

type RefundObject struct {
	RefundID       string `json:"refund_id"`
	OrderID        string `json:"order_id"`
	SubscriptionID string `json:"subscription_id"`
	AmountCents    int64  `json:"amount"`
	Currency       string `json:"currency"`
}

type DisputeObject struct {
	DisputeID      string `json:"dispute_id"`
	OrderID        string `json:"order_id"`
	SubscriptionID string `json:"subscription_id"`
	AmountCents    int64  `json:"amount"`
	Currency       string `json:"currency"`
	Reason         string `json:"reason"`
}

// MillisToTime converts an optional epoch-millis payload field.
func MillisToTime(ms int64) *time.Time {
	if ms == 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}
