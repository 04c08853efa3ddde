package reconcile

import "time"

// Normalized inputs the service consumes. Handlers decode provider payloads
// into these so the sync logic stays provider-agnostic.

type SubscriptionInput struct {
	SubscriptionID    string
	CustomerID        string
	CustomerEmail     string
	CustomerName      string
	ProductID         string
	Status            string
	PeriodStart       *time.Time
	PeriodEnd         *time.Time
	CancelAtPeriodEnd *bool

	EventID    string
	OccurredAt time.Time
	RawJSON    string
}

type CheckoutInput struct {
	OrderID        string
	CustomerID     string
	CustomerEmail  string
	CustomerName   string
	ProductID      string
	SubscriptionID string
	AmountCents    int64
	Currency       string
	PeriodStart    *time.Time
	PeriodEnd      *time.Time

	EventID    string
	OccurredAt time.Time
	RawJSON    string
}

type RefundInput struct {
	RefundID       string
	OrderID        string
	SubscriptionID string

	EventID    string
	OccurredAt time.Time
}

type DisputeInput struct {
	DisputeID      string
	OrderID        string
	SubscriptionID string
	AmountCents    int64
	Currency       string
	Reason         string

	EventID    string
	OccurredAt time.Time
}

// EventInput is the normalized input for webhook event persistence.
type EventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
}
