package webhook

import (
	"context"
	"log"
)

// Handler applies one event type to local state.
type Handler interface {
	EventType() string
	Handle(ctx context.Context, ev *Event) (Outcome, error)
}

// Outcome classifies how an event was handled; the controller maps it to the
// response that drives (or suppresses) sender retries.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	// OutcomeStale marks events older than the entity's last applied event.
	OutcomeStale Outcome = "stale"
	// OutcomeIgnored covers events that are valid but cause no state change
	// (informational expiries, disputes, unreferenced entities).
	OutcomeIgnored Outcome = "ignored"
	// OutcomeUnhandled marks event types with no registered handler.
	OutcomeUnhandled Outcome = "unhandled"
)

// Router maps event-type tags to handlers. The handler set is fixed at
// construction; adding a new event type means registering a new Handler,
// never touching dispatch.
type Router struct {
	handlers map[string]Handler
}

// NewRouter builds a router from the given handlers. Duplicate registrations
// for a tag are a programming error.
func NewRouter(handlers ...Handler) *Router {
	m := make(map[string]Handler, len(handlers))
	for _, h := range handlers {
		if _, exists := m[h.EventType()]; exists {
			log.Panicf("webhook: duplicate handler for event type %q", h.EventType())
		}
		m[h.EventType()] = h
	}
	return &Router{handlers: m}
}

// Handles reports whether a handler is registered for the tag.
func (r *Router) Handles(eventType string) bool {
	_, ok := r.handlers[eventType]
	return ok
}

// Dispatch routes the event to its handler. Unknown tags are logged and
// acknowledged as unhandled so a growing provider vocabulary never causes
// retry storms.
func (r *Router) Dispatch(ctx context.Context, ev *Event) (Outcome, error) {
	h, ok := r.handlers[ev.EventType]
	if !ok {
		log.Printf("webhook: no handler for event type %q (event %s), acknowledging", ev.EventType, ev.ID)
		return OutcomeUnhandled, nil
	}
	return h.Handle(ctx, ev)
}
