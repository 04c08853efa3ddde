package webhook

import (
	"context"
	"testing"
)

type stubHandler struct {
	tag     string
	called  int
	outcome Outcome
}

func (h *stubHandler) EventType() string { return h.tag }

func (h *stubHandler) Handle(ctx context.Context, ev *Event) (Outcome, error) {
	h.called++
	return h.outcome, nil
}

func TestRouterDispatch(t *testing.T) {
	h := &stubHandler{tag: EventSubscriptionPaid, outcome: OutcomeApplied}
	r := NewRouter(h)

	if !r.Handles(EventSubscriptionPaid) {
		t.Fatalf("expected handler registration for %q", EventSubscriptionPaid)
	}

	outcome, err := r.Dispatch(context.Background(), &Event{ID: "evt_1", EventType: EventSubscriptionPaid})
	if err != nil {
		t.Fatalf("unexpected dispatch error: %v", err)
	}
	if outcome != OutcomeApplied || h.called != 1 {
		t.Fatalf("expected handler to run once with applied outcome, got %q calls=%d", outcome, h.called)
	}
}

func TestRouterDispatch_UnknownType(t *testing.T) {
	r := NewRouter(&stubHandler{tag: EventSubscriptionPaid})

	outcome, err := r.Dispatch(context.Background(), &Event{ID: "evt_2", EventType: "foo.bar"})
	if err != nil {
		t.Fatalf("unknown event types must not fail delivery, got %v", err)
	}
	if outcome != OutcomeUnhandled {
		t.Fatalf("expected unhandled outcome, got %q", outcome)
	}
}
