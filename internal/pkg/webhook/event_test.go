package webhook

import (
	"strings"
	"testing"
	"time"
)

func TestParseEvent(t *testing.T) {
	raw := []byte(`{
		"id": "evt_123",
		"eventType": "subscription.paid",
		"created_at": 1700000000000,
		"object": { "subscription_id": "sub_1", "customer_id": "cus_1" }
	}`)

	ev, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if ev.ID != "evt_123" || ev.EventType != EventSubscriptionPaid {
		t.Fatalf("unexpected envelope: id=%q type=%q", ev.ID, ev.EventType)
	}
	if got := ev.OccurredAt(); !got.Equal(time.UnixMilli(1700000000000).UTC()) {
		t.Fatalf("unexpected occurred-at: %v", got)
	}
	if string(ev.Raw) != string(raw) {
		t.Fatalf("expected Raw to preserve wire bytes")
	}
}

func TestParseEvent_Invalid(t *testing.T) {
	if _, err := ParseEvent([]byte(`{not json`)); err == nil {
		t.Fatalf("expected malformed JSON to fail")
	}
	if _, err := ParseEvent([]byte(`{"id":"evt_1"}`)); err == nil {
		t.Fatalf("expected missing eventType to fail validation")
	}
}

func TestParseEvent_MissingID(t *testing.T) {
	// The id is optional; dedup falls back to a payload hash downstream.
	ev, err := ParseEvent([]byte(`{"eventType":"subscription.paid","created_at":1}`))
	if err != nil {
		t.Fatalf("expected envelope without id to parse, got %v", err)
	}
	if ev.ID != "" {
		t.Fatalf("expected empty id, got %q", ev.ID)
	}
}

func TestFallbackEventID(t *testing.T) {
	a := FallbackEventID([]byte(`{"a":1}`))
	b := FallbackEventID([]byte(`{"a":1}`))
	c := FallbackEventID([]byte(`{"a":2}`))

	if !strings.HasPrefix(a, "hash:") {
		t.Fatalf("expected hash prefix, got %q", a)
	}
	if a != b {
		t.Fatalf("expected identical payloads to share fallback id")
	}
	if a == c {
		t.Fatalf("expected distinct payloads to differ")
	}
}

func TestMillisToTime(t *testing.T) {
	if MillisToTime(0) != nil {
		t.Fatalf("expected zero millis to map to nil")
	}
	got := MillisToTime(1700000000000)
	if got == nil || !got.Equal(time.UnixMilli(1700000000000).UTC()) {
		t.Fatalf("unexpected conversion: %v", got)
	}
}
