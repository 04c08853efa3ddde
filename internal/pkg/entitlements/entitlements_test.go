package entitlements

import (
	"testing"
	"time"

	"github.com/paysync-io/paysync/app/models"
)

func ptr(t time.Time) *time.Time { return &t }

func TestEntitled(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	future := ptr(now.Add(10 * 24 * time.Hour))
	past := ptr(now.Add(-24 * time.Hour))

	tests := []struct {
		name string
		sub  models.Subscription
		want bool
	}{
		{name: "active", sub: models.Subscription{Status: models.SubStatusActive}, want: true},
		{name: "trialing", sub: models.Subscription{Status: models.SubStatusTrialing}, want: true},
		{name: "unpaid", sub: models.Subscription{Status: models.SubStatusUnpaid, CurrentPeriodEnd: future}, want: false},
		{name: "canceled within period", sub: models.Subscription{Status: models.SubStatusCanceled, CurrentPeriodEnd: future}, want: true},
		{name: "canceled past period", sub: models.Subscription{Status: models.SubStatusCanceled, CurrentPeriodEnd: past}, want: false},
		{name: "canceled no period end", sub: models.Subscription{Status: models.SubStatusCanceled}, want: false},
		{name: "scheduled cancel within period", sub: models.Subscription{Status: models.SubStatusScheduledCancel, CurrentPeriodEnd: future}, want: true},
		{name: "paused within period", sub: models.Subscription{Status: models.SubStatusPaused, CurrentPeriodEnd: future}, want: true},
		{name: "expired within period", sub: models.Subscription{Status: models.SubStatusExpired, CurrentPeriodEnd: future}, want: true},
		{name: "refunded canceled within period", sub: models.Subscription{Status: models.SubStatusCanceled, CurrentPeriodEnd: future, Refunded: true}, want: false},
		{name: "refunded scheduled cancel", sub: models.Subscription{Status: models.SubStatusScheduledCancel, CurrentPeriodEnd: future, Refunded: true}, want: false},
		{name: "refunded but active", sub: models.Subscription{Status: models.SubStatusActive, Refunded: true}, want: true},
	}

	for _, tt := range tests {
		if got := Entitled(&tt.sub, now); got != tt.want {
			t.Fatalf("%s: Entitled = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestDecide(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	future := ptr(now.Add(30 * 24 * time.Hour))

	d := Decide([]models.Subscription{
		{Status: models.SubStatusCanceled},
		{Status: models.SubStatusActive, InternalPlan: "premium", CurrentPeriodEnd: future},
		{Status: models.SubStatusActive, InternalPlan: "free"},
	}, now)

	if !d.Entitled {
		t.Fatalf("expected entitled decision")
	}
	if d.Plan != string(PlanPremium) {
		t.Fatalf("expected best entitling plan premium, got %q", d.Plan)
	}
	if d.Until == nil || !d.Until.Equal(*future) {
		t.Fatalf("expected until=%v, got %v", future, d.Until)
	}
}

func TestDecide_NoEntitlement(t *testing.T) {
	d := Decide([]models.Subscription{
		{Status: models.SubStatusUnpaid},
	}, time.Now())
	if d.Entitled || d.Plan != string(PlanFree) || d.Until != nil {
		t.Fatalf("expected free, unentitled decision, got %+v", d)
	}
}

func TestNormalizePlanAndRank(t *testing.T) {
	if NormalizePlan("PREMIUM_MAX") != "premium_max" || NormalizePlan("nope") != "free" {
		t.Fatalf("unexpected plan normalization")
	}
	if !(PlanRank("free") < PlanRank("premium") && PlanRank("premium") < PlanRank("premium_max")) {
		t.Fatalf("unexpected plan ranking")
	}
}

func TestCacheKey(t *testing.T) {
	if got := CacheKey("payments", "cus_1"); got != "entitlement:payments:cus_1" {
		t.Fatalf("unexpected cache key %q", got)
	}
}
