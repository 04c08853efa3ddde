package entitlements

import (
	"fmt"
	"strings"
	"time"

	"github.com/paysync-io/paysync/app/models"
)

type Plan string

const (
	PlanFree       Plan = "free"
	PlanPremium    Plan = "premium"
	PlanPremiumMax Plan = "premium_max"
)

// NormalizePlan collapses unknown plan names to free.
func NormalizePlan(plan string) string {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case string(PlanPremium):
		return string(PlanPremium)
	case string(PlanPremiumMax):
		return string(PlanPremiumMax)
	default:
		return string(PlanFree)
	}
}

// PlanRank orders plans so the best entitling subscription wins.
func PlanRank(plan string) int {
	switch NormalizePlan(plan) {
	case string(PlanPremiumMax):
		return 2
	case string(PlanPremium):
		return 1
	default:
		return 0
	}
}

// CacheKey is the Redis key for a customer's cached entitlement decision.
func CacheKey(provider, providerCustomerID string) string {
	return fmt.Sprintf("entitlement:%s:%s", provider, providerCustomerID)
}

// Entitled decides whether a single subscription grants access at the given
// instant.
//
// Cancellation is a scheduling event, not an immediate revocation: canceled,
// scheduled-cancel, paused and expired subscriptions keep access until the
// current period ends (grace period). A refund on a canceled subscription
// overrides the grace period and revokes immediately. Evaluating the
// refund+cancel combination at read time keeps the decision independent of
// the order the two events arrived in.
func Entitled(sub *models.Subscription, now time.Time) bool {
	if sub == nil {
		return false
	}
	if sub.Refunded && (models.IsTerminalStatus(sub.Status) || sub.Status == models.SubStatusScheduledCancel) {
		return false
	}

	switch sub.Status {
	case models.SubStatusActive, models.SubStatusTrialing:
		return true
	case models.SubStatusCanceled, models.SubStatusScheduledCancel, models.SubStatusPaused, models.SubStatusExpired:
		return sub.CurrentPeriodEnd != nil && now.Before(*sub.CurrentPeriodEnd)
	default:
		// unpaid and anything unrecognized
		return false
	}
}

// Decision is the read-API view of a customer's entitlement.
type Decision struct {
	Entitled bool       `json:"entitled"`
	Plan     string     `json:"plan"`
	Until    *time.Time `json:"until,omitempty"`
}

// Decide folds all of a customer's subscriptions into one decision: entitled
// if any subscription entitles, with the best plan among those that do.
func Decide(subs []models.Subscription, now time.Time) Decision {
	d := Decision{Plan: string(PlanFree)}
	for i := range subs {
		sub := &subs[i]
		if !Entitled(sub, now) {
			continue
		}
		d.Entitled = true
		if PlanRank(sub.InternalPlan) >= PlanRank(d.Plan) {
			d.Plan = NormalizePlan(sub.InternalPlan)
		}
		if sub.CurrentPeriodEnd != nil {
			if d.Until == nil || sub.CurrentPeriodEnd.After(*d.Until) {
				d.Until = sub.CurrentPeriodEnd
			}
		}
	}
	if !d.Entitled {
		d.Until = nil
	}
	return d
}
