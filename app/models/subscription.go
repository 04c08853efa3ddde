package models

import "time"

const (
	SubStatusActive          = "active"
	SubStatusTrialing        = "trialing"
	SubStatusPaused          = "paused"
	SubStatusCanceled        = "canceled"
	SubStatusUnpaid          = "unpaid"
	SubStatusScheduledCancel = "scheduled_cancel"
	SubStatusExpired         = "expired"
)

// Subscription mirrors a provider subscription and maps it to an internal
// plan used by entitlements.
//
// LastEventAt is monotonically non-decreasing per row: an event older than
// the recorded timestamp must never regress state. The reconcile repository
// enforces this with a conditional update.
type Subscription struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	Provider               string     `gorm:"type:varchar(20);not null;index:ux_subscriptions_provider_subid,unique,priority:1;index:idx_subscriptions_provider_status,priority:1" json:"provider"`
	ProviderSubscriptionID string     `gorm:"type:varchar(191);not null;index:ux_subscriptions_provider_subid,unique,priority:2" json:"provider_subscription_id"`
	ProviderCustomerID     string     `gorm:"type:varchar(191);not null;index" json:"provider_customer_id"`
	ProviderProductID      string     `gorm:"type:varchar(191);not null;default:''" json:"provider_product_id"`
	InternalPlan           string     `gorm:"type:varchar(50);not null;default:'free';index" json:"internal_plan"`
	Status                 string     `gorm:"type:varchar(32);not null;default:'active';index:idx_subscriptions_provider_status,priority:2" json:"status"`
	CurrentPeriodStart     *time.Time `gorm:"type:timestamp;default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd       *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd      bool       `gorm:"default:false" json:"cancel_at_period_end"`
	Refunded               bool       `gorm:"default:false" json:"refunded"`
	LastEventID            string     `gorm:"type:varchar(191);not null;default:''" json:"last_event_id"`
	LastEventAt            time.Time  `gorm:"type:timestamp(3);not null;index" json:"last_event_at"`
	RawPayloadJSON         string     `gorm:"type:longtext" json:"raw_payload_json"`
	CreatedAt              time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the status admits no further entitlement.
func IsTerminalStatus(status string) bool {
	switch status {
	case SubStatusCanceled, SubStatusExpired:
		return true
	default:
		return false
	}
}
