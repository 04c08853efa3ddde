package models

import "time"

// Order records a completed checkout. One row per provider order id; repeated
// deliveries of the same checkout event collapse on the unique index.
type Order struct {
	ID                     uint      `gorm:"primaryKey" json:"id"`
	Provider               string    `gorm:"type:varchar(20);not null;index:ux_orders_provider_order,unique,priority:1" json:"provider"`
	ProviderOrderID        string    `gorm:"type:varchar(191);not null;index:ux_orders_provider_order,unique,priority:2" json:"provider_order_id"`
	ProviderCustomerID     string    `gorm:"type:varchar(191);not null;index" json:"provider_customer_id"`
	ProviderSubscriptionID string    `gorm:"type:varchar(191);not null;default:''" json:"provider_subscription_id"`
	ProviderProductID      string    `gorm:"type:varchar(191);not null;default:''" json:"provider_product_id"`
	AmountCents            int64     `gorm:"not null;default:0" json:"amount_cents"`
	Currency               string    `gorm:"type:varchar(8);not null;default:''" json:"currency"`
	CreatedAt              time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
