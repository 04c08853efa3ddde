package models

import "time"

// Payment provider constants used across billing-related models.
const (
	ProviderPayments = "payments"
)

// Customer mirrors a payment-provider customer. Rows are created on first
// reference from any webhook event and updated by later events carrying
// newer customer data.
type Customer struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	Provider           string    `gorm:"type:varchar(20);not null;index:ux_customers_provider_customer,unique,priority:1" json:"provider"`
	ProviderCustomerID string    `gorm:"type:varchar(191);not null;index:ux_customers_provider_customer,unique,priority:2" json:"provider_customer_id"`
	Email              string    `gorm:"type:varchar(200);default:'';index" json:"email"`
	Name               string    `gorm:"type:varchar(200);default:''" json:"name"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
