package reconcile

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/paysync-io/paysync/app/models"
)

// Repository provides the DB operations the reconciler needs. Every call
// carries the request context so storage waits are bounded by the caller's
// deadline.
type Repository interface {
	CreateEventIfNotExists(ctx context.Context, event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkEventProcessed(ctx context.Context, id uint, outcome string, processingError string) error
	PruneEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	UpsertCustomer(ctx context.Context, customer *models.Customer) error
	GetCustomer(ctx context.Context, provider, providerCustomerID string) (*models.Customer, error)

	CreateOrderIfNotExists(ctx context.Context, order *models.Order) (bool, error)

	GetSubscription(ctx context.Context, provider, providerSubscriptionID string) (*models.Subscription, error)
	ListSubscriptionsByCustomer(ctx context.Context, provider, providerCustomerID string) ([]models.Subscription, error)
	CreateSubscriptionIfNotExists(ctx context.Context, sub *models.Subscription) (bool, error)
	// UpdateSubscriptionIfNewer applies updates only when eventAt is strictly
	// newer than the stored last_event_at. Returns false when the row was
	// left untouched (stale or missing).
	UpdateSubscriptionIfNewer(ctx context.Context, provider, providerSubscriptionID string, eventAt time.Time, updates map[string]interface{}) (bool, error)
	MarkSubscriptionRefunded(ctx context.Context, provider, providerSubscriptionID string) (bool, error)

	FindActivePlanMapping(ctx context.Context, provider, providerProductID string) (*models.PlanMapping, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a reconcile repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateEventIfNotExists(ctx context.Context, event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	// Single atomic check-and-insert: the unique (provider, provider_event_id)
	// index decides which concurrent duplicate delivery wins.
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkEventProcessed(ctx context.Context, id uint, outcome string, processingError string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(map[string]interface{}{
		"processed_at":     &now,
		"outcome":          outcome,
		"processing_error": processingError,
	}).Error
}

func (r *gormRepository) PruneEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).
		Where("created_at < ? AND processed_at IS NOT NULL", cutoff).
		Delete(&models.WebhookEvent{})
	return tx.RowsAffected, tx.Error
}

func (r *gormRepository) UpsertCustomer(ctx context.Context, customer *models.Customer) error {
	// Only fields the event actually carries overwrite the row; a bare
	// customer reference (no email, no name) must not clear stored data.
	assign := []string{"updated_at"}
	if customer.Email != "" {
		assign = append(assign, "email")
	}
	if customer.Name != "" {
		assign = append(assign, "name")
	}

	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_customer_id"},
		},
		DoUpdates: clause.AssignmentColumns(assign),
	}).Create(customer).Error; err != nil {
		return err
	}

	return r.db.WithContext(ctx).
		Where("provider = ? AND provider_customer_id = ?", customer.Provider, customer.ProviderCustomerID).
		First(customer).Error
}

func (r *gormRepository) GetCustomer(ctx context.Context, provider, providerCustomerID string) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_customer_id = ?", provider, providerCustomerID).
		First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *gormRepository) CreateOrderIfNotExists(ctx context.Context, order *models.Order) (bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_order_id"},
		},
		DoNothing: true,
	}).Create(order)
	return tx.RowsAffected > 0, tx.Error
}

func (r *gormRepository) GetSubscription(ctx context.Context, provider, providerSubscriptionID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_subscription_id = ?", provider, providerSubscriptionID).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) ListSubscriptionsByCustomer(ctx context.Context, provider, providerCustomerID string) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_customer_id = ?", provider, providerCustomerID).
		Find(&subs).Error
	return subs, err
}

func (r *gormRepository) CreateSubscriptionIfNotExists(ctx context.Context, sub *models.Subscription) (bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_subscription_id"},
		},
		DoNothing: true,
	}).Create(sub)
	return tx.RowsAffected > 0, tx.Error
}

func (r *gormRepository) UpdateSubscriptionIfNewer(ctx context.Context, provider, providerSubscriptionID string, eventAt time.Time, updates map[string]interface{}) (bool, error) {
	// Conditional update keyed on last_event_at serializes concurrent
	// out-of-order arrivals for the same subscription without a lock.
	tx := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("provider = ? AND provider_subscription_id = ? AND last_event_at < ?",
			provider, providerSubscriptionID, eventAt).
		Updates(updates)
	return tx.RowsAffected > 0, tx.Error
}

func (r *gormRepository) MarkSubscriptionRefunded(ctx context.Context, provider, providerSubscriptionID string) (bool, error) {
	// Set-once flag; deliberately not gated on last_event_at so a refund is
	// never lost to event reordering.
	tx := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("provider = ? AND provider_subscription_id = ? AND refunded = ?",
			provider, providerSubscriptionID, false).
		Update("refunded", true)
	return tx.RowsAffected > 0, tx.Error
}

func (r *gormRepository) FindActivePlanMapping(ctx context.Context, provider, providerProductID string) (*models.PlanMapping, error) {
	var m models.PlanMapping
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_product_id = ? AND is_active = ?", provider, providerProductID, true).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}
