package maintenance

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/paysync-io/paysync/app/models"
	"github.com/paysync-io/paysync/internal/pkg/reconcile"
)

// countingRepo records prune calls; every other operation is unused here.
type countingRepo struct {
	pruneCalls atomic.Int64
	lastCutoff atomic.Value
}

func (r *countingRepo) PruneEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.lastCutoff.Store(cutoff)
	r.pruneCalls.Add(1)
	return 3, nil
}

func (r *countingRepo) CreateEventIfNotExists(ctx context.Context, event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	return false, nil, gorm.ErrRecordNotFound
}
func (r *countingRepo) MarkEventProcessed(ctx context.Context, id uint, outcome string, processingError string) error {
	return nil
}
func (r *countingRepo) UpsertCustomer(ctx context.Context, customer *models.Customer) error {
	return nil
}
func (r *countingRepo) GetCustomer(ctx context.Context, provider, providerCustomerID string) (*models.Customer, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *countingRepo) CreateOrderIfNotExists(ctx context.Context, order *models.Order) (bool, error) {
	return false, nil
}
func (r *countingRepo) GetSubscription(ctx context.Context, provider, providerSubscriptionID string) (*models.Subscription, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *countingRepo) ListSubscriptionsByCustomer(ctx context.Context, provider, providerCustomerID string) ([]models.Subscription, error) {
	return nil, nil
}
func (r *countingRepo) CreateSubscriptionIfNotExists(ctx context.Context, sub *models.Subscription) (bool, error) {
	return false, nil
}
func (r *countingRepo) UpdateSubscriptionIfNewer(ctx context.Context, provider, providerSubscriptionID string, eventAt time.Time, updates map[string]interface{}) (bool, error) {
	return false, nil
}
func (r *countingRepo) MarkSubscriptionRefunded(ctx context.Context, provider, providerSubscriptionID string) (bool, error) {
	return false, nil
}
func (r *countingRepo) FindActivePlanMapping(ctx context.Context, provider, providerProductID string) (*models.PlanMapping, error) {
	return nil, gorm.ErrRecordNotFound
}

var _ reconcile.Repository = (*countingRepo)(nil)

func TestPrunerRunsImmediately(t *testing.T) {
	repo := &countingRepo{}
	svc := reconcile.NewService(repo, "payments", nil, nil)

	p := NewPruner(svc, 30*24*time.Hour, time.Hour)
	before := time.Now()
	p.Start()
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for repo.pruneCalls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.GreaterOrEqual(t, repo.pruneCalls.Load(), int64(1), "first pass must not wait for the interval")

	cutoff, ok := repo.lastCutoff.Load().(time.Time)
	require.True(t, ok)
	want := before.Add(-30 * 24 * time.Hour)
	require.WithinDuration(t, want, cutoff, 5*time.Second)
}

func TestPrunerTicks(t *testing.T) {
	repo := &countingRepo{}
	svc := reconcile.NewService(repo, "payments", nil, nil)

	p := NewPruner(svc, 24*time.Hour, 20*time.Millisecond)
	p.Start()

	deadline := time.Now().Add(2 * time.Second)
	for repo.pruneCalls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	p.Stop()
	require.GreaterOrEqual(t, repo.pruneCalls.Load(), int64(3))

	// Stop is final; no further passes run.
	after := repo.pruneCalls.Load()
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, after, repo.pruneCalls.Load())
}

func TestPrunerDefaultInterval(t *testing.T) {
	p := NewPruner(nil, time.Hour, 0)
	require.Equal(t, 12*time.Hour, p.interval)
}
