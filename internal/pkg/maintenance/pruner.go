package maintenance

import (
	"context"
	"log"
	"time"

	"github.com/paysync-io/paysync/internal/pkg/reconcile"
)

// Pruner periodically deletes processed webhook events older than the
// retention horizon. Dedup rows must outlive the sender's redelivery window
// (about an hour of retries plus manual resends), so the retention is
// measured in days, not hours.
type Pruner struct {
	svc       *reconcile.Service
	retention time.Duration
	interval  time.Duration

	stop chan struct{}
	done chan struct{}
}

// NewPruner creates a pruner; interval defaults to 12h when zero.
func NewPruner(svc *reconcile.Service, retention, interval time.Duration) *Pruner {
	if interval <= 0 {
		interval = 12 * time.Hour
	}
	return &Pruner{
		svc:       svc,
		retention: retention,
		interval:  interval,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the prune loop. One pass runs immediately so restarts don't
// postpone overdue cleanup by a full interval.
func (p *Pruner) Start() {
	go func() {
		defer close(p.done)
		p.runOnce()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.runOnce()
			case <-p.stop:
				return
			}
		}
	}()
}

// Stop terminates the loop and waits for the in-flight pass to finish.
func (p *Pruner) Stop() {
	close(p.stop)
	<-p.done
}

func (p *Pruner) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-p.retention)
	pruned, err := p.svc.PruneEvents(ctx, cutoff)
	if err != nil {
		log.Printf("maintenance: webhook event prune failed: %v", err)
		return
	}
	if pruned > 0 {
		log.Printf("maintenance: pruned %d processed webhook events older than %s", pruned, cutoff.Format(time.RFC3339))
	}
}
