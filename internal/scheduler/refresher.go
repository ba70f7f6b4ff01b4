package scheduler

import (
	"context"
	"time"

	"cotizador_backend/platform/logger"
)

const defaultRefreshInterval = 5 * time.Minute

// Refresher keeps the catalog warm without Redis by running a non-forced sync
// on every tick.
type Refresher struct {
	sync     CatalogSyncer
	log      *logger.Logger
	interval time.Duration
}

func NewRefresher(syncer CatalogSyncer, log *logger.Logger, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	return &Refresher{sync: syncer, log: log, interval: interval}
}

// Run blocks until ctx is done. The first sync happens after one interval;
// startup is covered by the catalog bootstrap.
func (r *Refresher) Run(ctx context.Context) {
	if r == nil || r.sync == nil {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	res := r.sync.Sync(ctx, false)
	if !res.OK && ctx.Err() == nil {
		r.log.Warn("periodic catalog refresh failed", "source", string(res.Source), "error", res.Error)
	}
}
