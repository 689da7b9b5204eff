package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/premiumgate/internal/logging"
	"github.com/dmitrijs2005/premiumgate/internal/server/metrics"
	"github.com/dmitrijs2005/premiumgate/internal/server/repositories/grants"
)

// GrantJanitor periodically removes access grants older than the retention
// window.
type GrantJanitor struct {
	ledger    grants.Repository
	retention time.Duration
	interval  time.Duration
	logger    logging.Logger
	now       func() time.Time
}

func NewGrantJanitor(ledger grants.Repository, retention, interval time.Duration, logger logging.Logger) *GrantJanitor {
	return &GrantJanitor{
		ledger:    ledger,
		retention: retention,
		interval:  interval,
		logger:    logger.With("module", "janitor"),
		now:       time.Now,
	}
}

// PurgeOnce removes expired grants and returns how many were removed.
func (j *GrantJanitor) PurgeOnce(ctx context.Context) (int64, error) {
	n, err := j.ledger.PurgeExpired(ctx, j.now().Add(-j.retention))
	if err != nil {
		return 0, err
	}
	metrics.GrantsPurged.Add(float64(n))
	return n, nil
}

// Run purges on every tick until ctx is canceled.
func (j *GrantJanitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := j.PurgeOnce(ctx)
			if err != nil {
				j.logger.Error(ctx, "grant purge failed", "error", err.Error())
				continue
			}
			if n > 0 {
				j.logger.Info(ctx, "expired grants purged", "count", n)
			}
		}
	}
}
