package jobs

import (
	"context"
	"fmt"

	"github.com/wonhee/argus/backend/internal/marketdata"
	"github.com/wonhee/argus/backend/pkg/logger"
)

// PriceSyncJob pulls daily candles for every active catalog symbol into
// the local store after the markets close.
// ⭐ SSOT: 가격 동기화 스케줄은 이 Job에서만
type PriceSyncJob struct {
	refresher *marketdata.Refresher
	cfg       marketdata.RefreshConfig
	schedule  string
	logger    *logger.Logger
}

// NewPriceSyncJob creates a price sync job on the given schedule.
func NewPriceSyncJob(refresher *marketdata.Refresher, cfg marketdata.RefreshConfig, schedule string, log *logger.Logger) *PriceSyncJob {
	return &PriceSyncJob{
		refresher: refresher,
		cfg:       cfg,
		schedule:  schedule,
		logger:    log,
	}
}

// Name returns the job name.
func (j *PriceSyncJob) Name() string {
	return "price_sync"
}

// Schedule returns the configured cron expression.
func (j *PriceSyncJob) Schedule() string {
	return j.schedule
}

// Run syncs all active symbols. Individual symbol failures are logged by
// the refresher; the job only fails when nothing could be synced.
func (j *PriceSyncJob) Run(ctx context.Context) error {
	results, err := j.refresher.RefreshAll(ctx, j.cfg)
	if err != nil {
		return fmt.Errorf("price sync: %w", err)
	}

	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
		}
	}
	if len(results) > 0 && failed == len(results) {
		return fmt.Errorf("price sync: all %d symbols failed", failed)
	}

	return nil
}
