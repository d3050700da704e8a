// Package jobs holds the scheduled background jobs: strategy rescans,
// price sync, profile enrichment, and run retention.
package jobs

import (
	"context"
	"fmt"

	"github.com/wonhee/argus/backend/internal/registry"
	"github.com/wonhee/argus/backend/pkg/logger"
)

// StrategyRescanJob re-scans the strategy definition directory so edits
// and new files show up without a restart.
// ⭐ SSOT: 전략 재스캔 스케줄은 이 Job에서만
type StrategyRescanJob struct {
	registry *registry.Registry
	schedule string
	logger   *logger.Logger
}

// NewStrategyRescanJob creates a rescan job on the given schedule.
func NewStrategyRescanJob(reg *registry.Registry, schedule string, log *logger.Logger) *StrategyRescanJob {
	return &StrategyRescanJob{
		registry: reg,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name.
func (j *StrategyRescanJob) Name() string {
	return "strategy_rescan"
}

// Schedule returns the configured cron expression.
func (j *StrategyRescanJob) Schedule() string {
	return j.schedule
}

// Run executes one registry scan.
func (j *StrategyRescanJob) Run(ctx context.Context) error {
	report, err := j.registry.Scan(ctx)
	if err != nil {
		return fmt.Errorf("registry scan: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"scanned": report.Scanned,
		"added":   len(report.Added),
		"updated": len(report.Updated),
		"failed":  len(report.Failed),
	}).Info("Scheduled strategy rescan completed")

	return nil
}
