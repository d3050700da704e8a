package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonhee/argus/backend/internal/contracts"
	"github.com/wonhee/argus/backend/pkg/logger"
)

// RetentionJob purges runs older than the configured horizon. Zero days
// keeps everything forever.
type RetentionJob struct {
	runs     contracts.RunStore
	days     int
	schedule string
	logger   *logger.Logger
}

// NewRetentionJob creates a retention job on the given schedule.
func NewRetentionJob(runs contracts.RunStore, days int, schedule string, log *logger.Logger) *RetentionJob {
	return &RetentionJob{
		runs:     runs,
		days:     days,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name.
func (j *RetentionJob) Name() string {
	return "run_retention"
}

// Schedule returns the configured cron expression.
func (j *RetentionJob) Schedule() string {
	return j.schedule
}

// Run deletes runs past the retention horizon.
func (j *RetentionJob) Run(ctx context.Context) error {
	if j.days <= 0 {
		return nil
	}

	cutoff := time.Now().AddDate(0, 0, -j.days)
	deleted, err := j.runs.DeleteRunsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete runs before %s: %w", cutoff.Format("2006-01-02"), err)
	}

	if deleted > 0 {
		j.logger.WithFields(map[string]interface{}{
			"deleted": deleted,
			"cutoff":  cutoff.Format("2006-01-02"),
		}).Info("Old runs purged")
	}
	return nil
}
