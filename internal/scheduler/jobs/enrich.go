package jobs

import (
	"context"
	"fmt"

	"github.com/wonhee/argus/backend/internal/catalog"
	"github.com/wonhee/argus/backend/pkg/logger"
)

// profileBatchSize bounds one enrichment pass so a large backlog spreads
// over several scheduled runs instead of hammering the vendors.
const profileBatchSize = 50

// ProfileEnrichJob fills missing stock profiles from the market vendors.
type ProfileEnrichJob struct {
	enricher *catalog.Enricher
	schedule string
	logger   *logger.Logger
}

// NewProfileEnrichJob creates an enrichment job on the given schedule.
func NewProfileEnrichJob(enricher *catalog.Enricher, schedule string, log *logger.Logger) *ProfileEnrichJob {
	return &ProfileEnrichJob{
		enricher: enricher,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name.
func (j *ProfileEnrichJob) Name() string {
	return "profile_enrich"
}

// Schedule returns the configured cron expression.
func (j *ProfileEnrichJob) Schedule() string {
	return j.schedule
}

// Run enriches one batch of pending profiles.
func (j *ProfileEnrichJob) Run(ctx context.Context) error {
	updated, err := j.enricher.EnrichPending(ctx, profileBatchSize)
	if err != nil {
		return fmt.Errorf("profile enrichment: %w", err)
	}

	j.logger.WithField("updated", updated).Info("Scheduled profile enrichment completed")
	return nil
}
