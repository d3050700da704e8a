package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wonhee/argus/backend/internal/contracts"
	"github.com/wonhee/argus/backend/pkg/logger"
)

type recordingRunStore struct {
	contracts.RunStore

	cutoffs []time.Time
	deleted int64
	err     error
}

func (s *recordingRunStore) DeleteRunsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.cutoffs = append(s.cutoffs, cutoff)
	return s.deleted, s.err
}

func TestRetentionJob_PurgesBeforeCutoff(t *testing.T) {
	store := &recordingRunStore{deleted: 7}
	job := NewRetentionJob(store, 30, "0 0 5 * * *", logger.NewNop())

	if job.Name() != "run_retention" {
		t.Errorf("Name() = %q", job.Name())
	}
	if job.Schedule() != "0 0 5 * * *" {
		t.Errorf("Schedule() = %q", job.Schedule())
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(store.cutoffs) != 1 {
		t.Fatalf("DeleteRunsBefore called %d times, want 1", len(store.cutoffs))
	}
	want := time.Now().AddDate(0, 0, -30)
	if diff := store.cutoffs[0].Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Errorf("cutoff = %v, want about %v", store.cutoffs[0], want)
	}
}

func TestRetentionJob_ZeroDaysKeepsEverything(t *testing.T) {
	store := &recordingRunStore{}
	job := NewRetentionJob(store, 0, "0 0 5 * * *", logger.NewNop())

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(store.cutoffs) != 0 {
		t.Errorf("expected no deletions with retention disabled, got %d", len(store.cutoffs))
	}
}

func TestRetentionJob_StoreErrorPropagates(t *testing.T) {
	store := &recordingRunStore{err: errors.New("connection refused")}
	job := NewRetentionJob(store, 7, "0 0 5 * * *", logger.NewNop())

	if err := job.Run(context.Background()); err == nil {
		t.Error("expected store failure to surface")
	}
}
