package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/cryptoetf/backend/internal/contracts"
	"github.com/wonny/cryptoetf/backend/internal/syncer"
	"github.com/wonny/cryptoetf/backend/pkg/logger"
)

// SnapshotRunner is the part of the syncer this job needs
type SnapshotRunner interface {
	Run(ctx context.Context) (contracts.Snapshot, error)
}

// SnapshotSyncJob refreshes the ETF snapshot on a schedule
// ⭐ SSOT: 정기 동기화 스케줄은 이 Job에서만
type SnapshotSyncJob struct {
	syncer   SnapshotRunner
	schedule string
	logger   *logger.Logger
}

// NewSnapshotSyncJob creates the sync job; schedule is a cron expression with seconds
func NewSnapshotSyncJob(s SnapshotRunner, schedule string, log *logger.Logger) *SnapshotSyncJob {
	return &SnapshotSyncJob{
		syncer:   s,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *SnapshotSyncJob) Name() string {
	return "snapshot_sync"
}

// Schedule returns the cron schedule (hourly by default)
func (j *SnapshotSyncJob) Schedule() string {
	return j.schedule
}

// Run executes one sync. An overlapping run is skipped, not retried.
func (j *SnapshotSyncJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled sync")

	snap, err := j.syncer.Run(ctx)
	if errors.Is(err, syncer.ErrSyncInProgress) {
		j.logger.Info("Sync already running, skipping this tick")
		return nil
	}
	if err != nil {
		return fmt.Errorf("snapshot sync: %w", err)
	}

	j.logger.WithField("count", snap.Count).Info("Scheduled sync complete")
	return nil
}
