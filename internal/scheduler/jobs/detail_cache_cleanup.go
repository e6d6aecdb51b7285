package jobs

import (
	"context"

	"github.com/wonny/cryptoetf/backend/pkg/logger"
)

// ExpiredCleaner drops expired cache entries
type ExpiredCleaner interface {
	CleanExpired() int
}

// DetailCacheCleanupJob evicts expired detail entries from the in-memory cache
type DetailCacheCleanupJob struct {
	cache  ExpiredCleaner
	logger *logger.Logger
}

// NewDetailCacheCleanupJob creates a new cache cleanup job
func NewDetailCacheCleanupJob(cache ExpiredCleaner, log *logger.Logger) *DetailCacheCleanupJob {
	return &DetailCacheCleanupJob{
		cache:  cache,
		logger: log,
	}
}

// Name returns the job name
func (j *DetailCacheCleanupJob) Name() string {
	return "detail_cache_cleanup"
}

// Schedule returns the cron schedule (every 5 minutes)
func (j *DetailCacheCleanupJob) Schedule() string {
	return "0 */5 * * * *"
}

// Run executes the cache cleanup
func (j *DetailCacheCleanupJob) Run(ctx context.Context) error {
	count := j.cache.CleanExpired()

	if count > 0 {
		j.logger.WithField("removed", count).Info("Detail cache cleanup completed")
	}

	return nil
}
