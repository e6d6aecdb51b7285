package detailcache

import (
	"context"
	"time"

	"github.com/wonny/cryptoetf/backend/internal/contracts"
	"github.com/wonny/cryptoetf/backend/pkg/logger"
	"github.com/wonny/cryptoetf/backend/pkg/metrics"
	"github.com/wonny/cryptoetf/backend/pkg/redis"
)

var _ contracts.DetailCache = (*Redis)(nil)

// Redis shares the cache across processes; expiry is Redis' own TTL
type Redis struct {
	cache   *redis.Cache
	ttl     time.Duration
	logger  *logger.Logger
	metrics *metrics.Recorder
}

// NewRedis creates a Redis-backed cache
func NewRedis(cache *redis.Cache, ttl time.Duration, log *logger.Logger) *Redis {
	return &Redis{
		cache:  cache,
		ttl:    ttl,
		logger: log.Module("detailcache"),
	}
}

// WithMetrics records hits and misses on rec
func (c *Redis) WithMetrics(rec *metrics.Recorder) *Redis {
	c.metrics = rec
	return c
}

// Get treats any Redis error as a miss
func (c *Redis) Get(ctx context.Context, ticker string, extended bool) (contracts.Detail, bool) {
	var d contracts.Detail
	hit, err := c.cache.Get(ctx, redis.DetailKey(contracts.NormalizeTicker(ticker), extended), &d)
	if err != nil {
		c.logger.WithError(err).WithField("ticker", ticker).Debug("Detail cache read failed")
		hit = false
	}
	c.metrics.RecordCacheLookup(View(extended), hit)
	if !hit {
		return contracts.Detail{}, false
	}
	return d, true
}

// Set writes with ttl; failures are logged only
func (c *Redis) Set(ctx context.Context, ticker string, extended bool, d contracts.Detail) {
	if err := c.cache.Set(ctx, redis.DetailKey(contracts.NormalizeTicker(ticker), extended), d, c.ttl); err != nil {
		c.logger.WithError(err).WithField("ticker", ticker).Warn("Detail cache write failed")
	}
}
