// Package detailcache bounds on-demand detail fetches with a short TTL cache.
// Basic and extended views are independent keyspaces.
package detailcache

import (
	"context"
	"sync"
	"time"

	"github.com/wonny/cryptoetf/backend/internal/contracts"
	"github.com/wonny/cryptoetf/backend/pkg/logger"
	"github.com/wonny/cryptoetf/backend/pkg/metrics"
)

// View names the keyspace of a detail entry
func View(extended bool) string {
	if extended {
		return "extended"
	}
	return "basic"
}

type entry struct {
	data   contracts.Detail
	expiry time.Time
}

type key struct {
	ticker   string
	extended bool
}

var _ contracts.DetailCache = (*Memory)(nil)

// Memory is the in-process cache
// ⭐ SSOT: 상세 응답 캐싱은 이 구조체에서만 (단일 프로세스)
type Memory struct {
	mu      sync.RWMutex
	entries map[key]entry
	ttl     time.Duration
	now     func() time.Time
	logger  *logger.Logger
	metrics *metrics.Recorder
}

// NewMemory creates an in-memory cache with ttl for both keyspaces
func NewMemory(ttl time.Duration, log *logger.Logger) *Memory {
	return &Memory{
		entries: make(map[key]entry),
		ttl:     ttl,
		now:     time.Now,
		logger:  log.Module("detailcache"),
	}
}

// WithMetrics records hits and misses on rec
func (c *Memory) WithMetrics(rec *metrics.Recorder) *Memory {
	c.metrics = rec
	return c
}

// WithClock replaces time.Now
func (c *Memory) WithClock(now func() time.Time) *Memory {
	c.now = now
	return c
}

// Get returns the entry while now <= expiry. Expired entries stay until overwritten or cleaned.
func (c *Memory) Get(ctx context.Context, ticker string, extended bool) (contracts.Detail, bool) {
	c.mu.RLock()
	e, ok := c.entries[key{contracts.NormalizeTicker(ticker), extended}]
	c.mu.RUnlock()

	hit := ok && !c.now().After(e.expiry)
	c.metrics.RecordCacheLookup(View(extended), hit)
	if !hit {
		return contracts.Detail{}, false
	}
	return e.data, true
}

// Set stores d until now + ttl
func (c *Memory) Set(ctx context.Context, ticker string, extended bool, d contracts.Detail) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key{contracts.NormalizeTicker(ticker), extended}] = entry{
		data:   d,
		expiry: c.now().Add(c.ttl),
	}
}

// Len returns the number of stored entries, expired ones included
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// CleanExpired drops expired entries and returns how many were removed
func (c *Memory) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	count := 0
	for k, e := range c.entries {
		if now.After(e.expiry) {
			delete(c.entries, k)
			count++
		}
	}

	if count > 0 {
		c.logger.WithField("count", count).Debug("Cleaned expired detail entries")
	}
	return count
}
