package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/wonny/cryptoetf/backend/internal/contracts"
	"github.com/wonny/cryptoetf/backend/internal/detailcache"
	"github.com/wonny/cryptoetf/backend/internal/entitlement"
	"github.com/wonny/cryptoetf/backend/internal/external/btcetfdata"
	"github.com/wonny/cryptoetf/backend/internal/external/cusipdata"
	"github.com/wonny/cryptoetf/backend/internal/external/fmp"
	"github.com/wonny/cryptoetf/backend/internal/knowledge"
	"github.com/wonny/cryptoetf/backend/internal/reconcile"
	"github.com/wonny/cryptoetf/backend/internal/scheduler"
	"github.com/wonny/cryptoetf/backend/internal/scheduler/jobs"
	"github.com/wonny/cryptoetf/backend/internal/snapshot"
	"github.com/wonny/cryptoetf/backend/internal/syncer"
	"github.com/wonny/cryptoetf/backend/pkg/config"
	"github.com/wonny/cryptoetf/backend/pkg/database"
	"github.com/wonny/cryptoetf/backend/pkg/httputil"
	"github.com/wonny/cryptoetf/backend/pkg/logger"
	"github.com/wonny/cryptoetf/backend/pkg/metrics"
	"github.com/wonny/cryptoetf/backend/pkg/redis"
)

// keyPrefix namespaces every Redis key written by this service
const keyPrefix = "cryptoetf"

// syncLockTTL outlives the longest expected run (50 tickers × ~1s)
const syncLockTTL = 15 * time.Minute

// app holds every wired component. Commands build one with newApp and Close it.
// ⭐ SSOT: 의존성 조립은 이 함수에서만
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Recorder

	redis *redis.Client
	db    *database.DB // nil unless SNAPSHOT_BACKEND=postgres

	kb      *knowledge.Base
	market  *fmp.Client
	feed    *btcetfdata.Client
	cusips  *cusipdata.Client
	engine  *reconcile.Engine
	store   contracts.SnapshotStore
	cache   contracts.DetailCache
	memory  *detailcache.Memory // set when the cache is in-process
	syncer  *syncer.Syncer
	billing contracts.Entitlements
}

func newApp(ctx context.Context) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	a := &app{cfg: cfg, log: log, kb: knowledge.Default()}
	if cfg.MetricsEnabled {
		a.metrics = metrics.New()
	}

	// 3. Optional Redis (shared cache, quota and sync lock)
	a.redis, err = redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	// 4. HTTP clients
	marketHTTP := httputil.NewWithTimeout(log, cfg.FMP.Timeout).WithQuota(cfg.FMP.RatePerMinute)
	if a.redis.Enabled() {
		marketHTTP.WithRateLimiter(redis.NewRateLimiter(a.redis, keyPrefix), redis.FMPRateLimit(cfg.FMP.RatePerMinute))
	}
	httpClient := httputil.New(log)

	// 5. Source clients
	a.market = fmp.NewClient(marketHTTP, cfg.FMP, a.kb, log).WithMetrics(a.metrics)
	a.feed = btcetfdata.NewClient(httpClient, cfg.BTCFeed, log).WithMetrics(a.metrics)
	a.cusips = cusipdata.NewClient(httpClient, cfg.CUSIPDataURL, cfg.BTCFeed.Timeout, log).WithMetrics(a.metrics)

	// 6. Reconciliation engine
	a.engine = reconcile.NewEngine(a.market, a.kb, log)

	// 7. Snapshot store
	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	// 8. Detail cache
	if a.redis.Enabled() {
		a.cache = detailcache.NewRedis(redis.NewCache(a.redis, keyPrefix), cfg.DetailCacheTTL, log).WithMetrics(a.metrics)
	} else {
		a.memory = detailcache.NewMemory(cfg.DetailCacheTTL, log).WithMetrics(a.metrics)
		a.cache = a.memory
	}

	// 9. Sync job
	a.syncer = syncer.New(a.engine, a.market, a.feed, a.cusips, a.store, syncer.Options{
		RequestDelay: cfg.Sync.RequestDelay,
		MaxETFs:      cfg.Sync.MaxETFs,
	}, log).WithMetrics(a.metrics)
	if a.redis.Enabled() {
		a.syncer.WithLock(redis.NewLock(a.redis, keyPrefix, "sync", lockToken(), syncLockTTL))
	}

	// 10. Entitlements
	a.billing = entitlement.New(httpClient, cfg.EntitlementURL, log)

	log.WithFields(map[string]interface{}{
		"snapshot":  cfg.Snapshot.Backend,
		"redis":     a.redis.Enabled(),
		"fmpKeySet": cfg.HasFMPKey(),
		"knowledge": a.kb.Len(),
	}).Info("Components initialized")

	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.Snapshot.Backend {
	case "postgres":
		db, err := database.New(ctx, a.cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return fmt.Errorf("ensure schema: %w", err)
		}
		a.db = db
		a.store = snapshot.NewPostgresStore(db.Pool, snapshot.DefaultSlot)
	default:
		a.store = snapshot.NewFileStore(a.cfg.Snapshot.Path, a.log)
	}
	return nil
}

// newScheduler registers the snapshot sync and, for the in-process cache, its cleanup
func (a *app) newScheduler() (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log)

	if err := sched.AddJob(jobs.NewSnapshotSyncJob(a.syncer, a.cfg.Sync.Schedule, a.log)); err != nil {
		return nil, err
	}
	if a.memory != nil {
		if err := sched.AddJob(jobs.NewDetailCacheCleanupJob(a.memory, a.log)); err != nil {
			return nil, err
		}
	}
	return sched, nil
}

// Close releases pools and connections
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close redis")
		}
	}
}

// scheduleLabel is the human form of the sync cron shown by /api/health
func scheduleLabel(expr string) string {
	switch expr {
	case "0 0 * * * *", "@hourly":
		return "hourly"
	case "0 0 0 * * *", "@daily":
		return "daily"
	default:
		return expr
	}
}

func lockToken() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s:%d", host, os.Getpid())
}
