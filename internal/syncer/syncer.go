// Package syncer runs the snapshot sync: universe discovery, per-ticker
// reconciliation under a request throttle, and a wholesale snapshot replace.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/cryptoetf/backend/internal/contracts"
	"github.com/wonny/cryptoetf/backend/internal/reconcile"
	"github.com/wonny/cryptoetf/backend/pkg/logger"
	"github.com/wonny/cryptoetf/backend/pkg/metrics"
)

// ErrSyncInProgress is returned when a run is already active
var ErrSyncInProgress = errors.New("sync already in progress")

// State is the sync lifecycle
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Status is the observable state of the last run
type Status struct {
	State        State         `json:"state"`
	StartedAt    *time.Time    `json:"startedAt,omitempty"`
	LastSync     *time.Time    `json:"lastSync,omitempty"`
	LastCount    int           `json:"lastCount"`
	LastDuration time.Duration `json:"lastDuration"`
	LastError    string        `json:"lastError,omitempty"`
}

// Locker is the cross-process run guard; redis.Lock satisfies it
type Locker interface {
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Options tune one Syncer
type Options struct {
	// RequestDelay is the pause between two tickers, never after the last
	RequestDelay time.Duration

	// MaxETFs caps the universe
	MaxETFs int
}

// Syncer owns the sync state machine
// ⭐ SSOT: 스냅샷 교체는 이 Syncer에서만
type Syncer struct {
	engine  *reconcile.Engine
	market  contracts.MarketData
	feed    contracts.HoldingsFeed
	cusips  contracts.CUSIPDirectory
	store   contracts.SnapshotStore
	lock    Locker
	metrics *metrics.Recorder
	logger  *logger.Logger
	opts    Options
	now     func() time.Time

	mu     sync.Mutex
	status Status
	prev   Status // restored when another process holds the lock
}

// New creates a syncer
func New(
	engine *reconcile.Engine,
	market contracts.MarketData,
	feed contracts.HoldingsFeed,
	cusips contracts.CUSIPDirectory,
	store contracts.SnapshotStore,
	opts Options,
	log *logger.Logger,
) *Syncer {
	return &Syncer{
		engine: engine,
		market: market,
		feed:   feed,
		cusips: cusips,
		store:  store,
		logger: log.Module("syncer"),
		opts:   opts,
		now:    time.Now,
		status: Status{State: StateIdle},
	}
}

// WithLock guards runs across processes as well
func (s *Syncer) WithLock(lock Locker) *Syncer {
	s.lock = lock
	return s
}

// WithMetrics records run outcomes on rec
func (s *Syncer) WithMetrics(rec *metrics.Recorder) *Syncer {
	s.metrics = rec
	return s
}

// WithClock replaces time.Now for syncedAt stamps
func (s *Syncer) WithClock(now func() time.Time) *Syncer {
	s.now = now
	return s
}

// Status returns a copy of the current status
func (s *Syncer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Running reports whether a run is active in this process
func (s *Syncer) Running() bool {
	return s.Status().State == StateRunning
}

// Run executes one sync and returns the written snapshot.
// A second call while running returns ErrSyncInProgress.
func (s *Syncer) Run(ctx context.Context) (contracts.Snapshot, error) {
	if !s.begin() {
		s.metrics.RecordSync("skipped", 0, 0)
		return contracts.Snapshot{}, ErrSyncInProgress
	}
	start := time.Now()

	if s.lock != nil {
		ok, err := s.lock.TryAcquire(ctx)
		if err != nil {
			// Redis trouble must not block the hourly refresh
			s.logger.WithError(err).Warn("Sync lock unavailable, continuing without it")
		} else if !ok {
			s.abort()
			s.metrics.RecordSync("skipped", 0, 0)
			return contracts.Snapshot{}, ErrSyncInProgress
		} else {
			defer func() {
				if err := s.lock.Release(context.Background()); err != nil {
					s.logger.WithError(err).Warn("Failed to release sync lock")
				}
			}()
		}
	}

	snap, err := s.run(ctx)
	s.finish(snap, err, time.Since(start))
	return snap, err
}

func (s *Syncer) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.State == StateRunning {
		return false
	}
	s.prev = s.status
	started := s.now()
	s.status.State = StateRunning
	s.status.StartedAt = &started
	return true
}

func (s *Syncer) abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = s.prev
}

func (s *Syncer) finish(snap contracts.Snapshot, err error, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.LastDuration = d
	if err != nil {
		s.status.State = StateFailed
		s.status.LastError = err.Error()
		s.metrics.RecordSync("failed", d, 0)
		s.logger.WithError(err).WithField("duration", d).Error("Sync failed")
		return
	}

	s.status.State = StateCompleted
	s.status.LastError = ""
	s.status.LastSync = snap.SyncedAt
	s.status.LastCount = snap.Count
	s.metrics.RecordSync("completed", d, snap.Count)
	s.logger.WithFields(map[string]interface{}{
		"count":    snap.Count,
		"duration": d,
	}).Info("Sync completed")
}

func (s *Syncer) run(ctx context.Context) (contracts.Snapshot, error) {
	listings := s.market.CryptoETFList(ctx)
	if s.opts.MaxETFs > 0 && len(listings) > s.opts.MaxETFs {
		listings = listings[:s.opts.MaxETFs]
	}

	// run-wide sources, fetched once
	in := reconcile.Inputs{
		BTCFeed:        s.feed.BTCHoldings(ctx),
		ExternalCUSIPs: s.cusips.CUSIPs(ctx),
	}

	s.logger.WithFields(map[string]interface{}{
		"tickers":   len(listings),
		"btc_feed":  len(in.BTCFeed),
		"ext_cusip": len(in.ExternalCUSIPs),
	}).Info("Sync started")

	throttle := newThrottle(s.opts.RequestDelay)
	records := make([]contracts.Record, 0, len(listings))
	for _, listing := range listings {
		if err := throttle.Wait(ctx); err != nil {
			return contracts.Snapshot{}, fmt.Errorf("sync interrupted after %d tickers: %w", len(records), err)
		}
		records = append(records, s.engine.Reconcile(ctx, listing, in))
	}

	sortByWeight(records)

	snap := contracts.NewSnapshot(records, s.now())
	if err := s.store.Replace(ctx, snap); err != nil {
		return contracts.Snapshot{}, fmt.Errorf("write snapshot: %w", err)
	}
	return snap, nil
}

// newThrottle admits one ticker immediately, then one per delay
func newThrottle(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// sortByWeight orders descending by cryptoWeight; ties keep encounter order
func sortByWeight(records []contracts.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CryptoWeight > records[j].CryptoWeight
	})
}
