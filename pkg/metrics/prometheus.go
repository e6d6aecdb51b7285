package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the tracker's Prometheus collectors.
// A nil *Recorder is valid and records nothing.
// ⭐ SSOT: 메트릭 정의는 여기서만
type Recorder struct {
	registry *prometheus.Registry

	syncRuns      *prometheus.CounterVec
	syncDuration  prometheus.Histogram
	snapshotCount prometheus.Gauge
	sourceFetches *prometheus.CounterVec
	detailCache   *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New creates a recorder backed by its own registry
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		syncRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptoetf_sync_runs_total",
				Help: "Snapshot sync runs by outcome",
			},
			[]string{"outcome"},
		),
		syncDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cryptoetf_sync_duration_seconds",
				Help:    "Wall time of completed snapshot syncs",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
		),
		snapshotCount: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "cryptoetf_snapshot_records",
				Help: "Number of records in the last written snapshot",
			},
		),
		sourceFetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptoetf_source_fetches_total",
				Help: "Upstream fetches by source, call and outcome",
			},
			[]string{"source", "call", "outcome"},
		),
		detailCache: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptoetf_detail_cache_lookups_total",
				Help: "Detail cache lookups by view and result",
			},
			[]string{"view", "result"},
		),
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptoetf_http_requests_total",
				Help: "HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cryptoetf_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"route", "method"},
		),
	}
}

// Handler exposes the registry for scraping
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry returns the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RecordSync records a finished sync attempt.
// outcome is one of completed, failed, skipped.
func (r *Recorder) RecordSync(outcome string, d time.Duration, count int) {
	if r == nil {
		return
	}
	r.syncRuns.WithLabelValues(outcome).Inc()
	if outcome == "completed" {
		r.syncDuration.Observe(d.Seconds())
		r.snapshotCount.Set(float64(count))
	}
}

// SetSnapshotCount sets the records gauge (e.g. after loading on startup)
func (r *Recorder) SetSnapshotCount(count int) {
	if r == nil {
		return
	}
	r.snapshotCount.Set(float64(count))
}

// RecordFetch records an upstream call outcome: ok, empty, error
func (r *Recorder) RecordFetch(source, call, outcome string) {
	if r == nil {
		return
	}
	r.sourceFetches.WithLabelValues(source, call, outcome).Inc()
}

// RecordCacheLookup records a detail cache hit or miss
func (r *Recorder) RecordCacheLookup(view string, hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.detailCache.WithLabelValues(view, result).Inc()
}

// RecordHTTP records one served request
func (r *Recorder) RecordHTTP(route, method string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}
