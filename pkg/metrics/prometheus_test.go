package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSync(t *testing.T) {
	r := New()

	r.RecordSync("completed", 3*time.Second, 18)
	r.RecordSync("failed", time.Second, 0)
	r.RecordSync("completed", 2*time.Second, 20)

	assert.Equal(t, float64(2), testutil.ToFloat64(r.syncRuns.WithLabelValues("completed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.syncRuns.WithLabelValues("failed")))
	// Failed runs leave the records gauge alone
	assert.Equal(t, float64(20), testutil.ToFloat64(r.snapshotCount))
}

func TestRecordFetchAndCache(t *testing.T) {
	r := New()

	r.RecordFetch("fmp", "quote", "ok")
	r.RecordFetch("fmp", "quote", "ok")
	r.RecordFetch("fmp", "holdings", "error")
	r.RecordCacheLookup("basic", true)
	r.RecordCacheLookup("extended", false)

	assert.Equal(t, float64(2), testutil.ToFloat64(r.sourceFetches.WithLabelValues("fmp", "quote", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.sourceFetches.WithLabelValues("fmp", "holdings", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.detailCache.WithLabelValues("basic", "hit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.detailCache.WithLabelValues("extended", "miss")))
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.RecordSync("completed", time.Second, 1)
		r.RecordFetch("fmp", "info", "ok")
		r.RecordCacheLookup("basic", true)
		r.RecordHTTP("/api/etfs", http.MethodGet, 200, time.Millisecond)
		r.SetSnapshotCount(3)
	})
	assert.Nil(t, r.Registry())

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.RecordHTTP("/api/etf/{symbol}", http.MethodGet, 200, 5*time.Millisecond)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `cryptoetf_http_requests_total{method="GET",route="/api/etf/{symbol}",status="200"} 1`))
}
