package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/cryptoetf/backend/internal/api/handlers"
	"github.com/wonny/cryptoetf/backend/internal/contracts"
	"github.com/wonny/cryptoetf/backend/internal/detailcache"
	"github.com/wonny/cryptoetf/backend/internal/entitlement"
	"github.com/wonny/cryptoetf/backend/internal/knowledge"
	"github.com/wonny/cryptoetf/backend/internal/reconcile"
	"github.com/wonny/cryptoetf/backend/internal/syncer"
	"github.com/wonny/cryptoetf/backend/pkg/logger"
	"github.com/wonny/cryptoetf/backend/pkg/metrics"
)

type memStore struct {
	mu   sync.Mutex
	snap contracts.Snapshot
	err  error
}

func (s *memStore) Load(ctx context.Context) (contracts.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return contracts.Snapshot{}, s.err
	}
	if s.snap.ETFs == nil {
		return contracts.EmptySnapshot(), nil
	}
	return s.snap, nil
}

func (s *memStore) Replace(ctx context.Context, snap contracts.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	return nil
}

// countingMarket serves a quote for every symbol and counts quote calls
type countingMarket struct {
	mu     sync.Mutex
	quotes int
}

func (m *countingMarket) CryptoETFList(ctx context.Context) []contracts.Listing { return nil }

func (m *countingMarket) Quote(ctx context.Context, symbol string) *contracts.Quote {
	m.mu.Lock()
	m.quotes++
	m.mu.Unlock()
	if symbol == "NODATA" {
		return nil
	}
	return &contracts.Quote{Symbol: symbol, Price: 42}
}

func (m *countingMarket) Holdings(ctx context.Context, symbol string) []contracts.Holding { return nil }
func (m *countingMarket) Info(ctx context.Context, symbol string) *contracts.Info       { return nil }
func (m *countingMarket) CountryWeightings(ctx context.Context, symbol string) []contracts.CountryWeight {
	return nil
}
func (m *countingMarket) SectorWeightings(ctx context.Context, symbol string) []contracts.SectorWeight {
	return nil
}
func (m *countingMarket) News(ctx context.Context, symbol string, limit int) []contracts.NewsItem {
	return nil
}
func (m *countingMarket) HistoricalPrices(ctx context.Context, symbol string, days int) []contracts.PricePoint {
	return nil
}
func (m *countingMarket) CUSIPBySymbol(ctx context.Context, symbol string) contracts.CUSIP {
	return contracts.CUSIP{}
}

type stubSyncer struct {
	err  error
	snap contracts.Snapshot
}

func (s *stubSyncer) Run(ctx context.Context) (contracts.Snapshot, error) {
	return s.snap, s.err
}

type fixture struct {
	router http.Handler
	store  *memStore
	market *countingMarket
	sync   *stubSyncer
}

func newFixture(t *testing.T, syncKey string) *fixture {
	t.Helper()
	log := logger.Nop()
	f := &fixture{
		store:  &memStore{},
		market: &countingMarket{},
		sync:   &stubSyncer{},
	}
	engine := reconcile.NewEngine(f.market, knowledge.Default(), log)
	cache := detailcache.NewMemory(10*time.Minute, log)

	f.router = NewRouter(Handlers{
		ETF:          handlers.NewETFHandler(f.store, engine, cache, log),
		Sync:         handlers.NewSyncHandler(f.sync, syncKey, log),
		Health:       handlers.NewHealthHandler(f.store, true, "hourly", log),
		Subscription: handlers.NewSubscriptionHandler(entitlement.Disabled{}),
	}, metrics.New(), log)
	return f
}

func (f *fixture) do(t *testing.T, method, target string, header http.Header) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)

	var body map[string]interface{}
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	}
	return rr, body
}

func TestListETFsEmpty(t *testing.T) {
	f := newFixture(t, "")

	rr, _ := f.do(t, "GET", "/api/etfs", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"etfs":[],"syncedAt":null,"count":0}`, rr.Body.String())
}

func TestListETFsUnreadableStore(t *testing.T) {
	f := newFixture(t, "")
	f.store.err = errors.New("corrupt")

	rr, body := f.do(t, "GET", "/api/etfs", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0.0, body["count"])
}

func TestListETFs(t *testing.T) {
	f := newFixture(t, "")
	f.store.snap = contracts.NewSnapshot([]contracts.Record{
		{Ticker: "IBIT", Name: "iShares Bitcoin Trust", CryptoWeight: 99.5, CUSIP: contracts.ParseCUSIP("46438F101")},
		{Ticker: "QQQQ", Name: "Plain"},
	}, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))

	rr, body := f.do(t, "GET", "/api/etfs", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 2.0, body["count"])
	assert.Equal(t, "2026-02-01T00:00:00Z", body["syncedAt"])
	etfs := body["etfs"].([]interface{})
	assert.Equal(t, "—", etfs[1].(map[string]interface{})["cusip"])
}

func TestGetETFUsesSnapshotRow(t *testing.T) {
	f := newFixture(t, "")
	f.store.snap = contracts.NewSnapshot([]contracts.Record{
		{Ticker: "ZZBT", CryptoWeight: 99.5, CryptoExposure: "BTC", CUSIP: contracts.ParseCUSIP("999999999")},
	}, time.Now())

	rr, body := f.do(t, "GET", "/api/etf/zzbt", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ZZBT", body["symbol"])
	assert.Equal(t, 99.5, body["cryptoWeight"])
	assert.Equal(t, "999999999", body["cusip"])
	assert.NotContains(t, body, "countryWeightings")
}

func TestGetETFExtended(t *testing.T) {
	f := newFixture(t, "")

	rr, body := f.do(t, "GET", "/api/etf/IBIT?extended=1", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	for _, key := range []string{"info", "countryWeightings", "sectorWeightings", "chart", "news"} {
		assert.Contains(t, body, key)
	}
	assert.Equal(t, []interface{}{}, body["chart"])
}

func TestGetETFCachesPerKeyspace(t *testing.T) {
	f := newFixture(t, "")

	f.do(t, "GET", "/api/etf/IBIT", nil)
	f.do(t, "GET", "/api/etf/IBIT", nil)
	assert.Equal(t, 1, f.market.quotes)

	f.do(t, "GET", "/api/etf/IBIT?extended=1", nil)
	assert.Equal(t, 2, f.market.quotes)
}

func TestGetETFNoDataIsNotError(t *testing.T) {
	f := newFixture(t, "")

	rr, body := f.do(t, "GET", "/api/etf/NODATA", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, body["error"])
	assert.Nil(t, body["quote"])
	assert.Equal(t, "—", body["cusip"])

	// error answers are not cached
	f.do(t, "GET", "/api/etf/NODATA", nil)
	assert.Equal(t, 2, f.market.quotes)
}

func TestGetETFInvalidSymbol(t *testing.T) {
	f := newFixture(t, "")

	rr, body := f.do(t, "GET", "/api/etf/bad$sym", nil)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid symbol", body["error"])
	assert.Equal(t, 0, f.market.quotes)
}

func TestTriggerSync(t *testing.T) {
	f := newFixture(t, "secret")
	f.sync.snap = contracts.NewSnapshot([]contracts.Record{{Ticker: "IBIT"}}, time.Now())

	tests := []struct {
		name   string
		header http.Header
		want   int
	}{
		{"missing token", nil, http.StatusUnauthorized},
		{"wrong token", http.Header{"Authorization": {"Bearer nope"}}, http.StatusUnauthorized},
		{"valid token", http.Header{"Authorization": {"Bearer secret"}}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, body := f.do(t, "POST", "/api/sync", tt.header)
			assert.Equal(t, tt.want, rr.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Equal(t, "Unauthorized", body["error"])
			} else {
				assert.Equal(t, 1.0, body["count"])
			}
		})
	}
}

func TestTriggerSyncOpenWithoutKey(t *testing.T) {
	f := newFixture(t, "")
	f.sync.snap = contracts.EmptySnapshot()

	rr, _ := f.do(t, "POST", "/api/sync", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestTriggerSyncConflictAndFailure(t *testing.T) {
	f := newFixture(t, "")

	f.sync.err = syncer.ErrSyncInProgress
	rr, _ := f.do(t, "POST", "/api/sync", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	f.sync.err = errors.New("write snapshot: disk full")
	rr, body := f.do(t, "POST", "/api/sync", nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, body["error"], "disk full")
}

func TestHealth(t *testing.T) {
	f := newFixture(t, "")
	synced := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	f.store.snap = contracts.NewSnapshot([]contracts.Record{{Ticker: "IBIT"}}, synced)

	rr, body := f.do(t, "GET", "/api/health", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, 1.0, body["etfCount"])
	assert.Equal(t, "2026-02-01T10:00:00Z", body["lastSync"])
	assert.Equal(t, "hourly", body["syncSchedule"])
	assert.Equal(t, true, body["fmpKeySet"])
	endpoints := body["endpoints"].(map[string]interface{})
	assert.Equal(t, "/api/etfs", endpoints["etfs"])

	rr, body = f.do(t, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestSubscriptionDisabled(t *testing.T) {
	f := newFixture(t, "")

	rr, body := f.do(t, "GET", "/api/subscription", http.Header{"Authorization": {"Bearer x"}})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, false, body["isPro"])
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, "")
	f.do(t, "GET", "/api/etfs", nil)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `cryptoetf_http_requests_total{method="GET",route="/api/etfs",status="200"} 1`)
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t, "")

	tests := []struct {
		method string
		target string
	}{
		{"DELETE", "/api/etfs"},
		{"POST", "/api/etf/IBIT"},
		{"GET", "/api/sync"},
		{"PUT", "/health"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			rr, body := f.do(t, tt.method, tt.target, nil)
			assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			assert.Equal(t, "Method not allowed", body["error"])
		})
	}
}

func TestNotFound(t *testing.T) {
	f := newFixture(t, "")

	for _, target := range []string{"/api/nope", "/nope"} {
		rr, body := f.do(t, "GET", target, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code, target)
		assert.Equal(t, "Not found", body["error"], target)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/x", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rr.Body.String())
}
