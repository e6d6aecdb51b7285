package btcetfdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/cryptoetf/backend/pkg/config"
	"github.com/wonny/cryptoetf/backend/pkg/httputil"
	"github.com/wonny/cryptoetf/backend/pkg/logger"
)

func newClient(url string) *Client {
	return NewClient(
		httputil.NewWithTimeout(logger.Nop(), time.Second).DisableRetry(),
		config.BTCFeedConfig{URL: url, Timeout: time.Second},
		logger.Nop(),
	)
}

func TestBTCHoldings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"data": {
				"IBIT": {"ticker":"IBIT","dt":"2026-03-01","holdings":350000.25,"change":120.5,"update_ts":"2026-03-01T20:00:00Z","error":false},
				"fbtc": {"dt":"2026-03-01","holdings":200000,"change":0,"update_ts":"2026-03-01T20:00:00Z","error":false},
				"BRRR": {"ticker":"BRRR","holdings":0,"error":true}
			},
			"batch_ts": "2026-03-01T20:05:00Z"
		}`))
	}))
	defer srv.Close()

	feed := newClient(srv.URL).BTCHoldings(context.Background())
	require.Len(t, feed, 3)

	ibit := feed["IBIT"]
	assert.Equal(t, 350000.25, ibit.Holdings)
	assert.True(t, ibit.Usable())

	fbtc, ok := feed["FBTC"]
	require.True(t, ok, "keys are uppercased")
	assert.Equal(t, "FBTC", fbtc.Ticker)

	assert.False(t, feed["BRRR"].Usable())
}

func TestBTCHoldingsFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) }},
		{"malformed json", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"data":`)) }},
		{"wrong shape", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"data":[1,2,3]}`)) }},
		{"missing data", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"batch_ts":"x"}`)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			feed := newClient(srv.URL).BTCHoldings(context.Background())
			assert.NotNil(t, feed)
			assert.Empty(t, feed)
		})
	}
}
