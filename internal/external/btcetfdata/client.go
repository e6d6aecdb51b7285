package btcetfdata

import (
	"context"
	"time"

	"github.com/wonny/cryptoetf/backend/internal/contracts"
	"github.com/wonny/cryptoetf/backend/pkg/config"
	"github.com/wonny/cryptoetf/backend/pkg/httputil"
	"github.com/wonny/cryptoetf/backend/pkg/logger"
	"github.com/wonny/cryptoetf/backend/pkg/metrics"
)

var _ contracts.HoldingsFeed = (*Client)(nil)

// response is the feed document: {data: {TICKER: entry}, batch_ts}
type response struct {
	Data    map[string]contracts.BTCHolding `json:"data"`
	BatchTS string                          `json:"batch_ts"`
}

// Client reads the spot Bitcoin ETF holdings feed
// ⭐ SSOT: BTC 보유량 피드 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	metrics    *metrics.Recorder
	url        string
	timeout    time.Duration
}

// NewClient creates a new feed client
func NewClient(httpClient *httputil.Client, cfg config.BTCFeedConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.Module("btcetfdata"),
		url:        cfg.URL,
		timeout:    cfg.Timeout,
	}
}

// WithMetrics records fetch outcomes on rec
func (c *Client) WithMetrics(rec *metrics.Recorder) *Client {
	c.metrics = rec
	return c
}

// BTCHoldings returns the feed keyed by uppercase ticker; empty on any failure
func (c *Client) BTCHoldings(ctx context.Context) map[string]contracts.BTCHolding {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var resp response
	if err := c.httpClient.GetJSON(ctx, c.url, &resp); err != nil {
		c.logger.WithError(err).Warn("btcetfdata fetch failed")
		c.metrics.RecordFetch("btcetfdata", "holdings", "error")
		return map[string]contracts.BTCHolding{}
	}

	out := make(map[string]contracts.BTCHolding, len(resp.Data))
	for ticker, entry := range resp.Data {
		t := contracts.NormalizeTicker(ticker)
		if t == "" {
			continue
		}
		if entry.Ticker == "" {
			entry.Ticker = t
		}
		out[t] = entry
	}

	outcome := "ok"
	if len(out) == 0 {
		outcome = "empty"
	}
	c.metrics.RecordFetch("btcetfdata", "holdings", outcome)
	c.logger.WithFields(map[string]interface{}{
		"count":    len(out),
		"batch_ts": resp.BatchTS,
	}).Debug("btcetfdata feed loaded")

	return out
}
