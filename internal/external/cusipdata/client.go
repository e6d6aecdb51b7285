package cusipdata

import (
	"context"
	"time"

	"github.com/wonny/cryptoetf/backend/internal/contracts"
	"github.com/wonny/cryptoetf/backend/pkg/httputil"
	"github.com/wonny/cryptoetf/backend/pkg/logger"
	"github.com/wonny/cryptoetf/backend/pkg/metrics"
)

var _ contracts.CUSIPDirectory = (*Client)(nil)

// Client reads an optional {TICKER: CUSIP} JSON document
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	metrics    *metrics.Recorder
	url        string
	timeout    time.Duration
}

// NewClient creates a directory client; an empty url disables it
func NewClient(httpClient *httputil.Client, url string, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.Module("cusipdata"),
		url:        url,
		timeout:    timeout,
	}
}

// WithMetrics records fetch outcomes on rec
func (c *Client) WithMetrics(rec *metrics.Recorder) *Client {
	c.metrics = rec
	return c
}

// Enabled reports whether a directory URL is configured
func (c *Client) Enabled() bool {
	return c.url != ""
}

// CUSIPs returns entries whose value is a well-formed 9-character CUSIP
func (c *Client) CUSIPs(ctx context.Context) map[string]contracts.CUSIP {
	out := map[string]contracts.CUSIP{}
	if !c.Enabled() {
		return out
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var raw map[string]interface{}
	if err := c.httpClient.GetJSON(ctx, c.url, &raw); err != nil {
		c.logger.WithError(err).Warn("CUSIP directory fetch failed")
		c.metrics.RecordFetch("cusipdata", "map", "error")
		return out
	}

	for ticker, v := range raw {
		s, ok := v.(string)
		if !ok || len(s) != contracts.CUSIPLength {
			continue
		}
		if cusip := contracts.ParseCUSIP(s); cusip.Known() {
			out[contracts.NormalizeTicker(ticker)] = cusip
		}
	}

	c.metrics.RecordFetch("cusipdata", "map", "ok")
	return out
}
