package fmp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/wonny/cryptoetf/backend/internal/contracts"
	"github.com/wonny/cryptoetf/backend/internal/knowledge"
	"github.com/wonny/cryptoetf/backend/internal/normalize"
	"github.com/wonny/cryptoetf/backend/pkg/config"
	"github.com/wonny/cryptoetf/backend/pkg/httputil"
	"github.com/wonny/cryptoetf/backend/pkg/logger"
	"github.com/wonny/cryptoetf/backend/pkg/metrics"
)

const source = "fmp"

var _ contracts.MarketData = (*Client)(nil)

// errNoAPIKey short-circuits every call when no key is configured
var errNoAPIKey = errors.New("FMP_API_KEY not set")

// Client handles communication with the market-data provider.
// Exported methods never fail: upstream errors collapse to empty values.
// ⭐ SSOT: 시장 데이터 API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	metrics    *metrics.Recorder
	kb         *knowledge.Base
	baseURL    string
	apiKey     string
	timeout    time.Duration
	now        func() time.Time
	warnOnce   sync.Once
}

// NewClient creates a new market-data client
func NewClient(httpClient *httputil.Client, cfg config.FMPConfig, kb *knowledge.Base, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.Module("fmp"),
		kb:         kb,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		timeout:    cfg.Timeout,
		now:        time.Now,
	}
}

// WithMetrics records fetch outcomes on rec
func (c *Client) WithMetrics(rec *metrics.Recorder) *Client {
	c.metrics = rec
	return c
}

// WithClock overrides the clock used for date ranges
func (c *Client) WithClock(now func() time.Time) *Client {
	c.now = now
	return c
}

// HasKey reports whether calls reach the network at all
func (c *Client) HasKey() bool {
	return c.apiKey != ""
}

// endpoint is one candidate URL for a concern
type endpoint struct {
	path   string
	params url.Values
}

func ep(path string, kv ...string) endpoint {
	params := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		params.Set(kv[i], kv[i+1])
	}
	return endpoint{path: path, params: params}
}

// fetch performs one bounded GET and returns the decoded JSON payload
func (c *Client) fetch(ctx context.Context, e endpoint) (interface{}, error) {
	if c.apiKey == "" {
		c.warnOnce.Do(func() {
			c.logger.Warn("FMP_API_KEY not set; reconciliation uses knowledge-base fallbacks only")
		})
		return nil, errNoAPIKey
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	params := url.Values{}
	for k, v := range e.params {
		params[k] = v
	}
	params.Set("apikey", c.apiKey)
	fullURL := fmt.Sprintf("%s%s?%s", c.baseURL, e.path, params.Encode())

	var payload interface{}
	if err := c.httpClient.GetJSON(ctx, fullURL, &payload); err != nil {
		return nil, fmt.Errorf("%s: %w", e.path, err)
	}
	return payload, nil
}

// firstRows walks endpoints in order; the first non-empty array wins
func (c *Client) firstRows(ctx context.Context, call string, endpoints ...endpoint) []map[string]interface{} {
	failed := false
	for _, e := range endpoints {
		payload, err := c.fetch(ctx, e)
		if err != nil {
			failed = true
			if !errors.Is(err, errNoAPIKey) {
				c.logger.WithFields(map[string]interface{}{
					"call":  call,
					"error": err.Error(),
				}).Debug("market-data endpoint failed, trying next")
			}
			continue
		}
		if rows := normalize.ExtractArray(payload); len(rows) > 0 {
			c.record(call, "ok")
			return rows
		}
	}

	if failed {
		c.record(call, "error")
	} else {
		c.record(call, "empty")
	}
	return nil
}

func (c *Client) record(call, outcome string) {
	c.metrics.RecordFetch(source, call, outcome)
}
