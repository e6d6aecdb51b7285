// Package entitlement answers "is this caller a paying user" for the dashboard.
// Billing itself lives elsewhere; this is only the read side.
package entitlement

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/wonny/cryptoetf/backend/internal/contracts"
	"github.com/wonny/cryptoetf/backend/pkg/httputil"
	"github.com/wonny/cryptoetf/backend/pkg/logger"
)

var (
	_ contracts.Entitlements = Disabled{}
	_ contracts.Entitlements = (*HTTPProvider)(nil)
)

// Disabled is used when no provider is configured: nobody is Pro
type Disabled struct{}

// IsPro always reports false
func (Disabled) IsPro(ctx context.Context, bearer string) bool { return false }

// HTTPProvider asks an external billing service.
// GET {url} with the caller's Authorization header; the body is
// {"isPro": bool} or {"status": "active"|...}.
type HTTPProvider struct {
	httpClient *httputil.Client
	url        string
	timeout    time.Duration
	logger     *logger.Logger
}

// New returns Disabled for an empty url, otherwise an HTTPProvider
func New(httpClient *httputil.Client, url string, log *logger.Logger) contracts.Entitlements {
	if strings.TrimSpace(url) == "" {
		return Disabled{}
	}
	return &HTTPProvider{
		httpClient: httpClient,
		url:        url,
		timeout:    5 * time.Second,
		logger:     log.Module("entitlement"),
	}
}

type status struct {
	IsPro  bool   `json:"isPro"`
	Status string `json:"status"`
}

// IsPro is false for a missing or malformed bearer and on any provider failure
func (p *HTTPProvider) IsPro(ctx context.Context, bearer string) bool {
	token, ok := BearerToken(bearer)
	if !ok {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var st status
	header := http.Header{"Authorization": []string{"Bearer " + token}}
	if err := p.httpClient.GetJSONWithHeader(ctx, p.url, header, &st); err != nil {
		p.logger.WithError(err).Debug("Entitlement lookup failed")
		return false
	}
	return st.IsPro || strings.EqualFold(st.Status, "active")
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
