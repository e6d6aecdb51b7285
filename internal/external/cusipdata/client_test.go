package cusipdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/cryptoetf/backend/pkg/httputil"
	"github.com/wonny/cryptoetf/backend/pkg/logger"
)

func TestCUSIPs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ethw":"091955104","SHORT":"12345","NUM":123456789,"SENT":"—","OK2":"46091J101"}`))
	}))
	defer srv.Close()

	c := NewClient(httputil.New(logger.Nop()).DisableRetry(), srv.URL, time.Second, logger.Nop())
	got := c.CUSIPs(context.Background())

	assert.Len(t, got, 2)
	assert.Equal(t, "091955104", got["ETHW"].String())
	assert.Equal(t, "46091J101", got["OK2"].String())
}

func TestCUSIPsDisabled(t *testing.T) {
	c := NewClient(httputil.New(logger.Nop()), "", time.Second, logger.Nop())
	assert.False(t, c.Enabled())
	assert.Empty(t, c.CUSIPs(context.Background()))
}

func TestCUSIPsFailure(t *testing.T) {
	tests := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) },
		"array":  func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`["091955104"]`)) },
	}

	for name, h := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			c := NewClient(httputil.New(logger.Nop()).DisableRetry(), srv.URL, time.Second, logger.Nop())
			got := c.CUSIPs(context.Background())
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}
