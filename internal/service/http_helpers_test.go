package service

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vizora/signage/pkg/breaker"
	"github.com/vizora/signage/pkg/logger"
)

// redirectClient sends every request to srv whatever the URL host is, so
// tests can use public looking hostnames that pass the SSRF guard
func redirectClient(t *testing.T, srv *httptest.Server, timeout time.Duration) *http.Client {
	t.Helper()
	addr := srv.Listener.Addr().String()
	dialer := &net.Dialer{}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
				return dialer.DialContext(ctx, network, addr)
			},
		},
	}
}

func newTestBreakers() *breaker.Registry {
	return breaker.NewRegistry(breaker.DefaultSettings(), logger.NewMockLogger())
}
