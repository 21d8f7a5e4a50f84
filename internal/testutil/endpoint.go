package testutil

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/macrat/sitewatch/internal/endpoint"
)

// NewBackend makes an endpoint.Backend with the fixture of NewStore.
func NewBackend(t testing.TB) (endpoint.Backend, *DummyLogger) {
	t.Helper()

	l := &DummyLogger{}
	return endpoint.Backend{
		Name:     "test",
		Schedule: "1m0s",
		Store:    NewStore(t),
		Logger:   l,
		Now:      func() time.Time { return Now },
	}, l
}

// StartTestServer starts a test server of all endpoints with the fixture of NewStore.
func StartTestServer(t testing.TB) *httptest.Server {
	t.Helper()

	b, _ := NewBackend(t)

	srv := httptest.NewServer(endpoint.New(b))
	t.Cleanup(srv.Close)

	return srv
}
