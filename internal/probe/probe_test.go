package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelar/videoseek/internal/backend"
	"github.com/avelar/videoseek/internal/endpoint"
)

func newProbe(t *testing.T, handler http.HandlerFunc) (*Probe, *endpoint.Registry, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	registry := endpoint.NewRegistry()
	require.NoError(t, registry.Set(server.URL))
	client := backend.NewHTTPClient(registry)
	return New(registry, client, nil), registry, server
}

func TestRun_Healthy(t *testing.T) {
	p, registry, _ := newProbe(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy","engine_initialized":true,"gpu_available":true,"gpu_name":"A100"}`))
	})

	state, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, endpoint.StatusConnected, state.Status)
	require.NotNil(t, state.Health)
	assert.True(t, state.Health.EngineReady)
	assert.True(t, state.Health.GPUAvailable)
	assert.Equal(t, "A100", state.Health.GPUName)

	// Cached state matches the returned one.
	assert.Equal(t, state, registry.State())
}

func TestRun_Unhealthy(t *testing.T) {
	p, registry, _ := newProbe(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"starting"}`))
	})

	state, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, endpoint.StatusDisconnected, state.Status)
	assert.Equal(t, "unhealthy", state.Reason)
	assert.Equal(t, endpoint.StatusDisconnected, registry.State().Status)
}

func TestRun_InterstitialIsProtocolError(t *testing.T) {
	p, registry, _ := newProbe(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>tunnel warning</html>"))
	})

	state, err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrProtocol)
	assert.Equal(t, endpoint.StatusDisconnected, state.Status)
	assert.Equal(t, endpoint.StatusDisconnected, registry.State().Status)
}

func TestRun_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	registry := endpoint.NewRegistry()
	require.NoError(t, registry.Set(server.URL))
	server.Close()

	p := New(registry, backend.NewHTTPClient(registry), nil)
	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, backend.ErrTransport)
}

func TestRun_NotConfigured(t *testing.T) {
	registry := endpoint.NewRegistry()
	p := New(registry, backend.NewHTTPClient(registry), nil)

	state, err := p.Run(context.Background())
	assert.ErrorIs(t, err, endpoint.ErrNotConfigured)
	assert.Equal(t, endpoint.StatusUnconfigured, state.Status)
}

func TestRun_IsIdempotent(t *testing.T) {
	p, _, _ := newProbe(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})

	for i := 0; i < 3; i++ {
		state, err := p.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, endpoint.StatusConnected, state.Status)
	}
}

func TestHint(t *testing.T) {
	assert.Contains(t, Hint(endpoint.ErrNotConfigured), "Paste the tunnel URL")
	assert.Contains(t, Hint(backend.ErrProtocol), "HTML instead of JSON")
	assert.Contains(t, Hint(backend.ErrTransport), "tunnel may have expired")
}
