// Package probe performs health checks against the configured backend
// endpoint and classifies the outcome into a connection state. Each call is
// exactly one attempt; the probe never retries internally, so it is safe to
// wire straight to a reconnect action.
package probe

import (
	"context"
	"errors"
	"log/slog"

	"github.com/avelar/videoseek/internal/backend"
	"github.com/avelar/videoseek/internal/endpoint"
)

// Probe validates the registry's endpoint and updates its cached state.
type Probe struct {
	registry *endpoint.Registry
	client   backend.Client
	logger   *slog.Logger
}

// New creates a Probe bound to the given registry and backend client.
func New(registry *endpoint.Registry, client backend.Client, logger *slog.Logger) *Probe {
	if logger == nil {
		logger = slog.Default()
	}
	return &Probe{
		registry: registry,
		client:   client,
		logger:   logger,
	}
}

// Run issues a single bounded-time health request and returns the resulting
// connection state. The registry's cached state is updated to match. A
// missing endpoint is a caller error (endpoint.ErrNotConfigured), not a
// network failure. Transport and protocol failures keep their sentinel so the
// caller can show the right remediation hint.
func (p *Probe) Run(ctx context.Context) (endpoint.ConnectionState, error) {
	if !p.registry.IsConfigured() {
		state := endpoint.ConnectionState{Status: endpoint.StatusUnconfigured}
		p.registry.SetState(state)
		return state, endpoint.ErrNotConfigured
	}

	p.registry.SetState(endpoint.ConnectionState{Status: endpoint.StatusProbing})

	info, err := p.client.Health(ctx)
	if err != nil {
		state := endpoint.ConnectionState{
			Status: endpoint.StatusDisconnected,
			Reason: err.Error(),
		}
		p.registry.SetState(state)
		p.logger.Warn("health probe failed", slog.String("error", err.Error()))
		return state, err
	}

	if info.Status != "healthy" {
		state := endpoint.ConnectionState{
			Status: endpoint.StatusDisconnected,
			Reason: "unhealthy",
		}
		p.registry.SetState(state)
		p.logger.Warn("backend reported unhealthy", slog.String("status", info.Status))
		return state, nil
	}

	state := endpoint.ConnectionState{
		Status: endpoint.StatusConnected,
		Health: &endpoint.Health{
			EngineReady:  info.EngineInitialized,
			GPUAvailable: info.GPUAvailable,
			GPUName:      info.GPUName,
		},
	}
	p.registry.SetState(state)
	p.logger.Info("backend connected",
		slog.Bool("engine_ready", info.EngineInitialized),
		slog.Bool("gpu_available", info.GPUAvailable),
		slog.String("gpu_name", info.GPUName),
	)
	return state, nil
}

// Hint maps a probe failure to an operator-actionable message. Distinguishing
// a cold tunnel from a dead server matters: both look like "offline" from a
// generic error string.
func Hint(err error) string {
	switch {
	case errors.Is(err, endpoint.ErrNotConfigured):
		return "No backend URL configured. Paste the tunnel URL printed by the backend."
	case errors.Is(err, backend.ErrProtocol):
		return "The server answered with HTML instead of JSON. Make sure the backend cell is running, " +
			"the tunnel URL is complete, and open the tunnel URL in a browser once to clear its warning page."
	case errors.Is(err, backend.ErrTransport):
		return "Could not reach the backend. The tunnel may have expired or the server is down; restart the backend and paste the new URL."
	default:
		return "Connection failed: " + err.Error()
	}
}
