// Package endpoint holds the single active backend base address for a
// session, together with the most recent connection state observed for it.
// The registry is the only component allowed to mutate the endpoint; every
// other component reads it through the registry.
package endpoint

import (
	"errors"
	"strings"
	"sync"
)

// Static errors for endpoint registry operations.
var (
	// ErrInvalidEndpoint is returned when the provided URL is empty after trimming.
	ErrInvalidEndpoint = errors.New("endpoint: invalid endpoint URL")
	// ErrNotConfigured is returned when an operation requires an endpoint and none is set.
	ErrNotConfigured = errors.New("endpoint: API URL not configured")
)

// Status represents the connection status against the configured endpoint.
type Status string

// Connection statuses. Transitions happen only via the connection probe,
// except for the reset to Unconfigured performed by Registry.Set and Clear.
const (
	StatusUnconfigured Status = "UNCONFIGURED"
	StatusProbing      Status = "PROBING"
	StatusConnected    Status = "CONNECTED"
	StatusDisconnected Status = "DISCONNECTED"
)

// Health describes the backend's self-reported health.
type Health struct {
	// EngineReady indicates the inference engine finished initializing.
	EngineReady bool
	// GPUAvailable indicates a GPU is visible to the backend.
	GPUAvailable bool
	// GPUName is the GPU model name, if any.
	GPUName string
}

// ConnectionState is the last known connection outcome for the endpoint.
type ConnectionState struct {
	// Status is the connection status.
	Status Status
	// Health is set when Status is StatusConnected.
	Health *Health
	// Reason is set when Status is StatusDisconnected.
	Reason string
}

// Registry owns the active backend base URL and its cached connection state.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	baseURL string
	state   ConnectionState
}

// NewRegistry creates an empty, unconfigured registry.
func NewRegistry() *Registry {
	return &Registry{
		state: ConnectionState{Status: StatusUnconfigured},
	}
}

// Set stores the backend base URL after normalizing it.
// Normalization trims whitespace and strips a single trailing slash.
// Setting a new URL invalidates any cached connection state so stale
// health data is never read after a reconnect.
func (r *Registry) Set(rawURL string) error {
	trimmed := strings.TrimSpace(rawURL)
	trimmed = strings.TrimSuffix(trimmed, "/")
	if trimmed == "" {
		return ErrInvalidEndpoint
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.baseURL = trimmed
	r.state = ConnectionState{Status: StatusUnconfigured}
	return nil
}

// Get returns the current base URL. The second return value is false when
// no endpoint is configured.
func (r *Registry) Get() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.baseURL, r.baseURL != ""
}

// IsConfigured reports whether an endpoint is set.
func (r *Registry) IsConfigured() bool {
	_, ok := r.Get()
	return ok
}

// Clear removes the endpoint and resets the connection state.
// Used on explicit operator disconnect.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.baseURL = ""
	r.state = ConnectionState{Status: StatusUnconfigured}
}

// State returns the cached connection state.
func (r *Registry) State() ConnectionState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// SetState replaces the cached connection state.
func (r *Registry) SetState(state ConnectionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
}
