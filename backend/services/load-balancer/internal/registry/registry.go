// Package registry keeps the ordered set of substation endpoints the balancer routes to,
// together with the last telemetry each one reported.
package registry

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"evgrid/backend/libs/grid"
)

// Entry is one registered substation and its cached telemetry.
type Entry struct {
	Endpoint string
	Snapshot grid.Snapshot
	// Observed is false until the first successful poll.
	Observed bool
}

// Registry is safe for concurrent use. One mutex guards membership and the telemetry cache.
type Registry struct {
	mu        sync.RWMutex
	endpoints []string
	telemetry map[string]grid.Snapshot
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{telemetry: make(map[string]grid.Snapshot)}
}

// Normalize trims whitespace and trailing slashes and checks for an absolute http(s) URL.
func Normalize(endpoint string) (string, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return "", &grid.ValidationError{Field: "substation_url", Reason: "is required"}
	}
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", &grid.ValidationError{Field: "substation_url", Reason: fmt.Sprintf("%q is not an absolute http url", endpoint)}
	}
	return endpoint, nil
}

// Add appends endpoint. It returns false when the endpoint is already registered.
func (r *Registry) Add(endpoint string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexOf(endpoint) >= 0 {
		return false
	}
	r.endpoints = append(r.endpoints, endpoint)
	return true
}

// Remove drops endpoint and its cached telemetry. It returns false when absent.
func (r *Registry) Remove(endpoint string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(endpoint)
	if i < 0 {
		return false
	}
	r.endpoints = append(r.endpoints[:i:i], r.endpoints[i+1:]...)
	delete(r.telemetry, endpoint)
	return true
}

// Snapshot returns the endpoints in registration order. The slice is a copy.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.endpoints))
	copy(out, r.endpoints)
	return out
}

// Contains reports whether endpoint is registered.
func (r *Registry) Contains(endpoint string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.indexOf(endpoint) >= 0
}

// Update stores telemetry for endpoint. Writes for endpoints removed mid-poll are dropped.
func (r *Registry) Update(endpoint string, t grid.Telemetry, at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexOf(endpoint) < 0 {
		return false
	}
	r.telemetry[endpoint] = grid.Snapshot{
		CurrentLoad:    t.CurrentLoad,
		TotalCapacity:  t.TotalCapacity,
		LoadPercentage: t.LoadPercentage(),
		LastUpdated:    at,
	}
	return true
}

// Entries returns every endpoint with its cached telemetry, in registration order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		snap, ok := r.telemetry[ep]
		out = append(out, Entry{Endpoint: ep, Snapshot: snap, Observed: ok})
	}
	return out
}

// Len returns the number of registered endpoints and how many have telemetry.
func (r *Registry) Len() (registered, observed int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.endpoints), len(r.telemetry)
}

func (r *Registry) indexOf(endpoint string) int {
	for i, ep := range r.endpoints {
		if ep == endpoint {
			return i
		}
	}
	return -1
}

// View is the JSON rendering of an entry used by the admin API and the telemetry stream.
type View struct {
	SubstationURL string         `json:"substation_url"`
	Observed      bool           `json:"observed"`
	Telemetry     *grid.Snapshot `json:"telemetry,omitempty"`
}

// Views converts entries to their JSON rendering.
func Views(entries []Entry) []View {
	out := make([]View, 0, len(entries))
	for _, e := range entries {
		v := View{SubstationURL: e.Endpoint, Observed: e.Observed}
		if e.Observed {
			snap := e.Snapshot
			v.Telemetry = &snap
		}
		out = append(out, v)
	}
	return out
}
