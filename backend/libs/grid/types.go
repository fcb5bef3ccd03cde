// Package grid holds the wire contract between the charge request service, the load balancer
// and the substations.
package grid

import "time"

// DefaultRequestedKW is used when a charge request omits requested_kw.
const DefaultRequestedKW = 10.0

// Telemetry is the load report a substation returns from GET /telemetry.
type Telemetry struct {
	CurrentLoad   float64 `json:"current_load"`
	TotalCapacity float64 `json:"total_capacity"`
}

// LoadPercentage returns current load as a share of capacity. A non-positive capacity
// reports zero.
func (t Telemetry) LoadPercentage() float64 {
	if t.TotalCapacity <= 0 {
		return 0
	}
	return t.CurrentLoad / t.TotalCapacity * 100
}

// ChargeRequest starts a charging session.
type ChargeRequest struct {
	EVID            string   `json:"ev_id"`
	RequestedKW     *float64 `json:"requested_kw,omitempty"`
	DurationMinutes *int     `json:"duration_minutes,omitempty"`
}

// KW returns the requested power, applying the default when absent.
func (r ChargeRequest) KW() float64 {
	if r.RequestedKW == nil {
		return DefaultRequestedKW
	}
	return *r.RequestedKW
}

// Validate checks the request shape.
func (r ChargeRequest) Validate() error {
	if r.EVID == "" {
		return &ValidationError{Field: "ev_id", Reason: "is required"}
	}
	if r.KW() <= 0 {
		return &ValidationError{Field: "requested_kw", Reason: "must be positive"}
	}
	if r.DurationMinutes != nil && *r.DurationMinutes < 0 {
		return &ValidationError{Field: "duration_minutes", Reason: "must not be negative"}
	}
	return nil
}

// ValidationError describes a rejected field. It matches ErrInvalidRequest.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Field + " " + e.Reason }

// Is reports ErrInvalidRequest equivalence.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidRequest }

// SessionDescriptor is returned once a substation accepted a charge request.
type SessionDescriptor struct {
	SessionID     string `json:"session_id"`
	Status        string `json:"status"`
	SubstationID  string `json:"substation_id"`
	SubstationURL string `json:"substation_url,omitempty"`
}

// StopResult is returned by a substation after releasing a session.
type StopResult struct {
	Status          string  `json:"status"`
	SessionID       string  `json:"session_id"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Snapshot is a registry entry as reported by the load balancer.
type Snapshot struct {
	CurrentLoad    float64   `json:"current_load"`
	TotalCapacity  float64   `json:"total_capacity"`
	LoadPercentage float64   `json:"load_percentage"`
	LastUpdated    time.Time `json:"last_updated"`
}

// Session status values.
const (
	StatusStarted = "started"
	StatusStopped = "stopped"
)
