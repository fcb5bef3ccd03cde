package grid

import (
	"errors"
	"net/http"
)

// Error taxonomy shared by substations, the load balancer and the charge request service.
var (
	// ErrNoCapacitySource means no substation has reported telemetry yet.
	ErrNoCapacitySource = errors.New("no available capacity source")
	// ErrCapacityExhausted means the substation rejected the request for load.
	ErrCapacityExhausted = errors.New("insufficient capacity")
	// ErrTransport covers timeouts, refused connections and malformed responses.
	ErrTransport = errors.New("transport failure")
	// ErrNotFound means the session is unknown.
	ErrNotFound = errors.New("session not found")
	// ErrInvalidRequest means the caller sent unusable input.
	ErrInvalidRequest = errors.New("invalid request")
)

// Wire codes carried in the "code" field of error bodies.
const (
	CodeNoCapacitySource  = "no_capacity_source"
	CodeCapacityExhausted = "capacity_exhausted"
	CodeTransport         = "transport_failure"
	CodeNotFound          = "not_found"
	CodeInvalidRequest    = "invalid_request"
	CodeInternal          = "internal"
)

var codes = []struct {
	err    error
	code   string
	status int
}{
	{ErrNoCapacitySource, CodeNoCapacitySource, http.StatusServiceUnavailable},
	{ErrCapacityExhausted, CodeCapacityExhausted, http.StatusServiceUnavailable},
	{ErrTransport, CodeTransport, http.StatusBadGateway},
	{ErrNotFound, CodeNotFound, http.StatusNotFound},
	{ErrInvalidRequest, CodeInvalidRequest, http.StatusBadRequest},
}

// Code maps an error to its wire code.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// HTTPStatus maps an error to the status code used to report it.
func HTTPStatus(err error) int {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.status
		}
	}
	return http.StatusInternalServerError
}

// FromCode returns the sentinel for a wire code, or nil when the code is unknown.
func FromCode(code string) error {
	for _, c := range codes {
		if c.code == code {
			return c.err
		}
	}
	return nil
}
