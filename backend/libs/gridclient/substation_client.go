// Package gridclient talks to substations over HTTP. Every failure is classified with the
// grid error taxonomy so callers can tell capacity rejections from transport problems.
package gridclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"evgrid/backend/libs/grid"
)

// Timeouts bound each substation operation.
type Timeouts struct {
	Telemetry time.Duration
	Start     time.Duration
	Stop      time.Duration
}

// DefaultTimeouts are 5s for telemetry and 10s for start and stop.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Telemetry: 5 * time.Second,
		Start:     10 * time.Second,
		Stop:      10 * time.Second,
	}
}

func (t Timeouts) withDefaults() Timeouts {
	def := DefaultTimeouts()
	if t.Telemetry <= 0 {
		t.Telemetry = def.Telemetry
	}
	if t.Start <= 0 {
		t.Start = def.Start
	}
	if t.Stop <= 0 {
		t.Stop = def.Stop
	}
	return t
}

// SubstationClient issues telemetry, start and stop calls to any substation endpoint.
type SubstationClient struct {
	http     HTTPDoer
	timeouts Timeouts
}

// NewSubstationClient returns a client; a nil doer uses a plain http.Client.
func NewSubstationClient(doer HTTPDoer, timeouts Timeouts) *SubstationClient {
	if doer == nil {
		doer = NewDefaultHTTPClient(0)
	}
	return &SubstationClient{http: doer, timeouts: timeouts.withDefaults()}
}

// Timeouts returns the effective timeouts.
func (c *SubstationClient) Timeouts() Timeouts {
	return c.timeouts
}

// Telemetry fetches current load and capacity.
func (c *SubstationClient) Telemetry(ctx context.Context, endpoint string) (grid.Telemetry, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Telemetry)
	defer cancel()

	status, body, err := NewBaseClient(endpoint, c.http).Do(ctx, http.MethodGet, "/telemetry", nil)
	if err != nil {
		return grid.Telemetry{}, err
	}
	if status != http.StatusOK {
		return grid.Telemetry{}, ClassifyStatus(status, body, grid.ErrTransport)
	}
	var wire telemetryBody
	if err := DecodeOK(body, &wire); err != nil {
		return grid.Telemetry{}, err
	}
	return wire.telemetry()
}

// telemetryBody keeps absent fields distinguishable from zero.
type telemetryBody struct {
	CurrentLoad   *float64 `json:"current_load"`
	TotalCapacity *float64 `json:"total_capacity"`
}

func (b telemetryBody) telemetry() (grid.Telemetry, error) {
	switch {
	case b.CurrentLoad == nil || b.TotalCapacity == nil:
		return grid.Telemetry{}, fmt.Errorf("%w: telemetry missing current_load or total_capacity", grid.ErrTransport)
	case *b.CurrentLoad < 0:
		return grid.Telemetry{}, fmt.Errorf("%w: negative current_load %v", grid.ErrTransport, *b.CurrentLoad)
	case *b.TotalCapacity <= 0:
		return grid.Telemetry{}, fmt.Errorf("%w: non-positive total_capacity %v", grid.ErrTransport, *b.TotalCapacity)
	}
	return grid.Telemetry{CurrentLoad: *b.CurrentLoad, TotalCapacity: *b.TotalCapacity}, nil
}

// Start asks the substation to allocate requestedKW for evID.
func (c *SubstationClient) Start(ctx context.Context, endpoint, evID string, requestedKW float64) (grid.SessionDescriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Start)
	defer cancel()

	kw := requestedKW
	status, body, err := NewBaseClient(endpoint, c.http).Do(ctx, http.MethodPost, "/charge", grid.ChargeRequest{
		EVID:        evID,
		RequestedKW: &kw,
	})
	if err != nil {
		return grid.SessionDescriptor{}, err
	}

	switch status {
	case http.StatusOK:
	case http.StatusServiceUnavailable:
		return grid.SessionDescriptor{}, ClassifyStatus(status, body, grid.ErrCapacityExhausted)
	case http.StatusBadRequest:
		return grid.SessionDescriptor{}, ClassifyStatus(status, body, grid.ErrInvalidRequest)
	default:
		return grid.SessionDescriptor{}, ClassifyStatus(status, body, grid.ErrTransport)
	}

	var desc grid.SessionDescriptor
	if err := DecodeOK(body, &desc); err != nil {
		return grid.SessionDescriptor{}, err
	}
	if desc.SessionID == "" {
		return grid.SessionDescriptor{}, fmt.Errorf("%w: no session id returned", grid.ErrTransport)
	}
	return desc, nil
}

// Stop releases a session on the substation.
func (c *SubstationClient) Stop(ctx context.Context, endpoint, sessionID string) (grid.StopResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Stop)
	defer cancel()

	status, body, err := NewBaseClient(endpoint, c.http).Do(ctx, http.MethodDelete, "/charge/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return grid.StopResult{}, err
	}

	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return grid.StopResult{}, ClassifyStatus(status, body, grid.ErrNotFound)
	default:
		return grid.StopResult{}, ClassifyStatus(status, body, grid.ErrTransport)
	}

	var res grid.StopResult
	if err := DecodeOK(body, &res); err != nil {
		return grid.StopResult{}, err
	}
	return res, nil
}
