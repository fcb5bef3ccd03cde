package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"evgrid/backend/libs/grid"
	"evgrid/backend/libs/gridclient"
)

// BalancerClient forwards charge requests to the load balancer.
type BalancerClient struct {
	base    *gridclient.BaseClient
	timeout time.Duration
}

// NewBalancerClient builds client. timeout bounds the whole round trip.
func NewBalancerClient(baseURL string, doer gridclient.HTTPDoer, timeout time.Duration) *BalancerClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BalancerClient{base: gridclient.NewBaseClient(baseURL, doer), timeout: timeout}
}

// BaseURL returns the balancer address.
func (c *BalancerClient) BaseURL() string {
	return c.base.BaseURL()
}

// Charge asks the balancer to place a session.
func (c *BalancerClient) Charge(ctx context.Context, evID string, requestedKW float64) (grid.SessionDescriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	kw := requestedKW
	status, body, err := c.base.Do(ctx, http.MethodPost, "/charge", grid.ChargeRequest{EVID: evID, RequestedKW: &kw})
	if err != nil {
		return grid.SessionDescriptor{}, err
	}

	switch status {
	case http.StatusOK:
	case http.StatusServiceUnavailable:
		return grid.SessionDescriptor{}, gridclient.ClassifyStatus(status, body, grid.ErrNoCapacitySource)
	case http.StatusBadRequest:
		return grid.SessionDescriptor{}, gridclient.ClassifyStatus(status, body, grid.ErrInvalidRequest)
	default:
		return grid.SessionDescriptor{}, gridclient.ClassifyStatus(status, body, grid.ErrTransport)
	}

	var desc grid.SessionDescriptor
	if err := gridclient.DecodeOK(body, &desc); err != nil {
		return grid.SessionDescriptor{}, err
	}
	if desc.SessionID == "" {
		return grid.SessionDescriptor{}, fmt.Errorf("%w: no session id returned", grid.ErrTransport)
	}
	if desc.SubstationURL == "" {
		return grid.SessionDescriptor{}, fmt.Errorf("%w: no substation url returned for %s", grid.ErrTransport, desc.SessionID)
	}
	return desc, nil
}
