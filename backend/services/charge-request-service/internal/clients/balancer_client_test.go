package clients

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evgrid/backend/libs/grid"
)

func TestChargeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/charge", r.URL.Path)
		var req grid.ChargeRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "EV-1", req.EVID)
		assert.Equal(t, 22.0, req.KW())
		_ = json.NewEncoder(w).Encode(grid.SessionDescriptor{
			SessionID:     "1001_EV-1_1",
			Status:        grid.StatusStarted,
			SubstationID:  "1001",
			SubstationURL: "http://sub:5000",
		})
	}))
	defer srv.Close()

	desc, err := NewBalancerClient(srv.URL, nil, time.Second).Charge(context.Background(), "EV-1", 22)
	require.NoError(t, err)
	assert.Equal(t, "http://sub:5000", desc.SubstationURL)
}

func TestChargeClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"no source", http.StatusServiceUnavailable, `{"error":"x","code":"no_capacity_source"}`, grid.ErrNoCapacitySource},
		{"exhausted", http.StatusServiceUnavailable, `{"error":"x","code":"capacity_exhausted"}`, grid.ErrCapacityExhausted},
		{"upstream transport", http.StatusBadGateway, `{"error":"x","code":"transport_failure"}`, grid.ErrTransport},
		{"bad request", http.StatusBadRequest, `{"error":"x"}`, grid.ErrInvalidRequest},
		{"server error", http.StatusInternalServerError, ``, grid.ErrTransport},
		{"missing session id", http.StatusOK, `{"status":"started"}`, grid.ErrTransport},
		{"missing substation url", http.StatusOK, `{"session_id":"a","status":"started"}`, grid.ErrTransport},
		{"malformed", http.StatusOK, `{`, grid.ErrTransport},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewBalancerClient(srv.URL, nil, time.Second).Charge(context.Background(), "EV-1", 10)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestChargeTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewBalancerClient(srv.URL, nil, 50*time.Millisecond).Charge(context.Background(), "EV-1", 10)
	assert.True(t, errors.Is(err, grid.ErrTransport))
}
