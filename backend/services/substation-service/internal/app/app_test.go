package app

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"evgrid/backend/libs/grid"
	"evgrid/backend/services/substation-service/internal/config"
)

func newTestApp(t *testing.T, capacity float64) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Substation.ID = "4242"
	cfg.Substation.CapacityKW = capacity
	application, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	return application
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestChargeLifecycle(t *testing.T) {
	application := newTestApp(t, 100)
	h := application.Handler()

	rec := do(t, h, http.MethodPost, "/charge", map[string]interface{}{"ev_id": "EV-1", "requested_kw": 30})
	require.Equal(t, http.StatusOK, rec.Code)
	var started grid.SessionDescriptor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	assert.Equal(t, grid.StatusStarted, started.Status)
	assert.Equal(t, "4242", started.SubstationID)
	assert.True(t, strings.HasPrefix(started.SessionID, "4242_EV-1_"))

	rec = do(t, h, http.MethodGet, "/telemetry", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var telemetry grid.Telemetry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &telemetry))
	assert.Equal(t, 30.0, telemetry.CurrentLoad)
	assert.Equal(t, 100.0, telemetry.TotalCapacity)

	rec = do(t, h, http.MethodDelete, "/charge/"+started.SessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stopped grid.StopResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stopped))
	assert.Equal(t, grid.StatusStopped, stopped.Status)
	assert.Equal(t, started.SessionID, stopped.SessionID)
	assert.GreaterOrEqual(t, stopped.DurationSeconds, 0.0)

	rec = do(t, h, http.MethodDelete, "/charge/"+started.SessionID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), grid.CodeNotFound)
}

func TestChargeDefaultsToTenKW(t *testing.T) {
	application := newTestApp(t, 100)
	rec := do(t, application.Handler(), http.MethodPost, "/charge", map[string]interface{}{"ev_id": "EV-2"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10.0, application.Substation().Telemetry().CurrentLoad)
}

func TestChargeRejectedWhenFull(t *testing.T) {
	application := newTestApp(t, 20)
	h := application.Handler()

	rec := do(t, h, http.MethodPost, "/charge", map[string]interface{}{"ev_id": "EV-1", "requested_kw": 15})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/charge", map[string]interface{}{"ev_id": "EV-2", "requested_kw": 10})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body grid.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, grid.CodeCapacityExhausted, body.Code)
	assert.Equal(t, 15.0, application.Substation().Telemetry().CurrentLoad)
}

func TestChargeValidation(t *testing.T) {
	application := newTestApp(t, 100)
	h := application.Handler()

	rec := do(t, h, http.MethodPost, "/charge", map[string]interface{}{"requested_kw": 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/charge", map[string]interface{}{"ev_id": "EV-1", "requested_kw": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/charge", strings.NewReader("{not json"))
	recorder := httptest.NewRecorder()
	h.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestStatusSessionsAndHealth(t *testing.T) {
	application := newTestApp(t, 50)
	h := application.Handler()
	do(t, h, http.MethodPost, "/charge", map[string]interface{}{"ev_id": "EV-1", "requested_kw": 25})

	rec := do(t, h, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 50.0, status["load_percentage"])
	assert.Equal(t, 25.0, status["available_capacity"])
	assert.Equal(t, 1.0, status["active_chargers"])

	rec = do(t, h, http.MethodGet, "/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "EV-1")

	rec = do(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"substation_id":"4242"`)

	rec = do(t, h, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	application := newTestApp(t, 100)
	h := application.Handler()
	do(t, h, http.MethodPost, "/charge", map[string]interface{}{"ev_id": "EV-1", "requested_kw": 40})

	rec := do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "current_load 40")
	assert.Contains(t, body, "charging_requests_total 1")
}

func TestMethodNotAllowed(t *testing.T) {
	application := newTestApp(t, 100)
	rec := do(t, application.Handler(), http.MethodGet, "/charge", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
