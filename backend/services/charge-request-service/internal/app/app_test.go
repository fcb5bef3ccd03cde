package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"evgrid/backend/libs/grid"
	"evgrid/backend/services/charge-request-service/internal/config"
)

// fakeGrid plays both the balancer and the substation it routes to.
type fakeGrid struct {
	mu       sync.Mutex
	sessions map[string]bool
	url      string
	full     bool
}

func newFakeGrid(t *testing.T) *fakeGrid {
	g := &fakeGrid{sessions: make(map[string]bool)}
	srv := httptest.NewServer(g)
	t.Cleanup(srv.Close)
	g.url = srv.URL
	return g
}

func (g *fakeGrid) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/charge":
		if g.full {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(grid.ErrorBody{Error: "no substations", Code: grid.CodeNoCapacitySource})
			return
		}
		var req grid.ChargeRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		id := "1001_" + req.EVID
		g.sessions[id] = true
		_ = json.NewEncoder(w).Encode(grid.SessionDescriptor{
			SessionID:     id,
			Status:        grid.StatusStarted,
			SubstationID:  "1001",
			SubstationURL: g.url,
		})
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/charge/"):
		id := strings.TrimPrefix(r.URL.Path, "/charge/")
		if !g.sessions[id] {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(grid.ErrorBody{Error: "Session not found", Code: grid.CodeNotFound})
			return
		}
		delete(g.sessions, id)
		_ = json.NewEncoder(w).Encode(grid.StopResult{Status: grid.StatusStopped, SessionID: id, DurationSeconds: 3})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestApp(t *testing.T, balancerURL string, rps float64) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Balancer.URL = balancerURL
	cfg.RateLimit.RPS = rps
	cfg.RateLimit.Burst = 1
	application, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	return application
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func TestChargeAndStop(t *testing.T) {
	g := newFakeGrid(t)
	application := newTestApp(t, g.url, 0)
	h := application.Handler()

	rec := do(t, h, http.MethodPost, "/charge", map[string]interface{}{"ev_id": "EV-7", "requested_kw": 11, "duration_minutes": 60})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var desc grid.SessionDescriptor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &desc))
	assert.Equal(t, "1001_EV-7", desc.SessionID)

	rec = do(t, h, http.MethodGet, "/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"duration_minutes":60`)

	rec = do(t, h, http.MethodDelete, "/sessions/"+desc.SessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"stopped"`)
	assert.Zero(t, application.Tracker().Count())

	rec = do(t, h, http.MethodDelete, "/sessions/"+desc.SessionID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChargePropagatesBalancerClassification(t *testing.T) {
	g := newFakeGrid(t)
	g.full = true
	application := newTestApp(t, g.url, 0)

	rec := do(t, application.Handler(), http.MethodPost, "/charge", map[string]interface{}{"ev_id": "EV-1"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), grid.CodeNoCapacitySource)
}

func TestChargeBalancerUnreachable(t *testing.T) {
	application := newTestApp(t, "http://127.0.0.1:1", 0)
	rec := do(t, application.Handler(), http.MethodPost, "/charge", map[string]interface{}{"ev_id": "EV-1"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestStopSubstationLostSessionKeepsRecord(t *testing.T) {
	g := newFakeGrid(t)
	application := newTestApp(t, g.url, 0)
	h := application.Handler()

	rec := do(t, h, http.MethodPost, "/charge", map[string]interface{}{"ev_id": "EV-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	g.mu.Lock()
	g.sessions = make(map[string]bool)
	g.mu.Unlock()

	rec = do(t, h, http.MethodDelete, "/sessions/1001_EV-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1, application.Tracker().Count())
}

func TestChargeRateLimited(t *testing.T) {
	g := newFakeGrid(t)
	application := newTestApp(t, g.url, 0.001)
	h := application.Handler()

	rec := do(t, h, http.MethodPost, "/charge", map[string]interface{}{"ev_id": "EV-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodPost, "/charge", map[string]interface{}{"ev_id": "EV-2"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = do(t, h, http.MethodGet, "/sessions", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "other routes are not limited")
}

func TestStatusAndMetrics(t *testing.T) {
	g := newFakeGrid(t)
	application := newTestApp(t, g.url, 0)
	h := application.Handler()
	do(t, h, http.MethodPost, "/charge", map[string]interface{}{"ev_id": "EV-1"})

	rec := do(t, h, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 1.0, status["active_sessions"])
	assert.Equal(t, g.url, status["load_balancer_url"])

	rec = do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "active_sessions 1")
	assert.Contains(t, rec.Body.String(), "charge_requests_total 1")

	rec = do(t, h, http.MethodGet, "/health", nil)
	assert.Contains(t, rec.Body.String(), "charge_request_service")
}
