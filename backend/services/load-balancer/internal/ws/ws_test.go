package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"evgrid/backend/libs/grid"
	"evgrid/backend/services/load-balancer/internal/registry"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func TestSubscriberGetsSnapshotAndUpdates(t *testing.T) {
	reg := registry.New()
	reg.Add("http://a:5000")

	hub := NewHub(zap.NewNop())
	server := NewServer(hub, reg.Entries, time.Second, time.Minute, zap.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(server.HandleWS))
	defer srv.Close()

	conn := dial(t, srv)

	first := readMessage(t, conn)
	assert.Equal(t, "telemetry", first.Type)
	require.Len(t, first.Substations, 1)
	assert.False(t, first.Substations[0].Observed)
	assert.Nil(t, first.Substations[0].Telemetry)

	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	reg.Update("http://a:5000", grid.Telemetry{CurrentLoad: 30, TotalCapacity: 60}, time.Now())
	hub.Publish(reg.Entries())

	second := readMessage(t, conn)
	require.Len(t, second.Substations, 1)
	require.NotNil(t, second.Substations[0].Telemetry)
	assert.Equal(t, 50.0, second.Substations[0].Telemetry.LoadPercentage)
}

func TestSubscriberRemovedOnDisconnect(t *testing.T) {
	hub := NewHub(nil)
	server := NewServer(hub, nil, time.Second, time.Minute, nil)
	srv := httptest.NewServer(http.HandlerFunc(server.HandleWS))
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestHubCloseDisconnectsSubscribers(t *testing.T) {
	hub := NewHub(nil)
	server := NewServer(hub, nil, 100*time.Millisecond, time.Minute, nil)
	srv := httptest.NewServer(http.HandlerFunc(server.HandleWS))
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	hub.Close()
	assert.Equal(t, 0, hub.Count())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "%v", err)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	hub := NewHub(nil)
	assert.NotPanics(t, func() { hub.Publish(nil) })
}
