package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"badgehub/internal/services"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/notifications" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_SendToUser(t *testing.T) {
	hub := NewHub(nil, 4, zap.NewNop())
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()
	defer hub.Close()

	assert.False(t, hub.SendToUser(5, map[string]string{"type": "badge_earned"}), "no connection yet")

	conn := dial(t, server, "?user_id=5")
	require.Eventually(t, func() bool { return hub.ConnectedUsers() == 1 }, time.Second, 10*time.Millisecond)

	notification := services.BadgeNotification{Type: "badge_earned", BadgeID: 3, BadgeName: "First Steps"}
	assert.True(t, hub.SendToUser(5, notification))
	assert.False(t, hub.SendToUser(6, notification), "other users are not connected")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var received services.BadgeNotification
	require.NoError(t, conn.ReadJSON(&received))
	assert.Equal(t, int64(3), received.BadgeID)
	assert.Equal(t, "First Steps", received.BadgeName)
}

func TestHub_MultipleConnections(t *testing.T) {
	hub := NewHub(nil, 4, zap.NewNop())
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()
	defer hub.Close()

	first := dial(t, server, "?user_id=9")
	second := dial(t, server, "?user_id=9")
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.clients[9]) == 2
	}, time.Second, 10*time.Millisecond)

	assert.True(t, hub.SendToUser(9, map[string]int{"badge_id": 1}))

	for _, conn := range []*websocket.Conn{first, second} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg map[string]int
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, 1, msg["badge_id"])
	}
}

func TestHub_Disconnect(t *testing.T) {
	hub := NewHub(nil, 4, zap.NewNop())
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()
	defer hub.Close()

	conn := dial(t, server, "?user_id=2")
	require.Eventually(t, func() bool { return hub.ConnectedUsers() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.ConnectedUsers() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, hub.SendToUser(2, "late"))
}

func TestHub_RejectsMissingUser(t *testing.T) {
	hub := NewHub(nil, 4, zap.NewNop())

	for _, query := range []string{"", "?user_id=abc", "?user_id=-1"} {
		req := httptest.NewRequest(http.MethodGet, "/ws/notifications"+query, nil)
		rr := httptest.NewRecorder()
		hub.ServeWS(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code, query)
	}
}

func TestHub_CheckOrigin(t *testing.T) {
	hub := NewHub([]string{"https://app.example.com"}, 4, zap.NewNop())
	check := hub.upgrader.CheckOrigin

	req := httptest.NewRequest(http.MethodGet, "/ws/notifications", nil)
	assert.True(t, check(req), "non-browser clients send no origin")

	req.Header.Set("Origin", "https://app.example.com")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))
}

type stubReporter struct {
	health *services.ServiceHealth
	err    error
}

func (s stubReporter) HealthCheck(ctx context.Context) (*services.ServiceHealth, error) {
	return s.health, s.err
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name     string
		reporter stubReporter
		want     int
		status   string
	}{
		{"healthy", stubReporter{health: &services.ServiceHealth{Status: "healthy"}}, http.StatusOK, "healthy"},
		{"degraded", stubReporter{health: &services.ServiceHealth{Status: "degraded"}}, http.StatusOK, "degraded"},
		{"unhealthy", stubReporter{health: &services.ServiceHealth{Status: "unhealthy"}}, http.StatusServiceUnavailable, "unhealthy"},
		{"check error", stubReporter{err: errors.New("boom")}, http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			HealthHandler(tt.reporter, zap.NewNop())(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.want, rr.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.status, body["status"])
		})
	}
}

func TestLivenessHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	LivenessHandler()(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"alive"`)
}
