package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/laundry_go_server/internal/pkg/jwt"
	"github.com/qs3c/laundry_go_server/internal/pkg/ws"
)

const testSecret = "test-secret"

func newWSServer(t *testing.T, hub *ws.Hub, origins []string) *httptest.Server {
	t.Helper()
	router := gin.New()
	router.GET("/ws", NewWebSocketHandler(hub, testSecret, origins, nil).Handle)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func wsURL(server *httptest.Server, token string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=" + token
}

func TestWebSocketHandler_Unauthorized(t *testing.T) {
	server := newWSServer(t, ws.NewHub(nil), nil)

	tests := []struct {
		name string
		url  string
	}{
		{"missing token", server.URL + "/ws"},
		{"invalid token", server.URL + "/ws?token=garbage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(tt.url)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestWebSocketHandler_RegistersClient(t *testing.T) {
	hub := ws.NewHub(nil)
	server := newWSServer(t, hub, nil)

	token, err := jwt.GenerateToken(42, jwt.RoleClient, testSecret, 1)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, token), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return hub.IsOnline(jwt.RoleClient, 42)
	}, time.Second, 10*time.Millisecond)
	assert.False(t, hub.IsOnline(jwt.RoleStaff, 42))

	hub.SendToUser(jwt.RoleClient, 42, &ws.Message{Type: "order_created", Data: map[string]int64{"order_id": 7}})

	var msg ws.Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "order_created", msg.Type)

	conn.Close()
	require.Eventually(t, func() bool {
		return !hub.IsOnline(jwt.RoleClient, 42)
	}, time.Second, 10*time.Millisecond)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://shop.example.com"})

	req := httptest.NewRequest("GET", "/ws", nil)
	assert.True(t, check(req), "no origin header")

	req.Header.Set("Origin", "https://shop.example.com")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.True(t, originChecker(nil)(req))
}
