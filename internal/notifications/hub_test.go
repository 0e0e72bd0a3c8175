package notifications

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/complaintdesk/internal/models"
)

func TestHubSinkPushesToSubscriber(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(r.URL.Query().Get("user"), w, r)
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?user=u-1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return hub.Connections("u-1") == 1 }, time.Second, 10*time.Millisecond)

	sink := NewHubSink(hub)
	require.NoError(t, sink.Deliver(context.Background(), &models.Notification{UserID: "u-2", Title: "other"}))
	require.NoError(t, sink.Deliver(context.Background(), &models.Notification{UserID: "u-1", Title: "mine"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event Event
	require.NoError(t, conn.ReadJSON(&event))
	require.Equal(t, "notification.created", event.Event)
	require.NotNil(t, event.Notification)
	require.Equal(t, "mine", event.Notification.Title)
}

func TestHubDropsClosedConnections(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve("u-1", w, r)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Connections("u-1") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Connections("u-1") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSameOriginOrLoopback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://desk.example.com/api/notifications/stream", nil)
	require.True(t, sameOriginOrLoopback(req))

	req.Header.Set("Origin", "https://desk.example.com")
	require.True(t, sameOriginOrLoopback(req))

	req.Header.Set("Origin", "http://localhost:5173")
	require.True(t, sameOriginOrLoopback(req))

	req.Header.Set("Origin", "https://evil.example.org")
	require.False(t, sameOriginOrLoopback(req))
}
