package notifications

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/charlesng35/complaintdesk/internal/models"
	"github.com/charlesng35/complaintdesk/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 << 10

	clientBufferSize = 16
)

// Event is pushed to websocket subscribers when a notification is delivered.
type Event struct {
	Event        string               `json:"event"`
	Notification *models.Notification `json:"notification,omitempty"`
}

// Hub fans out notification events to each user's open websocket connections.
// Delivery is best effort: slow clients are disconnected rather than waited on.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]struct{}
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     sameOriginOrLoopback,
		},
		log: logger.WithModule("notifications.hub"),
	}
}

// Serve upgrades the request and streams events for userID until the socket closes.
func (h *Hub) Serve(userID string, w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	cl := &client{hub: h, socket: conn, userID: userID, send: make(chan Event, clientBufferSize)}
	h.add(cl)

	go cl.writeLoop()
	cl.readLoop()
}

// Broadcast queues event for every connection of userID.
func (h *Hub) Broadcast(userID string, event Event) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients[userID]))
	for cl := range h.clients[userID] {
		targets = append(targets, cl)
	}
	h.mu.RUnlock()

	for _, cl := range targets {
		if !cl.enqueue(event) {
			h.log.Warn("dropping slow websocket client", zap.String("user_id", userID))
			cl.close()
		}
	}
}

// Connections reports how many sockets are open for userID.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) add(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[cl.userID] == nil {
		h.clients[cl.userID] = make(map[*client]struct{})
	}
	h.clients[cl.userID][cl] = struct{}{}
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set := h.clients[cl.userID]; set != nil {
		delete(set, cl)
		if len(set) == 0 {
			delete(h.clients, cl.userID)
		}
	}
}

// HubSink pushes delivered notifications to the user's live connections.
type HubSink struct {
	hub *Hub
}

func NewHubSink(hub *Hub) *HubSink {
	return &HubSink{hub: hub}
}

func (s *HubSink) Deliver(_ context.Context, n *models.Notification) error {
	if s.hub == nil {
		return nil
	}
	s.hub.Broadcast(n.UserID, Event{Event: "notification.created", Notification: n})
	return nil
}

type client struct {
	hub    *Hub
	socket *websocket.Conn
	userID string
	send   chan Event

	mu     sync.Mutex
	closed bool
	once   sync.Once
}

// enqueue reports false when the client buffer is full.
func (c *client) enqueue(event Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- event:
		return true
	default:
		return false
	}
}

func (c *client) readLoop() {
	defer c.close()

	c.socket.SetReadLimit(maxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		// Inbound frames are ignored; reading keeps control frames flowing.
		if _, _, err := c.socket.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("websocket closed", zap.String("user_id", c.userID), zap.Error(err))
			}
			return
		}
	}
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) close() {
	c.once.Do(func() {
		c.hub.remove(c)
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
		_ = c.socket.Close()
	})
}

func sameOriginOrLoopback(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	originHost := hostOnly(parsed.Host)
	if originHost == hostOnly(r.Host) {
		return true
	}
	if ip := net.ParseIP(originHost); ip != nil {
		return ip.IsLoopback()
	}
	return strings.EqualFold(originHost, "localhost")
}

func hostOnly(hostport string) string {
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		return h
	}
	return hostport
}
