package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"go-route-guard/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 64
)

const (
	MessageReevaluate = "reevaluate"
	MessageRedirect   = "redirect"
	MessagePing       = "ping"
	MessagePong       = "pong"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WSMessage is pushed to WebSocket clients
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// ReevaluateData tells clients which cache key changed; an empty key means everything
type ReevaluateData struct {
	Key string `json:"key"`
}

type wsClient struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	pong      chan struct{}
	id        string
	userID    string
	sessionID string
}

// Subscriber identifies what a WebSocket client may receive
type Subscriber struct {
	// UserID receives reevaluate pushes for the user's own license key; empty for anonymous clients
	UserID string
	// SessionID receives redirects of that navigation session
	SessionID string
}

// outbound filters are combined; an empty filter matches every client
type outbound struct {
	sessionID string
	userID    string
	data      []byte
}

func (m outbound) matches(c *wsClient) bool {
	if m.sessionID != "" && c.sessionID != m.sessionID {
		return false
	}
	return m.userID == "" || c.userID == m.userID
}

// Hub keeps the connected WebSocket clients and fans messages out to them.
// Client membership is only mutated by the Run loop.
type Hub struct {
	clients    map[*wsClient]struct{}
	outbound   chan outbound
	register   chan *wsClient
	unregister chan *wsClient
	done       chan struct{}
	mu         sync.RWMutex
	logger     *zap.Logger
}

// NewHub creates a hub; call Run to start delivering
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*wsClient]struct{}),
		outbound:   make(chan outbound, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run delivers messages until ctx is done, then disconnects every client
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()
			metrics.UpdateWebSocketClients(count)
			h.logger.Debug("WebSocket client connected",
				zap.String("client", client.id),
				zap.String("user_id", client.userID),
				zap.String("session_id", client.sessionID))

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.outbound:
			h.mu.RLock()
			targets := make([]*wsClient, 0, len(h.clients))
			for client := range h.clients {
				if msg.matches(client) {
					targets = append(targets, client)
				}
			}
			h.mu.RUnlock()

			for _, client := range targets {
				select {
				case client.send <- msg.data:
				default:
					h.logger.Warn("WebSocket client send buffer full, disconnecting", zap.String("client", client.id))
					h.remove(client)
				}
			}

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			metrics.UpdateWebSocketClients(0)
			return
		}
	}
}

func (h *Hub) remove(client *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		metrics.UpdateWebSocketClients(count)
		h.logger.Debug("WebSocket client disconnected", zap.String("client", client.id))
	}
}

// Connect upgrades the request and registers a client for sub.
// Callers authenticate sub before connecting.
func (h *Hub) Connect(w http.ResponseWriter, r *http.Request, sub Subscriber) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := &wsClient{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		pong:      make(chan struct{}, 1),
		id:        uuid.NewString(),
		userID:    sub.UserID,
		sessionID: sub.SessionID,
	}

	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// Broadcast sends msg to every client
func (h *Hub) Broadcast(msg WSMessage) {
	h.enqueue(outbound{}, msg)
}

// SendTo sends msg to the clients attached to sessionID
func (h *Hub) SendTo(sessionID string, msg WSMessage) {
	if sessionID == "" {
		return
	}
	h.enqueue(outbound{sessionID: sessionID}, msg)
}

// SendToUser sends msg to the clients authenticated as userID
func (h *Hub) SendToUser(userID string, msg WSMessage) {
	if userID == "" {
		return
	}
	h.enqueue(outbound{userID: userID}, msg)
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) enqueue(target outbound, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal WebSocket message", zap.String("type", msg.Type), zap.Error(err))
		return
	}

	target.data = data
	select {
	case h.outbound <- target:
	default:
		h.logger.Warn("WebSocket outbound channel full, dropping message", zap.String("type", msg.Type))
	}
}

func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("WebSocket read error", zap.String("client", c.id), zap.Error(err))
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.logger.Debug("Ignoring malformed WebSocket message", zap.String("client", c.id), zap.Error(err))
			continue
		}
		if msg.Type == MessagePing {
			select {
			case c.pong <- struct{}{}:
			default:
			}
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.logger.Debug("Failed to write WebSocket message", zap.String("client", c.id), zap.Error(err))
				return
			}

		case <-c.pong:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(WSMessage{Type: MessagePong}); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
