package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/earthsim/internal/engine"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512
	// Maximum concurrent stream clients.
	maxStreamConns = 32
)

// KindSnapshot labels the first message on a new stream: the latest state
// broadcast before the client joined. Its ID and tick are those of that
// transition.
const KindSnapshot = "snapshot"

var (
	errStreamNotStarted = errors.New("stream not started")
	errTooManyStreams   = errors.New("too many stream clients")
)

type streamClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans simulation transitions out to connected WebSocket clients.
type Hub struct {
	mu      sync.Mutex
	clients map[*streamClient]bool
	last    engine.Transition // latest state sent to clients
	started bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*streamClient]bool)}
}

// seed records the state the subscription began from and opens the hub to
// clients. Clients that join before the first transition are greeted with it.
func (h *Hub) seed(start engine.Transition) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = start
	h.started = true
}

// Run broadcasts each transition until ctx is done or the stream closes.
func (h *Hub) Run(ctx context.Context, transitions <-chan engine.Transition) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case t, ok := <-transitions:
			if !ok {
				h.closeAll()
				return
			}
			payload, err := json.Marshal(t)
			if err != nil {
				slog.Error("marshal transition failed", "error", err)
				continue
			}
			h.broadcast(t, payload)
		}
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// register queues the latest state for c and adds it to the broadcast set in
// one step, so c sees every later transition and nothing older.
func (h *Hub) register(c *streamClient) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.started {
		return errStreamNotStarted
	}
	if len(h.clients) >= maxStreamConns {
		return errTooManyStreams
	}

	hello := h.last
	hello.Kind = KindSnapshot
	hello.Event = ""
	hello.Changes = nil
	hello.At = time.Now().UTC()
	payload, err := json.Marshal(hello)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	c.send <- payload
	h.clients[c] = true
	return nil
}

func (h *Hub) unregister(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

// broadcast drops clients whose send buffer is full.
func (h *Hub) broadcast(t engine.Transition, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = t
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// handleStream upgrades to a WebSocket and pushes every transition as JSON,
// starting with the latest broadcast state.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	allowed := s.allowedOrigins()
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed[origin] || origin == "http://"+r.Host || origin == "https://"+r.Host
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("stream upgrade failed", "error", err)
		return
	}

	c := &streamClient{hub: s.hub, conn: conn, send: make(chan []byte, 256)}
	if err := s.hub.register(c); err != nil {
		code := websocket.CloseInternalServerErr
		if errors.Is(err, errTooManyStreams) {
			code = websocket.CloseTryAgainLater
		}
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, err.Error()),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	slog.Info("stream client connected", "remote", r.RemoteAddr, "clients", s.hub.Len())
	go c.writePump()
	go c.readPump()
}

// readPump discards inbound messages and unregisters on disconnect.
func (c *streamClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("stream read error", "error", err)
			}
			return
		}
	}
}

// writePump pushes queued messages and keeps the connection alive with pings.
func (c *streamClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
