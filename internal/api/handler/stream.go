package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"apm-exporter/internal/model"
	"apm-exporter/pkg/router"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsSendBuffer   = 64
	wsHubBuffer    = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// no Origin header means a non-browser client
		return origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Event is one progress message pushed to stream subscribers
type Event struct {
	Type      string             `json:"type"` // log, task, progress, summary
	BatchID   string             `json:"batch_id"`
	Level     model.LogLevel     `json:"level,omitempty"`
	Message   string             `json:"message,omitempty"`
	Task      *model.Task        `json:"task,omitempty"`
	State     model.TaskState    `json:"state,omitempty"`
	Completed int                `json:"completed,omitempty"`
	Total     int                `json:"total,omitempty"`
	Result    *model.BatchResult `json:"result,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

type client struct {
	batchID string
	conn    *websocket.Conn
	send    chan []byte
}

type message struct {
	batchID string
	data    []byte
}

// Hub fans batch events out to the websocket clients subscribed to that batch
type Hub struct {
	clients    map[string]map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan message
	done       chan struct{}
	logger     *slog.Logger

	mu sync.RWMutex
}

// NewHub creates a hub; call Run before serving streams
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[string]map[*client]bool),
		register:   make(chan *client, wsHubBuffer),
		unregister: make(chan *client, wsHubBuffer),
		broadcast:  make(chan message, wsHubBuffer),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run owns the subscription table until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, subs := range h.clients {
				for c := range subs {
					close(c.send)
				}
			}
			h.clients = make(map[string]map[*client]bool)
			h.mu.Unlock()
			return
		case c := <-h.register:
			h.mu.Lock()
			subs, ok := h.clients[c.batchID]
			if !ok {
				subs = make(map[*client]bool)
				h.clients[c.batchID] = subs
			}
			subs[c] = true
			count := len(subs)
			h.mu.Unlock()
			h.logger.Debug("stream client connected", "batch_id", c.batchID, "subscribers", count)
		case c := <-h.unregister:
			h.mu.Lock()
			h.remove(c)
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients[msg.batchID] {
				select {
				case c.send <- msg.data:
				default:
					// slow consumer
					h.remove(c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove drops a client; h.mu must be held
func (h *Hub) remove(c *client) {
	subs, ok := h.clients[c.batchID]
	if !ok || !subs[c] {
		return
	}
	delete(subs, c)
	close(c.send)
	if len(subs) == 0 {
		delete(h.clients, c.batchID)
	}
	h.logger.Debug("stream client disconnected", "batch_id", c.batchID, "subscribers", len(subs))
}

// Subscribers returns the number of clients streaming a batch
func (h *Hub) Subscribers(batchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[batchID])
}

// Publish queues an event for the batch's subscribers, dropping it when the hub is saturated
func (h *Hub) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to encode stream event", "error", err)
		return
	}
	select {
	case h.broadcast <- message{batchID: event.BatchID, data: data}:
	case <-h.done:
	default:
		h.logger.Warn("stream broadcast channel full, dropping event", "batch_id", event.BatchID, "type", event.Type)
	}
}

// StreamExport upgrades to a websocket carrying the batch's progress events
// @Summary Stream batch progress
// @Description Websocket of log, task, progress and summary events for one batch
// @Tags exports
// @Param id path string true "Batch ID"
// @Success 101 {object} Event
// @Router /exports/{id}/stream [get]
func (h *Handler) StreamExport(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "streaming is disabled")
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{batchID: router.Var(r, "id"), conn: conn, send: make(chan []byte, wsSendBuffer)}
	select {
	case h.hub.register <- c:
	case <-h.hub.done:
		conn.Close()
		return
	}

	go c.writePump()
	c.readPump()

	select {
	case h.hub.unregister <- c:
	case <-h.hub.done:
	}
}

// writePump is the only goroutine writing to the connection
func (c *client) writePump() {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump handles control frames and returns once the peer goes away
func (c *client) readPump() {
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
