package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"Luanshi/server/internal/engine"
)

const (
	sendBuffer   = 64
	pingInterval = 30 * time.Second
	readTimeout  = 60 * time.Second
)

// Client is one spectator connection subscribed to a save slot.
type Client struct {
	ID     string
	Slot   string
	Conn   *websocket.Conn
	Send   chan []byte
	Hub    *TurnHub
	mu     sync.Mutex
	closed bool
}

type broadcast struct {
	slot string
	data []byte
}

// TurnHub fans committed turns out to the spectators of each slot.
type TurnHub struct {
	clients    map[string]map[string]*Client // slot -> id -> client
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcast
	done       chan struct{}
	stop       sync.Once
	mu         sync.RWMutex
	logger     *slog.Logger
}

// NewTurnHub creates a hub; call Run to start it.
func NewTurnHub(logger *slog.Logger) *TurnHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &TurnHub{
		clients:    make(map[string]map[string]*Client),
		register:   make(chan *Client, 100),
		unregister: make(chan *Client, 100),
		broadcast:  make(chan broadcast, 1000),
		done:       make(chan struct{}),
		logger:     logger.With("component", "hub"),
	}
}

// Run starts the hub's event loop and returns when ctx is done, closing
// every client.
func (h *TurnHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.stop.Do(func() { close(h.done) })
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// join hands client to the event loop. It reports false once the hub has
// stopped.
func (h *TurnHub) join(client *Client) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// leave asks the event loop to drop client; after shutdown it is a no-op.
func (h *TurnHub) leave(client *Client) {
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *TurnHub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.Slot] == nil {
		h.clients[client.Slot] = make(map[string]*Client)
	}
	h.clients[client.Slot][client.ID] = client
	h.logger.Debug("client connected", "id", client.ID, "slot", client.Slot, "total", len(h.clients[client.Slot]))

	go client.writePump(h.logger)
}

func (h *TurnHub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.clients[client.Slot]
	if _, ok := subs[client.ID]; !ok {
		return
	}
	delete(subs, client.ID)
	if len(subs) == 0 {
		delete(h.clients, client.Slot)
	}
	close(client.Send)
	h.logger.Debug("client disconnected", "id", client.ID, "slot", client.Slot)
}

func (h *TurnHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for slot, subs := range h.clients {
		for _, c := range subs {
			close(c.Send)
		}
		delete(h.clients, slot)
	}
}

func (h *TurnHub) deliver(msg broadcast) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients[msg.slot] {
		select {
		case client.Send <- msg.data:
		default:
			h.logger.Warn("client send buffer full", "id", client.ID)
		}
	}
}

// Publish implements engine.Publisher.
func (h *TurnHub) Publish(slot string, turn *engine.TurnResult) {
	data, err := json.Marshal(map[string]interface{}{
		"type": "turn",
		"slot": slot,
		"data": turn,
		"time": time.Now().Unix(),
	})
	if err != nil {
		h.logger.Error("failed to marshal turn", "slot", slot, "error", err)
		return
	}

	select {
	case h.broadcast <- broadcast{slot: slot, data: data}:
	default:
		h.logger.Warn("broadcast channel full, dropping turn", "slot", slot)
	}
}

// ClientCount returns the number of spectators of slot.
func (h *TurnHub) ClientCount(slot string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[slot])
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump(logger *slog.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.mu.Lock()
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				c.mu.Unlock()
				return
			}
			err := c.Conn.WriteMessage(websocket.TextMessage, message)
			c.mu.Unlock()
			if err != nil {
				logger.Debug("write failed", "id", c.ID, "error", err)
				return
			}

		case <-ticker.C:
			c.mu.Lock()
			err := c.Conn.WriteMessage(websocket.PingMessage, nil)
			c.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// Close closes the client connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.Conn.Close()
}

// readPump drains the connection until it closes; spectators never send.
func (c *Client) readPump() {
	defer func() {
		c.Hub.leave(c)
		c.Close()
	}()

	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(readTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			break
		}
	}
}
